package dte

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Longitudes máximas de los campos de texto del esquema MH.
const (
	maxName        = 250
	maxCommercial  = 150
	maxDescription = 1000
	maxComplement  = 200
	maxCode        = 25
	maxActivity    = 150
	maxPhone       = 30
	maxEmail       = 100
)

const allowedPunct = "-.,()@"

// newTextCleaner los transformadores guardan estado: se crea uno por llamada.
func newTextCleaner() transform.Transformer {
	return transform.Chain(
		norm.NFC,
		runes.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return ' '
			}
			return r
		}),
		runes.Remove(runes.Predicate(func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && !strings.ContainsRune(allowedPunct, r)
		})),
	)
}

// CleanText normaliza un texto para el JSON del DTE: NFC, solo letras, dígitos,
// espacios y "-.,()@", espacios colapsados, mayúsculas y máximo max runas.
func CleanText(s string, max int) string {
	out, _, err := transform.String(newTextCleaner(), s)
	if err != nil {
		out = s
	}
	out = strings.Join(strings.Fields(out), " ")
	out = cases.Upper(language.Spanish).String(out)
	if max > 0 {
		if r := []rune(out); len(r) > max {
			out = strings.TrimSpace(string(r[:max]))
		}
	}
	return out
}

// cleanOrNil devuelve nil si el texto queda vacío.
func cleanOrNil(s string, max int) *string {
	c := CleanText(s, max)
	if c == "" {
		return nil
	}
	return &c
}

// trimOrNil conserva el texto tal cual (correos, teléfonos) o nil si está vacío.
func trimOrNil(s string, max int) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if r := []rune(s); max > 0 && len(r) > max {
		s = string(r[:max])
	}
	return &s
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
