package mh

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	nitLength = 14
	duiLength = 8
	// MinNITDigits mínimo de dígitos para considerar un NIT como válido al emitir CCF.
	MinNITDigits = 9
)

// Digits devuelve solo los dígitos de s (descarta guiones, puntos y espacios).
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeNIT devuelve el NIT en 14 dígitos: trunca si sobra y rellena con ceros a la izquierda si falta.
// "0614-010190-101-3" → "06140101901013".
func NormalizeNIT(nit string) string {
	return fitLeft(Digits(nit), nitLength)
}

// NormalizeDUI devuelve el DUI en 8 dígitos, sin guion.
func NormalizeDUI(dui string) string {
	return fitLeft(Digits(dui), duiLength)
}

// HasValidNIT indica si el identificador tiene la cantidad mínima de dígitos de un NIT.
func HasValidNIT(nit string) bool {
	return len(Digits(nit)) >= MinNITDigits
}

// NormalizeDocument normaliza el número según el tipo de documento (CAT-022).
// Los tipos distintos de NIT y DUI se devuelven sin cambios.
func NormalizeDocument(docType, number string) string {
	switch docType {
	case IDNIT:
		return NormalizeNIT(number)
	case IDDUI:
		return NormalizeDUI(number)
	default:
		return strings.TrimSpace(number)
	}
}

// ValidateNIT exige un NIT de emisor con al menos 9 dígitos.
func ValidateNIT(nit string) error {
	d := Digits(nit)
	if len(d) < MinNITDigits {
		return fmt.Errorf("mh: NIT debe tener al menos %d dígitos, se encontraron %d", MinNITDigits, len(d))
	}
	return nil
}

func fitLeft(d string, n int) string {
	if d == "" {
		return ""
	}
	if len(d) > n {
		return d[:n]
	}
	return strings.Repeat("0", n-len(d)) + d
}
