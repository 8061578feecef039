package dte

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	wordUnits = [...]string{"", "UNO", "DOS", "TRES", "CUATRO", "CINCO", "SEIS", "SIETE", "OCHO", "NUEVE"}
	wordTeens = [...]string{"DIEZ", "ONCE", "DOCE", "TRECE", "CATORCE", "QUINCE", "DIECISÉIS", "DIECISIETE", "DIECIOCHO", "DIECINUEVE"}
	wordTens  = [...]string{"", "", "VEINTE", "TREINTA", "CUARENTA", "CINCUENTA", "SESENTA", "SETENTA", "OCHENTA", "NOVENTA"}
	wordHunds = [...]string{"", "CIENTO", "DOSCIENTOS", "TRESCIENTOS", "CUATROCIENTOS", "QUINIENTOS", "SEISCIENTOS", "SETECIENTOS", "OCHOCIENTOS", "NOVECIENTOS"}
)

// AmountInWords expresa el monto en letras para totalLetras.
// USD: "CIENTO TRECE 00/100 DÓLARES"; otras monedas: "CIENTO TRECE.00".
func AmountInWords(amount decimal.Decimal, currency string) string {
	fixed := amount.Abs().StringFixed(2)
	parts := strings.SplitN(fixed, ".", 2)
	integer := decimal.RequireFromString(parts[0]).IntPart()
	cents := parts[1]

	words := "CERO"
	if integer > 0 {
		words = integerWords(integer)
	}
	if currency == "" || strings.EqualFold(currency, "USD") {
		return fmt.Sprintf("%s %s/100 DÓLARES", words, cents)
	}
	return fmt.Sprintf("%s.%s", words, cents)
}

func integerWords(n int64) string {
	switch {
	case n < 1000:
		return hundredsWords(int(n))
	case n < 1_000_000:
		th, rest := n/1000, n%1000
		w := "MIL"
		if th > 1 {
			w = apocope(hundredsWords(int(th))) + " MIL"
		}
		if rest > 0 {
			w += " " + hundredsWords(int(rest))
		}
		return w
	default:
		mill, rest := n/1_000_000, n%1_000_000
		w := "UN MILLÓN"
		if mill > 1 {
			w = apocope(integerWords(mill)) + " MILLONES"
		}
		if rest > 0 {
			w += " " + integerWords(rest)
		}
		return w
	}
}

// hundredsWords 0..999.
func hundredsWords(n int) string {
	switch {
	case n == 0:
		return ""
	case n == 100:
		return "CIEN"
	case n < 10:
		return wordUnits[n]
	case n < 20:
		return wordTeens[n-10]
	case n < 100:
		if n%10 == 0 {
			return wordTens[n/10]
		}
		return wordTens[n/10] + " Y " + wordUnits[n%10]
	}
	w := wordHunds[n/100]
	if rest := n % 100; rest > 0 {
		w += " " + hundredsWords(rest)
	}
	return w
}

// apocope "UNO" → "UN" delante de MIL / MILLONES.
func apocope(w string) string {
	if strings.HasSuffix(w, "UNO") {
		return strings.TrimSuffix(w, "UNO") + "UN"
	}
	return w
}
