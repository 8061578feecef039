package dte

import "github.com/shopspring/decimal"

const (
	linePlaces    int32 = 8
	summaryPlaces int32 = 2
)

// Amount valor monetario con la precisión de su sección: 8 decimales en las
// líneas del cuerpo y 2 en el resumen.
type Amount struct {
	value  decimal.Decimal
	places int32
}

// Money monto del resumen (2 decimales).
func Money(d decimal.Decimal) Amount {
	return Amount{value: d.Round(summaryPlaces), places: summaryPlaces}
}

// LineAmount monto o cantidad de línea (hasta 8 decimales).
func LineAmount(d decimal.Decimal) Amount {
	return Amount{value: d.Round(linePlaces), places: linePlaces}
}

// Decimal devuelve el valor redondeado a la precisión de la sección.
func (a Amount) Decimal() decimal.Decimal { return a.value }

// String representación usada en el JSON.
func (a Amount) String() string {
	if a.places == summaryPlaces {
		return a.value.StringFixed(summaryPlaces)
	}
	if a.value.Equal(a.value.Round(summaryPlaces)) {
		return a.value.StringFixed(summaryPlaces)
	}
	return a.value.String()
}

// MarshalJSON emite el monto como número JSON.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

func moneyPtr(d decimal.Decimal) *Amount {
	a := Money(d)
	return &a
}

func round8(d decimal.Decimal) decimal.Decimal { return d.Round(linePlaces) }

func round2(d decimal.Decimal) decimal.Decimal { return d.Round(summaryPlaces) }
