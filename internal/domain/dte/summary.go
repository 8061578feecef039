package dte

import (
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/mh"
	"github.com/shopspring/decimal"
)

// TributoResumen tributo agregado del resumen.
type TributoResumen struct {
	Codigo      string `json:"codigo"`
	Descripcion string `json:"descripcion"`
	Valor       Amount `json:"valor"`
}

// Pago forma de pago del resumen.
type Pago struct {
	Codigo     string  `json:"codigo"`
	MontoPago  Amount  `json:"montoPago"`
	Referencia *string `json:"referencia"`
	Plazo      *string `json:"plazo"`
	Periodo    *int    `json:"periodo"`
}

// Resumen bloque de totales de los tipos 01, 03, 04, 05, 06 y 11.
type Resumen struct {
	TotalNoSuj          Amount           `json:"totalNoSuj"`
	TotalExenta         Amount           `json:"totalExenta"`
	TotalGravada        Amount           `json:"totalGravada"`
	SubTotalVentas      Amount           `json:"subTotalVentas"`
	DescuNoSuj          Amount           `json:"descuNoSuj"`
	DescuExenta         Amount           `json:"descuExenta"`
	DescuGravada        Amount           `json:"descuGravada"`
	PorcentajeDescuento Amount           `json:"porcentajeDescuento"`
	TotalDescu          Amount           `json:"totalDescu"`
	Tributos            []TributoResumen `json:"tributos"`
	SubTotal            Amount           `json:"subTotal"`
	IvaPerci1           *Amount          `json:"ivaPerci1,omitempty"`
	IvaRete1            Amount           `json:"ivaRete1"`
	ReteRenta           Amount           `json:"reteRenta"`
	MontoTotalOperacion Amount           `json:"montoTotalOperacion"`
	TotalNoGravado      Amount           `json:"totalNoGravado"`
	TotalPagar          Amount           `json:"totalPagar"`
	TotalLetras         string           `json:"totalLetras"`
	TotalIva            *Amount          `json:"totalIva,omitempty"`
	SaldoFavor          Amount           `json:"saldoFavor"`
	CondicionOperacion  int              `json:"condicionOperacion"`
	Pagos               []Pago           `json:"pagos"`
	NumPagoElectronico  *string          `json:"numPagoElectronico"`

	*ExportTotals
}

// ExportTotals campos propios del resumen de exportación.
type ExportTotals struct {
	Seguro        Amount  `json:"seguro"`
	Flete         Amount  `json:"flete"`
	CodIncoterms  *string `json:"codIncoterms"`
	DescIncoterms *string `json:"descIncoterms"`
	Observaciones *string `json:"observaciones"`
}

// ResumenCompra resumen plano de la factura de sujeto excluido.
type ResumenCompra struct {
	TotalCompra        Amount `json:"totalCompra"`
	Descu              Amount `json:"descu"`
	TotalDescu         Amount `json:"totalDescu"`
	TotalPagar         Amount `json:"totalPagar"`
	TotalLetras        string `json:"totalLetras"`
	CondicionOperacion int    `json:"condicionOperacion"`
}

// OperationTotal monto de la operación usado para el umbral del receptor de exportación.
func OperationTotal(rec *entity.InvoiceRecord, rules *RuleSet, t Totals) decimal.Decimal {
	sales := round2(t.NonSubject).Add(round2(t.Exempt)).Add(round2(t.Taxed))
	switch rules.Pricing {
	case PricingExclusive:
		return sales.Add(round2(t.Tax))
	case PricingExempt:
		if rec.Export != nil {
			return sales.Add(round2(rec.Export.Insurance)).Add(round2(rec.Export.Freight))
		}
	}
	return sales
}

// operationCondition 2 (crédito) si algún plazo tiene días > 0; 1 (contado) en otro caso.
func operationCondition(term entity.PaymentTerm) int {
	for _, inst := range term.Installments {
		if inst.DayOffset > 0 {
			return mh.ConditionCredit
		}
	}
	return mh.ConditionCash
}

func creditDays(term entity.PaymentTerm) int {
	days := 0
	for _, inst := range term.Installments {
		if inst.DayOffset > days {
			days = inst.DayOffset
		}
	}
	return days
}

func paymentCode(settlement string) string {
	switch settlement {
	case entity.SettlementBank:
		return mh.PaymentTransfer
	case entity.SettlementOther:
		return mh.PaymentOther
	default:
		return mh.PaymentCash
	}
}

// buildPagos lista de pagos; arreglo vacío si no hay monto a pagar.
func buildPagos(rec *entity.InvoiceRecord, total decimal.Decimal) []Pago {
	if !total.IsPositive() {
		return []Pago{}
	}
	p := Pago{Codigo: paymentCode(rec.Settlement), MontoPago: Money(total)}
	if operationCondition(rec.PaymentTerm) == mh.ConditionCredit {
		p.Plazo = strPtr(mh.TermDays)
		p.Periodo = intPtr(creditDays(rec.PaymentTerm))
	}
	return []Pago{p}
}

// BuildSummary arma el resumen a partir de los totales de las líneas.
func BuildSummary(rec *entity.InvoiceRecord, rules *RuleSet, t Totals) any {
	if rules.Shape == ShapeExcluded {
		return buildResumenCompra(rec, t)
	}

	noSuj, exenta, gravada := round2(t.NonSubject), round2(t.Exempt), round2(t.Taxed)
	tax := round2(t.Tax)
	sales := noSuj.Add(exenta).Add(gravada)

	added := decimal.Zero
	if rules.Pricing == PricingExclusive {
		added = tax
	}
	total := sales.Add(added)

	zero := Money(decimal.Zero)
	r := &Resumen{
		TotalNoSuj:          Money(noSuj),
		TotalExenta:         Money(exenta),
		TotalGravada:        Money(gravada),
		SubTotalVentas:      Money(sales),
		DescuNoSuj:          zero,
		DescuExenta:         zero,
		DescuGravada:        zero,
		PorcentajeDescuento: zero,
		TotalDescu:          Money(t.Discount),
		SubTotal:            Money(sales),
		IvaRete1:            zero,
		ReteRenta:           zero,
		TotalNoGravado:      zero,
		TotalIva:            moneyPtr(tax),
		SaldoFavor:          zero,
		CondicionOperacion:  operationCondition(rec.PaymentTerm),
	}
	if tax.IsPositive() && !isFinalConsumer(rec) && rules.Pricing != PricingExempt {
		r.Tributos = []TributoResumen{{
			Codigo:      mh.TaxVAT,
			Descripcion: mh.TaxDescription(mh.TaxVAT),
			Valor:       Money(tax),
		}}
	}
	if rules.Shape == ShapeCCF {
		r.IvaPerci1 = moneyPtr(decimal.Zero)
	}
	if rules.Shape == ShapeExport {
		ex := &ExportTotals{Seguro: zero, Flete: zero}
		if d := rec.Export; d != nil {
			ex.Seguro = Money(d.Insurance)
			ex.Flete = Money(d.Freight)
			ex.CodIncoterms = trimOrNil(d.IncotermCode, 3)
			ex.DescIncoterms = cleanOrNil(d.IncotermDesc, 150)
			total = sales.Add(ex.Seguro.Decimal()).Add(ex.Flete.Decimal())
		}
		ex.Observaciones = cleanOrNil(rec.Observations, 500)
		r.ExportTotals = ex
	}

	r.MontoTotalOperacion = Money(total)
	r.TotalPagar = Money(total)
	r.TotalLetras = AmountInWords(total, currency(rec.Currency))
	if rules.PaymentsAllowed {
		r.Pagos = buildPagos(rec, total)
	}
	return r
}

func buildResumenCompra(rec *entity.InvoiceRecord, t Totals) *ResumenCompra {
	total := round2(t.Sales())
	return &ResumenCompra{
		TotalCompra:        Money(total),
		Descu:              Money(decimal.Zero),
		TotalDescu:         Money(t.Discount),
		TotalPagar:         Money(total),
		TotalLetras:        AmountInWords(total, currency(rec.Currency)),
		CondicionOperacion: operationCondition(rec.PaymentTerm),
	}
}
