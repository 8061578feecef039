package dte

import (
	"fmt"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/mh"
	"github.com/shopspring/decimal"
)

// SaleType clasificación de la venta de una línea.
type SaleType int

const (
	SaleNonSubject SaleType = iota // no sujeta
	SaleExempt                     // exenta
	SaleTaxed                      // gravada
)

var (
	hundred = decimal.NewFromInt(100)
	vatRate = decimal.NewFromInt(mh.VATRate)
)

// Item línea del cuerpoDocumento.
type Item struct {
	NumItem         int      `json:"numItem"`
	TipoItem        int      `json:"tipoItem"`
	NumeroDocumento *string  `json:"numeroDocumento"`
	Cantidad        Amount   `json:"cantidad"`
	Codigo          *string  `json:"codigo"`
	CodTributo      *string  `json:"codTributo"`
	UniMedida       int      `json:"uniMedida"`
	Descripcion     string   `json:"descripcion"`
	PrecioUni       Amount   `json:"precioUni"`
	MontoDescu      Amount   `json:"montoDescu"`
	VentaNoSuj      Amount   `json:"ventaNoSuj"`
	VentaExenta     Amount   `json:"ventaExenta"`
	VentaGravada    Amount   `json:"ventaGravada"`
	Tributos        []string `json:"tributos"`
	Psv             Amount   `json:"psv"`
	NoGravado       Amount   `json:"noGravado"`
	IvaItem         *Amount  `json:"ivaItem,omitempty"`
	Compra          *Amount  `json:"compra,omitempty"`
}

// LineResult línea compilada con su clasificación y montos sin redondeo de resumen.
type LineResult struct {
	Item     Item
	Sale     SaleType
	Net      decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
}

// Totals acumulados de las líneas, a 8 decimales.
type Totals struct {
	NonSubject decimal.Decimal
	Exempt     decimal.Decimal
	Taxed      decimal.Decimal
	Tax        decimal.Decimal
	Discount   decimal.Decimal
}

// Sales suma de las tres categorías de venta.
func (t Totals) Sales() decimal.Decimal {
	return t.NonSubject.Add(t.Exempt).Add(t.Taxed)
}

func (t *Totals) add(l LineResult) {
	switch l.Sale {
	case SaleExempt:
		t.Exempt = t.Exempt.Add(l.Net)
	case SaleTaxed:
		t.Taxed = t.Taxed.Add(l.Net)
	default:
		t.NonSubject = t.NonSubject.Add(l.Net)
	}
	t.Tax = t.Tax.Add(l.Tax)
	t.Discount = t.Discount.Add(l.Discount)
}

// ClassifyLines compila las líneas en orden, omitiendo secciones y notas, y
// acumula los totales con la misma precisión usada por línea.
func ClassifyLines(rec *entity.InvoiceRecord, rules *RuleSet) ([]LineResult, Totals, error) {
	finalConsumer := isFinalConsumer(rec)
	var (
		out    []LineResult
		totals Totals
	)
	num := 0
	for i, line := range rec.Lines {
		if line.IsStructural() {
			continue
		}
		if !line.Quantity.IsPositive() {
			return nil, Totals{}, classErr(ErrInvalidLine, "línea %d: cantidad %s", i+1, line.Quantity)
		}
		if line.UnitPrice.IsNegative() {
			return nil, Totals{}, classErr(ErrInvalidLine, "línea %d: precio %s", i+1, line.UnitPrice)
		}
		if line.DiscountPercent.IsNegative() || line.DiscountPercent.GreaterThan(hundred) {
			return nil, Totals{}, classErr(ErrInvalidLine, "línea %d: descuento %s%% fuera de 0 a 100", i+1, line.DiscountPercent)
		}
		if rules.AllowedTaxCodes != nil {
			for _, code := range line.TaxCodes {
				if !rules.AllowsTaxCode(code) {
					return nil, Totals{}, classErr(ErrTaxCodeNotAllowed, "línea %d: tributo %q en DTE %s", i+1, code, rules.Code)
				}
			}
		}
		num++
		res := compileLine(num, line, rules, finalConsumer)
		totals.add(res)
		out = append(out, res)
	}
	if num == 0 {
		return nil, Totals{}, classErr(ErrInvalidLine, "la factura no tiene líneas de detalle")
	}
	return out, totals, nil
}

// classify decide exenta / gravada / no sujeta.
// Exportación es siempre exenta; sujeto excluido siempre "gravada" sin impuesto.
func classify(line entity.LineItem, rules *RuleSet) SaleType {
	switch rules.Pricing {
	case PricingExempt:
		return SaleExempt
	case PricingUntaxed:
		return SaleTaxed
	}
	switch {
	case contains(line.TaxCodes, mh.TaxExport):
		return SaleExempt
	case contains(line.TaxCodes, mh.TaxVAT):
		return SaleTaxed
	case line.TaxRate.Equal(vatRate):
		return SaleTaxed
	case len(line.TaxCodes) == 0 && rules.DefaultTaxed:
		return SaleTaxed
	}
	return SaleNonSubject
}

// lineTax IVA de la línea según la convención de precios del tipo.
func lineTax(net decimal.Decimal, sale SaleType, pricing Pricing) decimal.Decimal {
	if sale != SaleTaxed {
		return decimal.Zero
	}
	switch pricing {
	case PricingInclusive:
		return round8(net.Mul(vatRate).Div(hundred.Add(vatRate)))
	case PricingExclusive:
		return round8(net.Mul(vatRate).Div(hundred))
	}
	return decimal.Zero
}

func compileLine(num int, line entity.LineItem, rules *RuleSet, finalConsumer bool) LineResult {
	gross := line.UnitPrice.Mul(line.Quantity)
	discount := round8(gross.Mul(line.DiscountPercent).Div(hundred))
	net := round8(gross.Sub(discount))
	sale := classify(line, rules)
	tax := lineTax(net, sale, rules.Pricing)

	code := line.ProductCode
	if code == "" {
		code = fmt.Sprintf("PROD-%03d", num)
	}
	description := CleanText(line.Description, maxDescription)
	if description == "" {
		description = "PRODUCTO"
	}
	itemType := line.ItemType
	if itemType == 0 {
		itemType = mh.ItemGood
	}
	unit := line.UnitOfMeasure
	if unit == 0 {
		unit = mh.UnitOther
	}

	zero := LineAmount(decimal.Zero)
	item := Item{
		NumItem:      num,
		TipoItem:     itemType,
		Cantidad:     LineAmount(line.Quantity),
		Codigo:       cleanOrNil(code, maxCode),
		UniMedida:    unit,
		Descripcion:  description,
		PrecioUni:    LineAmount(line.UnitPrice),
		MontoDescu:   LineAmount(discount),
		VentaNoSuj:   zero,
		VentaExenta:  zero,
		VentaGravada: zero,
		Psv:          zero,
		NoGravado:    zero,
	}
	switch sale {
	case SaleExempt:
		item.VentaExenta = LineAmount(net)
	case SaleTaxed:
		item.VentaGravada = LineAmount(net)
	default:
		item.VentaNoSuj = LineAmount(net)
	}

	switch rules.Pricing {
	case PricingExempt:
		item.CodTributo = strPtr(mh.TaxExport)
	case PricingUntaxed:
		c := LineAmount(net)
		item.Compra = &c
	default:
		if sale == SaleTaxed && net.IsPositive() && !finalConsumer {
			item.Tributos = []string{mh.TaxVAT}
		}
	}
	if rules.LineTaxAmount {
		t := LineAmount(tax)
		item.IvaItem = &t
	}

	return LineResult{Item: item, Sale: sale, Net: net, Tax: tax, Discount: discount}
}
