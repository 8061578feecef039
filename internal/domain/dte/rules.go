// Package dte compila facturas contables en Documentos Tributarios Electrónicos (DTE)
// según los esquemas JSON del Ministerio de Hacienda de El Salvador.
//
// El flujo es: RulesFor → Compile (identificación, partes, líneas, resumen,
// documentos relacionados) → ensamblado con la política null/omitido del tipo.
// El paquete no hace I/O salvo la llamada al NumberingStore recibido en Config.
package dte

import (
	"fmt"
	"slices"

	"github.com/jhoicas/dte-sv/pkg/mh"
	"github.com/shopspring/decimal"
)

// ReceptorMode indica cuándo el documento lleva bloque receptor.
type ReceptorMode int

const (
	ReceptorNone        ReceptorMode = iota // sin receptor
	ReceptorAlways                          // receptor obligatorio
	ReceptorConditional                     // obligatorio desde ReceptorThreshold
)

// Pricing convención de precios de las líneas.
type Pricing int

const (
	PricingInclusive Pricing = iota // precio con IVA incluido (×13/113)
	PricingExclusive                // precio base, IVA aparte (×13/100)
	PricingExempt                   // exportación: sin IVA
	PricingUntaxed                  // sujeto excluido: sin tributos
)

// Shape selecciona las funciones de armado de receptor y resumen de cada tipo.
type Shape int

const (
	ShapeInvoice Shape = iota
	ShapeCCF
	ShapeShipping
	ShapeNote
	ShapeExport
	ShapeExcluded
)

// RuleSet reglas inmutables de un tipo de DTE.
//
// Las rutas de RequiredNull y Forbidden usan notación con puntos; un segmento
// terminado en "[]" recorre cada elemento del arreglo ("cuerpoDocumento[].codTributo").
type RuleSet struct {
	Code              string
	Name              string
	Version           int
	Shape             Shape
	Receptor          ReceptorMode
	ReceptorKey       string
	ReceptorThreshold decimal.Decimal
	Pricing           Pricing
	// DefaultTaxed clasifica como gravada una línea sin códigos de tributo.
	DefaultTaxed bool
	// AllowedTaxCodes nil significa que los tributos de línea se ignoran.
	AllowedTaxCodes []string
	LineTaxAmount   bool // emite ivaItem por línea
	PaymentsAllowed bool
	RelatedRequired bool
	RelatedTypes    []string
	RequiredNull    []string
	Forbidden       []string
}

// AllowsTaxCode indica si el tributo puede aparecer en una línea.
func (r *RuleSet) AllowsTaxCode(code string) bool {
	if r.AllowedTaxCodes == nil {
		return true
	}
	return contains(r.AllowedTaxCodes, code)
}

// HasExtension indica si el tipo admite el bloque de extensión con datos de entrega.
func (r *RuleSet) HasExtension() bool {
	return !contains(r.RequiredNull, "extension") && !contains(r.Forbidden, "extension")
}

var baseRequiredNull = []string{
	"identificacion.tipoContingencia",
	"identificacion.motivoContin",
	"ventaTercero",
	"apendice",
	"cuerpoDocumento[].numeroDocumento",
}

var registry = map[string]*RuleSet{
	mh.DTEInvoice: {
		Code:            mh.DTEInvoice,
		Version:         1,
		Shape:           ShapeInvoice,
		Receptor:        ReceptorAlways,
		ReceptorKey:     "receptor",
		Pricing:         PricingInclusive,
		AllowedTaxCodes: []string{mh.TaxVAT, mh.TaxExport},
		LineTaxAmount:   true,
		PaymentsAllowed: true,
		RequiredNull: with(baseRequiredNull,
			"documentoRelacionado",
			"otrosDocumentos",
			"extension",
			"cuerpoDocumento[].codTributo",
			"resumen.numPagoElectronico",
		),
		Forbidden: []string{
			"resumen.ivaPerci1",
			"receptor.nit",
			"receptor.nombreComercial",
			"receptor.bienTitulo",
			"receptor.codPais",
		},
	},
	mh.DTECCF: {
		Code:            mh.DTECCF,
		Version:         3,
		Shape:           ShapeCCF,
		Receptor:        ReceptorAlways,
		ReceptorKey:     "receptor",
		Pricing:         PricingExclusive,
		DefaultTaxed:    true,
		AllowedTaxCodes: []string{mh.TaxVAT, mh.TaxExport},
		RequiredNull: with(baseRequiredNull,
			"documentoRelacionado",
			"otrosDocumentos",
			"cuerpoDocumento[].codTributo",
			"resumen.pagos",
			"resumen.numPagoElectronico",
		),
		Forbidden: []string{
			"receptor.tipoDocumento",
			"receptor.numDocumento",
			"receptor.bienTitulo",
			"receptor.codPais",
			"resumen.totalIva",
			"cuerpoDocumento[].ivaItem",
		},
	},
	mh.DTEShippingNote: {
		Code:            mh.DTEShippingNote,
		Version:         3,
		Shape:           ShapeShipping,
		Receptor:        ReceptorAlways,
		ReceptorKey:     "receptor",
		Pricing:         PricingExclusive,
		DefaultTaxed:    true,
		AllowedTaxCodes: []string{mh.TaxVAT, mh.TaxExport},
		RequiredNull: with(baseRequiredNull,
			"documentoRelacionado",
			"cuerpoDocumento[].codTributo",
		),
		Forbidden: []string{
			"otrosDocumentos",
			"receptor.nit",
			"receptor.codPais",
			"cuerpoDocumento[].psv",
			"cuerpoDocumento[].noGravado",
			"cuerpoDocumento[].ivaItem",
			"extension.placaVehiculo",
			"resumen.totalIva",
			"resumen.ivaPerci1",
			"resumen.ivaRete1",
			"resumen.reteRenta",
			"resumen.pagos",
			"resumen.numPagoElectronico",
			"resumen.totalNoGravado",
			"resumen.saldoFavor",
			"resumen.totalPagar",
			"resumen.condicionOperacion",
		},
	},
	mh.DTECreditNote: {
		Code:            mh.DTECreditNote,
		Version:         3,
		Shape:           ShapeNote,
		Receptor:        ReceptorAlways,
		ReceptorKey:     "receptor",
		Pricing:         PricingExclusive,
		AllowedTaxCodes: []string{mh.TaxVAT, mh.TaxExport},
		LineTaxAmount:   true,
		RelatedRequired: true,
		RelatedTypes:    []string{mh.DTECCF, mh.DTERetention},
		RequiredNull: with(baseRequiredNull,
			"otrosDocumentos",
			"cuerpoDocumento[].codTributo",
			"resumen.pagos",
			"resumen.numPagoElectronico",
		),
		Forbidden: []string{
			"resumen.ivaPerci1",
			"receptor.nit",
			"receptor.bienTitulo",
			"receptor.codPais",
		},
	},
	mh.DTEDebitNote: {
		Code:            mh.DTEDebitNote,
		Version:         3,
		Shape:           ShapeNote,
		Receptor:        ReceptorAlways,
		ReceptorKey:     "receptor",
		Pricing:         PricingExclusive,
		AllowedTaxCodes: []string{mh.TaxVAT, mh.TaxExport},
		LineTaxAmount:   true,
		PaymentsAllowed: true,
		RelatedRequired: true,
		RelatedTypes:    []string{mh.DTECCF, mh.DTERetention},
		RequiredNull: with(baseRequiredNull,
			"otrosDocumentos",
			"cuerpoDocumento[].codTributo",
			"resumen.numPagoElectronico",
		),
		Forbidden: []string{
			"resumen.ivaPerci1",
			"receptor.nit",
			"receptor.bienTitulo",
			"receptor.codPais",
		},
	},
	mh.DTEExport: {
		Code:              mh.DTEExport,
		Version:           1,
		Shape:             ShapeExport,
		Receptor:          ReceptorConditional,
		ReceptorKey:       "receptor",
		ReceptorThreshold: decimal.NewFromInt(10000),
		Pricing:           PricingExempt,
		AllowedTaxCodes:   []string{mh.TaxExport},
		RequiredNull: with(baseRequiredNull,
			"documentoRelacionado",
			"otrosDocumentos",
			"extension",
			"emisor.recintoFiscal",
			"emisor.regimen",
		),
		Forbidden: []string{
			"receptor.nit",
			"receptor.nrc",
			"receptor.codActividad",
			"receptor.direccion",
			"receptor.nombreComercial",
			"receptor.bienTitulo",
			"cuerpoDocumento[].ivaItem",
			"cuerpoDocumento[].psv",
			"resumen.tributos",
			"resumen.totalIva",
			"resumen.ivaPerci1",
			"resumen.ivaRete1",
			"resumen.pagos",
			"resumen.numPagoElectronico",
			"resumen.condicionOperacion",
		},
	},
	mh.DTEExcludedSubject: {
		Code:        mh.DTEExcludedSubject,
		Version:     1,
		Shape:       ShapeExcluded,
		Receptor:    ReceptorAlways,
		ReceptorKey: "sujetoExcluido",
		Pricing:     PricingUntaxed,
		RequiredNull: []string{
			"identificacion.tipoContingencia",
			"identificacion.motivoContin",
			"documentoRelacionado",
			"apendice",
		},
		Forbidden: []string{
			"receptor",
			"extension",
			"ventaTercero",
			"otrosDocumentos",
			"emisor.nombreComercial",
			"emisor.tipoEstablecimiento",
			"sujetoExcluido.nit",
			"sujetoExcluido.nrc",
			"sujetoExcluido.nombreComercial",
			"sujetoExcluido.bienTitulo",
			"sujetoExcluido.codPais",
			"cuerpoDocumento[].numeroDocumento",
			"cuerpoDocumento[].codTributo",
			"cuerpoDocumento[].ventaNoSuj",
			"cuerpoDocumento[].ventaExenta",
			"cuerpoDocumento[].ventaGravada",
			"cuerpoDocumento[].tributos",
			"cuerpoDocumento[].psv",
			"cuerpoDocumento[].noGravado",
			"cuerpoDocumento[].ivaItem",
		},
	},
}

func init() {
	for code, r := range registry {
		r.Name = mh.DocumentTypeNames[code]
	}
}

// RulesFor devuelve una copia de las reglas del tipo de DTE; modificarla no afecta
// al registro. Falla con ConfigurationError (ErrUnknownDocumentType) si el código
// no está soportado.
func RulesFor(typeCode string) (*RuleSet, error) {
	r, ok := registry[typeCode]
	if !ok {
		return nil, &ConfigurationError{Reason: ErrUnknownDocumentType, Detail: fmt.Sprintf("tipo %q", typeCode)}
	}
	return r.clone(), nil
}

func (r *RuleSet) clone() *RuleSet {
	c := *r
	c.AllowedTaxCodes = slices.Clone(r.AllowedTaxCodes)
	c.RelatedTypes = slices.Clone(r.RelatedTypes)
	c.RequiredNull = slices.Clone(r.RequiredNull)
	c.Forbidden = slices.Clone(r.Forbidden)
	return &c
}

// SupportedTypes códigos de DTE soportados, en orden de catálogo.
func SupportedTypes() []string {
	return []string{
		mh.DTEInvoice, mh.DTECCF, mh.DTEShippingNote, mh.DTECreditNote,
		mh.DTEDebitNote, mh.DTEExport, mh.DTEExcludedSubject,
	}
}

func with(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
