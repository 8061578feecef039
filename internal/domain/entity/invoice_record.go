package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/dte-sv/pkg/mh"
)

// FiscalClassification clasificación fiscal del comprador.
type FiscalClassification string

const (
	FiscalFinalConsumer   FiscalClassification = "FINAL_CONSUMER"
	FiscalTaxpayer        FiscalClassification = "TAXPAYER"
	FiscalExport          FiscalClassification = "EXPORT"
	FiscalExcludedSubject FiscalClassification = "EXCLUDED_SUBJECT"
)

// DefaultClassification clasificación que corresponde al tipo de DTE cuando la factura no trae una.
// Devuelve "" para tipos desconocidos.
func DefaultClassification(docType string) FiscalClassification {
	switch docType {
	case mh.DTEInvoice:
		return FiscalFinalConsumer
	case mh.DTECCF, mh.DTEShippingNote, mh.DTECreditNote, mh.DTEDebitNote:
		return FiscalTaxpayer
	case mh.DTEExport:
		return FiscalExport
	case mh.DTEExcludedSubject:
		return FiscalExcludedSubject
	}
	return ""
}

// Estados de la factura en el sistema contable.
const (
	InvoiceStateDraft     = "DRAFT"
	InvoiceStateFinalized = "FINALIZED"
	InvoiceStateCancelled = "CANCELLED"
)

// Canales de liquidación (determinan el código de forma de pago).
const (
	SettlementCash  = "CASH"
	SettlementBank  = "BANK"
	SettlementOther = "OTHER"
)

// Tipos de línea estructural que no se compilan.
const (
	LineKindProduct = ""
	LineKindSection = "SECTION"
	LineKindNote    = "NOTE"
)

// InvoiceRecord es la factura contable de origen. El compilador la trata como solo lectura.
type InvoiceRecord struct {
	ID              string
	CompanyID       string
	EstablishmentID string
	DocumentType    string // 01, 03, 04, 05, 06, 11, 14
	Currency        string // ISO 4217; por defecto USD
	Date            time.Time
	State           string
	Classification  FiscalClassification
	Buyer           Party
	Lines           []LineItem
	PaymentTerm     PaymentTerm
	Settlement      string // CASH, BANK, OTHER
	Related         *RelatedDocumentRef
	Export          *ExportDetails
	Delivery        *DeliveryDetails
	Observations    string

	// Identifiers queda poblado cuando la factura ya fue compilada: se reutiliza al recompilar.
	Identifiers *IssuedIdentifiers
}

// ApplyDefaultClassification completa la clasificación vacía a partir del tipo de DTE.
func (r *InvoiceRecord) ApplyDefaultClassification() {
	if r.Classification == "" {
		r.Classification = DefaultClassification(r.DocumentType)
	}
}

// IsFinalized indica si la factura puede compilarse.
func (r *InvoiceRecord) IsFinalized() bool {
	return r.State == InvoiceStateFinalized
}

// LineItem línea de detalle de la factura.
type LineItem struct {
	Kind            string
	ProductCode     string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	UnitOfMeasure   int      // CAT-014; 0 = 99 (otra)
	ItemType        int      // CAT-011: 1 bien, 2 servicio, 3 ambos, 4 otro; 0 = 1
	TaxCodes        []string // CAT-015, p. ej. "20" IVA, "C3" exportación
	TaxRate         decimal.Decimal
}

// IsStructural indica si la línea es una sección o nota (no se compila).
func (l LineItem) IsStructural() bool {
	return l.Kind == LineKindSection || l.Kind == LineKindNote
}

// Party datos del comprador (receptor o sujeto excluido).
type Party struct {
	Name           string
	CommercialName string
	DocumentType   string // CAT-022: 36 NIT, 13 DUI, 37 otro, 03 pasaporte, 02 carnet de residente
	DocumentNumber string
	NRC            string
	ActivityCode   string
	ActivityDesc   string
	DistrictCode   string // departamento (2) + municipio (2)
	Address        string
	Phone          string
	Email          string
	CountryCode    string // CAT-020
	CountryName    string
	PersonType     int // 1 natural, 2 jurídica
}

// PaymentTerm condiciones de pago; un plazo con días > 0 convierte la operación en crédito.
type PaymentTerm struct {
	Installments []Installment
}

// Installment cuota de un plazo de pago.
type Installment struct {
	DayOffset int
	Percent   decimal.Decimal
}

// RelatedDocumentRef referencia al documento original (notas de crédito y débito).
type RelatedDocumentRef struct {
	DocumentType  string
	ControlNumber string
	IssueDate     time.Time
}

// ExportDetails datos propios de la factura de exportación.
type ExportDetails struct {
	IncotermCode string
	IncotermDesc string
	Insurance    decimal.Decimal
	Freight      decimal.Decimal
	ItemType     int // 1 bienes, 2 servicios, 3 ambos
}

// DeliveryDetails bloque de extensión (entrega y recepción del documento).
type DeliveryDetails struct {
	DeliveredBy    string
	DeliveredByDoc string
	ReceivedBy     string
	ReceivedByDoc  string
	VehiclePlate   string
}

// IssuedIdentifiers identificadores ya asignados a una factura; nunca se reasignan.
type IssuedIdentifiers struct {
	GenerationCode string
	ControlNumber  string
	Sequence       int64
	EmittedAt      time.Time
}
