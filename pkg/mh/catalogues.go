// Package mh contiene catálogos y utilidades alineados al sistema de transmisión
// de Documentos Tributarios Electrónicos del Ministerio de Hacienda de El Salvador.
package mh

// =============================================================================
// CAT-001 - Ambiente de destino
// =============================================================================

const (
	EnvironmentTest       = "00" // Modo prueba (certificación)
	EnvironmentProduction = "01" // Modo producción
)

// =============================================================================
// CAT-002 - Tipo de documento tributario electrónico
// =============================================================================

const (
	DTEInvoice         = "01" // Factura
	DTECCF             = "03" // Comprobante de crédito fiscal
	DTEShippingNote    = "04" // Nota de remisión
	DTECreditNote      = "05" // Nota de crédito
	DTEDebitNote       = "06" // Nota de débito
	DTERetention       = "07" // Comprobante de retención
	DTELiquidation     = "08" // Comprobante de liquidación
	DTEExport          = "11" // Factura de exportación
	DTEExcludedSubject = "14" // Factura de sujeto excluido
	DTEDonation        = "15" // Comprobante de donación
)

// DocumentTypeNames nombres oficiales de los tipos de DTE.
var DocumentTypeNames = map[string]string{
	DTEInvoice:         "Factura",
	DTECCF:             "Comprobante de Crédito Fiscal",
	DTEShippingNote:    "Nota de Remisión",
	DTECreditNote:      "Nota de Crédito",
	DTEDebitNote:       "Nota de Débito",
	DTERetention:       "Comprobante de Retención",
	DTELiquidation:     "Comprobante de Liquidación",
	DTEExport:          "Factura de Exportación",
	DTEExcludedSubject: "Factura de Sujeto Excluido",
	DTEDonation:        "Comprobante de Donación",
}

// =============================================================================
// CAT-003 / CAT-004 - Modelo de facturación y tipo de transmisión
// =============================================================================

const (
	ModelPrevious      = 1 // Modelo facturación previo
	ModelDeferred      = 2 // Modelo facturación diferido
	TransmissionNormal = 1 // Transmisión normal
	TransmissionContin = 2 // Transmisión por contingencia
)

// =============================================================================
// CAT-007 - Tipo de generación del documento relacionado
// =============================================================================

const (
	GenerationPhysical   = 1 // Físico
	GenerationElectronic = 2 // Electrónico
)

// =============================================================================
// CAT-011 - Tipo de ítem
// =============================================================================

const (
	ItemGood    = 1 // Bienes
	ItemService = 2 // Servicios
	ItemBoth    = 3 // Ambos (bienes y servicios)
	ItemTax     = 4 // Otros tributos por ítem
)

// UnitOther CAT-014 - unidad de medida "otra".
const UnitOther = 99

// =============================================================================
// CAT-015 - Tributos
// =============================================================================

const (
	TaxVAT            = "20" // Impuesto al Valor Agregado 13%
	TaxExport         = "C3" // Impuesto al valor agregado (exportaciones) 0%
	TaxFOVIAL         = "D1" // FOVIAL
	TaxCOTRANS        = "C8" // COTRANS
	TaxTourism        = "59" // Turismo: por alojamiento (5%)
	TaxVATRetention   = "22" // Retención IVA 1%
	TaxVATRetention13 = "C4" // Retención IVA 13%
	TaxOtherRetention = "C9" // Otras retenciones IVA casos especiales
)

// TaxDescriptions descripciones de los tributos usadas en el resumen.
var TaxDescriptions = map[string]string{
	TaxVAT:            "Impuesto al Valor Agregado 13%",
	TaxExport:         "Impuesto al Valor Agregado (exportaciones) 0%",
	TaxFOVIAL:         "Fondo de Conservación Vial (FOVIAL)",
	TaxCOTRANS:        "Contribución de Transporte (COTRANS)",
	TaxTourism:        "Turismo: por alojamiento (5%)",
	TaxVATRetention:   "Retención IVA 1%",
	TaxVATRetention13: "Retención IVA 13%",
	TaxOtherRetention: "Otras retenciones IVA casos especiales",
}

// TaxDescription devuelve la descripción del tributo o un texto genérico si no está catalogado.
func TaxDescription(code string) string {
	if d, ok := TaxDescriptions[code]; ok {
		return d
	}
	return "Tributo " + code
}

// VATRate tasa general del IVA (porcentaje).
const VATRate = 13

// =============================================================================
// CAT-016 - Condición de la operación
// =============================================================================

const (
	ConditionCash   = 1 // Contado
	ConditionCredit = 2 // A crédito
	ConditionOther  = 3 // Otro
)

// =============================================================================
// CAT-017 - Forma de pago
// =============================================================================

const (
	PaymentCash     = "01" // Billetes y monedas
	PaymentCard     = "02" // Tarjeta débito
	PaymentCheck    = "04" // Cheque
	PaymentTransfer = "05" // Transferencia - depósito bancario
	PaymentOther    = "99" // Otros
)

// =============================================================================
// CAT-018 - Plazo
// =============================================================================

const (
	TermDays   = "01" // Días
	TermMonths = "02" // Meses
	TermYears  = "03" // Años
)

// =============================================================================
// CAT-022 - Tipo de documento de identificación del receptor
// =============================================================================

const (
	IDNIT       = "36" // NIT
	IDDUI       = "13" // DUI
	IDOther     = "37" // Otro
	IDPassport  = "03" // Pasaporte
	IDResidence = "02" // Carnet de residente
)

// =============================================================================
// CAT-024 - Tipo de invalidación
// =============================================================================

const (
	InvalidationError   = 1 // Error en la información del DTE a invalidar
	InvalidationRescind = 2 // Rescindir de la operación realizada
	InvalidationOther   = 3 // Otro
)

// =============================================================================
// CAT-009 / CAT-031 - Establecimiento y bien en título (nota de remisión)
// =============================================================================

const (
	EstablishmentBranch = "01" // Sucursal / agencia
	EstablishmentMain   = "02" // Casa matriz
	TitleDeposit        = "01" // Depósito
)

// DefaultActivityCode actividad económica usada cuando el emisor no la declara.
const DefaultActivityCode = "01111"

// Departamento y municipio por defecto (San Salvador).
const (
	DefaultDepartment   = "06"
	DefaultMunicipality = "14"
)
