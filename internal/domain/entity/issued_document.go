package entity

import "time"

// Estados del DTE emitido.
const (
	DTEStatusCompiled    = "COMPILED"    // JSON canónico generado, identificadores reservados
	DTEStatusSigned      = "SIGNED"      // JWS generado, pendiente de envío
	DTEStatusProcessed   = "PROCESADO"   // Recibido por el MH (sello de recepción)
	DTEStatusRejected    = "RECHAZADO"   // Rechazado por el MH con observaciones
	DTEStatusError       = "ERROR"       // Falló firma o envío
	DTEStatusSuperseded  = "SUPERSEDED"  // Reemplazado por una recompilación con datos distintos
	DTEStatusInvalidated = "INVALIDADO"  // Anulado ante el MH
)

// IssuedDocument vincula una factura con su código de generación y número de control.
type IssuedDocument struct {
	ID              string
	InvoiceID       string
	CompanyID       string
	EstablishmentID string
	DocumentType    string
	Version         int
	Environment     string
	GenerationCode  string
	ControlNumber   string
	Sequence        int64
	Fingerprint     string // hash de los campos tributarios de la factura
	Document        []byte // JSON canónico
	SignedJWS       string
	Status          string
	ReceptionSeal   string // selloRecibido
	ProcessedAt     *time.Time
	MHMessages      string
	EmittedAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identifiers devuelve los identificadores emitidos para reutilizarlos al recompilar.
func (d *IssuedDocument) Identifiers() *IssuedIdentifiers {
	return &IssuedIdentifiers{
		GenerationCode: d.GenerationCode,
		ControlNumber:  d.ControlNumber,
		Sequence:       d.Sequence,
		EmittedAt:      d.EmittedAt,
	}
}

// IsMutable indica si el documento aún no salió hacia el MH.
func (d *IssuedDocument) IsMutable() bool {
	return d.Status == DTEStatusCompiled || d.Status == DTEStatusError
}
