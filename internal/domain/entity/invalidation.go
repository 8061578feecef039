package entity

import "time"

// Tipos de anulación (CAT-024).
const (
	InvalidationTypeError        = 1 // Error en la información del DTE; requiere DTE de reemplazo
	InvalidationTypeCancellation = 2 // Rescindir la operación
	InvalidationTypeOther        = 3 // Otro; requiere DTE de reemplazo
)

// Invalidation evento de anulación de un DTE ya procesado.
type Invalidation struct {
	ID                   string
	DocumentID           string
	GenerationCode       string // código del evento de anulación
	Type                 int
	Reason               string
	ReplacementCode      string // código de generación del DTE que reemplaza
	ResponsibleName      string
	ResponsibleDocType   string
	ResponsibleDocNumber string
	RequesterName        string
	RequesterDocType     string
	RequesterDocNumber   string
	Status               string
	ReceptionSeal        string
	MHMessages           string
	RequestedAt          time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
