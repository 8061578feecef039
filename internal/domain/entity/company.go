package entity

import "time"

// Estados de la empresa emisora.
const (
	CompanyStatusActive    = "active"
	CompanyStatusSuspended = "suspended"
	CompanyStatusInactive  = "inactive"
)

// Company representa al contribuyente emisor de los DTE (datos fiscales ante el MH).
type Company struct {
	ID             string
	Name           string
	CommercialName string
	NIT            string // NIT salvadoreño (con o sin guiones)
	NRC            string // Número de Registro de Contribuyente
	ActivityCode   string // Código de actividad económica (CAT-019)
	ActivityDesc   string
	Phone          string
	Email          string
	Status         string // active, suspended, inactive
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
