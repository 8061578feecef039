package entity

import "time"

// Establishment representa un establecimiento con su punto de venta registrado ante el MH.
// Sus códigos forman parte del número de control de cada DTE emitido desde él.
type Establishment struct {
	ID           string
	CompanyID    string
	Name         string
	Type         string // CAT-009: 01 sucursal, 02 casa matriz, 04 bodega, 07 predio, 20 otro
	Code         string // Código interno del establecimiento
	POSCode      string // Código interno del punto de venta
	CodeMH       string // Código asignado por el MH (si difiere del interno)
	POSCodeMH    string
	DistrictCode string // departamento (2) + municipio (2)
	Address      string
	Phone        string
	Email        string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ControlCode devuelve el par establecimiento/punto de venta que se usa en el número de control.
// Prioriza los códigos MH sobre los internos.
func (e *Establishment) ControlCode() (establishment, pos string) {
	establishment, pos = e.CodeMH, e.POSCodeMH
	if establishment == "" {
		establishment = e.Code
	}
	if pos == "" {
		pos = e.POSCode
	}
	return establishment, pos
}
