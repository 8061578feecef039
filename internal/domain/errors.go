package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrNotFinalized      = errors.New("la factura no está finalizada")
	ErrAlreadyProcessed  = errors.New("el DTE ya fue transmitido al MH")
	ErrNotInvalidatable  = errors.New("solo se invalidan DTE procesados por el MH")
	ErrReplacementNeeded = errors.New("la invalidación requiere el código de generación del documento que reemplaza")
)
