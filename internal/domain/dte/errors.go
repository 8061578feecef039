package dte

import (
	"errors"
	"fmt"
	"strings"
)

// Motivos de error; se consultan con errors.Is sobre los errores tipados.
var (
	ErrUnknownDocumentType        = errors.New("tipo de DTE no soportado")
	ErrMissingEstablishmentConfig = errors.New("establecimiento o punto de venta sin configurar")
	ErrIncompleteIssuerConfig     = errors.New("datos del emisor incompletos")
	ErrFinalConsumerNotAllowed    = errors.New("el documento no admite consumidor final")
	ErrMissingClassification      = errors.New("la factura no tiene clasificación fiscal")
	ErrMissingRelatedDocument     = errors.New("falta el documento relacionado")
	ErrInvalidRelatedDocument     = errors.New("documento relacionado inválido")
	ErrDomesticBuyer              = errors.New("la exportación requiere un receptor extranjero")
	ErrMissingBuyerID             = errors.New("el receptor no tiene documento de identificación")
	ErrSequenceExhausted          = errors.New("correlativo agotado")
	ErrInvalidLine                = errors.New("línea inválida")
	ErrTaxCodeNotAllowed          = errors.New("tributo no permitido para el tipo de documento")
	ErrInvalidDocument            = errors.New("el documento no cumple las reglas de su tipo")
	ErrSequenceContention         = errors.New("contención al asignar correlativo")
	ErrInvalidInvalidation        = errors.New("evento de invalidación inválido")
)

// ConfigurationError falta configuración de emisor, establecimiento o punto de venta.
// No es reintentable: se corrige la configuración y se vuelve a compilar.
type ConfigurationError struct {
	Reason error
	Detail string
}

func (e *ConfigurationError) Error() string {
	return joinDetail("configuración", e.Reason, e.Detail)
}

func (e *ConfigurationError) Unwrap() error { return e.Reason }

// ClassificationError violación de una regla de negocio (p. ej. CCF para consumidor final).
type ClassificationError struct {
	Reason error
	Detail string
}

func (e *ClassificationError) Error() string {
	return joinDetail("clasificación", e.Reason, e.Detail)
}

func (e *ClassificationError) Unwrap() error { return e.Reason }

// ValidationError el documento ensamblado viola las reglas de su propio tipo.
type ValidationError struct {
	TypeCode   string
	Violations []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("validación DTE %s: %s", e.TypeCode, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() []error {
	return append([]error{ErrInvalidDocument}, e.Violations...)
}

// SequenceContentionError fallo transitorio al asignar el correlativo; solo se reintenta la asignación.
type SequenceContentionError struct {
	EstablishmentID string
	TypeCode        string
	Err             error
}

func (e *SequenceContentionError) Error() string {
	msg := fmt.Sprintf("%v (establecimiento %s, tipo %s)", ErrSequenceContention, e.EstablishmentID, e.TypeCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SequenceContentionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSequenceContention}
	}
	return []error{ErrSequenceContention, e.Err}
}

// IsRetryable indica si err solo requiere reintentar la asignación del correlativo.
func IsRetryable(err error) bool {
	var c *SequenceContentionError
	return errors.As(err, &c)
}

func configErr(reason error, format string, args ...any) error {
	return &ConfigurationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func classErr(reason error, format string, args ...any) error {
	return &ClassificationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func joinDetail(kind string, reason error, detail string) string {
	if detail == "" {
		return fmt.Sprintf("%s: %v", kind, reason)
	}
	return fmt.Sprintf("%s: %v: %s", kind, reason, detail)
}
