package dte

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

const (
	controlPrefix     = "DTE"
	maxSequence       = 999_999_999_999_999 // 15 dígitos
	sequenceAttempts  = 3
	establishmentCode = 4
)

var (
	controlNumberRe  = regexp.MustCompile(`^DTE-\d{2}-[A-Z0-9]{8}-\d{15}$`)
	generationCodeRe = regexp.MustCompile(`^[A-F0-9]{8}-[A-F0-9]{4}-[A-F0-9]{4}-[A-F0-9]{4}-[A-F0-9]{12}$`)
)

// Identificacion bloque "identificacion" del DTE.
type Identificacion struct {
	Version          int     `json:"version"`
	Ambiente         string  `json:"ambiente"`
	TipoDte          string  `json:"tipoDte"`
	NumeroControl    string  `json:"numeroControl"`
	CodigoGeneracion string  `json:"codigoGeneracion"`
	TipoModelo       int     `json:"tipoModelo"`
	TipoOperacion    int     `json:"tipoOperacion"`
	TipoContingencia *int    `json:"tipoContingencia"`
	MotivoContin     *string `json:"motivoContin"`
	FecEmi           string  `json:"fecEmi"`
	HorEmi           string  `json:"horEmi"`
	TipoMoneda       string  `json:"tipoMoneda"`
}

// NumberingStore entrega el siguiente correlativo por establecimiento y tipo de DTE.
// La implementación debe incrementar y persistir de forma atómica antes de devolver.
type NumberingStore interface {
	NextSequence(ctx context.Context, establishmentID, typeCode string) (int64, error)
}

// FormatControlNumber arma el número de control DTE-TT-EEEEPPPP-NNNNNNNNNNNNNNN.
func FormatControlNumber(typeCode, establishment, pos string, sequence int64) (string, error) {
	est, err := padCode(establishment)
	if err != nil {
		return "", configErr(ErrMissingEstablishmentConfig, "código de establecimiento %q", establishment)
	}
	p, err := padCode(pos)
	if err != nil {
		return "", configErr(ErrMissingEstablishmentConfig, "código de punto de venta %q", pos)
	}
	if sequence < 0 || sequence > maxSequence {
		return "", configErr(ErrSequenceExhausted, "correlativo %d excede 15 dígitos", sequence)
	}
	return fmt.Sprintf("%s-%s-%s%s-%015d", controlPrefix, typeCode, est, p, sequence), nil
}

// ValidControlNumber valida el formato del número de control.
func ValidControlNumber(s string) bool {
	return controlNumberRe.MatchString(s)
}

// ValidGenerationCode valida un código de generación (UUID en mayúsculas).
func ValidGenerationCode(s string) bool {
	return generationCodeRe.MatchString(s)
}

// NewGenerationCode genera un código de generación nuevo.
func NewGenerationCode() string {
	return strings.ToUpper(uuid.NewString())
}

// padCode completa a 4 caracteres con ceros a la izquierda.
func padCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > establishmentCode {
		return "", errors.New("código inválido")
	}
	return strings.Repeat("0", establishmentCode-len(code)) + code, nil
}

// CheckEstablishment indica si el establecimiento puede numerar DTE (ConfigurationError si no).
func CheckEstablishment(est *entity.Establishment) error {
	return requireEstablishment(est)
}

// requireEstablishment verifica que el establecimiento tenga códigos utilizables en el número de control.
func requireEstablishment(est *entity.Establishment) error {
	if est == nil {
		return configErr(ErrMissingEstablishmentConfig, "establecimiento no configurado")
	}
	code, pos := est.ControlCode()
	if _, err := padCode(code); err != nil {
		return configErr(ErrMissingEstablishmentConfig, "establecimiento %s: código %q", est.ID, code)
	}
	if _, err := padCode(pos); err != nil {
		return configErr(ErrMissingEstablishmentConfig, "establecimiento %s: punto de venta %q", est.ID, pos)
	}
	return nil
}

// assignIdentifiers reutiliza los identificadores ya emitidos o reserva un correlativo nuevo.
// Ante SequenceContentionError reintenta solo la asignación.
func assignIdentifiers(ctx context.Context, rec *entity.InvoiceRecord, rules *RuleSet, cfg Config) (entity.IssuedIdentifiers, error) {
	if rec.Identifiers != nil && rec.Identifiers.GenerationCode != "" {
		return *rec.Identifiers, nil
	}
	if cfg.Sequences == nil {
		return entity.IssuedIdentifiers{}, configErr(ErrMissingEstablishmentConfig, "sin almacén de correlativos")
	}

	var (
		seq int64
		err error
	)
	for attempt := 1; attempt <= sequenceAttempts; attempt++ {
		seq, err = cfg.Sequences.NextSequence(ctx, cfg.Establishment.ID, rules.Code)
		if err == nil || !IsRetryable(err) {
			break
		}
	}
	if err != nil {
		return entity.IssuedIdentifiers{}, err
	}

	est, pos := cfg.Establishment.ControlCode()
	number, err := FormatControlNumber(rules.Code, est, pos, seq)
	if err != nil {
		return entity.IssuedIdentifiers{}, err
	}
	return entity.IssuedIdentifiers{
		GenerationCode: cfg.newCode(),
		ControlNumber:  number,
		Sequence:       seq,
		EmittedAt:      cfg.now(),
	}, nil
}

// buildIdentificacion arma el bloque a partir de los identificadores asignados.
// fecEmi es la fecha contable de la factura; horEmi la hora de procesamiento.
func buildIdentificacion(rec *entity.InvoiceRecord, rules *RuleSet, cfg Config, ids entity.IssuedIdentifiers) Identificacion {
	loc := cfg.location()
	date := rec.Date
	if date.IsZero() {
		date = ids.EmittedAt.In(loc)
	}
	return Identificacion{
		Version:          rules.Version,
		Ambiente:         cfg.ambiente(),
		TipoDte:          rules.Code,
		NumeroControl:    ids.ControlNumber,
		CodigoGeneracion: ids.GenerationCode,
		TipoModelo:       mh.ModelPrevious,
		TipoOperacion:    mh.TransmissionNormal,
		FecEmi:           date.Format(time.DateOnly),
		HorEmi:           ids.EmittedAt.In(loc).Format(time.TimeOnly),
		TipoMoneda:       currency(rec.Currency),
	}
}

func currency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return "USD"
	}
	return c
}
