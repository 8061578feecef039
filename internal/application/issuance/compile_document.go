package issuance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/dte"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
)

var tracer = otel.Tracer("github.com/jhoicas/dte-sv/internal/application/issuance")

// CompileResult DTE vigente de la factura tras compilar.
type CompileResult struct {
	Document   *entity.IssuedDocument
	Compiled   *dte.CompiledDocument
	Reused     bool   // identificadores ya emitidos, el JSON es el mismo
	Superseded string // ID del DTE reemplazado por cambio de datos tributarios
}

// CompileDocumentUseCase compila la factura y la vincula con su código de generación
// y número de control. Recompilar una factura sin cambios devuelve el mismo documento.
type CompileDocumentUseCase struct {
	invoiceRepo       repository.InvoiceRecordRepository
	companyRepo       repository.CompanyRepository
	establishmentRepo repository.EstablishmentRepository
	txRunner          TxRunner
	settings          Settings
	log               zerolog.Logger
	now               func() time.Time
}

// NewCompileDocumentUseCase construye el caso de uso.
func NewCompileDocumentUseCase(
	invoiceRepo repository.InvoiceRecordRepository,
	companyRepo repository.CompanyRepository,
	establishmentRepo repository.EstablishmentRepository,
	txRunner TxRunner,
	settings Settings,
	log zerolog.Logger,
) *CompileDocumentUseCase {
	return &CompileDocumentUseCase{
		invoiceRepo:       invoiceRepo,
		companyRepo:       companyRepo,
		establishmentRepo: establishmentRepo,
		txRunner:          txRunner,
		settings:          settings,
		log:               log.With().Str("component", "compile").Logger(),
		now:               time.Now,
	}
}

// WithClock reemplaza el reloj (pruebas).
func (uc *CompileDocumentUseCase) WithClock(now func() time.Time) *CompileDocumentUseCase {
	uc.now = now
	return uc
}

// Compile compila la factura invoiceID. companyID vacío omite la verificación de empresa (CLI).
//
// Si ya hay un DTE vigente con la misma huella se reutilizan sus identificadores.
// Si la huella cambió y el DTE aún no salió hacia el MH, se marca SUPERSEDED y se
// reserva un correlativo nuevo; si ya fue transmitido devuelve domain.ErrAlreadyProcessed.
func (uc *CompileDocumentUseCase) Compile(ctx context.Context, companyID, invoiceID string) (*CompileResult, error) {
	ctx, span := tracer.Start(ctx, "dte.compile")
	defer span.End()
	span.SetAttributes(attribute.String("invoice_id", invoiceID))

	res, err := uc.compile(ctx, companyID, invoiceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.log.Warn().Err(err).Str("invoice_id", invoiceID).Msg("compilación fallida")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("tipo_dte", res.Document.DocumentType),
		attribute.String("numero_control", res.Document.ControlNumber),
		attribute.Bool("reused", res.Reused),
	)
	return res, nil
}

func (uc *CompileDocumentUseCase) compile(ctx context.Context, companyID, invoiceID string) (*CompileResult, error) {
	rec, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if rec == nil || (companyID != "" && rec.CompanyID != companyID) {
		return nil, domain.ErrNotFound
	}
	if !rec.IsFinalized() {
		return nil, fmt.Errorf("%w: factura %s en estado %s", domain.ErrNotFinalized, rec.ID, rec.State)
	}

	cfg, err := uc.config(ctx, rec)
	if err != nil {
		return nil, err
	}
	fingerprint := dte.Fingerprint(rec)

	var res CompileResult
	err = uc.txRunner.RunIssuance(ctx, func(seqRepo repository.SequenceRepository, docRepo repository.IssuedDocumentRepository) error {
		res = CompileResult{}
		active, err := docRepo.GetActiveByInvoice(ctx, rec.ID)
		if err != nil {
			return err
		}

		work := *rec
		work.Identifiers = nil
		var superseded *entity.IssuedDocument
		if active != nil {
			switch {
			case active.Fingerprint == fingerprint:
				work.Identifiers = active.Identifiers()
			case active.IsMutable() || active.Status == entity.DTEStatusRejected:
				superseded = active
			default:
				return fmt.Errorf("%w: DTE %s en estado %s", domain.ErrAlreadyProcessed, active.GenerationCode, active.Status)
			}
		}

		cfg.Sequences = seqRepo
		compiled, err := dte.CompileRecord(ctx, &work, cfg)
		if err != nil {
			return err
		}
		res.Compiled = compiled

		if active != nil && superseded == nil {
			if !bytes.Equal(active.Document, compiled.JSON) {
				uc.log.Warn().
					Str("invoice_id", rec.ID).
					Str("codigo_generacion", active.GenerationCode).
					Msg("la recompilación difiere del documento guardado; se conserva el guardado")
			}
			res.Document = active
			res.Reused = true
			return nil
		}

		if superseded != nil {
			superseded.Status = entity.DTEStatusSuperseded
			if err := docRepo.Update(ctx, superseded); err != nil {
				return fmt.Errorf("marcar SUPERSEDED: %w", err)
			}
			res.Superseded = superseded.ID
		}

		doc := &entity.IssuedDocument{
			InvoiceID:       rec.ID,
			CompanyID:       rec.CompanyID,
			EstablishmentID: cfg.Establishment.ID,
			DocumentType:    compiled.TypeCode,
			Version:         compiled.Version,
			Environment:     uc.settings.Environment,
			GenerationCode:  compiled.Identifiers.GenerationCode,
			ControlNumber:   compiled.Identifiers.ControlNumber,
			Sequence:        compiled.Identifiers.Sequence,
			Fingerprint:     fingerprint,
			Document:        compiled.JSON,
			Status:          entity.DTEStatusCompiled,
			EmittedAt:       compiled.Identifiers.EmittedAt,
		}
		if err := docRepo.Create(ctx, doc); err != nil {
			return err
		}
		res.Document = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := uc.log.Info().
		Str("invoice_id", rec.ID).
		Str("tipo_dte", res.Document.DocumentType).
		Str("numero_control", res.Document.ControlNumber)
	if res.Superseded != "" {
		ev = ev.Str("superseded", res.Superseded)
	}
	ev.Bool("reused", res.Reused).Msg("DTE compilado")
	return &res, nil
}

// Preview compila una factura sin reservar correlativo ni persistir nada.
// El número de control lleva el correlativo 0.
func (uc *CompileDocumentUseCase) Preview(ctx context.Context, rec *entity.InvoiceRecord) (*dte.CompiledDocument, error) {
	ctx, span := tracer.Start(ctx, "dte.preview")
	defer span.End()

	if rec == nil {
		return nil, domain.ErrInvalidInput
	}
	cfg, err := uc.config(ctx, rec)
	if err != nil {
		return nil, err
	}
	cfg.Sequences = previewSequences{}

	work := *rec
	work.Identifiers = nil
	compiled, err := dte.CompileRecord(ctx, &work, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return compiled, nil
}

// config arma la configuración del compilador. Empresa o establecimiento ausentes
// se dejan en nil para que el compilador reporte el ConfigurationError correspondiente.
func (uc *CompileDocumentUseCase) config(ctx context.Context, rec *entity.InvoiceRecord) (dte.Config, error) {
	company, err := uc.companyRepo.GetByID(ctx, rec.CompanyID)
	if err != nil {
		return dte.Config{}, err
	}

	var est *entity.Establishment
	if rec.EstablishmentID != "" {
		est, err = uc.establishmentRepo.GetByID(ctx, rec.EstablishmentID)
	} else {
		est, err = uc.establishmentRepo.GetDefaultByCompany(ctx, rec.CompanyID)
	}
	if err != nil {
		return dte.Config{}, err
	}
	if est != nil && est.CompanyID != "" && est.CompanyID != rec.CompanyID {
		return dte.Config{}, fmt.Errorf("%w: establecimiento %s no pertenece a la empresa %s",
			domain.ErrForbidden, est.ID, rec.CompanyID)
	}

	return dte.Config{
		Environment:   uc.settings.Environment,
		Company:       company,
		Establishment: est,
		Location:      uc.settings.Location,
		Now:           uc.now,
	}, nil
}

// previewSequences numeración de vista previa: siempre 0.
type previewSequences struct{}

func (previewSequences) NextSequence(context.Context, string, string) (int64, error) {
	return 0, nil
}

// IsCompileError indica si err proviene de la taxonomía del compilador.
func IsCompileError(err error) bool {
	var (
		cfgErr   *dte.ConfigurationError
		classErr *dte.ClassificationError
		valErr   *dte.ValidationError
		seqErr   *dte.SequenceContentionError
	)
	return errors.As(err, &cfgErr) || errors.As(err, &classErr) || errors.As(err, &valErr) || errors.As(err, &seqErr)
}
