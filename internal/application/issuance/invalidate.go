package issuance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/dte-sv/internal/application/dto"
	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/dte"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
	infmh "github.com/jhoicas/dte-sv/internal/infrastructure/mh"
	pkgmh "github.com/jhoicas/dte-sv/pkg/mh"
)

// InvalidateUseCase anula ante el MH un DTE ya procesado. Es síncrono: el evento
// firmado se transmite dentro de la misma petición.
type InvalidateUseCase struct {
	docRepo           repository.IssuedDocumentRepository
	invalidationRepo  repository.InvalidationRepository
	companyRepo       repository.CompanyRepository
	establishmentRepo repository.EstablishmentRepository
	signer            pkgmh.Signer
	gateway           Gateway
	settings          Settings
	log               zerolog.Logger
	now               func() time.Time
}

// NewInvalidateUseCase construye el caso de uso.
func NewInvalidateUseCase(
	docRepo repository.IssuedDocumentRepository,
	invalidationRepo repository.InvalidationRepository,
	companyRepo repository.CompanyRepository,
	establishmentRepo repository.EstablishmentRepository,
	signer pkgmh.Signer,
	gateway Gateway,
	settings Settings,
	log zerolog.Logger,
) *InvalidateUseCase {
	return &InvalidateUseCase{
		docRepo:           docRepo,
		invalidationRepo:  invalidationRepo,
		companyRepo:       companyRepo,
		establishmentRepo: establishmentRepo,
		signer:            signer,
		gateway:           gateway,
		settings:          settings,
		log:               log.With().Str("component", "invalidation").Logger(),
		now:               time.Now,
	}
}

// WithClock reemplaza el reloj (pruebas).
func (uc *InvalidateUseCase) WithClock(now func() time.Time) *InvalidateUseCase {
	uc.now = now
	return uc
}

// Invalidate compila, firma y transmite el evento de invalidación. companyID limita
// la operación a los DTE de la empresa del usuario autenticado.
func (uc *InvalidateUseCase) Invalidate(ctx context.Context, companyID string, in dto.InvalidationRequest) (*entity.Invalidation, error) {
	ctx, span := tracer.Start(ctx, "dte.invalidate")
	defer span.End()
	span.SetAttributes(attribute.String("codigo_generacion", in.CodigoGeneracion))

	code := strings.ToUpper(strings.TrimSpace(in.CodigoGeneracion))
	doc, err := uc.docRepo.GetByGenerationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if doc == nil || (companyID != "" && doc.CompanyID != companyID) {
		return nil, domain.ErrNotFound
	}
	if doc.Status != entity.DTEStatusProcessed {
		return nil, fmt.Errorf("%w: DTE %s en estado %s", domain.ErrNotInvalidatable, doc.GenerationCode, doc.Status)
	}

	replacement := strings.ToUpper(strings.TrimSpace(in.ReplacementCode))
	if in.Type == pkgmh.InvalidationError || in.Type == pkgmh.InvalidationOther {
		if replacement == "" {
			return nil, domain.ErrReplacementNeeded
		}
		repl, err := uc.docRepo.GetByGenerationCode(ctx, replacement)
		if err != nil {
			return nil, err
		}
		if repl == nil || repl.ID == doc.ID || repl.CompanyID != doc.CompanyID {
			return nil, fmt.Errorf("%w: documento de reemplazo %s", domain.ErrReplacementNeeded, replacement)
		}
	}

	prev, err := uc.invalidationRepo.GetByDocumentID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.Status == entity.DTEStatusProcessed {
		return nil, fmt.Errorf("%w: el DTE %s ya tiene una invalidación procesada", domain.ErrConflict, doc.GenerationCode)
	}

	company, err := uc.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}
	est, err := uc.establishmentRepo.GetByID(ctx, doc.EstablishmentID)
	if err != nil {
		return nil, err
	}

	ev := &entity.Invalidation{
		DocumentID:           doc.ID,
		GenerationCode:       dte.NewGenerationCode(),
		Type:                 in.Type,
		Reason:               in.Reason,
		ReplacementCode:      replacement,
		ResponsibleName:      in.ResponsibleName,
		ResponsibleDocType:   in.ResponsibleDocType,
		ResponsibleDocNumber: in.ResponsibleDocNumber,
		RequesterName:        in.RequesterName,
		RequesterDocType:     in.RequesterDocType,
		RequesterDocNumber:   in.RequesterDocNumber,
		Status:               entity.DTEStatusCompiled,
		RequestedAt:          uc.now(),
	}
	raw, err := dte.CompileInvalidation(doc, ev, dte.Config{
		Environment:   doc.Environment,
		Company:       company,
		Establishment: est,
		Location:      uc.settings.Location,
		Now:           func() time.Time { return ev.RequestedAt },
	})
	if err != nil {
		return nil, err
	}

	jws, err := uc.signer.Sign(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("firmar invalidación: %w", err)
	}
	if err := uc.invalidationRepo.Create(ctx, ev); err != nil {
		return nil, err
	}
	log := uc.log.With().
		Str("invalidation_id", ev.ID).
		Str("codigo_generacion", doc.GenerationCode).
		Int("tipo_anulacion", ev.Type).
		Logger()

	var resp *infmh.Response
	if uc.settings.isDev() {
		resp = &infmh.Response{
			Estado:           infmh.EstadoProcesado,
			CodigoGeneracion: ev.GenerationCode,
			SelloRecibido:    "DEV-" + strings.ReplaceAll(ev.GenerationCode, "-", ""),
			DescripcionMsg:   "RECIBIDO (simulado)",
		}
		log.Info().Msg("[DEV] simulando recepción de la invalidación")
	} else {
		if uc.gateway == nil {
			return nil, uc.fail(ctx, ev, span, fmt.Errorf("cliente MH no configurado para el modo %s", uc.settings.Mode))
		}
		resp, err = uc.gateway.Invalidate(ctx, infmh.Envelope{
			Ambiente:  doc.Environment,
			Version:   dte.InvalidationVersion,
			Documento: jws,
		})
		if err != nil {
			return nil, uc.fail(ctx, ev, span, err)
		}
	}

	ev.MHMessages = resp.Messages()
	if resp.Accepted() {
		ev.Status = entity.DTEStatusProcessed
		ev.ReceptionSeal = resp.SelloRecibido
		doc.Status = entity.DTEStatusInvalidated
		if err := uc.docRepo.Update(ctx, doc); err != nil {
			return nil, fmt.Errorf("marcar INVALIDADO: %w", err)
		}
		log.Info().Str("sello", ev.ReceptionSeal).Msg("DTE invalidado")
	} else {
		ev.Status = entity.DTEStatusRejected
		log.Warn().Str("observaciones", ev.MHMessages).Msg("invalidación rechazada por el MH")
	}
	if err := uc.invalidationRepo.Update(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// fail deja el evento en ERROR cuando la transmisión no obtuvo respuesta del MH.
func (uc *InvalidateUseCase) fail(ctx context.Context, ev *entity.Invalidation, span trace.Span, cause error) error {
	ev.Status = entity.DTEStatusError
	ev.MHMessages = cause.Error()
	if err := uc.invalidationRepo.Update(ctx, ev); err != nil {
		uc.log.Error().Err(err).Str("invalidation_id", ev.ID).Msg("no se pudo persistir ERROR")
	}
	span.RecordError(cause)
	span.SetStatus(codes.Error, "invalidate")
	return fmt.Errorf("transmitir invalidación: %w", cause)
}
