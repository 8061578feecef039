package issuance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
	infmh "github.com/jhoicas/dte-sv/internal/infrastructure/mh"
	pkgmh "github.com/jhoicas/dte-sv/pkg/mh"
)

// Orchestrator orquesta el ciclo de transmisión de un DTE ya compilado:
//
//	JSON canónico → Firma JWS (RS512) → Recepción MH → Update DB → Archivo
//
// ProcessAsync corre en una goroutine independiente con su propio
// context.Background() + timeout, desacoplado del ciclo HTTP.
//
// Modos de operación (Settings.Mode):
//   - "dev"  → firma el documento, NO lo envía. Sello simulado DEV-….
//   - "test" → envía a apitest.dtes.mh.gob.sv.
//   - "prod" → envía a api.dtes.mh.gob.sv.
type Orchestrator struct {
	docRepo     repository.IssuedDocumentRepository
	companyRepo repository.CompanyRepository
	signer      pkgmh.Signer
	gateway     Gateway  // nil en dev
	archiver    Archiver // nil = sin archivo
	settings    Settings
	log         zerolog.Logger
	now         func() time.Time
	wg          sync.WaitGroup
}

// NewOrchestrator construye el orquestador. gateway puede ser nil: en ese caso solo funciona el modo dev.
func NewOrchestrator(
	docRepo repository.IssuedDocumentRepository,
	companyRepo repository.CompanyRepository,
	signer pkgmh.Signer,
	gateway Gateway,
	archiver Archiver,
	settings Settings,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		docRepo:     docRepo,
		companyRepo: companyRepo,
		signer:      signer,
		gateway:     gateway,
		archiver:    archiver,
		settings:    settings,
		log:         log.With().Str("component", "orchestrator").Logger(),
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj (pruebas).
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// ProcessAsync dispara el procesamiento en una goroutine independiente.
func (o *Orchestrator) ProcessAsync(documentID string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.settings.timeout())
		defer cancel()
		if err := o.Process(ctx, documentID); err != nil {
			o.log.Error().Err(err).Str("document_id", documentID).Msg("procesamiento DTE terminó con error")
		}
	}()
}

// Wait bloquea hasta que terminan los procesamientos en curso (apagado ordenado).
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Process firma y transmite el DTE. Siempre termina persistiendo el estado
// (PROCESADO, RECHAZADO o ERROR) salvo que el documento no admita envío.
func (o *Orchestrator) Process(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "dte.process")
	defer span.End()
	span.SetAttributes(attribute.String("document_id", documentID))

	doc, err := o.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return domain.ErrNotFound
	}
	log := o.log.With().
		Str("document_id", doc.ID).
		Str("invoice_id", doc.InvoiceID).
		Str("tipo_dte", doc.DocumentType).
		Str("numero_control", doc.ControlNumber).
		Logger()

	switch doc.Status {
	case entity.DTEStatusCompiled, entity.DTEStatusError, entity.DTEStatusSigned:
	case entity.DTEStatusProcessed:
		log.Info().Msg("DTE ya procesado, nada que hacer")
		return nil
	default:
		return fmt.Errorf("%w: DTE %s en estado %s", domain.ErrConflict, doc.GenerationCode, doc.Status)
	}

	// markError deja el documento en ERROR con el detalle del paso.
	markError := func(step string, cause error) error {
		doc.Status = entity.DTEStatusError
		doc.MHMessages = fmt.Sprintf("%s: %v", step, cause)
		if err := o.docRepo.Update(ctx, doc); err != nil {
			log.Error().Err(err).Str("step", step).Msg("no se pudo persistir ERROR")
		}
		log.Error().Err(cause).Str("step", step).Msg("error procesando DTE")
		span.RecordError(cause)
		span.SetStatus(codes.Error, step)
		return fmt.Errorf("%s: %w", step, cause)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Firma JWS (se omite si ya existe: reintento de envío)
	// ═══════════════════════════════════════════════════════════════════════════
	if doc.SignedJWS == "" {
		_, signSpan := tracer.Start(ctx, "dte.sign")
		jws, err := o.signer.Sign(ctx, doc.Document)
		signSpan.End()
		if err != nil {
			return markError("sign", err)
		}
		doc.SignedJWS = jws
		doc.Status = entity.DTEStatusSigned
		doc.MHMessages = ""
		if err := o.docRepo.Update(ctx, doc); err != nil {
			return fmt.Errorf("persistir SIGNED: %w", err)
		}
		log.Debug().Msg("DTE firmado")
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Envío condicional a recepción del MH
	// ═══════════════════════════════════════════════════════════════════════════
	var resp *infmh.Response
	if o.settings.isDev() {
		resp = o.simulatedReceipt(doc)
		log.Info().Int("jws_bytes", len(doc.SignedJWS)).Msg("[DEV] simulando recepción MH")
	} else {
		if o.gateway == nil {
			return markError("submit", errors.New("cliente MH no configurado para el modo "+o.settings.Mode))
		}
		resp, err = o.gateway.Submit(ctx, infmh.Envelope{
			Ambiente:  doc.Environment,
			Version:   doc.Version,
			TipoDte:   doc.DocumentType,
			Documento: doc.SignedJWS,
		})
		if err != nil {
			return markError("submit", err)
		}
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Persistir resultado
	// ═══════════════════════════════════════════════════════════════════════════
	o.applyResponse(doc, resp)
	if err := o.docRepo.Update(ctx, doc); err != nil {
		return fmt.Errorf("persistir estado %s: %w", doc.Status, err)
	}
	span.SetAttributes(attribute.String("mh.estado", doc.Status))

	if doc.Status == entity.DTEStatusProcessed {
		log.Info().Str("sello", doc.ReceptionSeal).Msg("DTE procesado por el MH")
		o.archive(ctx, doc, resp, log)
	} else {
		log.Warn().Str("observaciones", doc.MHMessages).Msg("DTE rechazado por el MH")
	}
	return nil
}

// Status devuelve el DTE vigente de la factura. Con refresh consulta al MH
// los documentos que quedaron firmados o en error.
func (o *Orchestrator) Status(ctx context.Context, companyID, invoiceID string, refresh bool) (*entity.IssuedDocument, error) {
	doc, err := o.docRepo.GetActiveByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if doc == nil || (companyID != "" && doc.CompanyID != companyID) {
		return nil, domain.ErrNotFound
	}
	if !refresh {
		return doc, nil
	}
	return o.Refresh(ctx, doc.ID)
}

// Refresh consulta al MH el estado de un DTE que quedó firmado o en error
// (p. ej. el envío expiró pero el MH sí lo recibió) y actualiza el registro.
func (o *Orchestrator) Refresh(ctx context.Context, documentID string) (*entity.IssuedDocument, error) {
	ctx, span := tracer.Start(ctx, "dte.refresh")
	defer span.End()

	doc, err := o.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.SignedJWS == "" || (doc.Status != entity.DTEStatusSigned && doc.Status != entity.DTEStatusError) {
		return doc, nil
	}
	if o.settings.isDev() || o.gateway == nil {
		return doc, nil
	}

	company, err := o.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("%w: empresa %s", domain.ErrNotFound, doc.CompanyID)
	}
	resp, err := o.gateway.Consult(ctx, infmh.ConsultRequest{
		NitEmisor:        pkgmh.NormalizeNIT(company.NIT),
		TipoDte:          doc.DocumentType,
		CodigoGeneracion: doc.GenerationCode,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if resp.Estado == "" {
		return doc, nil
	}

	o.applyResponse(doc, resp)
	if err := o.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}
	if doc.Status == entity.DTEStatusProcessed {
		o.archive(ctx, doc, resp, o.log)
	}
	return doc, nil
}

func (o *Orchestrator) applyResponse(doc *entity.IssuedDocument, resp *infmh.Response) {
	doc.MHMessages = resp.Messages()
	if resp.Accepted() {
		doc.Status = entity.DTEStatusProcessed
		doc.ReceptionSeal = resp.SelloRecibido
		doc.ProcessedAt = resp.ProcessedAt(o.location())
		if doc.ProcessedAt == nil {
			t := o.now()
			doc.ProcessedAt = &t
		}
		return
	}
	doc.Status = entity.DTEStatusRejected
}

func (o *Orchestrator) simulatedReceipt(doc *entity.IssuedDocument) *infmh.Response {
	now := o.now().In(o.location())
	return &infmh.Response{
		Ambiente:         doc.Environment,
		Estado:           infmh.EstadoProcesado,
		CodigoGeneracion: doc.GenerationCode,
		SelloRecibido:    "DEV-" + strings.ReplaceAll(doc.GenerationCode, "-", ""),
		FhProcesamiento:  now.Format("02/01/2006 15:04:05"),
		DescripcionMsg:   "RECIBIDO (simulado)",
	}
}

// archive guarda el JWS y el acuse. Un fallo no altera el estado del DTE.
func (o *Orchestrator) archive(ctx context.Context, doc *entity.IssuedDocument, resp *infmh.Response, log zerolog.Logger) {
	if o.archiver == nil {
		return
	}
	receipt := resp.Raw
	if len(receipt) == 0 {
		receipt, _ = json.Marshal(resp)
	}
	if err := o.archiver.Store(ctx, doc, receipt); err != nil {
		log.Warn().Err(err).Msg("no se pudo archivar el DTE")
	}
}

func (o *Orchestrator) location() *time.Location {
	if o.settings.Location != nil {
		return o.settings.Location
	}
	return time.UTC
}
