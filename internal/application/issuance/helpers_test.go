package issuance_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/dte-sv/internal/application/issuance"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/infrastructure/memory"
	infmh "github.com/jhoicas/dte-sv/internal/infrastructure/mh"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

var (
	fixedNow = time.Date(2026, 3, 15, 14, 30, 5, 0, time.UTC)
	svZone   = time.FixedZone("CST", -6*60*60)
)

const (
	companyID       = "comp-1"
	establishmentID = "est-1"
)

type testEnv struct {
	invoices       *memory.InvoiceStore
	companies      *memory.CatalogStore
	establishments *memory.EstablishmentStore
	seq            *memory.SequenceStore
	docs           *memory.DocumentStore
	invalidations  *memory.InvalidationStore
	signer         *fakeSigner
	gateway        *fakeGateway
	settings       issuance.Settings
}

func newEnv(t *testing.T, mode string) *testEnv {
	t.Helper()
	ctx := context.Background()
	e := &testEnv{
		invoices:       memory.NewInvoiceStore(),
		companies:      memory.NewCatalogStore(),
		establishments: memory.NewEstablishmentStore(),
		seq:            memory.NewSequenceStore(),
		docs:           memory.NewDocumentStore(),
		invalidations:  memory.NewInvalidationStore(),
		signer:         &fakeSigner{},
		gateway:        &fakeGateway{},
		settings: issuance.Settings{
			Mode:        mode,
			Environment: mh.EnvironmentTest,
			Location:    svZone,
			Timeout:     5 * time.Second,
		},
	}
	require.NoError(t, e.companies.Create(ctx, &entity.Company{
		ID:           companyID,
		Name:         "Comercial El Roble S.A. de C.V.",
		NIT:          "0614-010190-101-3",
		NRC:          "12345-6",
		ActivityCode: "46900",
		ActivityDesc: "Venta al por mayor de otros productos",
		Phone:        "2222-3333",
		Email:        "facturas@elroble.sv",
	}))
	require.NoError(t, e.establishments.Create(ctx, &entity.Establishment{
		ID:           establishmentID,
		CompanyID:    companyID,
		Name:         "Casa matriz",
		Type:         mh.EstablishmentMain,
		CodeMH:       "M001",
		POSCodeMH:    "P001",
		DistrictCode: "0614",
		Address:      "Col. Escalón, calle 3 #45",
		IsActive:     true,
	}))
	return e
}

func (e *testEnv) compileUC() *issuance.CompileDocumentUseCase {
	return issuance.NewCompileDocumentUseCase(
		e.invoices, e.companies, e.establishments,
		memory.NewTxRunner(e.seq, e.docs),
		e.settings, zerolog.Nop(),
	).WithClock(func() time.Time { return fixedNow })
}

// gw evita pasar un *fakeGateway nil envuelto en una interfaz no nil.
func (e *testEnv) gw() issuance.Gateway {
	if e.gateway == nil {
		return nil
	}
	return e.gateway
}

func (e *testEnv) orchestrator(archiver issuance.Archiver) *issuance.Orchestrator {
	return issuance.NewOrchestrator(e.docs, e.companies, e.signer, e.gw(), archiver, e.settings, zerolog.Nop()).
		WithClock(func() time.Time { return fixedNow })
}

func (e *testEnv) invalidateUC() *issuance.InvalidateUseCase {
	return issuance.NewInvalidateUseCase(
		e.docs, e.invalidations, e.companies, e.establishments,
		e.signer, e.gw(), e.settings, zerolog.Nop(),
	).WithClock(func() time.Time { return fixedNow })
}

// saveInvoice guarda una factura de consumidor final con una línea de $113 IVA incluido.
func (e *testEnv) saveInvoice(t *testing.T, id string) *entity.InvoiceRecord {
	t.Helper()
	rec := &entity.InvoiceRecord{
		ID:              id,
		CompanyID:       companyID,
		EstablishmentID: establishmentID,
		DocumentType:    mh.DTEInvoice,
		Currency:        "USD",
		Date:            time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		State:           entity.InvoiceStateFinalized,
		Classification:  entity.FiscalFinalConsumer,
		Buyer:           entity.Party{Name: "Juan Pérez", Email: "juan@correo.sv"},
		Lines: []entity.LineItem{{
			Description: "Producto de prueba",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("113.00"),
			TaxCodes:    []string{mh.TaxVAT},
		}},
		Settlement: entity.SettlementCash,
	}
	require.NoError(t, e.invoices.Save(context.Background(), rec))
	return rec
}

// compiled compila la factura y devuelve el DTE vinculado.
func (e *testEnv) compiled(t *testing.T, invoiceID string) *entity.IssuedDocument {
	t.Helper()
	e.saveInvoice(t, invoiceID)
	res, err := e.compileUC().Compile(context.Background(), companyID, invoiceID)
	require.NoError(t, err)
	return res.Document
}

func (e *testEnv) setStatus(t *testing.T, doc *entity.IssuedDocument, status, seal string) {
	t.Helper()
	doc.Status = status
	doc.ReceptionSeal = seal
	require.NoError(t, e.docs.Update(context.Background(), doc))
}

// ──────────────────────────────────────────────────────────────────────────────
// Dobles
// ──────────────────────────────────────────────────────────────────────────────

type fakeSigner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *fakeSigner) Sign(_ context.Context, document []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("eyJhbGciOiJSUzUxMiJ9.%d.firma", len(document)), nil
}

type fakeGateway struct {
	mu          sync.Mutex
	submitted   []infmh.Envelope
	invalidated []infmh.Envelope
	consulted   []infmh.ConsultRequest
	resp        *infmh.Response
	err         error
}

func (g *fakeGateway) Submit(_ context.Context, env infmh.Envelope) (*infmh.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitted = append(g.submitted, env)
	return g.reply()
}

func (g *fakeGateway) Consult(_ context.Context, req infmh.ConsultRequest) (*infmh.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consulted = append(g.consulted, req)
	return g.reply()
}

func (g *fakeGateway) Invalidate(_ context.Context, env infmh.Envelope) (*infmh.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.invalidated = append(g.invalidated, env)
	return g.reply()
}

func (g *fakeGateway) reply() (*infmh.Response, error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.resp == nil {
		return nil, errors.New("sin respuesta configurada")
	}
	cp := *g.resp
	return &cp, nil
}

func accepted(seal string) *infmh.Response {
	return &infmh.Response{
		Estado:          infmh.EstadoProcesado,
		SelloRecibido:   seal,
		FhProcesamiento: "15/03/2026 08:30:10",
		DescripcionMsg:  "RECIBIDO",
	}
}

type fakeArchiver struct {
	mu     sync.Mutex
	stored []string
	err    error
}

func (a *fakeArchiver) Store(_ context.Context, doc *entity.IssuedDocument, receipt []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.stored = append(a.stored, doc.GenerationCode+":"+string(receipt))
	return nil
}
