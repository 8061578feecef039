//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/dte-sv/internal/application/issuance"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
	"github.com/jhoicas/dte-sv/internal/infrastructure/postgres"
	"github.com/jhoicas/dte-sv/pkg/config"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

// newDB levanta PostgreSQL en un contenedor, aplica las migraciones y devuelve el pool.
func newDB(t *testing.T) *postgresEnv {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("dte_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "no se pudo iniciar el contenedor de PostgreSQL")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(dsn, "up", zerolog.Nop()))

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 20})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &postgresEnv{
		companies:      postgres.NewCompanyRepository(pool),
		establishments: postgres.NewEstablishmentRepository(pool),
		invoices:       postgres.NewInvoiceRecordRepository(pool),
		docs:           postgres.NewIssuedDocumentRepository(pool),
		seq:            postgres.NewSequenceRepository(pool),
		tx:             postgres.NewTxRunner(pool).WithLockTimeout(2 * time.Second),
	}
}

type postgresEnv struct {
	companies      *postgres.CompanyRepo
	establishments *postgres.EstablishmentRepo
	invoices       *postgres.InvoiceRecordRepo
	docs           *postgres.IssuedDocumentRepo
	seq            *postgres.SequenceRepo
	tx             *postgres.TxRunner
}

// ──────────────────────────────────────────────────────────────────────────────
// Correlativos
// ──────────────────────────────────────────────────────────────────────────────

func TestSequence_ConcurrenciaSinDuplicados(t *testing.T) {
	env := newDB(t)
	ctx := context.Background()
	estID := uuid.New().String()
	const workers = 20

	var (
		mu   sync.Mutex
		got  []int64
		wg   sync.WaitGroup
		errs = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- env.tx.RunIssuance(ctx, func(seq repository.SequenceRepository, _ repository.IssuedDocumentRepository) error {
				n, err := seq.NextSequence(ctx, estID, mh.DTEInvoice)
				if err != nil {
					return err
				}
				mu.Lock()
				got = append(got, n)
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	require.Len(t, got, workers)
	for i, n := range got {
		assert.Equal(t, int64(i+1), n, "los correlativos deben ser 1..N sin huecos ni repetidos")
	}
	current, err := env.seq.Current(ctx, estID, mh.DTEInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), current)
}

func TestSequence_RollbackLiberaElNumero(t *testing.T) {
	env := newDB(t)
	ctx := context.Background()
	estID := uuid.New().String()
	boom := errors.New("fallo posterior a la reserva")

	err := env.tx.RunIssuance(ctx, func(seq repository.SequenceRepository, _ repository.IssuedDocumentRepository) error {
		n, err := seq.NextSequence(ctx, estID, mh.DTECCF)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := env.seq.NextSequence(ctx, estID, mh.DTECCF)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSequence_PorTipoYEstablecimiento(t *testing.T) {
	env := newDB(t)
	ctx := context.Background()
	a, b := uuid.New().String(), uuid.New().String()

	for _, tc := range []struct {
		est, typ string
		want     int64
	}{
		{a, mh.DTEInvoice, 1},
		{a, mh.DTEInvoice, 2},
		{a, mh.DTECCF, 1},
		{b, mh.DTEInvoice, 1},
	} {
		n, err := env.seq.NextSequence(ctx, tc.est, tc.typ)
		require.NoError(t, err)
		assert.Equal(t, tc.want, n)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Compilación de punta a punta
// ──────────────────────────────────────────────────────────────────────────────

func TestCompile_PersisteYReutiliza(t *testing.T) {
	env := newDB(t)
	ctx := context.Background()

	company := &entity.Company{
		ID:           uuid.New().String(),
		Name:         "Comercial El Roble S.A. de C.V.",
		NIT:          "0614-010190-101-3",
		NRC:          "12345-6",
		ActivityCode: "46900",
		ActivityDesc: "Venta al por mayor de otros productos",
		Email:        "facturas@elroble.sv",
		Status:       entity.CompanyStatusActive,
	}
	require.NoError(t, env.companies.Create(ctx, company))
	est := &entity.Establishment{
		CompanyID:    company.ID,
		Name:         "Casa matriz",
		Type:         mh.EstablishmentMain,
		CodeMH:       "M001",
		POSCodeMH:    "P001",
		DistrictCode: "0614",
		Address:      "Col. Escalón",
		IsActive:     true,
	}
	require.NoError(t, env.establishments.Create(ctx, est))

	rec := &entity.InvoiceRecord{
		ID:              uuid.New().String(),
		CompanyID:       company.ID,
		EstablishmentID: est.ID,
		DocumentType:    mh.DTEInvoice,
		Currency:        "USD",
		Date:            time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		State:           entity.InvoiceStateFinalized,
		Classification:  entity.FiscalFinalConsumer,
		Buyer:           entity.Party{Name: "Juan Pérez"},
		Lines: []entity.LineItem{{
			Description: "Servicio de mantenimiento",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("113.00"),
			TaxCodes:    []string{mh.TaxVAT},
		}},
		Settlement: entity.SettlementCash,
	}
	require.NoError(t, env.invoices.Save(ctx, rec))

	uc := issuance.NewCompileDocumentUseCase(env.invoices, env.companies, env.establishments, env.tx,
		issuance.Settings{
			Mode:        config.ModeDev,
			Environment: mh.EnvironmentTest,
			Location:    time.FixedZone("CST", -6*60*60),
		}, zerolog.Nop())

	first, err := uc.Compile(ctx, company.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "DTE-01-M001P001-000000000000001", first.Document.ControlNumber)

	stored, err := env.docs.GetByID(ctx, first.Document.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, string(first.Compiled.JSON), string(stored.Document), "la columna JSON conserva los bytes exactos")

	second, err := uc.Compile(ctx, company.ID, rec.ID)
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Document.GenerationCode, second.Document.GenerationCode)

	current, err := env.seq.Current(ctx, est.ID, mh.DTEInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current, "recompilar sin cambios no consume correlativo")
}
