package issuance_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/dte-sv/internal/application/issuance"
	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/dte"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/pkg/config"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

// ──────────────────────────────────────────────────────────────────────────────
// Compilación y vínculo
// ──────────────────────────────────────────────────────────────────────────────

func TestCompile_VinculaFacturaConIdentificadores(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	env.saveInvoice(t, "inv-1")

	res, err := env.compileUC().Compile(context.Background(), companyID, "inv-1")
	require.NoError(t, err)

	doc := res.Document
	assert.False(t, res.Reused)
	assert.Equal(t, entity.DTEStatusCompiled, doc.Status)
	assert.Equal(t, "DTE-01-M001P001-000000000000001", doc.ControlNumber)
	assert.Equal(t, int64(1), doc.Sequence)
	assert.Equal(t, mh.EnvironmentTest, doc.Environment)
	assert.Equal(t, establishmentID, doc.EstablishmentID)
	assert.True(t, dte.ValidGenerationCode(doc.GenerationCode))
	assert.NotEmpty(t, doc.Fingerprint)
	assert.JSONEq(t, string(res.Compiled.JSON), string(doc.Document))

	stored, err := env.docs.GetActiveByInvoice(context.Background(), "inv-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, doc.ID, stored.ID)
}

func TestCompile_RecompilarSinCambiosEsIdempotente(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	env.saveInvoice(t, "inv-1")
	uc := env.compileUC()

	first, err := uc.Compile(context.Background(), companyID, "inv-1")
	require.NoError(t, err)
	second, err := uc.Compile(context.Background(), companyID, "inv-1")
	require.NoError(t, err)

	assert.True(t, second.Reused)
	assert.Equal(t, first.Document.ID, second.Document.ID)
	assert.Equal(t, first.Document.GenerationCode, second.Document.GenerationCode)
	assert.Equal(t, string(first.Compiled.JSON), string(second.Compiled.JSON), "el JSON debe ser idéntico byte a byte")

	current, err := env.seq.Current(context.Background(), establishmentID, mh.DTEInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current, "recompilar no consume correlativo")
}

func TestCompile_CambioTributarioReemplazaDocumentoNoTransmitido(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	first := env.compiled(t, "inv-1")

	rec, err := env.invoices.GetByID(context.Background(), "inv-1")
	require.NoError(t, err)
	rec.Lines[0].UnitPrice = decimal.RequireFromString("226.00")
	require.NoError(t, env.invoices.Save(context.Background(), rec))

	res, err := env.compileUC().Compile(context.Background(), companyID, "inv-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, res.Superseded)
	assert.NotEqual(t, first.GenerationCode, res.Document.GenerationCode)
	assert.Equal(t, "DTE-01-M001P001-000000000000002", res.Document.ControlNumber)

	old, err := env.docs.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DTEStatusSuperseded, old.Status)
}

func TestCompile_CambioTributarioTrasProcesado_Conflicto(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	first := env.compiled(t, "inv-1")
	env.setStatus(t, first, entity.DTEStatusProcessed, "SELLO-1")

	rec, err := env.invoices.GetByID(context.Background(), "inv-1")
	require.NoError(t, err)
	rec.Lines[0].Quantity = decimal.NewFromInt(2)
	require.NoError(t, env.invoices.Save(context.Background(), rec))

	_, err = env.compileUC().Compile(context.Background(), companyID, "inv-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	current, err := env.seq.Current(context.Background(), establishmentID, mh.DTEInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)
}

func TestCompile_ProcesadoSinCambios_DevuelveElMismo(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	first := env.compiled(t, "inv-1")
	env.setStatus(t, first, entity.DTEStatusProcessed, "SELLO-1")

	res, err := env.compileUC().Compile(context.Background(), companyID, "inv-1")
	require.NoError(t, err)
	assert.True(t, res.Reused)
	assert.Equal(t, entity.DTEStatusProcessed, res.Document.Status)
}

func TestCompile_FacturaInexistenteONoFinalizada(t *testing.T) {
	env := newEnv(t, config.ModeDev)

	_, err := env.compileUC().Compile(context.Background(), companyID, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	rec := env.saveInvoice(t, "inv-draft")
	rec.State = entity.InvoiceStateDraft
	require.NoError(t, env.invoices.Save(context.Background(), rec))

	_, err = env.compileUC().Compile(context.Background(), companyID, "inv-draft")
	assert.ErrorIs(t, err, domain.ErrNotFinalized)
}

func TestCompile_ErrorDeClasificacionNoConsumeCorrelativo(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	rec := env.saveInvoice(t, "inv-ccf")
	rec.DocumentType = mh.DTECCF
	require.NoError(t, env.invoices.Save(context.Background(), rec))

	_, err := env.compileUC().Compile(context.Background(), companyID, "inv-ccf")

	var ce *dte.ClassificationError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, dte.ErrFinalConsumerNotAllowed)

	current, err := env.seq.Current(context.Background(), establishmentID, mh.DTECCF)
	require.NoError(t, err)
	assert.Zero(t, current)
	doc, err := env.docs.GetActiveByInvoice(context.Background(), "inv-ccf")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestCompile_CCFGuardadoSinClasificacion_SeTrataComoContribuyente(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	rec := env.saveInvoice(t, "inv-ccf")
	rec.DocumentType = mh.DTECCF
	rec.Classification = ""
	rec.Buyer = entity.Party{
		Name:           "Distribuidora Los Andes S.A.",
		DocumentType:   mh.IDNIT,
		DocumentNumber: "0614-250585-102-1",
		NRC:            "98765-4",
		ActivityCode:   "46900",
		ActivityDesc:   "Distribución de alimentos",
		DistrictCode:   "0210",
		Address:        "Av. Independencia 12",
		Email:          "compras@losandes.sv",
	}
	rec.Lines[0].UnitPrice = decimal.RequireFromString("100.00")
	rec.Lines[0].Quantity = decimal.NewFromInt(2)
	require.NoError(t, env.invoices.Save(context.Background(), rec))

	res, err := env.compileUC().Compile(context.Background(), companyID, "inv-ccf")
	require.NoError(t, err)

	resumen, ok := res.Compiled.Tree["resumen"].(map[string]any)
	require.True(t, ok)
	tributos, ok := resumen["tributos"].([]any)
	require.True(t, ok, "un CCF declara el IVA en resumen.tributos")
	require.Len(t, tributos, 1)
	assert.Equal(t, "20", tributos[0].(map[string]any)["codigo"])
	assert.Equal(t, "26.00", fmt.Sprint(tributos[0].(map[string]any)["valor"]))
	assert.Equal(t, "226.00", fmt.Sprint(resumen["totalPagar"]))
}

func TestCompile_FalloAlGuardarRestauraDocumentoYCorrelativo(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	first := env.compiled(t, "inv-1")

	// Otro DTE ya ocupa el siguiente número de control.
	require.NoError(t, env.docs.Create(context.Background(), &entity.IssuedDocument{
		InvoiceID:      "inv-otra",
		GenerationCode: "00000000-0000-4000-8000-000000000001",
		ControlNumber:  "DTE-01-M001P001-000000000000002",
		Status:         entity.DTEStatusProcessed,
	}))

	rec, err := env.invoices.GetByID(context.Background(), "inv-1")
	require.NoError(t, err)
	rec.Lines[0].UnitPrice = decimal.RequireFromString("226.00")
	require.NoError(t, env.invoices.Save(context.Background(), rec))

	_, err = env.compileUC().Compile(context.Background(), companyID, "inv-1")
	require.ErrorIs(t, err, domain.ErrDuplicate)

	active, err := env.docs.GetActiveByInvoice(context.Background(), "inv-1")
	require.NoError(t, err)
	require.NotNil(t, active, "la factura conserva su DTE vigente")
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, entity.DTEStatusCompiled, active.Status)

	current, err := env.seq.Current(context.Background(), establishmentID, mh.DTEInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current, "el correlativo reservado se libera")
}

func TestCompile_EstablecimientoDesconocido_ErrorDeConfiguracion(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	rec := env.saveInvoice(t, "inv-1")
	rec.EstablishmentID = "est-x"
	require.NoError(t, env.invoices.Save(context.Background(), rec))

	_, err := env.compileUC().Compile(context.Background(), companyID, "inv-1")

	var ce *dte.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, dte.ErrMissingEstablishmentConfig)
	assert.True(t, issuance.IsCompileError(err))
}

func TestCompile_SinEstablecimientoUsaElPrincipal(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	rec := env.saveInvoice(t, "inv-1")
	rec.EstablishmentID = ""
	require.NoError(t, env.invoices.Save(context.Background(), rec))

	res, err := env.compileUC().Compile(context.Background(), companyID, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, establishmentID, res.Document.EstablishmentID)
}

func TestCompile_ConcurrenteSinNumerosRepetidos(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	const n = 25
	for i := 0; i < n; i++ {
		env.saveInvoice(t, fmt.Sprintf("inv-%02d", i))
	}
	uc := env.compileUC()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := uc.Compile(context.Background(), companyID, fmt.Sprintf("inv-%02d", i))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[res.Document.ControlNumber] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, numbers, n)
	assert.True(t, numbers[fmt.Sprintf("DTE-01-M001P001-%015d", n)])
}

// ──────────────────────────────────────────────────────────────────────────────
// Vista previa
// ──────────────────────────────────────────────────────────────────────────────

func TestPreview_NoReservaCorrelativoNiPersiste(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	rec := env.saveInvoice(t, "inv-prev")

	compiled, err := env.compileUC().Preview(context.Background(), rec)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(compiled.Identifiers.ControlNumber, "-000000000000000"))
	current, err := env.seq.Current(context.Background(), establishmentID, mh.DTEInvoice)
	require.NoError(t, err)
	assert.Zero(t, current)
	doc, err := env.docs.GetActiveByInvoice(context.Background(), "inv-prev")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestPreview_FacturaNil(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	_, err := env.compileUC().Preview(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
