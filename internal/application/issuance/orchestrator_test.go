package issuance_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	infmh "github.com/jhoicas/dte-sv/internal/infrastructure/mh"
	"github.com/jhoicas/dte-sv/pkg/config"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

func reload(t *testing.T, env *testEnv, id string) *entity.IssuedDocument {
	t.Helper()
	doc, err := env.docs.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

// ──────────────────────────────────────────────────────────────────────────────
// Modo dev
// ──────────────────────────────────────────────────────────────────────────────

func TestProcess_DevFirmaYSimulaSello(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	doc := env.compiled(t, "inv-1")
	archiver := &fakeArchiver{}

	err := env.orchestrator(archiver).Process(context.Background(), doc.ID)
	require.NoError(t, err)

	got := reload(t, env, doc.ID)
	assert.Equal(t, entity.DTEStatusProcessed, got.Status)
	assert.True(t, strings.HasPrefix(got.ReceptionSeal, "DEV-"))
	assert.NotEmpty(t, got.SignedJWS)
	require.NotNil(t, got.ProcessedAt)
	assert.Empty(t, env.gateway.submitted, "en dev no se transmite")
	assert.Len(t, archiver.stored, 1)
}

func TestProcess_YaProcesadoNoHaceNada(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	doc := env.compiled(t, "inv-1")
	orch := env.orchestrator(nil)
	require.NoError(t, orch.Process(context.Background(), doc.ID))

	require.NoError(t, orch.Process(context.Background(), doc.ID))
	assert.Equal(t, 1, env.signer.calls)
}

func TestProcess_EstadosNoTransmisibles(t *testing.T) {
	for _, status := range []string{entity.DTEStatusSuperseded, entity.DTEStatusInvalidated, entity.DTEStatusRejected} {
		t.Run(status, func(t *testing.T) {
			env := newEnv(t, config.ModeDev)
			doc := env.compiled(t, "inv-1")
			env.setStatus(t, doc, status, "")

			err := env.orchestrator(nil).Process(context.Background(), doc.ID)
			assert.ErrorIs(t, err, domain.ErrConflict)
		})
	}
}

func TestProcess_DocumentoInexistente(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	err := env.orchestrator(nil).Process(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcess_FalloDeFirmaDejaError(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	doc := env.compiled(t, "inv-1")
	env.signer.err = errors.New("llave inválida")

	err := env.orchestrator(nil).Process(context.Background(), doc.ID)
	require.Error(t, err)

	got := reload(t, env, doc.ID)
	assert.Equal(t, entity.DTEStatusError, got.Status)
	assert.Contains(t, got.MHMessages, "sign")
	assert.Empty(t, got.SignedJWS)
}

// ──────────────────────────────────────────────────────────────────────────────
// Modo test/prod
// ──────────────────────────────────────────────────────────────────────────────

func TestProcess_TransmiteYPersisteSello(t *testing.T) {
	env := newEnv(t, config.ModeTest)
	env.gateway.resp = accepted("2026ABCDEF0123456789")
	doc := env.compiled(t, "inv-1")

	require.NoError(t, env.orchestrator(nil).Process(context.Background(), doc.ID))

	require.Len(t, env.gateway.submitted, 1)
	sent := env.gateway.submitted[0]
	assert.Equal(t, mh.EnvironmentTest, sent.Ambiente)
	assert.Equal(t, mh.DTEInvoice, sent.TipoDte)
	assert.Equal(t, 1, sent.Version)
	assert.NotEmpty(t, sent.Documento)

	got := reload(t, env, doc.ID)
	assert.Equal(t, entity.DTEStatusProcessed, got.Status)
	assert.Equal(t, "2026ABCDEF0123456789", got.ReceptionSeal)
	require.NotNil(t, got.ProcessedAt)
	assert.Equal(t, 8, got.ProcessedAt.Hour(), "fhProcesamiento se interpreta en hora de El Salvador")
}

func TestProcess_RechazoGuardaObservaciones(t *testing.T) {
	env := newEnv(t, config.ModeTest)
	env.gateway.resp = &infmh.Response{
		Estado:         infmh.EstadoRechazado,
		CodigoMsg:      "004",
		DescripcionMsg: "[identificacion.codigoGeneracion] YA EXISTE UN REGISTRO CON ESE VALOR",
		Observaciones:  []string{"Campo #/receptor/nrc no cumple el formato requerido"},
	}
	doc := env.compiled(t, "inv-1")

	require.NoError(t, env.orchestrator(nil).Process(context.Background(), doc.ID))

	got := reload(t, env, doc.ID)
	assert.Equal(t, entity.DTEStatusRejected, got.Status)
	assert.Empty(t, got.ReceptionSeal)
	assert.Contains(t, got.MHMessages, "004")
	assert.Contains(t, got.MHMessages, "receptor/nrc")
}

func TestProcess_ErrorDeEnvioPermiteReintentoSinRefirmar(t *testing.T) {
	env := newEnv(t, config.ModeTest)
	env.gateway.err = errors.New("connection reset by peer")
	doc := env.compiled(t, "inv-1")
	orch := env.orchestrator(nil)

	require.Error(t, orch.Process(context.Background(), doc.ID))
	got := reload(t, env, doc.ID)
	assert.Equal(t, entity.DTEStatusError, got.Status)
	assert.NotEmpty(t, got.SignedJWS, "la firma se conserva para el reintento")

	env.gateway.err = nil
	env.gateway.resp = accepted("SELLO-OK")
	require.NoError(t, orch.Process(context.Background(), doc.ID))

	got = reload(t, env, doc.ID)
	assert.Equal(t, entity.DTEStatusProcessed, got.Status)
	assert.Equal(t, 1, env.signer.calls)
	assert.Len(t, env.gateway.submitted, 2)
}

func TestProcess_SinClienteMH(t *testing.T) {
	env := newEnv(t, config.ModeProd)
	env.gateway = nil
	doc := env.compiled(t, "inv-1")

	err := env.orchestrator(nil).Process(context.Background(), doc.ID)
	require.Error(t, err)
	assert.Equal(t, entity.DTEStatusError, reload(t, env, doc.ID).Status)
}

func TestProcess_FalloDeArchivoNoAfectaEstado(t *testing.T) {
	env := newEnv(t, config.ModeTest)
	env.gateway.resp = accepted("SELLO-OK")
	doc := env.compiled(t, "inv-1")

	err := env.orchestrator(&fakeArchiver{err: errors.New("bucket inexistente")}).Process(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DTEStatusProcessed, reload(t, env, doc.ID).Status)
}

func TestProcessAsync_TerminaAlEsperar(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	doc := env.compiled(t, "inv-1")
	orch := env.orchestrator(nil)

	orch.ProcessAsync(doc.ID)
	orch.Wait()

	assert.Equal(t, entity.DTEStatusProcessed, reload(t, env, doc.ID).Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consulta de estado
// ──────────────────────────────────────────────────────────────────────────────

func TestRefresh_ConsultaDocumentoFirmado(t *testing.T) {
	env := newEnv(t, config.ModeTest)
	env.gateway.err = errors.New("timeout")
	doc := env.compiled(t, "inv-1")
	orch := env.orchestrator(nil)
	require.Error(t, orch.Process(context.Background(), doc.ID))

	env.gateway.err = nil
	env.gateway.resp = accepted("SELLO-TARDIO")
	got, err := orch.Refresh(context.Background(), doc.ID)
	require.NoError(t, err)

	require.Len(t, env.gateway.consulted, 1)
	q := env.gateway.consulted[0]
	assert.Equal(t, "06140101901013", q.NitEmisor)
	assert.Equal(t, mh.DTEInvoice, q.TipoDte)
	assert.Equal(t, doc.GenerationCode, q.CodigoGeneracion)
	assert.Equal(t, entity.DTEStatusProcessed, got.Status)
	assert.Equal(t, "SELLO-TARDIO", got.ReceptionSeal)
}

func TestRefresh_DocumentoSinFirmaNoConsulta(t *testing.T) {
	env := newEnv(t, config.ModeTest)
	doc := env.compiled(t, "inv-1")

	got, err := env.orchestrator(nil).Refresh(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DTEStatusCompiled, got.Status)
	assert.Empty(t, env.gateway.consulted)
}

func TestStatus_PorFacturaYEmpresa(t *testing.T) {
	env := newEnv(t, config.ModeDev)
	doc := env.compiled(t, "inv-1")
	orch := env.orchestrator(nil)

	got, err := orch.Status(context.Background(), companyID, "inv-1", false)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = orch.Status(context.Background(), "comp-ajena", "inv-1", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = orch.Status(context.Background(), companyID, "inv-sin-dte", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
