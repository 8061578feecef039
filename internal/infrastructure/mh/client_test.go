package mh_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jhoicas/dte-sv/internal/infrastructure/mh"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMH simula la API del MH con contadores por endpoint.
type fakeMH struct {
	authCalls      atomic.Int32
	receptionCalls atomic.Int32
	tokens         atomic.Int32
	rejectFirst    bool // primer envío responde 401
	failFirst      int32
	lastEnvelope   mh.Envelope
}

func (f *fakeMH) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/seguridad/auth", func(w http.ResponseWriter, r *http.Request) {
		f.authCalls.Add(1)
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("user") != "06140101901013" || r.PostForm.Get("pwd") != "secreto" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "ERROR",
				"body":   map[string]any{"codigoMsg": "001", "descripcionMsg": "Usuario no válido"},
			})
			return
		}
		n := f.tokens.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"body":   map[string]any{"token": "Bearer tok-" + string(rune('0'+n)), "tokenType": "Bearer"},
		})
	})
	mux.HandleFunc("/fesv/recepciondte", func(w http.ResponseWriter, r *http.Request) {
		call := f.receptionCalls.Add(1)
		if f.rejectFirst && r.Header.Get("Authorization") == "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if call <= f.failFirst {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastEnvelope))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"version":          2,
			"ambiente":         "00",
			"versionApp":       2,
			"estado":           "PROCESADO",
			"codigoGeneracion": "A1B2C3D4-0000-4000-8000-000000000001",
			"selloRecibido":    "2026A1B2C3D4",
			"fhProcesamiento":  "15/03/2026 08:30:05",
			"clasificaMsg":     "10",
			"codigoMsg":        "001",
			"descripcionMsg":   "RECIBIDO",
			"observaciones":    []string{},
		})
	})
	mux.HandleFunc("/fesv/recepcion/consultadte/", func(w http.ResponseWriter, r *http.Request) {
		var req mh.ConsultRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"estado":           "RECHAZADO",
			"codigoGeneracion": req.CodigoGeneracion,
			"codigoMsg":        "004",
			"descripcionMsg":   "DOCUMENTO NO ENCONTRADO",
			"observaciones":    []string{"verifique el código"},
		})
	})
	return mux
}

func newClient(t *testing.T, f *fakeMH, retries int) *mh.Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return mh.NewClient(mh.ClientConfig{
		BaseURL:    srv.URL,
		User:       "06140101901013",
		Password:   "secreto",
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	}, nil, zerolog.Nop())
}

func envelope() mh.Envelope {
	return mh.Envelope{Ambiente: "00", Version: 1, TipoDte: "01", Documento: "a.b.c"}
}

// ── Autenticación y caché ─────────────────────────────────────────────────────

func TestSubmit_ReutilizaTokenCacheado(t *testing.T) {
	f := &fakeMH{}
	c := newClient(t, f, 0)

	for i := 0; i < 3; i++ {
		resp, err := c.Submit(context.Background(), envelope())
		require.NoError(t, err)
		assert.True(t, resp.Accepted())
	}
	assert.Equal(t, int32(1), f.authCalls.Load())
	assert.Equal(t, "01", f.lastEnvelope.TipoDte)
	assert.NotZero(t, f.lastEnvelope.IDEnvio)
}

func TestSubmit_401RenuevaTokenYReintentaUnaVez(t *testing.T) {
	f := &fakeMH{rejectFirst: true}
	c := newClient(t, f, 0)

	resp, err := c.Submit(context.Background(), envelope())
	require.NoError(t, err)
	assert.Equal(t, mh.EstadoProcesado, resp.Estado)
	assert.Equal(t, int32(2), f.authCalls.Load())
	assert.Equal(t, int32(2), f.receptionCalls.Load())
}

func TestToken_CredencialesInvalidas(t *testing.T) {
	f := &fakeMH{}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()
	c := mh.NewClient(mh.ClientConfig{BaseURL: srv.URL, User: "x", Password: "y"}, nil, zerolog.Nop())

	_, err := c.Token(context.Background())
	require.Error(t, err)
	assert.True(t, mh.IsAuthError(err))
}

// ── Reintentos ────────────────────────────────────────────────────────────────

func TestSubmit_ReintentaErrores5xx(t *testing.T) {
	f := &fakeMH{failFirst: 2}
	c := newClient(t, f, 3)

	resp, err := c.Submit(context.Background(), envelope())
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
	assert.Equal(t, int32(3), f.receptionCalls.Load())
}

func TestSubmit_AgotaReintentos(t *testing.T) {
	f := &fakeMH{failFirst: 10}
	c := newClient(t, f, 1)

	_, err := c.Submit(context.Background(), envelope())
	var apiErr *mh.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, int32(2), f.receptionCalls.Load())
}

// ── Respuestas ────────────────────────────────────────────────────────────────

func TestConsult_RechazoConCuerpoInterpretable(t *testing.T) {
	f := &fakeMH{}
	c := newClient(t, f, 0)

	resp, err := c.Consult(context.Background(), mh.ConsultRequest{
		NitEmisor: "06140101901013", TipoDte: "01", CodigoGeneracion: "ABC",
	})
	require.NoError(t, err)
	assert.False(t, resp.Accepted())
	assert.Equal(t, mh.EstadoRechazado, resp.Estado)
	assert.Equal(t, "004 DOCUMENTO NO ENCONTRADO; verifique el código", resp.Messages())
}

func TestResponse_ProcessedAt(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	r := &mh.Response{FhProcesamiento: "15/03/2026 08:30:05"}

	got := r.ProcessedAt(loc)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 3, 15, 14, 30, 5, 0, time.UTC), got.UTC())
	assert.Nil(t, (&mh.Response{FhProcesamiento: "mañana"}).ProcessedAt(loc))
}

func TestMemoryTokenCache_Expira(t *testing.T) {
	c := mh.NewMemoryTokenCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "Bearer x", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
