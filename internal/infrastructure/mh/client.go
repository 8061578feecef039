package mh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	pathAuth       = "/seguridad/auth"
	pathReception  = "/fesv/recepciondte"
	pathConsult    = "/fesv/recepcion/consultadte/"
	pathInvalidate = "/fesv/anulardte"

	// El token se renueva 5 minutos antes de su expiración.
	tokenMargin     = 5 * time.Minute
	defaultTokenTTL = time.Hour
)

var tracer = otel.Tracer("github.com/jhoicas/dte-sv/internal/infrastructure/mh")

// ClientConfig parámetros de conexión a la API del MH.
type ClientConfig struct {
	BaseURL    string
	User       string
	Password   string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Client cliente REST de la API de DTE del MH (autenticación, recepción, consulta, anulación).
// Usa net/http de la stdlib.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	cache   TokenCache
	log     zerolog.Logger
	envioID atomic.Int64
}

// NewClient construye el cliente. cache nil usa la caché en memoria.
func NewClient(cfg ClientConfig, cache TokenCache, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cache == nil {
		cache = NewMemoryTokenCache()
	}
	c := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: cache,
		log:   log.With().Str("component", "mh_client").Logger(),
	}
	c.envioID.Store(time.Now().Unix() % 1_000_000)
	return c
}

// Submit transmite un DTE firmado a recepción.
func (c *Client) Submit(ctx context.Context, env Envelope) (*Response, error) {
	ctx, span := tracer.Start(ctx, "mh.submit")
	defer span.End()
	span.SetAttributes(attribute.String("dte.tipo", env.TipoDte), attribute.String("dte.ambiente", env.Ambiente))

	if env.IDEnvio == 0 {
		env.IDEnvio = c.envioID.Add(1)
	}
	resp, err := c.post(ctx, pathReception, env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("mh.estado", resp.Estado))
	return resp, nil
}

// Consult consulta el estado de un DTE por código de generación.
func (c *Client) Consult(ctx context.Context, req ConsultRequest) (*Response, error) {
	ctx, span := tracer.Start(ctx, "mh.consult")
	defer span.End()
	resp, err := c.post(ctx, pathConsult, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

// Invalidate transmite un evento de invalidación firmado.
func (c *Client) Invalidate(ctx context.Context, env Envelope) (*Response, error) {
	ctx, span := tracer.Start(ctx, "mh.invalidate")
	defer span.End()
	env.TipoDte = ""
	if env.IDEnvio == 0 {
		env.IDEnvio = c.envioID.Add(1)
	}
	resp, err := c.post(ctx, pathInvalidate, env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

// post envía body con el token vigente. Un 401 descarta el token y reintenta una sola vez;
// errores de red y 5xx se reintentan hasta MaxRetries con RetryDelay fijo.
func (c *Client) post(ctx context.Context, path string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("serializar petición MH: %w", err)
	}

	refreshed := false
	for attempt := 0; ; attempt++ {
		token, err := c.Token(ctx)
		if err != nil {
			return nil, err
		}

		status, raw, err := c.do(ctx, path, token, payload)
		if err != nil {
			if attempt < c.cfg.MaxRetries && ctx.Err() == nil {
				c.log.Warn().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("error de red, reintentando")
				if err := c.wait(ctx); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("POST %s: %w", path, err)
		}

		switch {
		case status == http.StatusUnauthorized && !refreshed:
			refreshed = true
			attempt--
			c.log.Info().Str("path", path).Msg("token rechazado, renovando")
			if err := c.cache.Delete(ctx, c.cacheKey()); err != nil {
				return nil, err
			}
			continue
		case status >= 500 && attempt < c.cfg.MaxRetries:
			c.log.Warn().Int("status", status).Str("path", path).Int("attempt", attempt+1).Msg("MH no disponible, reintentando")
			if err := c.wait(ctx); err != nil {
				return nil, err
			}
			continue
		}

		// El MH responde 400 con un cuerpo interpretable cuando rechaza el documento.
		var resp Response
		if jerr := json.Unmarshal(raw, &resp); jerr == nil && resp.Estado != "" {
			resp.Raw = raw
			return &resp, nil
		}
		if status != http.StatusOK {
			return nil, &APIError{StatusCode: status, Body: string(raw)}
		}
		return nil, fmt.Errorf("respuesta MH sin estado: %s", truncate(raw))
	}
}

func (c *Client) do(ctx context.Context, path, token string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", token)
	req.Header.Set("User-Agent", "dte-sv")

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("leer respuesta: %w", err)
	}
	return res.StatusCode, raw, nil
}

// Token devuelve el token cacheado o se autentica con usuario y contraseña.
// El valor incluye el prefijo "Bearer " tal como lo entrega el MH.
func (c *Client) Token(ctx context.Context) (string, error) {
	key := c.cacheKey()
	if tok, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn().Err(err).Msg("caché de token no disponible")
	} else if ok {
		return tok, nil
	}

	form := url.Values{"user": {c.cfg.User}, "pwd": {c.cfg.Password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+pathAuth, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "dte-sv")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("autenticación MH: %w", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("leer respuesta de autenticación: %w", err)
	}

	var auth authResponse
	if err := json.Unmarshal(raw, &auth); err != nil {
		return "", &APIError{StatusCode: res.StatusCode, Body: string(raw)}
	}
	if auth.Status != "OK" || auth.Body.Token == "" {
		return "", &AuthError{Code: auth.Body.CodigoMsg, Message: auth.Body.DescripcionMsg}
	}

	token := auth.Body.Token
	if !strings.HasPrefix(token, "Bearer ") {
		token = "Bearer " + token
	}
	ttl := defaultTokenTTL
	if auth.Body.ExpiresIn > 0 {
		ttl = time.Duration(auth.Body.ExpiresIn) * time.Second
	}
	if ttl > tokenMargin {
		ttl -= tokenMargin
	}
	if err := c.cache.Set(ctx, key, token, ttl); err != nil {
		c.log.Warn().Err(err).Msg("no se pudo cachear el token")
	}
	c.log.Debug().Dur("ttl", ttl).Msg("token MH obtenido")
	return token, nil
}

func (c *Client) cacheKey() string {
	return c.cfg.User
}

func (c *Client) wait(ctx context.Context) error {
	if c.cfg.RetryDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(raw []byte) string {
	if len(raw) > 200 {
		return string(raw[:200]) + "…"
	}
	return string(raw)
}

// IsAuthError indica si err proviene de credenciales rechazadas.
func IsAuthError(err error) bool {
	var a *AuthError
	return errors.As(err, &a)
}
