package mh

import (
	"fmt"
	"strings"
	"time"
)

// Estados devueltos por la recepción del MH.
const (
	EstadoProcesado = "PROCESADO"
	EstadoRechazado = "RECHAZADO"
)

// Envelope cuerpo de /fesv/recepciondte y /fesv/anulardte. tipoDte no aplica a la anulación.
type Envelope struct {
	Ambiente  string `json:"ambiente"`
	IDEnvio   int64  `json:"idEnvio"`
	Version   int    `json:"version"`
	TipoDte   string `json:"tipoDte,omitempty"`
	Documento string `json:"documento"`
}

// ConsultRequest cuerpo de /fesv/recepcion/consultadte/.
type ConsultRequest struct {
	NitEmisor        string `json:"nitEmisor"`
	TipoDte          string `json:"tdte"`
	CodigoGeneracion string `json:"codigoGeneracion"`
}

// Response respuesta de recepción, consulta o anulación.
type Response struct {
	Version          int      `json:"version"`
	Ambiente         string   `json:"ambiente"`
	VersionApp       int      `json:"versionApp"`
	Estado           string   `json:"estado"`
	CodigoGeneracion string   `json:"codigoGeneracion"`
	SelloRecibido    string   `json:"selloRecibido"`
	FhProcesamiento  string   `json:"fhProcesamiento"`
	ClasificaMsg     string   `json:"clasificaMsg"`
	CodigoMsg        string   `json:"codigoMsg"`
	DescripcionMsg   string   `json:"descripcionMsg"`
	Observaciones    []string `json:"observaciones"`

	Raw []byte `json:"-"`
}

// Accepted indica si el MH otorgó sello de recepción.
func (r *Response) Accepted() bool {
	return r.Estado == EstadoProcesado && r.SelloRecibido != ""
}

// ProcessedAt interpreta fhProcesamiento ("dd/MM/yyyy HH:mm:ss", hora de El Salvador).
func (r *Response) ProcessedAt(loc *time.Location) *time.Time {
	if r.FhProcesamiento == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("02/01/2006 15:04:05", r.FhProcesamiento, loc)
	if err != nil {
		return nil
	}
	return &t
}

// Messages resume código, descripción y observaciones para persistir.
func (r *Response) Messages() string {
	parts := make([]string, 0, 2+len(r.Observaciones))
	if r.CodigoMsg != "" || r.DescripcionMsg != "" {
		parts = append(parts, strings.TrimSpace(r.CodigoMsg+" "+r.DescripcionMsg))
	}
	parts = append(parts, r.Observaciones...)
	return strings.Join(parts, "; ")
}

type authResponse struct {
	Status string `json:"status"`
	Body   struct {
		Token     string `json:"token"`
		TokenType string `json:"tokenType"`
		ExpiresIn int    `json:"expires_in"`

		CodigoMsg      string `json:"codigoMsg"`
		DescripcionMsg string `json:"descripcionMsg"`
	} `json:"body"`
}

// APIError respuesta HTTP que no trae un estado del MH interpretable.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "…"
	}
	return fmt.Sprintf("MH respondió HTTP %d: %s", e.StatusCode, body)
}

// AuthError credenciales rechazadas por /seguridad/auth.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("autenticación MH rechazada (%s): %s", e.Code, e.Message)
}
