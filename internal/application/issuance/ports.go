// Package issuance contiene los casos de uso de emisión: compilación idempotente,
// firma y transmisión al MH, consulta de estado e invalidación.
package issuance

import (
	"context"
	"time"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
	infmh "github.com/jhoicas/dte-sv/internal/infrastructure/mh"
	"github.com/jhoicas/dte-sv/pkg/config"
)

// TxRunner ejecuta fn en una transacción con el almacén de correlativos y los DTE emitidos.
// Reservar el número y guardar el documento quedan en la misma unidad de trabajo.
type TxRunner interface {
	RunIssuance(ctx context.Context, fn func(
		seqRepo repository.SequenceRepository,
		docRepo repository.IssuedDocumentRepository,
	) error) error
}

// Gateway API de recepción del MH. La implementa *mh.Client.
type Gateway interface {
	Submit(ctx context.Context, env infmh.Envelope) (*infmh.Response, error)
	Consult(ctx context.Context, req infmh.ConsultRequest) (*infmh.Response, error)
	Invalidate(ctx context.Context, env infmh.Envelope) (*infmh.Response, error)
}

// Archiver guarda el JWS y el acuse del MH. Opcional.
type Archiver interface {
	Store(ctx context.Context, doc *entity.IssuedDocument, receipt []byte) error
}

// Settings parámetros de emisión comunes a los casos de uso.
type Settings struct {
	Mode        string // config.ModeDev | ModeTest | ModeProd
	Environment string // "00" pruebas, "01" producción
	Location    *time.Location
	Timeout     time.Duration // tope del procesamiento asíncrono
}

func (s Settings) isDev() bool {
	return s.Mode == "" || s.Mode == config.ModeDev
}

func (s Settings) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 30 * time.Second
}
