package repository

import (
	"context"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
)

// IssuedDocumentRepository vínculo factura → (código de generación, número de control) y estado del DTE.
type IssuedDocumentRepository interface {
	Create(ctx context.Context, doc *entity.IssuedDocument) error

	// Update persiste estado, firma, sello y mensajes del MH.
	Update(ctx context.Context, doc *entity.IssuedDocument) error

	GetByID(ctx context.Context, id string) (*entity.IssuedDocument, error)
	GetByGenerationCode(ctx context.Context, code string) (*entity.IssuedDocument, error)

	// GetActiveByInvoice devuelve el DTE vigente (no SUPERSEDED) de la factura, o nil.
	GetActiveByInvoice(ctx context.Context, invoiceID string) (*entity.IssuedDocument, error)
}
