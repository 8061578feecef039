package repository

import (
	"context"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
)

// InvalidationRepository persistencia de eventos de invalidación (anulación).
type InvalidationRepository interface {
	Create(ctx context.Context, inv *entity.Invalidation) error
	Update(ctx context.Context, inv *entity.Invalidation) error
	GetByDocumentID(ctx context.Context, documentID string) (*entity.Invalidation, error)
}
