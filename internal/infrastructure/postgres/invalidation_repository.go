package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
)

var _ repository.InvalidationRepository = (*InvalidationRepo)(nil)

// InvalidationRepo eventos de anulación sobre PostgreSQL.
type InvalidationRepo struct {
	q Querier
}

func NewInvalidationRepository(q Querier) *InvalidationRepo {
	return &InvalidationRepo{q: q}
}

const invalidationColumns = `id, document_id, generation_code, type, reason, replacement_code,
	responsible_name, responsible_doc_type, responsible_doc_number,
	requester_name, requester_doc_type, requester_doc_number,
	status, reception_seal, mh_messages, requested_at, created_at, updated_at`

func (r *InvalidationRepo) Create(ctx context.Context, inv *entity.Invalidation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invalidations (` + invalidationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(), now())
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		inv.ID, inv.DocumentID, inv.GenerationCode, inv.Type, nullIfEmpty(inv.Reason), nullIfEmpty(inv.ReplacementCode),
		inv.ResponsibleName, inv.ResponsibleDocType, inv.ResponsibleDocNumber,
		inv.RequesterName, inv.RequesterDocType, inv.RequesterDocNumber,
		inv.Status, nullIfEmpty(inv.ReceptionSeal), nullIfEmpty(inv.MHMessages), inv.RequestedAt,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invalidación %s: %w", inv.GenerationCode, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert invalidation: %w", err)
	}
	return nil
}

func (r *InvalidationRepo) Update(ctx context.Context, inv *entity.Invalidation) error {
	const query = `
		UPDATE invalidations
		SET status = $2, reception_seal = $3, mh_messages = $4, updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, inv.ID, inv.Status, nullIfEmpty(inv.ReceptionSeal), nullIfEmpty(inv.MHMessages))
	if err != nil {
		return fmt.Errorf("update invalidation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByDocumentID devuelve la invalidación más reciente del DTE, o nil.
func (r *InvalidationRepo) GetByDocumentID(ctx context.Context, documentID string) (*entity.Invalidation, error) {
	query := `SELECT ` + invalidationColumns + ` FROM invalidations WHERE document_id = $1 ORDER BY created_at DESC LIMIT 1`
	var inv entity.Invalidation
	var reason, replacement, seal, messages *string
	err := r.q.QueryRow(ctx, query, documentID).Scan(
		&inv.ID, &inv.DocumentID, &inv.GenerationCode, &inv.Type, &reason, &replacement,
		&inv.ResponsibleName, &inv.ResponsibleDocType, &inv.ResponsibleDocNumber,
		&inv.RequesterName, &inv.RequesterDocType, &inv.RequesterDocNumber,
		&inv.Status, &seal, &messages, &inv.RequestedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invalidation: %w", err)
	}
	inv.Reason, inv.ReplacementCode = derefString(reason), derefString(replacement)
	inv.ReceptionSeal, inv.MHMessages = derefString(seal), derefString(messages)
	return &inv, nil
}
