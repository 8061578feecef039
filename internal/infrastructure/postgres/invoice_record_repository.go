package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
)

var _ repository.InvoiceRecordRepository = (*InvoiceRecordRepo)(nil)

// InvoiceRecordRepo facturas contables guardadas como JSONB.
type InvoiceRecordRepo struct {
	q Querier
}

func NewInvoiceRecordRepository(q Querier) *InvoiceRecordRepo {
	return &InvoiceRecordRepo{q: q}
}

func (r *InvoiceRecordRepo) GetByID(ctx context.Context, id string) (*entity.InvoiceRecord, error) {
	var payload []byte
	err := r.q.QueryRow(ctx, `SELECT payload FROM invoice_records WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice record: %w", err)
	}
	var rec entity.InvoiceRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode invoice record %s: %w", id, err)
	}
	rec.ApplyDefaultClassification()
	return &rec, nil
}

func (r *InvoiceRecordRepo) Save(ctx context.Context, rec *entity.InvoiceRecord) error {
	rec.ApplyDefaultClassification()
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode invoice record: %w", err)
	}
	const query = `
		INSERT INTO invoice_records (id, company_id, establishment_id, document_type, state, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET establishment_id = EXCLUDED.establishment_id, document_type = EXCLUDED.document_type,
		    state = EXCLUDED.state, payload = EXCLUDED.payload, updated_at = now()`
	_, err = r.q.Exec(ctx, query, rec.ID, rec.CompanyID, nullIfEmpty(rec.EstablishmentID), rec.DocumentType, rec.State, payload)
	if err != nil {
		return fmt.Errorf("save invoice record: %w", err)
	}
	return nil
}
