package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
)

var _ repository.IssuedDocumentRepository = (*IssuedDocumentRepo)(nil)

// IssuedDocumentRepo vínculo factura → DTE sobre PostgreSQL (usable con pool o tx).
type IssuedDocumentRepo struct {
	q Querier
}

func NewIssuedDocumentRepository(q Querier) *IssuedDocumentRepo {
	return &IssuedDocumentRepo{q: q}
}

const issuedColumns = `id, invoice_id, company_id, establishment_id, document_type, version, environment,
	generation_code, control_number, sequence, fingerprint, document, signed_jws, status,
	reception_seal, processed_at, mh_messages, emitted_at, created_at, updated_at`

// Create inserta el DTE. Un código o número de control repetido es ErrDuplicate.
func (r *IssuedDocumentRepo) Create(ctx context.Context, d *entity.IssuedDocument) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `
		INSERT INTO issued_documents (` + issuedColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, now(), now())
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		d.ID, d.InvoiceID, d.CompanyID, d.EstablishmentID, d.DocumentType, d.Version, d.Environment,
		d.GenerationCode, d.ControlNumber, d.Sequence, d.Fingerprint, string(d.Document), nullIfEmpty(d.SignedJWS), d.Status,
		nullIfEmpty(d.ReceptionSeal), d.ProcessedAt, nullIfEmpty(d.MHMessages), d.EmittedAt,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("dte %s: %w", d.ControlNumber, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert issued document: %w", err)
	}
	return nil
}

// Update persiste el estado. Los identificadores y el JSON compilado no cambian nunca.
func (r *IssuedDocumentRepo) Update(ctx context.Context, d *entity.IssuedDocument) error {
	const query = `
		UPDATE issued_documents
		SET signed_jws = $2, status = $3, reception_seal = $4, processed_at = $5, mh_messages = $6, updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		d.ID, nullIfEmpty(d.SignedJWS), d.Status, nullIfEmpty(d.ReceptionSeal), d.ProcessedAt, nullIfEmpty(d.MHMessages))
	if err != nil {
		return fmt.Errorf("update issued document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *IssuedDocumentRepo) GetByID(ctx context.Context, id string) (*entity.IssuedDocument, error) {
	return r.getOne(ctx, `SELECT `+issuedColumns+` FROM issued_documents WHERE id = $1`, id)
}

func (r *IssuedDocumentRepo) GetByGenerationCode(ctx context.Context, code string) (*entity.IssuedDocument, error) {
	return r.getOne(ctx, `SELECT `+issuedColumns+` FROM issued_documents WHERE generation_code = $1`, code)
}

// GetActiveByInvoice bloquea la fila (FOR UPDATE) cuando se llama dentro de una tx.
func (r *IssuedDocumentRepo) GetActiveByInvoice(ctx context.Context, invoiceID string) (*entity.IssuedDocument, error) {
	query := `SELECT ` + issuedColumns + `
		FROM issued_documents
		WHERE invoice_id = $1 AND status <> '` + entity.DTEStatusSuperseded + `'
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`
	return r.getOne(ctx, query, invoiceID)
}

func (r *IssuedDocumentRepo) getOne(ctx context.Context, query string, arg any) (*entity.IssuedDocument, error) {
	var d entity.IssuedDocument
	var document string
	var jws, seal, messages *string
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&d.ID, &d.InvoiceID, &d.CompanyID, &d.EstablishmentID, &d.DocumentType, &d.Version, &d.Environment,
		&d.GenerationCode, &d.ControlNumber, &d.Sequence, &d.Fingerprint, &document, &jws, &d.Status,
		&seal, &d.ProcessedAt, &messages, &d.EmittedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get issued document: %w", err)
	}
	d.Document = []byte(document)
	d.SignedJWS = derefString(jws)
	d.ReceptionSeal = derefString(seal)
	d.MHMessages = derefString(messages)
	return &d, nil
}
