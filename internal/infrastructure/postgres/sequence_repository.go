package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/dte-sv/internal/domain/dte"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo correlativos por (establecimiento, tipo de DTE) sobre PostgreSQL.
// El incremento es un único UPSERT ... RETURNING: la fila queda bloqueada hasta el fin
// de la transacción que la tomó, así dos emisiones concurrentes nunca comparten número.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

const nextSequenceSQL = `
	INSERT INTO dte_sequences (establishment_id, document_type, last_value, updated_at)
	VALUES ($1, $2, 1, now())
	ON CONFLICT (establishment_id, document_type)
	DO UPDATE SET last_value = dte_sequences.last_value + 1, updated_at = now()
	RETURNING last_value`

func (r *SequenceRepo) NextSequence(ctx context.Context, establishmentID, typeCode string) (int64, error) {
	// Dentro de una tx se usa un savepoint: si el bloqueo expira la tx sigue usable y el compilador puede reintentar.
	if tx, ok := r.q.(pgx.Tx); ok {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return 0, fmt.Errorf("savepoint correlativo: %w", err)
		}
		n, err := r.next(ctx, sp, establishmentID, typeCode)
		if err != nil {
			_ = sp.Rollback(ctx)
			return 0, err
		}
		if err := sp.Commit(ctx); err != nil {
			return 0, r.wrap(establishmentID, typeCode, err)
		}
		return n, nil
	}
	return r.next(ctx, r.q, establishmentID, typeCode)
}

func (r *SequenceRepo) next(ctx context.Context, q Querier, establishmentID, typeCode string) (int64, error) {
	var n int64
	if err := q.QueryRow(ctx, nextSequenceSQL, establishmentID, typeCode).Scan(&n); err != nil {
		return 0, r.wrap(establishmentID, typeCode, err)
	}
	return n, nil
}

func (r *SequenceRepo) wrap(establishmentID, typeCode string, err error) error {
	if isContention(err) {
		return &dte.SequenceContentionError{EstablishmentID: establishmentID, TypeCode: typeCode, Err: err}
	}
	return fmt.Errorf("next sequence %s/%s: %w", establishmentID, typeCode, err)
}

func (r *SequenceRepo) Current(ctx context.Context, establishmentID, typeCode string) (int64, error) {
	const q = `SELECT last_value FROM dte_sequences WHERE establishment_id = $1 AND document_type = $2`
	var n int64
	err := r.q.QueryRow(ctx, q, establishmentID, typeCode).Scan(&n)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("current sequence: %w", err)
	}
	return n, nil
}
