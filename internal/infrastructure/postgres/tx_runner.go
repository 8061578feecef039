package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/dte-sv/internal/application/issuance"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
)

var _ issuance.TxRunner = (*TxRunner)(nil)

// defaultLockTimeout tope de espera por la fila del correlativo antes de reportar contención.
const defaultLockTimeout = 5 * time.Second

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: defaultLockTimeout}
}

// WithLockTimeout cambia la espera máxima por bloqueos dentro de RunIssuance.
func (r *TxRunner) WithLockTimeout(d time.Duration) *TxRunner {
	r.lockTimeout = d
	return r
}

// RunIssuance inicia una transacción, ejecuta fn con correlativos y documentos atados a la tx
// y hace Commit o Rollback. Si fn falla el correlativo reservado se libera con el Rollback.
func (r *TxRunner) RunIssuance(ctx context.Context, fn func(
	seqRepo repository.SequenceRepository,
	docRepo repository.IssuedDocumentRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		// SET no admite parámetros: el valor se formatea como entero de milisegundos.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(NewSequenceRepository(tx), NewIssuedDocumentRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
