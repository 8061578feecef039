package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/dte-sv/internal/domain/repository"
)

// snapshotter almacén capaz de volver a un estado anterior.
type snapshotter interface {
	snapshot() (restore func())
}

// TxRunner serializa las emisiones en memoria. Si fn falla, los almacenes que
// implementan snapshotter vuelven al estado previo: el correlativo reservado queda
// libre y el DTE sustituido recupera su estado, igual que con el rollback de PostgreSQL.
type TxRunner struct {
	mu   sync.Mutex
	seq  repository.SequenceRepository
	docs repository.IssuedDocumentRepository
}

func NewTxRunner(seq repository.SequenceRepository, docs repository.IssuedDocumentRepository) *TxRunner {
	return &TxRunner{seq: seq, docs: docs}
}

func (r *TxRunner) RunIssuance(_ context.Context, fn func(
	seqRepo repository.SequenceRepository,
	docRepo repository.IssuedDocumentRepository,
) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var restores []func()
	for _, store := range []any{r.seq, r.docs} {
		if s, ok := store.(snapshotter); ok {
			restores = append(restores, s.snapshot())
		}
	}
	if err := fn(r.seq, r.docs); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}
