package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
)

var (
	_ repository.IssuedDocumentRepository = (*DocumentStore)(nil)
	_ repository.InvalidationRepository   = (*InvalidationStore)(nil)
)

// DocumentStore DTE emitidos en memoria. Devuelve copias para evitar carreras con el llamador.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]entity.IssuedDocument
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]entity.IssuedDocument)}
}

func (s *DocumentStore) Create(_ context.Context, doc *entity.IssuedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	for _, d := range s.docs {
		if d.GenerationCode == doc.GenerationCode || d.ControlNumber == doc.ControlNumber {
			return domain.ErrDuplicate
		}
	}
	now := time.Now()
	doc.CreatedAt, doc.UpdatedAt = now, now
	s.docs[doc.ID] = *doc
	return nil
}

func (s *DocumentStore) snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.docs)
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.docs = saved
		s.mu.Unlock()
	}
}

func (s *DocumentStore) Update(_ context.Context, doc *entity.IssuedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	doc.UpdatedAt = time.Now()
	s.docs[doc.ID] = *doc
	return nil
}

func (s *DocumentStore) GetByID(_ context.Context, id string) (*entity.IssuedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *DocumentStore) GetByGenerationCode(_ context.Context, code string) (*entity.IssuedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.docs {
		if d.GenerationCode == code {
			return &d, nil
		}
	}
	return nil, nil
}

func (s *DocumentStore) GetActiveByInvoice(_ context.Context, invoiceID string) (*entity.IssuedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *entity.IssuedDocument
	for _, d := range s.docs {
		if d.InvoiceID != invoiceID || d.Status == entity.DTEStatusSuperseded {
			continue
		}
		if latest == nil || d.CreatedAt.After(latest.CreatedAt) {
			cp := d
			latest = &cp
		}
	}
	return latest, nil
}

// InvalidationStore invalidaciones en memoria.
type InvalidationStore struct {
	mu    sync.RWMutex
	items map[string]entity.Invalidation
}

func NewInvalidationStore() *InvalidationStore {
	return &InvalidationStore{items: make(map[string]entity.Invalidation)}
}

func (s *InvalidationStore) Create(_ context.Context, inv *entity.Invalidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now()
	inv.CreatedAt, inv.UpdatedAt = now, now
	s.items[inv.ID] = *inv
	return nil
}

func (s *InvalidationStore) Update(_ context.Context, inv *entity.Invalidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	inv.UpdatedAt = time.Now()
	s.items[inv.ID] = *inv
	return nil
}

func (s *InvalidationStore) GetByDocumentID(_ context.Context, documentID string) (*entity.Invalidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.DocumentID == documentID {
			return &it, nil
		}
	}
	return nil, nil
}
