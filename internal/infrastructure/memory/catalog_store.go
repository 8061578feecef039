package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/dte-sv/internal/domain"
	"github.com/jhoicas/dte-sv/internal/domain/entity"
	"github.com/jhoicas/dte-sv/internal/domain/repository"
	"github.com/jhoicas/dte-sv/pkg/mh"
)

var (
	_ repository.CompanyRepository       = (*CatalogStore)(nil)
	_ repository.EstablishmentRepository = (*EstablishmentStore)(nil)
	_ repository.InvoiceRecordRepository = (*InvoiceStore)(nil)
)

// CatalogStore empresas emisoras en memoria.
type CatalogStore struct {
	mu        sync.RWMutex
	companies map[string]entity.Company
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{companies: make(map[string]entity.Company)}
}

func (s *CatalogStore) Create(_ context.Context, c *entity.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[c.ID]; ok {
		return domain.ErrDuplicate
	}
	s.companies[c.ID] = *c
	return nil
}

func (s *CatalogStore) GetByID(_ context.Context, id string) (*entity.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *CatalogStore) GetByNIT(_ context.Context, nit string) (*entity.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := mh.NormalizeNIT(nit)
	for _, c := range s.companies {
		if mh.NormalizeNIT(c.NIT) == want {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *CatalogStore) Update(_ context.Context, c *entity.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[c.ID]; !ok {
		return domain.ErrNotFound
	}
	s.companies[c.ID] = *c
	return nil
}

// EstablishmentStore establecimientos en memoria.
type EstablishmentStore struct {
	mu    sync.RWMutex
	items []entity.Establishment
}

func NewEstablishmentStore() *EstablishmentStore {
	return &EstablishmentStore{}
}

func (s *EstablishmentStore) Create(_ context.Context, e *entity.Establishment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == e.ID {
			return domain.ErrDuplicate
		}
	}
	s.items = append(s.items, *e)
	return nil
}

func (s *EstablishmentStore) GetByID(_ context.Context, id string) (*entity.Establishment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return &it, nil
		}
	}
	return nil, nil
}

func (s *EstablishmentStore) GetDefaultByCompany(_ context.Context, companyID string) (*entity.Establishment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.CompanyID == companyID && it.IsActive {
			return &it, nil
		}
	}
	return nil, nil
}

func (s *EstablishmentStore) ListByCompany(_ context.Context, companyID string) ([]*entity.Establishment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Establishment
	for i := range s.items {
		if s.items[i].CompanyID == companyID {
			cp := s.items[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// InvoiceStore facturas contables en memoria.
type InvoiceStore struct {
	mu    sync.RWMutex
	items map[string]entity.InvoiceRecord
}

func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{items: make(map[string]entity.InvoiceRecord)}
}

func (s *InvoiceStore) GetByID(_ context.Context, id string) (*entity.InvoiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *InvoiceStore) Save(_ context.Context, rec *entity.InvoiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ApplyDefaultClassification()
	s.items[rec.ID] = *rec
	return nil
}
