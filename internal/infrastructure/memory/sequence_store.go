// Package memory implementa los puertos de persistencia en memoria para modo dev,
// la CLI y las pruebas.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/jhoicas/dte-sv/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceStore)(nil)

// SequenceStore contador atómico por (establecimiento, tipo).
type SequenceStore struct {
	mu   sync.Mutex
	next map[string]int64
}

func NewSequenceStore() *SequenceStore {
	return &SequenceStore{next: make(map[string]int64)}
}

func (s *SequenceStore) NextSequence(_ context.Context, establishmentID, typeCode string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := establishmentID + "|" + typeCode
	s.next[key]++
	return s.next[key], nil
}

func (s *SequenceStore) Current(_ context.Context, establishmentID, typeCode string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next[establishmentID+"|"+typeCode], nil
}

func (s *SequenceStore) snapshot() func() {
	s.mu.Lock()
	saved := maps.Clone(s.next)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.next = saved
		s.mu.Unlock()
	}
}

// Set fija el último correlativo entregado (migración desde otro sistema).
func (s *SequenceStore) Set(establishmentID, typeCode string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[establishmentID+"|"+typeCode] = value
}
