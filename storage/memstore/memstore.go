// Package memstore provides an in-memory envelope store, used by the daemon
// in throwaway mode and by tests that need isolation without touching disk.
package memstore

import (
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/keygate/storage"
)

type Store struct {
	mu      sync.RWMutex
	objects map[cid.Cid][]byte
}

func New() *Store {
	return &Store{objects: make(map[cid.Cid][]byte)}
}

func (s *Store) Put(bytes []byte) (cid.Cid, error) {
	id, err := storage.HandleFor(bytes)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidHandle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.objects[id]; ok {
		if string(existing) != string(bytes) {
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	s.objects[id] = cp
	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidHandle
	}
	s.mu.RLock()
	b, ok := s.objects[id]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	s.mu.RLock()
	_, ok := s.objects[id]
	s.mu.RUnlock()
	return ok
}
