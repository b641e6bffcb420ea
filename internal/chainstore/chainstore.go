// Package chainstore provides a minimal in-memory implementation of
// the consensus/clique HeaderReader collaborator, in the spirit of the
// teacher's own testerChainReader (consensus/clique/snapshot_test.go):
// a lookup table over headers keyed by hash and by number, with no
// block bodies, state, or persistence — block storage proper is an
// explicit Non-goal of the consensus core.
package chainstore

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MemStore holds headers in memory, indexed for O(1) lookup by hash or
// by canonical number.
type MemStore struct {
	mu       sync.RWMutex
	byHash   map[common.Hash]*types.Header
	byNumber map[uint64]common.Hash
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		byHash:   make(map[common.Hash]*types.Header),
		byNumber: make(map[uint64]common.Hash),
	}
}

// Insert adds header as the canonical header at its number, indexed by
// its own hash.
func (s *MemStore) Insert(header *types.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash := header.Hash()
	s.byHash[hash] = header
	s.byNumber[header.Number.Uint64()] = hash
}

func (s *MemStore) GetHeaderByHash(hash common.Hash) (*types.Header, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byHash[hash]
	return h, ok
}

func (s *MemStore) GetHeaderByNumber(number uint64) (*types.Header, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.byNumber[number]
	if !ok {
		return nil, false
	}
	h, ok := s.byHash[hash]
	return h, ok
}
