// Package snapshotdb provides concrete implementations of the
// consensus/clique SnapshotStore collaborator: a LevelDB-backed store
// for production use, matching the teacher's own choice of database
// engine, and an in-memory map-backed store for tests and embedders
// that keep no persistent state at all.
package snapshotdb

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
)

const keyPrefix = "clique-snapshot-"

func key(hash common.Hash) []byte {
	return append([]byte(keyPrefix), hash.Bytes()...)
}

// LevelDB persists snapshot records in a goleveldb database.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (creating if absent) a LevelDB database at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (s *LevelDB) Load(hash common.Hash) ([]byte, bool, error) {
	data, err := s.db.Get(key(hash), nil)
	if err == leveldberrors.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *LevelDB) Store(hash common.Hash, data []byte) error {
	return s.db.Put(key(hash), data, nil)
}

// Close releases the underlying database handle.
func (s *LevelDB) Close() error { return s.db.Close() }

// Memory is a map-backed SnapshotStore, safe for concurrent use,
// suitable for tests and for collaborators that never persist across
// process restarts.
type Memory struct {
	mu   sync.RWMutex
	data map[common.Hash][]byte
}

// NewMemory returns an empty in-memory snapshot store.
func NewMemory() *Memory {
	return &Memory{data: make(map[common.Hash][]byte)}
}

func (m *Memory) Load(hash common.Hash) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[hash]
	return data, ok, nil
}

func (m *Memory) Store(hash common.Hash, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[hash] = append([]byte(nil), data...)
	return nil
}
