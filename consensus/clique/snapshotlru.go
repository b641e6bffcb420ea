package clique

import (
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// snapshotLRU caches recently resolved snapshots keyed by block hash
// (§3 "Snapshot LRU", capacity InmemorySnapshots). Exclusively owned by
// the resolver (§5 shared-resource policy); never mutate an entry
// returned by get, clone it first.
type snapshotLRU struct {
	cache *lru.ARCCache
}

func newSnapshotLRU(size int) *snapshotLRU {
	c, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return &snapshotLRU{cache: c}
}

func (l *snapshotLRU) get(hash common.Hash) (*Snapshot, bool) {
	v, ok := l.cache.Get(hash)
	if !ok {
		return nil, false
	}
	return v.(*Snapshot), true
}

func (l *snapshotLRU) add(s *Snapshot) {
	l.cache.Add(s.Hash, s)
}
