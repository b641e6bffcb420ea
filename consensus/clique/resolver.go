package clique

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/clique-core/clique/internal/clog"
)

// resolver implements §4.4: walk backwards from a query header until a
// trusted base snapshot is found, then replay the collected trail
// forward through Ballot transitions. It owns the snapshot LRU; the
// signature cache is shared with the verifier/sealer.
type resolver struct {
	cfg      *Config
	log      clog.Logger
	headers  HeaderReader
	store    SnapshotStore
	lru      *snapshotLRU
	sigcache *sigCache
}

func newResolver(cfg *Config, log clog.Logger, headers HeaderReader, store SnapshotStore, sigcache *sigCache) *resolver {
	return &resolver{
		cfg:      cfg,
		log:      log,
		headers:  headers,
		store:    store,
		lru:      newSnapshotLRU(InmemorySnapshots),
		sigcache: sigcache,
	}
}

// resolve returns the Snapshot valid at start (i.e. reflecting every
// header up to and including start). parents, if non-empty, are
// consulted ahead of the header store for ancestor lookups — the
// caller's own yet-unconnected in-flight batch takes precedence, per
// §4.5's "preferred parent-lookup source".
func (r *resolver) resolve(start *types.Header, parents []*types.Header) (*Snapshot, error) {
	var (
		trail []*types.Header
		h     = start
	)

	// Phase 1: walk backwards to a trusted base.
	for {
		if snap, ok := r.lru.get(h.Hash()); ok {
			r.log.Trace("resolver: snapshot LRU hit", "number", h.Number, "hash", h.Hash())
			return r.replay(snap.clone(), trail)
		}

		if h.Number.Uint64()%CheckpointInterval == 0 {
			if data, ok, err := r.store.Load(h.Hash()); err != nil {
				return nil, err
			} else if ok {
				snap, err := decodeSnapshot(data)
				if err != nil {
					return nil, err
				}
				r.log.Debug("resolver: loaded persisted snapshot", "number", h.Number, "hash", h.Hash())
				return r.replay(snap, trail)
			}
		}

		if r.isSnapshotPosition(h, len(trail)) {
			signers, err := signersFromExtra(h.Extra)
			if err != nil {
				return nil, err
			}
			snap := newSnapshotFromSigners(h.Number.Uint64(), h.Hash(), signers)
			r.log.Debug("resolver: trusted snapshot position", "number", h.Number, "hash", h.Hash(), "signers", len(signers))
			if err := r.storeUnconditionally(snap); err != nil {
				return nil, err
			}
			return r.replay(snap, trail)
		}

		trail = append(trail, h)

		var parent *types.Header
		if n := len(parents); n > 0 {
			parent = parents[n-1]
			parents = parents[:n-1]
			if parent.Hash() != h.ParentHash || parent.Number.Uint64() != h.Number.Uint64()-1 {
				return nil, ErrUnknownAncestor
			}
		} else {
			var ok bool
			parent, ok = r.headers.GetHeaderByHash(h.ParentHash)
			if !ok {
				return nil, ErrUnknownAncestor
			}
		}
		h = parent
	}
}

// isSnapshotPosition implements §4.4 step 1.3: genesis is always a
// trusted base; a plain epoch boundary is trusted unless the
// min-backlog policy is enabled and the trail hasn't yet exceeded
// FullImmutabilityThreshold.
func (r *resolver) isSnapshotPosition(h *types.Header, trailLen int) bool {
	if h.Number.Uint64() == 0 {
		return true
	}
	if h.Number.Uint64()%r.cfg.epoch() != 0 {
		return false
	}
	if !r.cfg.MinBacklogBeforeEpochTrust {
		return true
	}
	return trailLen > FullImmutabilityThreshold
}

// replay runs phase 2: reverse the trail (oldest-first) and forward
// apply it onto base, splitting the replay at any checkpoint-interval
// boundary so every checkpoint-aligned snapshot ever reached is
// persisted (§4.4 phase 2).
func (r *resolver) replay(base *Snapshot, trail []*types.Header) (*Snapshot, error) {
	ordered := make([]*types.Header, len(trail))
	for i, h := range trail {
		ordered[len(trail)-1-i] = h
	}

	snap := base
	start := 0
	for i, h := range ordered {
		if h.Number.Uint64()%CheckpointInterval == 0 && i != len(ordered)-1 {
			chunk, err := snap.applyHeaders(r.cfg, r.log, r.sigcache, ordered[start:i+1])
			if err != nil {
				r.log.Warn("resolver: replay rejected", "number", h.Number, "err", err)
				return nil, err
			}
			r.log.Debug("resolver: checkpoint split", "number", chunk.Number, "hash", chunk.Hash)
			if err := r.persistAtCheckpoint(chunk); err != nil {
				return nil, err
			}
			snap = chunk
			start = i + 1
		}
	}
	if start < len(ordered) {
		next, err := snap.applyHeaders(r.cfg, r.log, r.sigcache, ordered[start:])
		if err != nil {
			r.log.Warn("resolver: replay rejected", "number", ordered[len(ordered)-1].Number, "err", err)
			return nil, err
		}
		snap = next
	}

	r.lru.add(snap)
	return snap, nil
}

// persistAtCheckpoint stores s only when it lands on a checkpoint-interval
// boundary, used by the phase-2 replay splits (§4.4 phase 2).
func (r *resolver) persistAtCheckpoint(s *Snapshot) error {
	if s.Number%CheckpointInterval != 0 {
		return nil
	}
	return r.storeUnconditionally(s)
}

// storeUnconditionally persists s regardless of its block number, used
// by the phase-1 trusted-snapshot-position base (§4.4 phase 1 step 3:
// "persist it, exit loop" — unconditional, since a trusted base found at
// an ordinary epoch boundary is not generally checkpoint-interval
// aligned).
func (r *resolver) storeUnconditionally(s *Snapshot) error {
	data, err := s.encode()
	if err != nil {
		return err
	}
	r.log.Debug("resolver: persisting snapshot", "number", s.Number, "hash", s.Hash)
	return r.store.Store(s.Hash, data)
}

// signersFromExtra extracts the ascending signer list embedded between
// the vanity prefix and the seal suffix of a checkpoint header's
// extra-data (§4.4 step 1.3).
func signersFromExtra(extra []byte) ([]common.Address, error) {
	if len(extra) < ExtraVanity+ExtraSeal {
		return nil, ErrMissingVanity
	}
	body := extra[ExtraVanity : len(extra)-ExtraSeal]
	if len(body)%common.AddressLength != 0 {
		return nil, ErrInvalidCheckpointSigners
	}
	n := len(body) / common.AddressLength
	out := make([]common.Address, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], body[i*common.AddressLength:(i+1)*common.AddressLength])
	}
	return out, nil
}
