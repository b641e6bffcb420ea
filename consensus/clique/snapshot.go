package clique

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/clique-core/clique/internal/clog"
)

// Snapshot is the voting state valid at one specific block: the ballot
// (authorised signers + open tallies) plus the sliding window of recent
// signers used to enforce §4.3's turn-taking recency rule. Value-typed
// for replay: callers that want to mutate a cached Snapshot must clone
// it first via Snapshot.clone.
type Snapshot struct {
	Number  uint64
	Hash    common.Hash
	Recents map[uint64]common.Address
	Ballot  *ballot
}

// newSnapshotFromSigners constructs the genesis (or epoch-anchored)
// snapshot from a freshly trusted signer list.
func newSnapshotFromSigners(number uint64, hash common.Hash, signers []common.Address) *Snapshot {
	return &Snapshot{
		Number:  number,
		Hash:    hash,
		Recents: make(map[uint64]common.Address),
		Ballot:  newBallot(signers),
	}
}

// clone returns a deep copy, safe to mutate independently of s. The
// resolver always clones a cache/store hit before replaying headers
// onto it, so cached entries remain immutable from the consumer's
// point of view (§3 Snapshot lifecycle).
func (s *Snapshot) clone() *Snapshot {
	cp := &Snapshot{
		Number:  s.Number,
		Hash:    s.Hash,
		Recents: make(map[uint64]common.Address, len(s.Recents)),
		Ballot:  s.Ballot.clone(),
	}
	for n, a := range s.Recents {
		cp.Recents[n] = a
	}
	return cp
}

func (s *Snapshot) isSigner(addr common.Address) bool { return s.Ballot.isAuthorised(addr) }

// signers returns the authorised set in ascending byte-lexical order.
func (s *Snapshot) signers() []common.Address { return s.Ballot.signersSorted() }

// inTurn reports whether signer is scheduled to produce block `number`
// under round-robin over the current signer list.
func (s *Snapshot) inTurn(number uint64, signer common.Address) bool {
	signers := s.signers()
	if len(signers) == 0 {
		return false
	}
	return signers[number%uint64(len(signers))] == signer
}

// recentBlockOf returns the most recent block number addr signed, if
// any is still tracked in the recents window.
func (s *Snapshot) recentBlockOf(addr common.Address) (uint64, bool) {
	for n, a := range s.Recents {
		if a == addr {
			return n, true
		}
	}
	return 0, false
}

func (s *Snapshot) recentlySigned(addr common.Address) bool {
	_, ok := s.recentBlockOf(addr)
	return ok
}

// applyHeaders replays a contiguous run of headers, starting at
// s.Number+1, onto a clone of s, returning the resulting snapshot. s
// itself is never mutated: on any error the clone is discarded and the
// caller's reference remains valid, satisfying the all-or-nothing
// requirement of §7.
func (s *Snapshot) applyHeaders(cfg *Config, log clog.Logger, sigcache *sigCache, headers []*types.Header) (*Snapshot, error) {
	if len(headers) == 0 {
		return s, nil
	}
	for i := 0; i < len(headers); i++ {
		if headers[i].Number.Uint64() != s.Number+uint64(i)+1 {
			return nil, ErrInvalidVotingChain
		}
		if i > 0 && headers[i].Number.Uint64() != headers[i-1].Number.Uint64()+1 {
			return nil, ErrInvalidVotingChain
		}
	}

	snap := s.clone()
	epoch := cfg.epoch()

	for _, header := range headers {
		number := header.Number.Uint64()

		if number%epoch == 0 {
			log.Debug("snapshot: epoch flush", "number", number)
			snap.Ballot.flush()
		}

		threshold := uint64(snap.Ballot.threshold())
		for n := range snap.Recents {
			if limit := number - threshold; number >= threshold && n <= limit {
				log.Trace("snapshot: trimming recents", "number", number, "evicted", n)
				delete(snap.Recents, n)
			}
		}

		signer, err := sigcache.ecrecover(header)
		if err != nil {
			return nil, err
		}
		if !snap.Ballot.isAuthorised(signer) {
			return nil, ErrUnauthorizedSigner
		}
		if snap.recentlySigned(signer) {
			return nil, ErrRecentlySigned
		}
		snap.Recents[number] = signer

		snap.Ballot.delVote(signer, header.Coinbase)

		var authorize bool
		switch header.Nonce {
		case nonceAuthVote:
			authorize = true
		case nonceDropVote:
			authorize = false
		default:
			return nil, ErrInvalidVote
		}
		snap.Ballot.addVote(vote{Signer: signer, Target: header.Coinbase, Block: number, Authorize: authorize})

		if snap.Ballot.lastRemoved {
			log.Debug("snapshot: signer removed", "number", number, "target", header.Coinbase)
			newThreshold := uint64(snap.Ballot.threshold())
			for n := range snap.Recents {
				if newThreshold <= number && n <= number-newThreshold {
					log.Trace("snapshot: trimming recents after removal", "number", number, "evicted", n)
					delete(snap.Recents, n)
				}
			}
		}
	}

	last := headers[len(headers)-1]
	snap.Number = last.Number.Uint64()
	snap.Hash = last.Hash()
	return snap, nil
}

// --- RLP persistence record (§6: "Persistent snapshot record") ---

type recentEntry struct {
	Number uint64
	Signer common.Address
}

type voteRLP struct {
	Signer    common.Address
	Target    common.Address
	Block     uint64
	Authorize bool
}

type tallyRLP struct {
	Target    common.Address
	Authorize bool
	Signers   []voteRLP
}

type snapshotRLP struct {
	Number     uint64
	Hash       common.Hash
	Recents    []recentEntry
	Authorised []common.Address
	Tallies    []tallyRLP
}

// encode produces the canonical RLP persistence record. Map-valued
// fields are flattened into sorted slices so that two snapshots with
// identical logical content always produce byte-identical output,
// which is what the round-trip and idempotence properties of §8
// require.
func (s *Snapshot) encode() ([]byte, error) {
	rec := snapshotRLP{Number: s.Number, Hash: s.Hash}

	for n, a := range s.Recents {
		rec.Recents = append(rec.Recents, recentEntry{Number: n, Signer: a})
	}
	sort.Slice(rec.Recents, func(i, j int) bool { return rec.Recents[i].Number < rec.Recents[j].Number })

	for a := range s.Ballot.Authorised {
		rec.Authorised = append(rec.Authorised, a)
	}
	sort.Slice(rec.Authorised, func(i, j int) bool {
		return bytesLess(rec.Authorised[i].Bytes(), rec.Authorised[j].Bytes())
	})

	for target, t := range s.Ballot.Tallies {
		tr := tallyRLP{Target: target, Authorize: t.Authorize}
		for _, v := range t.Signers {
			tr.Signers = append(tr.Signers, voteRLP{Signer: v.Signer, Target: v.Target, Block: v.Block, Authorize: v.Authorize})
		}
		sort.Slice(tr.Signers, func(i, j int) bool {
			return bytesLess(tr.Signers[i].Signer.Bytes(), tr.Signers[j].Signer.Bytes())
		})
		rec.Tallies = append(rec.Tallies, tr)
	}
	sort.Slice(rec.Tallies, func(i, j int) bool {
		return bytesLess(rec.Tallies[i].Target.Bytes(), rec.Tallies[j].Target.Bytes())
	})

	return rlp.EncodeToBytes(rec)
}

// decodeSnapshot reverses encode.
func decodeSnapshot(data []byte) (*Snapshot, error) {
	var rec snapshotRLP
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return nil, err
	}
	s := &Snapshot{
		Number:  rec.Number,
		Hash:    rec.Hash,
		Recents: make(map[uint64]common.Address, len(rec.Recents)),
		Ballot:  newBallot(rec.Authorised),
	}
	for _, re := range rec.Recents {
		s.Recents[re.Number] = re.Signer
	}
	for _, tr := range rec.Tallies {
		t := &tally{Authorize: tr.Authorize, Signers: make(map[common.Address]vote, len(tr.Signers))}
		for _, v := range tr.Signers {
			t.Signers[v.Signer] = vote{Signer: v.Signer, Target: v.Target, Block: v.Block, Authorize: v.Authorize}
		}
		s.Ballot.Tallies[tr.Target] = t
	}
	return s, nil
}
