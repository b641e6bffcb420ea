package clique

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// vote is a single authorization proposal cast by a signer, embedded in
// the header it produced.
type vote struct {
	Signer    common.Address
	Target    common.Address
	Block     uint64
	Authorize bool
}

// tally is the per-target open proposal: every vote cast on Target so
// far, all sharing the same direction.
type tally struct {
	Authorize bool
	Signers   map[common.Address]vote
}

// ballot is the voting state of a snapshot: the current authorised
// signer set plus any open per-target tallies. Zero value is not
// usable; construct with newBallot.
type ballot struct {
	Authorised map[common.Address]struct{}
	Tallies    map[common.Address]*tally

	// lastRemoved records whether the most recent addVote caused a
	// removal from Authorised. Transient: read once by the caller
	// immediately after addVote, then implicitly reset by the next
	// addVote call.
	lastRemoved bool
}

func newBallot(signers []common.Address) *ballot {
	b := &ballot{
		Authorised: make(map[common.Address]struct{}, len(signers)),
		Tallies:    make(map[common.Address]*tally),
	}
	for _, s := range signers {
		b.Authorised[s] = struct{}{}
	}
	return b
}

// clone returns a deep copy safe to mutate independently of b.
func (b *ballot) clone() *ballot {
	cp := &ballot{
		Authorised: make(map[common.Address]struct{}, len(b.Authorised)),
		Tallies:    make(map[common.Address]*tally, len(b.Tallies)),
	}
	for a := range b.Authorised {
		cp.Authorised[a] = struct{}{}
	}
	for target, t := range b.Tallies {
		nt := &tally{Authorize: t.Authorize, Signers: make(map[common.Address]vote, len(t.Signers))}
		for s, v := range t.Signers {
			nt.Signers[s] = v
		}
		cp.Tallies[target] = nt
	}
	return cp
}

func (b *ballot) isAuthorised(addr common.Address) bool {
	_, ok := b.Authorised[addr]
	return ok
}

// signersSorted returns the authorised set in ascending byte-lexical
// order, the order used to compute in-turn slots.
func (b *ballot) signersSorted() []common.Address {
	out := make([]common.Address, 0, len(b.Authorised))
	for a := range b.Authorised {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytesLess(out[i].Bytes(), out[j].Bytes())
	})
	return out
}

func bytesLess(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// threshold is the strict majority count of the current authorised set:
// floor(n/2)+1.
func (b *ballot) threshold() int {
	return len(b.Authorised)/2 + 1
}

// validVote reports whether casting authorize on target would be a
// legal vote given the current authorised set: you may only propose
// adding an address that isn't already a signer, or removing one that
// is.
func (b *ballot) validVote(target common.Address, authorize bool) bool {
	_, signer := b.Authorised[target]
	return (authorize && !signer) || (!authorize && signer)
}

// addVote applies v to the ballot per §4.2 of the spec. Invalid votes
// (failing validVote) are silently ignored, matching the reference: a
// stale or nonsensical proposal carried in a header does not abort
// replay.
func (b *ballot) addVote(v vote) {
	b.lastRemoved = false

	if !b.validVote(v.Target, v.Authorize) {
		return
	}
	t, ok := b.Tallies[v.Target]
	switch {
	case !ok:
		t = &tally{Authorize: v.Authorize, Signers: map[common.Address]vote{v.Signer: v}}
		b.Tallies[v.Target] = t
	case t.Authorize == v.Authorize:
		t.Signers[v.Signer] = v
	default:
		// Direction conflict: ignore, leave the open tally untouched.
		return
	}

	if len(t.Signers) < b.threshold() {
		return
	}
	if t.Authorize {
		b.Authorised[v.Target] = struct{}{}
	} else {
		delete(b.Authorised, v.Target)
		b.lastRemoved = true
		// Cascading purge: any vote cast BY the now-removed target, in
		// any other open tally, is discarded — its author no longer
		// has standing. A tally left with no signers is dropped.
		for target, other := range b.Tallies {
			if target == v.Target {
				continue
			}
			if _, cast := other.Signers[v.Target]; cast {
				delete(other.Signers, v.Target)
				if len(other.Signers) == 0 {
					delete(b.Tallies, target)
				}
			}
		}
	}
	delete(b.Tallies, v.Target)
}

// delVote removes the single vote cast by signer on target, dropping
// the tally if it becomes empty. Called whenever signer produces a new
// block, to clear out any previous proposal of theirs before their new
// vote (if any) is applied.
func (b *ballot) delVote(signer, target common.Address) {
	t, ok := b.Tallies[target]
	if !ok {
		return
	}
	if _, cast := t.Signers[signer]; !cast {
		return
	}
	delete(t.Signers, signer)
	if len(t.Signers) == 0 {
		delete(b.Tallies, target)
	}
}

// flush drops all open tallies; called on epoch boundaries.
func (b *ballot) flush() {
	b.Tallies = make(map[common.Address]*tally)
}
