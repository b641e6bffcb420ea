package clique

import (
	"math/big"
	"math/rand"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Prepare populates the consensus-controlled fields of header, which
// must already carry Number and ParentHash, ahead of this node sealing
// it (§4.6). parent is header's immediate predecessor.
func (c *Clique) Prepare(parent, header *types.Header) error {
	snap, err := c.snapshotAt(parent, nil)
	if err != nil {
		return err
	}

	checkpoint := isCheckpoint(c.cfg, header.Number.Uint64())
	header.Coinbase = common.Address{}
	header.Nonce = nonceDropVote

	if !checkpoint {
		if target, authorize, ok := c.pickProposal(snap); ok {
			header.Coinbase = target
			if authorize {
				header.Nonce = nonceAuthVote
			} else {
				header.Nonce = nonceDropVote
			}
			c.log.Debug("sealer: proposing vote", "number", header.Number, "target", target, "authorize", authorize)
		}
	}

	signer, _ := c.signerIdentity()
	inTurn := snap.inTurn(header.Number.Uint64(), signer)
	if inTurn {
		header.Difficulty = new(big.Int).SetUint64(diffInTurn)
	} else {
		header.Difficulty = new(big.Int).SetUint64(diffNoTurn)
	}
	c.log.Debug("sealer: prepared header", "number", header.Number, "inTurn", inTurn)

	extra := make([]byte, ExtraVanity)
	if checkpoint {
		for _, s := range snap.signers() {
			extra = append(extra, s.Bytes()...)
		}
	}
	extra = append(extra, make([]byte, ExtraSeal)...)
	header.Extra = extra

	header.MixDigest = common.Hash{}

	wantTime := parent.Time + c.cfg.Period
	if now := nowUnix(); wantTime < now {
		wantTime = now
	}
	header.Time = wantTime
	return nil
}

// pickProposal selects one pending, still-valid proposal uniformly at
// random, for vote fairness only (§4.6, §9): this choice never affects
// header validity.
func (c *Clique) pickProposal(snap *Snapshot) (common.Address, bool, bool) {
	c.proposalsMu.Lock()
	defer c.proposalsMu.Unlock()

	var targets []common.Address
	for target := range c.proposals {
		if snap.Ballot.validVote(target, c.proposals[target]) {
			targets = append(targets, target)
		}
	}
	if len(targets) == 0 {
		return common.Address{}, false, false
	}
	// Map iteration order is random; sort so a seeded prepareRand
	// reproduces the same pick.
	sort.Slice(targets, func(i, j int) bool { return bytesLess(targets[i].Bytes(), targets[j].Bytes()) })
	pick := targets[c.prepareRand.Intn(len(targets))]
	return pick, c.proposals[pick], true
}

// Seal finalizes header into a sealed block header: it waits out the
// turn-taking delay (honoring stop for early cancellation), then signs
// the seal hash and embeds the signature in extra-data. hasTxns lets
// the caller report whether the block being sealed carries any
// transactions, used only for the period==0 busy-loop guard of §4.6;
// block contents themselves are out of scope for this core.
func (c *Clique) Seal(header *types.Header, hasTxns bool, stop *Stopper) (*types.Header, error) {
	number := header.Number.Uint64()
	if number == 0 {
		return nil, ErrUnknownBlock
	}
	if c.cfg.Period == 0 && !hasTxns {
		return nil, ErrSealNoBlockYet
	}

	signer, signFn := c.signerIdentity()
	if signFn == nil {
		return nil, ErrUnauthorizedSigner
	}

	parent, ok := c.headers.GetHeaderByHash(header.ParentHash)
	if !ok || parent.Number.Uint64() != number-1 {
		return nil, ErrUnknownAncestor
	}
	snap, err := c.snapshotAt(parent, nil)
	if err != nil {
		return nil, err
	}
	if !snap.isSigner(signer) {
		c.log.Warn("sealer: refusing to seal", "number", number, "err", ErrUnauthorizedSigner)
		return nil, ErrUnauthorizedSigner
	}
	threshold := uint64(snap.Ballot.threshold())
	if k, recently := snap.recentBlockOf(signer); recently && number < k+threshold {
		c.log.Warn("sealer: refusing to seal", "number", number, "err", ErrSealSignedRecently)
		return nil, ErrSealSignedRecently
	}

	delay, wiggle := sealDelay(header, threshold, c.wiggleRand)
	if bigEq(diffInTurn, header.Difficulty) {
		c.log.Trace("sealer: in-turn", "number", number, "delay", delay)
	} else {
		c.log.Trace("sealer: out-of-turn, waiting for wiggle", "number", number, "wiggle", wiggle, "delay", delay)
	}

	if stopped := c.wait(delay, stop); stopped {
		c.log.Debug("sealer: seal cancelled", "number", number)
		return nil, ErrStopped
	}

	sighash, err := signFn(signer, SealHash(header).Bytes())
	if err != nil {
		return nil, err
	}
	out := types.CopyHeader(header)
	copy(out.Extra[len(out.Extra)-ExtraSeal:], sighash)
	c.log.Debug("sealer: sealed", "number", number, "hash", out.Hash())
	return out, nil
}

// sealDelay computes how long Seal must wait before signing: the
// shortfall until header.Time if it lies in the future, plus, for
// out-of-turn signers, a uniformly random wiggle drawn from
// [0, threshold*WiggleTime) (§4.6, §8 boundary scenario 7). wiggle is
// returned separately purely so callers can log whether one was
// applied; it is already folded into delay.
func sealDelay(header *types.Header, threshold uint64, wiggleRand *rand.Rand) (delay, wiggle time.Duration) {
	if wantAt := int64(header.Time) - int64(nowUnix()); wantAt > 0 {
		delay = time.Duration(wantAt) * time.Second
	}
	if !bigEq(diffInTurn, header.Difficulty) {
		bound := time.Duration(threshold) * WiggleTime
		wiggle = time.Duration(wiggleRand.Int63n(int64(bound)))
		delay += wiggle
	}
	return delay, wiggle
}

// wait blocks for d or until stop fires, whichever comes first,
// returning true iff it was cancelled. This is the engine's only true
// suspension point beyond I/O (§5, §9): a select between a timer and
// the cancellation flag, not preemptive threading.
func (c *Clique) wait(d time.Duration, stop *Stopper) bool {
	if d <= 0 {
		if stop != nil && stop.Stopped() {
			return true
		}
		return false
	}
	if stop == nil {
		time.Sleep(d)
		return false
	}
	deadline := time.Now().Add(d)
	const poll = 20 * time.Millisecond
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		if stop.Stopped() {
			return true
		}
		if remaining < poll {
			time.Sleep(remaining)
			continue
		}
		time.Sleep(poll)
	}
}
