package clique

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// VerifyHeader checks a single header against the stateless and
// cascading rules of §4.5. It has no preceding batch, so ancestor
// lookups always go through the header store.
func (c *Clique) VerifyHeader(header *types.Header) error {
	return c.verifyHeader(header, nil)
}

// VerifyHeaders verifies a batch in input order, sequentially (§5):
// element i sees headers[:i] as its preferred parent-lookup source.
// stop, if non-nil, is polled between elements; once stopped the
// remaining slots are filled with ErrStopped and results already
// produced are preserved.
func (c *Clique) VerifyHeaders(headers []*types.Header, stop *Stopper) []error {
	results := make([]error, len(headers))
	for i, h := range headers {
		if stop != nil && stop.Stopped() {
			for j := i; j < len(headers); j++ {
				results[j] = ErrStopped
			}
			return results
		}
		results[i] = c.verifyHeader(h, headers[:i])
	}
	return results
}

func (c *Clique) verifyHeader(header *types.Header, precedingBatch []*types.Header) error {
	err := c.verifyStateless(header)
	if err == nil {
		err = c.verifyCascading(header, precedingBatch)
	}
	if err != nil {
		c.log.Warn("verifier: header rejected", "number", header.Number, "hash", header.Hash(), "err", err)
	}
	return err
}

// verifyStateless implements the state-independent checks of §4.5.
func (c *Clique) verifyStateless(header *types.Header) error {
	if header.Number == nil || header.Number.Sign() == 0 {
		return ErrUnknownBlock
	}
	if header.Time > nowUnix() {
		return ErrFutureBlock
	}

	checkpoint := isCheckpoint(c.cfg, header.Number.Uint64())
	if checkpoint && header.Coinbase != (common.Address{}) {
		return ErrInvalidCheckpointBeneficiary
	}
	if header.Nonce != nonceAuthVote && header.Nonce != nonceDropVote {
		return ErrInvalidVote
	}
	if checkpoint && header.Nonce != nonceDropVote {
		return ErrInvalidCheckpointVote
	}

	if len(header.Extra) < ExtraVanity {
		return ErrMissingVanity
	}
	if len(header.Extra) < ExtraVanity+ExtraSeal {
		return ErrMissingSignature
	}
	signersBytes := len(header.Extra) - ExtraVanity - ExtraSeal
	if !checkpoint && signersBytes != 0 {
		return ErrExtraSigners
	}
	if checkpoint && signersBytes%common.AddressLength != 0 {
		return ErrInvalidCheckpointSigners
	}

	if header.MixDigest != (common.Hash{}) {
		return ErrInvalidMixDigest
	}
	if header.UncleHash != emptyUncleHash {
		return ErrInvalidUncleHash
	}
	if header.Difficulty == nil || (!bigEq(diffInTurn, header.Difficulty) && !bigEq(diffNoTurn, header.Difficulty)) {
		return ErrInvalidDifficulty
	}
	return nil
}

// verifyCascading implements the parent- and snapshot-dependent checks
// of §4.5.
func (c *Clique) verifyCascading(header *types.Header, precedingBatch []*types.Header) error {
	number := header.Number.Uint64()

	parent, err := c.parentOf(header, precedingBatch)
	if err != nil {
		return err
	}
	if header.Time < parent.Time+c.cfg.Period {
		return ErrInvalidTimestamp
	}
	if c.gas != nil {
		if err := c.gas.ValidateGasAndBaseFee(parent, header); err != nil {
			return err
		}
	}

	// parent is the last element of a non-empty precedingBatch; resolve
	// expects only the ancestors strictly below its start header.
	ancestors := precedingBatch
	if n := len(ancestors); n > 0 {
		ancestors = ancestors[:n-1]
	}
	snap, err := c.snapshotAt(parent, ancestors)
	if err != nil {
		return err
	}

	if isCheckpoint(c.cfg, number) {
		want := snap.signers()
		got, err := signersFromExtra(header.Extra)
		if err != nil {
			return err
		}
		if len(got) != len(want) {
			return ErrMismatchingCheckpointSigners
		}
		for i := range want {
			if got[i] != want[i] {
				return ErrMismatchingCheckpointSigners
			}
		}
	}

	signer, err := c.sigcache.ecrecover(header)
	if err != nil {
		return err
	}
	if !snap.isSigner(signer) {
		return ErrUnauthorizedSigner
	}
	threshold := uint64(snap.Ballot.threshold())
	if k, ok := snap.recentBlockOf(signer); ok && number < threshold+k {
		return ErrRecentlySigned
	}
	if snap.inTurn(number, signer) {
		if !bigEq(diffInTurn, header.Difficulty) {
			return ErrWrongDifficulty
		}
	} else if !bigEq(diffNoTurn, header.Difficulty) {
		return ErrWrongDifficulty
	}
	return nil
}

func (c *Clique) parentOf(header *types.Header, precedingBatch []*types.Header) (*types.Header, error) {
	number := header.Number.Uint64()
	if n := len(precedingBatch); n > 0 {
		parent := precedingBatch[n-1]
		if parent.Number.Uint64() == number-1 && parent.Hash() == header.ParentHash {
			return parent, nil
		}
		return nil, ErrUnknownAncestor
	}
	parent, ok := c.headers.GetHeaderByHash(header.ParentHash)
	if !ok || parent.Number.Uint64() != number-1 {
		return nil, ErrUnknownAncestor
	}
	return parent, nil
}
