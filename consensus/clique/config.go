package clique

import "time"

// Protocol constants, fixed by EIP-225 and this spec (§6).
const (
	CheckpointInterval        = 1024
	InmemorySnapshots         = 128
	InmemorySignatures        = 4096
	FullImmutabilityThreshold = 90000

	ExtraVanity = 32
	ExtraSeal   = 65

	WiggleTime = 500 * time.Millisecond
)

// diffInTurn / diffNoTurn are the two legal difficulty values a Clique
// header may carry.
var (
	diffInTurn = uint64(2)
	diffNoTurn = uint64(1)
)

// nonceAuthVote / nonceDropVote are the two legal 8-byte nonce values,
// interpreted as a vote direction cast by the header's signer on
// header.Coinbase.
var (
	nonceAuthVote = [8]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	nonceDropVote = [8]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
)

// Config tunes the per-chain parameters of the engine; everything else
// in this package is a fixed protocol constant.
type Config struct {
	// Period is the minimum number of seconds required between two
	// consecutive blocks. Zero means "no minimum", used by tests to
	// produce blocks on demand.
	Period uint64
	// Epoch is the number of blocks after which voting tallies reset
	// and the signer list is re-anchored in extra-data. Zero defaults
	// to DefaultEpochLength.
	Epoch uint64
	// MinBacklogBeforeEpochTrust resolves the §4.4/§9 Open Question: if
	// true, a plain (non-checkpoint-interval) epoch header is only
	// trusted as a snapshot base once the backward walk's trail
	// exceeds FullImmutabilityThreshold; if false (the default,
	// matching the reference), the nearest epoch header is always
	// trusted.
	MinBacklogBeforeEpochTrust bool
}

// DefaultEpochLength is the epoch length used when Config.Epoch is zero.
const DefaultEpochLength = 30000

func (c *Config) epoch() uint64 {
	if c.Epoch == 0 {
		return DefaultEpochLength
	}
	return c.Epoch
}
