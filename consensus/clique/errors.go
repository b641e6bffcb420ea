package clique

import "errors"

// Stateless-format errors: the header cannot be valid under any chain
// state, regardless of snapshot. Fatal to the header, never retried.
var (
	ErrUnknownBlock                  = errors.New("unknown block")
	ErrInvalidCheckpointBeneficiary  = errors.New("beneficiary must be zero on checkpoints")
	ErrInvalidVote                   = errors.New("vote nonce not 0x00..0 or 0xff..f")
	ErrInvalidCheckpointVote         = errors.New("vote nonce in checkpoint block non-zero")
	ErrMissingVanity                 = errors.New("extra-data 32 byte vanity prefix missing")
	ErrMissingSignature              = errors.New("extra-data 65 byte signature suffix missing")
	ErrExtraSigners                  = errors.New("non-checkpoint block contains extra signer list")
	ErrInvalidCheckpointSigners      = errors.New("invalid signer list on checkpoint block")
	ErrMismatchingCheckpointSigners  = errors.New("mismatching signer list on checkpoint block")
	ErrInvalidMixDigest              = errors.New("non-zero mix digest")
	ErrInvalidUncleHash              = errors.New("non empty uncle hash")
	ErrInvalidDifficulty             = errors.New("invalid difficulty")
	ErrWrongDifficulty               = errors.New("wrong difficulty")
)

// Transient / retryable errors.
var (
	ErrFutureBlock     = errors.New("block in the future")
	ErrUnknownAncestor = errors.New("unknown ancestor")
)

// ErrInvalidTimestamp is cascading: a header whose timestamp doesn't
// respect the minimum block period relative to its parent.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Snapshot-resolution / chain-inconsistency errors. Fatal, escalate.
var (
	ErrInvalidVotingChain = errors.New("invalid voting chain")
)

// Authorisation / consensus-violation errors. Fatal to the header.
var (
	ErrUnauthorizedSigner = errors.New("unauthorized signer")
	ErrRecentlySigned     = errors.New("recently signed")
)

// Seal-time transient refusals. Not errors to peers; the sealer retries
// on its next turn.
var (
	ErrSealNoBlockYet     = errors.New("sealing paused while waiting for transactions")
	ErrSealSignedRecently = errors.New("signed recently, must wait for others")
)

// Cancellation.
var ErrStopped = errors.New("stopped")

// Signature-cache / recovery errors. ErrMissingSignature is shared with
// the stateless extra-data length check: both describe the same
// condition, a header whose extra-data is too short to hold a seal.
var (
	ErrSignatureMalformed  = errors.New("malformed signature")
	ErrPublicKeyDerivation = errors.New("could not derive public key from signature")
)
