package clique

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// HeaderReader is the block-header-store collaborator consumed by the
// resolver and verifier (§6). Block storage itself is an explicit
// Non-goal; this module only ever reads headers through this seam.
type HeaderReader interface {
	GetHeaderByHash(hash common.Hash) (*types.Header, bool)
	GetHeaderByNumber(number uint64) (*types.Header, bool)
}

// SnapshotStore is the persistent-snapshot collaborator consumed by the
// resolver (§6). Implementations must round-trip whatever bytes they
// are given back unchanged; the RLP codec lives in this package.
type SnapshotStore interface {
	Load(hash common.Hash) ([]byte, bool, error)
	Store(hash common.Hash, data []byte) error
}

// GasValidator is the external parent-relative header validator
// consumed opaquely by the verifier (§6); gas-limit schedules and
// EIP-1559 base-fee arithmetic are explicit Non-goals of this core.
type GasValidator interface {
	ValidateGasAndBaseFee(parent, child *types.Header) error
}
