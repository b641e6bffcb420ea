package clique

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultGasValidator applies the one parent-relative gas rule that
// isn't EIP-1559 base-fee arithmetic: a child block must not claim to
// have used more gas than its own limit allows. Full gas-limit
// elasticity rules and base-fee computation are explicit Non-goals
// (§1) and belong to a collaborator supplied by the caller; this type
// exists only so the engine has something to default to.
type DefaultGasValidator struct{}

func (DefaultGasValidator) ValidateGasAndBaseFee(parent, child *types.Header) error {
	if child.GasUsed > child.GasLimit {
		return fmt.Errorf("invalid gasUsed: have %d, gasLimit %d", child.GasUsed, child.GasLimit)
	}
	return nil
}
