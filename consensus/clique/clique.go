// Package clique implements the Clique proof-of-authority consensus
// engine defined by EIP-225: the authorisation state machine, its
// snapshot/cache layer, header verification, and block sealing.
package clique

import (
	"math/big"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/clique-core/clique/internal/clog"
)

var emptyUncleHash = types.CalcUncleHash(nil)

// SignerFn signs digest on behalf of signer, used only by the sealer.
type SignerFn func(signer common.Address, digest []byte) ([]byte, error)

// Clique is the consensus engine. One instance is meant to back a
// single chain; it is not safe for the core resolution/verification
// path to be driven from more than one goroutine at a time (§5).
type Clique struct {
	cfg    *Config
	log    clog.Logger
	gas    GasValidator
	headers HeaderReader
	store  SnapshotStore

	sigcache *sigCache
	resolver *resolver

	proposalsMu sync.Mutex
	proposals   map[common.Address]bool

	signerMu sync.RWMutex
	signer   common.Address
	signFn   SignerFn

	prepareRand *rand.Rand
	wiggleRand  *rand.Rand
}

// New constructs a Clique engine over the given collaborators. gas may
// be nil, in which case gas-limit validation is skipped entirely
// (suitable for tests that don't care about it).
func New(cfg Config, headers HeaderReader, store SnapshotStore, gas GasValidator) *Clique {
	c := &Clique{
		cfg:         &cfg,
		log:         clog.New("engine", "clique"),
		gas:         gas,
		headers:     headers,
		store:       store,
		sigcache:    newSigCache(InmemorySignatures),
		proposals:   make(map[common.Address]bool),
		prepareRand: rand.New(rand.NewSource(1)),
		wiggleRand:  rand.New(rand.NewSource(2)),
	}
	c.resolver = newResolver(c.cfg, c.log, headers, store, c.sigcache)
	return c
}

// SeedRand replaces the two independent random sources used by Prepare
// (vote selection) and Seal (out-of-turn wiggle), for deterministic
// tests. Neither source affects consensus validity (§9).
func (c *Clique) SeedRand(prepareSeed, wiggleSeed int64) {
	c.prepareRand = rand.New(rand.NewSource(prepareSeed))
	c.wiggleRand = rand.New(rand.NewSource(wiggleSeed))
}

// Authorize sets the signer identity and signing callback used by
// Seal. The two are read/written together under one lock (§5).
func (c *Clique) Authorize(signer common.Address, signFn SignerFn) {
	c.signerMu.Lock()
	defer c.signerMu.Unlock()
	c.signer = signer
	c.signFn = signFn
}

func (c *Clique) signerIdentity() (common.Address, SignerFn) {
	c.signerMu.RLock()
	defer c.signerMu.RUnlock()
	return c.signer, c.signFn
}

// Propose records that this node wants to vote auth/drop on target the
// next time it prepares a non-checkpoint block.
func (c *Clique) Propose(target common.Address, authorize bool) {
	c.proposalsMu.Lock()
	defer c.proposalsMu.Unlock()
	c.proposals[target] = authorize
}

// Discard removes any pending proposal on target.
func (c *Clique) Discard(target common.Address) {
	c.proposalsMu.Lock()
	defer c.proposalsMu.Unlock()
	delete(c.proposals, target)
}

// Author returns the address that sealed header.
func (c *Clique) Author(header *types.Header) (common.Address, error) {
	return c.sigcache.ecrecover(header)
}

// snapshotAt resolves the Snapshot valid at the header identified by
// hash/number, using parents (if non-empty) as the preferred ancestor
// source ahead of the header store.
func (c *Clique) snapshotAt(header *types.Header, parents []*types.Header) (*Snapshot, error) {
	return c.resolver.resolve(header, parents)
}

func isCheckpoint(cfg *Config, number uint64) bool {
	return number%cfg.epoch() == 0
}

func bigEq(a uint64, b *big.Int) bool { return b != nil && b.Uint64() == a }

func nowUnix() uint64 { return uint64(time.Now().Unix()) }
