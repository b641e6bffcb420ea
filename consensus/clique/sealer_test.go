package clique

import (
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TestSealDelayWiggleBound is boundary scenario 7 of the spec: the
// out-of-turn wiggle must always land in [0, threshold*WiggleTime).
func TestSealDelayWiggleBound(t *testing.T) {
	header := &types.Header{Time: nowUnix(), Difficulty: big.NewInt(int64(diffNoTurn))}
	threshold := uint64(3)
	bound := time.Duration(threshold) * WiggleTime

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		delay, wiggle := sealDelay(header, threshold, r)
		if wiggle < 0 || wiggle >= bound {
			t.Fatalf("wiggle out of [0, %v): %v", bound, wiggle)
		}
		if delay != wiggle {
			t.Fatalf("delay should equal wiggle when header.Time isn't in the future: delay=%v wiggle=%v", delay, wiggle)
		}
	}
}

// TestSealDelayInTurnNoWiggle checks that an in-turn seal adds no
// random wiggle on top of the base timestamp delay.
func TestSealDelayInTurnNoWiggle(t *testing.T) {
	header := &types.Header{Time: nowUnix(), Difficulty: big.NewInt(int64(diffInTurn))}
	delay, wiggle := sealDelay(header, 3, rand.New(rand.NewSource(1)))
	if wiggle != 0 || delay != 0 {
		t.Fatalf("in-turn seal should add no delay: delay=%v wiggle=%v", delay, wiggle)
	}
}

// TestPrepareDifficulty exercises §4.6's in-turn/out-of-turn difficulty
// assignment for both signers of a two-signer set.
func TestPrepareDifficulty(t *testing.T) {
	accounts := newTesterAccountPool()
	signers := []common.Address{accounts.address("A"), accounts.address("B")}
	sortAddresses(signers)

	engine, store := newTestEngine(t, 0, signers)
	genesis, _ := store.GetHeaderByNumber(0)

	engine.Authorize(signers[0], nil)
	header := &types.Header{Number: big.NewInt(1), ParentHash: genesis.Hash()}
	if err := engine.Prepare(genesis, header); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if bigEq(diffInTurn, header.Difficulty) {
		t.Fatalf("signer 0 should be out-of-turn for block 1")
	}
	if len(header.Extra) != ExtraVanity+ExtraSeal {
		t.Fatalf("non-checkpoint extra length: have %d, want %d", len(header.Extra), ExtraVanity+ExtraSeal)
	}

	engine.Authorize(signers[1], nil)
	header2 := &types.Header{Number: big.NewInt(1), ParentHash: genesis.Hash()}
	if err := engine.Prepare(genesis, header2); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !bigEq(diffInTurn, header2.Difficulty) {
		t.Fatalf("signer 1 should be in-turn for block 1")
	}
}

// TestPrepareCheckpointExtra checks the checkpoint-block extra-data
// layout: zero beneficiary, drop-vote nonce, and the full signer list
// embedded between the vanity and seal sections.
func TestPrepareCheckpointExtra(t *testing.T) {
	accounts := newTesterAccountPool()
	signers := []common.Address{accounts.address("A"), accounts.address("B")}
	sortAddresses(signers)

	engine, store := newTestEngine(t, 1, signers)
	genesis, _ := store.GetHeaderByNumber(0)
	engine.Authorize(signers[0], nil)

	header := &types.Header{Number: big.NewInt(1), ParentHash: genesis.Hash()}
	if err := engine.Prepare(genesis, header); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if want := ExtraVanity + len(signers)*common.AddressLength + ExtraSeal; len(header.Extra) != want {
		t.Fatalf("checkpoint extra length: have %d, want %d", len(header.Extra), want)
	}
	if header.Coinbase != (common.Address{}) {
		t.Fatalf("checkpoint beneficiary must be zero")
	}
	if header.Nonce != nonceDropVote {
		t.Fatalf("checkpoint nonce must be the drop-vote value")
	}
}

// TestSealCancellation covers §5/§9's cancellation property: a Seal
// blocked on its turn-taking delay must return ErrStopped promptly once
// its Stopper is stopped, rather than waiting out the full delay.
func TestSealCancellation(t *testing.T) {
	accounts := newTesterAccountPool()
	a := accounts.address("A")
	engine, store := newTestEngine(t, 0, []common.Address{a})
	engine.cfg.Period = 1
	genesis, _ := store.GetHeaderByNumber(0)

	engine.Authorize(a, func(signer common.Address, digest []byte) ([]byte, error) {
		return crypto.Sign(digest, accounts.key("A").priv)
	})

	header := &types.Header{
		Number:     big.NewInt(1),
		ParentHash: genesis.Hash(),
		Extra:      make([]byte, ExtraVanity+ExtraSeal),
		Difficulty: big.NewInt(int64(diffInTurn)),
		Time:       nowUnix() + 3600,
	}

	stop := NewStopper()
	done := make(chan error, 1)
	go func() {
		_, err := engine.Seal(header, true, stop)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	stop.Stop()

	select {
	case err := <-done:
		if err != ErrStopped {
			t.Fatalf("expected ErrStopped, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Seal did not honor cancellation")
	}
}

// TestStopperOneShot checks Stopper's documented CAS semantics: the
// first Stop() call wins and returns true, every later call returns
// false, and Stopped() reflects the transition immediately.
func TestStopperOneShot(t *testing.T) {
	s := NewStopper()
	if s.Stopped() {
		t.Fatalf("fresh Stopper must not be stopped")
	}
	if !s.Stop() {
		t.Fatalf("first Stop() must return true")
	}
	if !s.Stopped() {
		t.Fatalf("Stopped() must report true once stopped")
	}
	if s.Stop() {
		t.Fatalf("second Stop() must return false")
	}
}

// TestVerifyHeadersCancellation covers the batch-verification
// cancellation property of §5: an already-stopped Stopper fills every
// remaining result slot with ErrStopped instead of verifying.
func TestVerifyHeadersCancellation(t *testing.T) {
	accounts := newTesterAccountPool()
	signers := []common.Address{accounts.address("A")}
	engine, store := newTestEngine(t, 0, signers)
	genesis, _ := store.GetHeaderByNumber(0)

	mk := func(number int64, parent common.Hash) *types.Header {
		h := &types.Header{
			Number:     big.NewInt(number),
			ParentHash: parent,
			Extra:      make([]byte, ExtraVanity+ExtraSeal),
			Difficulty: big.NewInt(int64(diffInTurn)),
			Nonce:      nonceDropVote,
		}
		accounts.sign(h, "A")
		return h
	}
	h1 := mk(1, genesis.Hash())
	h2 := mk(2, h1.Hash())
	h3 := mk(3, h2.Hash())

	stop := NewStopper()
	stop.Stop()

	results := engine.VerifyHeaders([]*types.Header{h1, h2, h3}, stop)
	for i, err := range results {
		if err != ErrStopped {
			t.Fatalf("header %d: expected ErrStopped, got %v", i, err)
		}
	}
}
