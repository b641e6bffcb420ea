// Copyright 2019 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package clique

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TestSealHash checks that SealHash is deterministic and sensitive to
// every field it's supposed to cover, including the 65-byte signature
// suffix being stripped from extra-data before hashing.
func TestSealHash(t *testing.T) {
	base := &types.Header{
		Difficulty: new(big.Int),
		Number:     new(big.Int),
		Extra:      make([]byte, ExtraVanity+ExtraSeal),
		BaseFee:    new(big.Int),
	}
	h1 := SealHash(base)
	h2 := SealHash(base)
	if h1 != h2 {
		t.Fatalf("SealHash is not deterministic: %x != %x", h1, h2)
	}

	withSig := types.CopyHeader(base)
	copy(withSig.Extra[len(withSig.Extra)-ExtraSeal:], []byte{1, 2, 3})
	if SealHash(withSig) != h1 {
		t.Fatalf("SealHash must be invariant to the signature suffix")
	}

	withDiff := types.CopyHeader(base)
	withDiff.Difficulty = big.NewInt(int64(diffInTurn))
	if SealHash(withDiff) == h1 {
		t.Fatalf("SealHash must depend on difficulty")
	}
}

// TestGenesisBootstrap is boundary scenario 1 of the spec.
func TestGenesisBootstrap(t *testing.T) {
	accounts := newTesterAccountPool()
	a, b, c := accounts.address("A"), accounts.address("B"), accounts.address("C")
	signers := []common.Address{a, b, c}
	sortAddresses(signers)

	engine, store := newTestEngine(t, 0, signers)
	genesis, _ := store.GetHeaderByNumber(0)

	snap, err := engine.snapshotAt(genesis, nil)
	if err != nil {
		t.Fatalf("resolving genesis snapshot: %v", err)
	}
	if snap.Number != 0 {
		t.Fatalf("genesis snapshot number: have %d, want 0", snap.Number)
	}
	if got, want := snap.Ballot.threshold(), 2; got != want {
		t.Fatalf("threshold: have %d, want %d", got, want)
	}
	if len(snap.Ballot.Tallies) != 0 {
		t.Fatalf("genesis snapshot must have no open tallies")
	}
	if len(snap.Recents) != 0 {
		t.Fatalf("genesis snapshot must have no recents")
	}
	if !snap.inTurn(1, signers[1]) {
		t.Fatalf("signer 1 should be in-turn for block 1")
	}
	if snap.inTurn(1, signers[0]) || snap.inTurn(1, signers[2]) {
		t.Fatalf("only signer 1 should be in-turn for block 1")
	}
}

// TestRemoveSigner is boundary scenario 5 of the spec: three distinct
// signers proposing DROP on a target crosses threshold, evicts it, and
// purges any of its outstanding votes cast on other targets.
func TestRemoveSigner(t *testing.T) {
	accounts := newTesterAccountPool()
	names := []string{"A", "B", "C", "D"}
	signers := make([]common.Address, len(names))
	for i, n := range names {
		signers[i] = accounts.address(n)
	}
	sortAddresses(signers)

	engine, store := newTestEngine(t, 0, signers)
	genesis, _ := store.GetHeaderByNumber(0)

	mk := func(number int64, parent common.Hash, signer string, coinbase common.Address, authorize bool) *types.Header {
		h := &types.Header{
			Number:     big.NewInt(number),
			ParentHash: parent,
			Coinbase:   coinbase,
			Extra:      make([]byte, ExtraVanity+ExtraSeal),
			Difficulty: big.NewInt(int64(diffNoTurn)),
			Nonce:      nonceDropVote,
		}
		if authorize {
			h.Nonce = nonceAuthVote
		}
		accounts.sign(h, signer)
		return h
	}

	d := accounts.address("D")
	// D casts a vote of its own on C first, so we can observe it get
	// purged once D itself is dropped. Threshold over 4 signers is 3,
	// so dropping D takes three DROP votes from the other signers.
	h1 := mk(1, genesis.Hash(), "D", accounts.address("C"), false)
	h2 := mk(2, h1.Hash(), "A", d, false)
	h3 := mk(3, h2.Hash(), "B", d, false)
	h4 := mk(4, h3.Hash(), "C", d, false)

	snap, err := engine.snapshotAt(h4, []*types.Header{h1, h2, h3})
	if err != nil {
		t.Fatalf("resolving snapshot: %v", err)
	}
	if snap.isSigner(d) {
		t.Fatalf("D should have been dropped")
	}
	if !snap.Ballot.lastRemoved {
		t.Fatalf("lastRemoved should be true after D's removal")
	}
	if _, open := snap.Ballot.Tallies[accounts.address("C")]; open {
		t.Fatalf("D's vote on C should have been purged")
	}
}
