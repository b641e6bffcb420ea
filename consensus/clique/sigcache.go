package clique

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"
)

// sigCache recovers and memoizes the signer address of a sealed header,
// keyed by the full header hash (§3 "Signature cache", §4.1). Safe to
// share between a verifier and a sealer: misses are idempotent, so a
// single writer at a time is sufficient (§5 shared-resource policy).
type sigCache struct {
	cache *lru.ARCCache
}

func newSigCache(size int) *sigCache {
	c, err := lru.NewARC(size)
	if err != nil {
		// Only possible with a non-positive size, which is a caller
		// programming error, not a runtime condition to recover from.
		panic(err)
	}
	return &sigCache{cache: c}
}

// ecrecover recovers the address of the account that signed header,
// using the seal hash and the trailing 65-byte signature carried in
// extra-data, and memoizes the result. The cache key is the full
// header hash rather than the seal hash: the header hash commits to the
// signature bytes too, so a cached address is only ever returned for
// the exact signature it was recovered from.
func (c *sigCache) ecrecover(header *types.Header) (common.Address, error) {
	hash := header.Hash()
	if addr, ok := c.cache.Get(hash); ok {
		return addr.(common.Address), nil
	}

	if len(header.Extra) < ExtraSeal {
		return common.Address{}, ErrMissingSignature
	}
	signature := header.Extra[len(header.Extra)-ExtraSeal:]

	pubkey, err := crypto.Ecrecover(SealHash(header).Bytes(), signature)
	if err != nil {
		return common.Address{}, ErrPublicKeyDerivation
	}
	var signer common.Address
	copy(signer[:], crypto.Keccak256(pubkey[1:])[12:])

	c.cache.Add(hash, signer)
	return signer, nil
}

// SealHash returns the hash of a header prior to it being sealed: the
// Keccak256 of the RLP encoding of the header with the trailing
// 65-byte signature stripped from extra-data (§6 "Seal hash").
func SealHash(header *types.Header) (hash common.Hash) {
	hasher := crypto.NewKeccakState()
	encodeSigHeader(hasher, header)
	hasher.Read(hash[:])
	return hash
}

func encodeSigHeader(w interface{ Write([]byte) (int, error) }, header *types.Header) {
	enc := []interface{}{
		header.ParentHash,
		header.UncleHash,
		header.Coinbase,
		header.Root,
		header.TxHash,
		header.ReceiptHash,
		header.Bloom,
		header.Difficulty,
		header.Number,
		header.GasLimit,
		header.GasUsed,
		header.Time,
		header.Extra[:len(header.Extra)-ExtraSeal],
		header.MixDigest,
		header.Nonce,
	}
	if header.BaseFee != nil {
		enc = append(enc, header.BaseFee)
	}
	if err := rlp.Encode(w, enc); err != nil {
		panic("clique: unable to encode header for sealing: " + err.Error())
	}
}
