package clique

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ecdsaKey pairs a private key with its derived address, used by the
// tester account pools across this package's tests.
type ecdsaKey struct {
	priv    *ecdsa.PrivateKey
	address common.Address
}

func newEcdsaKey() *ecdsaKey {
	priv, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return &ecdsaKey{priv: priv, address: crypto.PubkeyToAddress(priv.PublicKey)}
}
