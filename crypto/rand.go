package crypto

import (
	crand "crypto/rand"

	"github.com/GoldenBitsSoftware/authlib-linux/errs"
)

// NewNonce fills a fresh NonceSize-byte buffer from the process
// CSPRNG. A predictable nonce source would let a passive observer
// precompute valid responses, so this deliberately never falls back
// to a weaker PRNG.
func NewNonce() ([]byte, error) {
	n := make([]byte, NonceSize)
	if _, err := crand.Read(n); err != nil {
		return nil, errs.PeerAuth.New(errs.Crypto, "failed to read random nonce: %v", err)
	}
	return n, nil
}
