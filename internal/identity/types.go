// Identity wraps a node or operator keypair with signing utilities. The
// hex-encoded public key is the canonical address used across the ledger and
// the transaction engine.
package identity

import (
	"crypto/ed25519"

	"tokenledger.mini/tlm/internal/types"
)

// Identity represents a principal's cryptographic identity
type Identity struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	address    types.Address
}

// NewIdentity creates a new Identity from a private key
func NewIdentity(privKey ed25519.PrivateKey) *Identity {
	pubKey := privKey.Public().(ed25519.PublicKey)
	return &Identity{
		privateKey: privKey,
		publicKey:  pubKey,
		address:    AddressOf(pubKey),
	}
}

// Sign signs the provided message with the identity's private key
func (i *Identity) Sign(message []byte) []byte {
	return ed25519.Sign(i.privateKey, message)
}

// Verify verifies a signature against a message using the identity's public key
func (i *Identity) Verify(message, signature []byte) bool {
	return ed25519.Verify(i.publicKey, message, signature)
}

// PublicKey returns the raw public key
func (i *Identity) PublicKey() ed25519.PublicKey {
	return i.publicKey
}

// PrivateKey returns the raw private key
func (i *Identity) PrivateKey() ed25519.PrivateKey {
	return i.privateKey
}

// Address returns the hex-encoded public key string. This is the canonical
// principal identifier in the ledger.
func (i *Identity) Address() types.Address {
	return i.address
}
