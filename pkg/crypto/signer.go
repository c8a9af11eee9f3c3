// Package crypto provides the signing primitives the moderator uses: an
// ed25519 signer for change-event envelopes and HKDF purpose-key derivation
// so every collaborator secret comes from one master secret.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer signs raw bytes and exposes its verification key. The interface
// allows swapping the in-memory backend for an HSM or cloud KMS.
type Signer interface {
	Sign(data []byte) ([]byte, error)
	PublicKey() ed25519.PublicKey
	KeyID() string
}

// Ed25519Signer is the in-memory Signer implementation.
type Ed25519Signer struct {
	priv  ed25519.PrivateKey
	pub   ed25519.PublicKey
	keyID string
}

// NewSigner generates a fresh keypair.
func NewSigner() (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	return &Ed25519Signer{priv: priv, pub: pub, keyID: keyIDFor(pub)}, nil
}

// NewSignerFromSeed builds a deterministic signer from a 32-byte seed.
func NewSignerFromSeed(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Signer{
		priv:  priv,
		pub:   priv.Public().(ed25519.PublicKey),
		keyID: keyIDFor(priv.Public().(ed25519.PublicKey)),
	}, nil
}

func (s *Ed25519Signer) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, data), nil
}

func (s *Ed25519Signer) PublicKey() ed25519.PublicKey { return s.pub }

// KeyID is derived from the public key, so the same key always announces
// under the same id.
func (s *Ed25519Signer) KeyID() string { return s.keyID }

func keyIDFor(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return "ed25519:" + hex.EncodeToString(sum[:8])
}

// Verify checks sig over data against pub.
func Verify(pub ed25519.PublicKey, data, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, data, sig)
}
