package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Purpose labels for derived keys. Each collaborator secret is derived from
// the one master secret under its own label, so rotating the master rotates
// everything at once.
const (
	PurposeAnnounce = "announce-signing"
	PurposeWebhook  = "webhook-hmac"
	PurposeAdminJWT = "admin-jwt"
)

const kdfSalt = "gauntlet-kdf-v1"

// MinMasterSecretLen is the shortest master secret accepted for derivation.
const MinMasterSecretLen = 16

// DeriveKey derives n bytes of key material for purpose from the master
// secret using HKDF-SHA256.
func DeriveKey(master []byte, purpose string, n int) ([]byte, error) {
	if len(master) < MinMasterSecretLen {
		return nil, fmt.Errorf("master secret must be at least %d bytes, got %d", MinMasterSecretLen, len(master))
	}
	if purpose == "" {
		return nil, fmt.Errorf("purpose must not be empty")
	}
	if n < 1 {
		return nil, fmt.Errorf("key length must be positive, got %d", n)
	}

	r := hkdf.New(sha256.New, master, []byte(kdfSalt), []byte(purpose))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("hkdf derivation failed: %w", err)
	}
	return out, nil
}

// DeriveSigner derives a deterministic ed25519 signer for purpose. The same
// master secret and purpose always yield the same keypair, so verifiers can
// pin the public key out of band.
func DeriveSigner(master []byte, purpose string) (*Ed25519Signer, error) {
	seed, err := DeriveKey(master, purpose, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	return NewSignerFromSeed(seed)
}
