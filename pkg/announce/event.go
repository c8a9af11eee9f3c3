// Package announce turns ruleset changes into signed events and delivers
// them to the channel, a Redis topic, or the log.
package announce

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
	"github.com/Mindburn-Labs/gauntlet/pkg/crypto"
)

// Event is one ruleset change, identified and content-addressed so consumers
// can deduplicate and audit.
type Event struct {
	ID          string    `json:"id"`
	At          time.Time `json:"at"`
	Reason      string    `json:"reason"`
	RuleIDs     []string  `json:"rule_ids"`
	Difficulty  int       `json:"difficulty"`
	Fingerprint string    `json:"fingerprint"`
}

// NewEvent builds the announcement for a change.
func NewEvent(change *controller.Change) Event {
	return Event{
		ID:          uuid.NewString(),
		At:          change.At.UTC(),
		Reason:      change.Reason,
		RuleIDs:     change.Set.IDs(),
		Difficulty:  change.Difficulty,
		Fingerprint: change.Fingerprint,
	}
}

// Envelope carries an event with its detached signature. The signature is
// over the RFC 8785 canonical form of the event, so any JSON reserialization
// along the way stays verifiable.
type Envelope struct {
	Event     Event  `json:"event"`
	Signature string `json:"signature"`
	KeyID     string `json:"key_id"`
}

func canonicalEventBytes(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("announce: encode event: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("announce: canonicalize event: %w", err)
	}
	return canonical, nil
}

// Seal signs ev and wraps it in an envelope.
func Seal(ev Event, signer crypto.Signer) (Envelope, error) {
	canonical, err := canonicalEventBytes(ev)
	if err != nil {
		return Envelope{}, err
	}
	sig, err := signer.Sign(canonical)
	if err != nil {
		return Envelope{}, fmt.Errorf("announce: sign event: %w", err)
	}
	return Envelope{
		Event:     ev,
		Signature: hex.EncodeToString(sig),
		KeyID:     signer.KeyID(),
	}, nil
}

// VerifyEnvelope checks the envelope signature against pub.
func VerifyEnvelope(env Envelope, pub ed25519.PublicKey) (bool, error) {
	canonical, err := canonicalEventBytes(env.Event)
	if err != nil {
		return false, err
	}
	sig, err := hex.DecodeString(env.Signature)
	if err != nil {
		return false, fmt.Errorf("announce: invalid signature hex: %w", err)
	}
	return crypto.Verify(pub, canonical, sig), nil
}
