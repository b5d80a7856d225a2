package crypto

import (
	"fmt"
	"sort"
	"time"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
)

// SigningKey is one of a sender address's ML-DSA-65 signing keys.
type SigningKey struct {
	// ID identifies the key; used as the last tiebreak when selecting.
	ID string `json:"id"`
	// PublicKey is the raw ML-DSA-65 public key.
	PublicKey []byte `json:"public_key"`
	// PrivateKey is the raw ML-DSA-65 private key.
	PrivateKey []byte `json:"private_key"`
	// Priority orders keys of one address; lower is preferred.
	Priority int `json:"priority"`
	// CreatedAt breaks ties between keys of equal priority; older wins.
	CreatedAt time.Time `json:"created_at"`
	// Active is false for keys that must no longer sign.
	Active bool `json:"active"`
}

// GenerateSigningKey creates a new active ML-DSA-65 signing key.
func GenerateSigningKey(id string) (*SigningKey, error) {
	pub, priv, err := mldsa65.GenerateKey(randReader)
	if err != nil {
		return nil, err
	}

	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, err
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return &SigningKey{
		ID:         id,
		PublicKey:  pubBytes,
		PrivateKey: privBytes,
		CreatedAt:  time.Now().UTC(),
		Active:     true,
	}, nil
}

// Sign produces a detached ML-DSA-65 signature over message.
func (k *SigningKey) Sign(message []byte) ([]byte, error) {
	var priv mldsa65.PrivateKey
	if err := priv.UnmarshalBinary(k.PrivateKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSigningKey, err)
	}

	sig := make([]byte, mldsa65.SignatureSize)
	if err := mldsa65.SignTo(&priv, message, nil, false, sig); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// usable reports whether the key may produce signatures.
func (k *SigningKey) usable() bool {
	return k != nil && k.Active && len(k.PrivateKey) > 0
}

// SelectSigningKey picks exactly one signing key out of an address's keys:
// the usable key with the lowest priority, then the oldest, then the
// smallest ID. The input slice is not modified.
func SelectSigningKey(keys []*SigningKey) (*SigningKey, error) {
	candidates := make([]*SigningKey, 0, len(keys))
	for _, k := range keys {
		if k.usable() {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoSigningKey
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return candidates[0], nil
}

// Verify verifies an ML-DSA-65 signature (low-level function).
func Verify(publicKey, message, signature []byte) error {
	pk := &mldsa65.PublicKey{}
	if err := pk.UnmarshalBinary(publicKey); err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	if !mldsa65.Verify(pk, message, nil, signature) {
		return ErrSignatureVerificationFailed
	}

	return nil
}
