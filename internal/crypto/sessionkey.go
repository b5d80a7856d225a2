package crypto

import (
	"fmt"
	"strings"
)

// Algorithm names a symmetric cipher used with a session key.
type Algorithm string

const (
	// AlgorithmAES256GCM is AES-256 in GCM mode with a random 96-bit nonce.
	AlgorithmAES256GCM Algorithm = "aes256-gcm"
	// AlgorithmSecretBox is NaCl secretbox (XSalsa20-Poly1305).
	AlgorithmSecretBox Algorithm = "xsalsa20-poly1305"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = AlgorithmAES256GCM

// algorithm identifiers inside a key packet payload
const (
	algIDAES256GCM byte = 1
	algIDSecretBox byte = 2
)

// ParseAlgorithm parses an algorithm name, case-insensitively.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", AlgorithmAES256GCM:
		return AlgorithmAES256GCM, nil
	case AlgorithmSecretBox:
		return AlgorithmSecretBox, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAlgorithm, name)
}

func (a Algorithm) id() (byte, error) {
	switch a {
	case AlgorithmAES256GCM:
		return algIDAES256GCM, nil
	case AlgorithmSecretBox:
		return algIDSecretBox, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAlgorithm, string(a))
}

func algorithmFromID(id byte) (Algorithm, error) {
	switch id {
	case algIDAES256GCM:
		return AlgorithmAES256GCM, nil
	case algIDSecretBox:
		return AlgorithmSecretBox, nil
	}
	return "", fmt.Errorf("%w: id %d", ErrInvalidAlgorithm, id)
}

// SessionKey is a single-use symmetric key together with its algorithm.
type SessionKey struct {
	Key       []byte
	Algorithm Algorithm
}

// GenerateSessionKey creates a fresh random session key.
func GenerateSessionKey(alg Algorithm) (*SessionKey, error) {
	if _, err := alg.id(); err != nil {
		return nil, err
	}

	key := make([]byte, SessionKeySize)
	if err := readRandom(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}

	return &SessionKey{Key: key, Algorithm: alg}, nil
}

// Encrypt encrypts plaintext under the session key. Every call draws a new
// random nonce, which is prepended to the returned ciphertext.
func (k *SessionKey) Encrypt(plaintext []byte) ([]byte, error) {
	switch k.Algorithm {
	case AlgorithmAES256GCM:
		nonce := make([]byte, AESNonceSize)
		if err := readRandom(nonce); err != nil {
			return nil, err
		}
		return sealAESGCM(k.Key, nonce, nil, plaintext)
	case AlgorithmSecretBox:
		return sealSecretBox(k.Key, plaintext)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidAlgorithm, string(k.Algorithm))
}

// Decrypt decrypts ciphertext produced by Encrypt.
func (k *SessionKey) Decrypt(ciphertext []byte) ([]byte, error) {
	switch k.Algorithm {
	case AlgorithmAES256GCM:
		return openAESGCM(k.Key, nil, ciphertext)
	case AlgorithmSecretBox:
		return openSecretBox(k.Key, ciphertext)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidAlgorithm, string(k.Algorithm))
}

// marshal encodes the session key as algorithm id || key.
func (k *SessionKey) marshal() ([]byte, error) {
	id, err := k.Algorithm.id()
	if err != nil {
		return nil, err
	}
	if len(k.Key) != SessionKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(k.Key), SessionKeySize)
	}

	out := make([]byte, 0, 1+len(k.Key))
	out = append(out, id)
	return append(out, k.Key...), nil
}

func unmarshalSessionKey(data []byte) (*SessionKey, error) {
	if len(data) != 1+SessionKeySize {
		return nil, fmt.Errorf("%w: session key payload has %d bytes", ErrInvalidKeyPacket, len(data))
	}

	alg, err := algorithmFromID(data[0])
	if err != nil {
		return nil, err
	}

	key := make([]byte, SessionKeySize)
	copy(key, data[1:])
	return &SessionKey{Key: key, Algorithm: alg}, nil
}
