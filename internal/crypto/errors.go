package crypto

import "errors"

var (
	// ErrInvalidSecretKeySize is returned when the secret key size is invalid.
	ErrInvalidSecretKeySize = errors.New("invalid secret key size")

	// ErrInvalidPublicKeySize is returned when the public key size is invalid.
	ErrInvalidPublicKeySize = errors.New("invalid public key size")

	// ErrInvalidCiphertextSize is returned when the ciphertext size is invalid.
	ErrInvalidCiphertextSize = errors.New("invalid ciphertext size")

	// ErrSignatureVerificationFailed is returned when signature verification fails.
	ErrSignatureVerificationFailed = errors.New("signature verification failed")

	// ErrDecryptionFailed is returned when decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidKeySize is returned when a symmetric key size is invalid.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when the nonce size is invalid.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrInvalidAlgorithm is returned when an unrecognized or unsupported
	// symmetric algorithm is requested.
	ErrInvalidAlgorithm = errors.New("invalid algorithm")

	// ErrInvalidKeyPacket is returned when a key packet is truncated or malformed.
	ErrInvalidKeyPacket = errors.New("invalid key packet")

	// ErrNoSigningKey is returned when no active signing key is available.
	ErrNoSigningKey = errors.New("no usable signing key")

	// ErrInvalidSigningKey is returned when signing key material cannot be parsed.
	ErrInvalidSigningKey = errors.New("invalid signing key")
)
