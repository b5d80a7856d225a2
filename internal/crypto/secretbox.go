package crypto

import (
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// sealSecretBox encrypts with XSalsa20-Poly1305 and returns nonce || box.
func sealSecretBox(key, plaintext []byte) ([]byte, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), SessionKeySize)
	}

	var k [32]byte
	copy(k[:], key)

	var nonce [SecretBoxNonceSize]byte
	if err := readRandom(nonce[:]); err != nil {
		return nil, err
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &k), nil
}

func openSecretBox(key, sealed []byte) ([]byte, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), SessionKeySize)
	}
	if len(sealed) < SecretBoxNonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	var k [32]byte
	copy(k[:], key)

	var nonce [SecretBoxNonceSize]byte
	copy(nonce[:], sealed[:SecretBoxNonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[SecretBoxNonceSize:], &nonce, &k)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
