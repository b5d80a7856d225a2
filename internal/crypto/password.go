package crypto

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// GeneratePasswordSalt returns a fresh random Argon2id salt.
func GeneratePasswordSalt() ([]byte, error) {
	salt := make([]byte, PasswordSaltSize)
	if err := readRandom(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DerivePasswordKey stretches a message password into a key-encryption key
// with Argon2id.
func DerivePasswordKey(password string, salt []byte) ([]byte, error) {
	if len(salt) != PasswordSaltSize {
		return nil, fmt.Errorf("%w: salt has %d bytes", ErrInvalidKeySize, len(salt))
	}
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, AESKeySize), nil
}

// WrapSessionKeyWithKey seals a session key under a symmetric key-encryption
// key, e.g. one returned by DerivePasswordKey.
// Packet layout: nonce (12 bytes) || sealed key || tag (16 bytes)
func WrapSessionKeyWithKey(sk *SessionKey, kek []byte) ([]byte, error) {
	payload, err := sk.marshal()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, AESNonceSize)
	if err := readRandom(nonce); err != nil {
		return nil, err
	}

	return sealAESGCM(kek, nonce, []byte(PasswordContext), payload)
}

// UnwrapSessionKeyWithKey reverses WrapSessionKeyWithKey.
func UnwrapSessionKeyWithKey(packet, kek []byte) (*SessionKey, error) {
	payload, err := openAESGCM(kek, []byte(PasswordContext), packet)
	if err != nil {
		return nil, err
	}
	return unmarshalSessionKey(payload)
}
