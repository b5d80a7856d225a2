package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives a key using HKDF-SHA-512.
//
// Parameters:
//   - secret: the input key material (e.g., shared secret from KEM)
//   - salt: optional salt value; if empty, a zero-filled salt is used
//   - info: context/application-specific info for domain separation
//   - length: desired output key length in bytes
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	if len(salt) == 0 {
		salt = make([]byte, sha512.Size)
	}

	reader := hkdf.New(sha512.New, secret, salt, info)
	key := make([]byte, length)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return key, nil
}

// deriveKeyPacketKey derives the AES key that seals a session key inside a
// key packet.
//
//   - IKM: the KEM shared secret
//   - Salt: SHA-256 of the KEM ciphertext
//   - Info: context || suite length (4 bytes BE) || suite
func deriveKeyPacketKey(sharedSecret, ctKem []byte) ([]byte, error) {
	salt := sha256.Sum256(ctKem)

	suite := []byte(AlgsCiphersuite)
	suiteLength := make([]byte, 4)
	binary.BigEndian.PutUint32(suiteLength, uint32(len(suite)))

	info := make([]byte, 0, len(KeyPacketContext)+4+len(suite))
	info = append(info, KeyPacketContext...)
	info = append(info, suiteLength...)
	info = append(info, suite...)

	return DeriveKey(sharedSecret, salt[:], info, AESKeySize)
}
