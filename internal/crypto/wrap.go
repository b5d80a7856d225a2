package crypto

import (
	"fmt"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// WrapSessionKey produces a key packet addressed to one recipient public key.
//
// The wrapping process:
//  1. ML-KEM-768 encapsulation to the recipient public key
//  2. HKDF-SHA-512 derivation of a sealing key from the shared secret
//  3. AES-256-GCM sealing of the session key, with the KEM ciphertext as AAD
//
// Packet layout: ct_kem (1088 bytes) || nonce (12 bytes) || sealed key || tag (16 bytes)
func WrapSessionKey(sk *SessionKey, publicKey []byte) ([]byte, error) {
	payload, err := sk.marshal()
	if err != nil {
		return nil, err
	}

	if len(publicKey) != MLKEMPublicKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidPublicKeySize, len(publicKey), MLKEMPublicKeySize)
	}

	scheme := mlkem768.Scheme()
	pk, err := scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	ctKem, sharedSecret, err := scheme.Encapsulate(pk)
	if err != nil {
		return nil, fmt.Errorf("encapsulate: %w", err)
	}

	kek, err := deriveKeyPacketKey(sharedSecret, ctKem)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	nonce := make([]byte, AESNonceSize)
	if err := readRandom(nonce); err != nil {
		return nil, err
	}

	sealed, err := sealAESGCM(kek, nonce, ctKem, payload)
	if err != nil {
		return nil, fmt.Errorf("seal session key: %w", err)
	}

	packet := make([]byte, 0, len(ctKem)+len(sealed))
	packet = append(packet, ctKem...)
	return append(packet, sealed...), nil
}

// UnwrapSessionKey recovers the session key from a key packet using the
// recipient's keypair.
func UnwrapSessionKey(packet []byte, keypair *Keypair) (*SessionKey, error) {
	if len(packet) < MLKEMCiphertextSize+AESNonceSize+AESTagSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKeyPacket, len(packet))
	}

	ctKem := packet[:MLKEMCiphertextSize]
	sharedSecret, err := keypair.Decapsulate(ctKem)
	if err != nil {
		return nil, fmt.Errorf("decapsulate: %w", err)
	}

	kek, err := deriveKeyPacketKey(sharedSecret, ctKem)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	payload, err := openAESGCM(kek, ctKem, packet[MLKEMCiphertextSize:])
	if err != nil {
		return nil, fmt.Errorf("open key packet: %w", err)
	}

	return unmarshalSessionKey(payload)
}
