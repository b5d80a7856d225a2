package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	secret := []byte("test secret key for derivation")

	tests := []struct {
		name   string
		salt   []byte
		info   []byte
		length int
	}{
		{"basic 32 bytes", make([]byte, 32), []byte("info"), 32},
		{"empty salt", nil, []byte("info"), 32},
		{"empty info", make([]byte, 32), nil, 32},
		{"64 byte key", make([]byte, 32), []byte("info"), 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(secret, tt.salt, tt.info, tt.length)
			if err != nil {
				t.Fatalf("DeriveKey() error = %v", err)
			}
			if len(key) != tt.length {
				t.Errorf("key length = %d, want %d", len(key), tt.length)
			}
		})
	}
}

func TestDeriveKey_ExceedsMaxLength(t *testing.T) {
	// HKDF-SHA-512 can produce at most 255 * 64 = 16320 bytes
	if _, err := DeriveKey([]byte("s"), []byte("salt"), []byte("info"), 16321); err == nil {
		t.Error("expected error when requesting more than HKDF max output")
	}
}

func TestDeriveKeyPacketKey_BoundToCiphertext(t *testing.T) {
	shared := bytes.Repeat([]byte{7}, MLKEMSharedKeySize)

	a, err := deriveKeyPacketKey(shared, []byte("ct-a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := deriveKeyPacketKey(shared, []byte("ct-b"))
	if err != nil {
		t.Fatal(err)
	}
	again, err := deriveKeyPacketKey(shared, []byte("ct-a"))
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(a, b) {
		t.Error("keys for different KEM ciphertexts are equal")
	}
	if !bytes.Equal(a, again) {
		t.Error("derivation is not deterministic")
	}
}
