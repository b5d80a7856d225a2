package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"", AlgorithmAES256GCM, false},
		{"aes256-gcm", AlgorithmAES256GCM, false},
		{" AES256-GCM ", AlgorithmAES256GCM, false},
		{"xsalsa20-poly1305", AlgorithmSecretBox, false},
		{"des", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAlgorithm) {
					t.Errorf("expected ErrInvalidAlgorithm, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAlgorithm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSessionKey_RoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmAES256GCM, AlgorithmSecretBox} {
		t.Run(string(alg), func(t *testing.T) {
			sk, err := GenerateSessionKey(alg)
			if err != nil {
				t.Fatalf("GenerateSessionKey() error = %v", err)
			}
			if len(sk.Key) != SessionKeySize {
				t.Errorf("key size = %d, want %d", len(sk.Key), SessionKeySize)
			}

			plaintext := []byte("test")
			ciphertext, err := sk.Encrypt(plaintext)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if bytes.Contains(ciphertext, plaintext) {
				t.Error("ciphertext contains the plaintext")
			}

			decrypted, err := sk.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted, plaintext) {
				t.Errorf("Decrypt() = %q, want %q", decrypted, plaintext)
			}
		})
	}
}

func TestSessionKey_FreshNoncePerEncryption(t *testing.T) {
	sk, err := GenerateSessionKey(AlgorithmAES256GCM)
	if err != nil {
		t.Fatal(err)
	}

	a, err := sk.Encrypt([]byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := sk.Encrypt([]byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("two encryptions produced identical ciphertext")
	}
}

func TestSessionKey_WrongAlgorithm(t *testing.T) {
	sk, err := GenerateSessionKey(AlgorithmSecretBox)
	if err != nil {
		t.Fatal(err)
	}
	ciphertext, err := sk.Encrypt([]byte("body"))
	if err != nil {
		t.Fatal(err)
	}

	other := &SessionKey{Key: sk.Key, Algorithm: AlgorithmAES256GCM}
	if _, err := other.Decrypt(ciphertext); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestGenerateSessionKey_InvalidAlgorithm(t *testing.T) {
	if _, err := GenerateSessionKey("rot13"); !errors.Is(err, ErrInvalidAlgorithm) {
		t.Errorf("expected ErrInvalidAlgorithm, got %v", err)
	}
}

func TestGenerateSessionKey_RandFailure(t *testing.T) {
	restore := SetRandReaderForTesting(bytes.NewReader(nil))
	defer restore()

	if _, err := GenerateSessionKey(AlgorithmAES256GCM); err == nil {
		t.Error("expected error when the random source is exhausted")
	}
}
