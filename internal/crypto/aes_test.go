package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"testing"
)

func TestEncryptAES_DecryptAES_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"simple", []byte("hello world")},
		{"html", []byte(`<p>hello <b>world</b></p>`)},
		{"binary", []byte{0x00, 0xff, 0x7f, 0x80}},
		{"large", make([]byte, 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := make([]byte, AESKeySize)
			if _, err := rand.Read(key); err != nil {
				t.Fatal(err)
			}

			nonce := make([]byte, AESNonceSize)
			if _, err := rand.Read(nonce); err != nil {
				t.Fatal(err)
			}

			ciphertext, err := EncryptAES(key, tt.plaintext, nonce)
			if err != nil {
				t.Fatalf("EncryptAES() error = %v", err)
			}

			// Ciphertext should be nonce + ciphertext + tag
			expectedLen := AESNonceSize + len(tt.plaintext) + AESTagSize
			if len(ciphertext) != expectedLen {
				t.Errorf("ciphertext length = %d, want %d", len(ciphertext), expectedLen)
			}

			if !bytes.Equal(ciphertext[:AESNonceSize], nonce) {
				t.Error("ciphertext doesn't start with nonce")
			}

			decrypted, err := DecryptAES(key, ciphertext)
			if err != nil {
				t.Fatalf("DecryptAES() error = %v", err)
			}

			if !bytes.Equal(decrypted, tt.plaintext) {
				t.Errorf("decrypted = %v, want %v", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncryptAES_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"empty", 0},
		{"too short", 16},
		{"too long", 64},
	}

	nonce := make([]byte, AESNonceSize)
	plaintext := []byte("test")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := make([]byte, tt.keySize)
			_, err := EncryptAES(key, plaintext, nonce)
			if !errors.Is(err, ErrInvalidKeySize) {
				t.Errorf("expected ErrInvalidKeySize, got %v", err)
			}
		})
	}
}

func TestEncryptAES_InvalidNonceSize(t *testing.T) {
	key := make([]byte, AESKeySize)

	for _, size := range []int{0, 8, 16} {
		t.Run(fmt.Sprintf("nonce %d", size), func(t *testing.T) {
			_, err := EncryptAES(key, []byte("test"), make([]byte, size))
			if !errors.Is(err, ErrInvalidNonceSize) {
				t.Errorf("expected ErrInvalidNonceSize, got %v", err)
			}
		})
	}
}

func TestDecryptAES_CiphertextTooShort(t *testing.T) {
	key := make([]byte, AESKeySize)

	tests := []struct {
		name   string
		length int
	}{
		{"empty", 0},
		{"only nonce", AESNonceSize},
		{"nonce plus partial tag", AESNonceSize + AESTagSize - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecryptAES(key, make([]byte, tt.length))
			if !errors.Is(err, ErrDecryptionFailed) {
				t.Errorf("expected ErrDecryptionFailed, got %v", err)
			}
		})
	}
}

func TestDecryptAES_TamperedCiphertext(t *testing.T) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	nonce := make([]byte, AESNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		t.Fatal(err)
	}

	ciphertext, err := EncryptAES(key, []byte("sensitive data"), nonce)
	if err != nil {
		t.Fatal(err)
	}

	// Flip a bit in the middle
	ciphertext[len(ciphertext)/2] ^= 0xff

	_, err = DecryptAES(key, ciphertext)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestSealAESGCM_AADMismatch(t *testing.T) {
	key := make([]byte, AESKeySize)
	nonce := make([]byte, AESNonceSize)

	sealed, err := sealAESGCM(key, nonce, []byte("context-a"), []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := openAESGCM(key, []byte("context-b"), sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}

	plaintext, err := openAESGCM(key, []byte("context-a"), sealed)
	if err != nil {
		t.Fatalf("openAESGCM() error = %v", err)
	}
	if string(plaintext) != "secret" {
		t.Errorf("plaintext = %q, want %q", plaintext, "secret")
	}
}

func BenchmarkEncryptAES(b *testing.B) {
	key := make([]byte, AESKeySize)
	nonce := make([]byte, AESNonceSize)
	plaintext := make([]byte, 1000)

	rand.Read(key)
	rand.Read(nonce)
	rand.Read(plaintext)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = EncryptAES(key, plaintext, nonce)
	}
}

// Example_encryptDecrypt demonstrates encrypting and decrypting data with AES-256-GCM.
func Example_encryptDecrypt() {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}

	// IMPORTANT: Never reuse a nonce with the same key.
	nonce := make([]byte, AESNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		panic(err)
	}

	ciphertext, err := EncryptAES(key, []byte("Hello, World!"), nonce)
	if err != nil {
		panic(err)
	}

	decrypted, err := DecryptAES(key, ciphertext)
	if err != nil {
		panic(err)
	}

	fmt.Println(string(decrypted))
	// Output: Hello, World!
}
