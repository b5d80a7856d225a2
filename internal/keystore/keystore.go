// Package keystore keeps the sender's key material in the operating system
// keyring: the ML-DSA-65 signing keys of each sending address and the
// ML-KEM-768 keypair whose public half can be attached to outgoing mail.
package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"

	"github.com/vaultsandbox/outbound-go/internal/crypto"
)

const (
	// DefaultServiceName is the keyring service used when none is configured.
	DefaultServiceName = "outbound"

	signingPrefix    = "signing/"
	encryptionPrefix = "encryption/"
)

// ErrNotFound is returned when an address has no stored key of the
// requested kind.
var ErrNotFound = errors.New("no key stored for address")

// Config selects and configures the keyring backend.
type Config struct {
	ServiceName string
	// Backend restricts the keyring to one backend type ("file",
	// "secret-service", "keychain", ...). Empty tries the system backends.
	Backend string
	// FileDir enables the encrypted file backend in this directory.
	FileDir string
	// FilePassword unlocks the file backend.
	FilePassword string
}

// Store reads and writes sender keys.
type Store struct {
	ring keyring.Keyring
}

// Open opens the system keyring described by cfg.
func Open(cfg Config) (*Store, error) {
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	kc := keyring.Config{
		ServiceName: name,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
	}
	if cfg.Backend != "" {
		kc.AllowedBackends = []keyring.BackendType{keyring.BackendType(cfg.Backend)}
	}
	if cfg.FileDir != "" {
		if cfg.Backend == "" {
			kc.AllowedBackends = append(kc.AllowedBackends, keyring.FileBackend)
		}
		kc.FileDir = cfg.FileDir
		kc.FilePasswordFunc = keyring.FixedStringPrompt(cfg.FilePassword)
	}

	ring, err := keyring.Open(kc)
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

func itemKey(prefix, address string) string {
	return prefix + strings.ToLower(address)
}

func (s *Store) get(key string) ([]byte, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %q: %w", key, err)
	}
	return item.Data, nil
}

func (s *Store) set(key, label string, data []byte) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  data,
		Label: label,
	})
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// SigningKeys returns every signing key stored for address.
func (s *Store) SigningKeys(address string) ([]*crypto.SigningKey, error) {
	data, err := s.get(itemKey(signingPrefix, address))
	if err != nil {
		return nil, err
	}

	var keys []*crypto.SigningKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("decoding signing keys of %s: %w", address, err)
	}
	return keys, nil
}

// AddSigningKey appends key to the signing keys of address.
func (s *Store) AddSigningKey(address string, key *crypto.SigningKey) error {
	keys, err := s.SigningKeys(address)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	for _, k := range keys {
		if k.ID == key.ID {
			return fmt.Errorf("signing key %q already stored for %s", key.ID, address)
		}
	}

	data, err := json.Marshal(append(keys, key))
	if err != nil {
		return err
	}
	return s.set(itemKey(signingPrefix, address), "signing keys of "+address, data)
}

// SigningKey returns the one key address signs with. Implements the
// signing key source of the encryption engine.
func (s *Store) SigningKey(ctx context.Context, address string) (*crypto.SigningKey, error) {
	keys, err := s.SigningKeys(address)
	if errors.Is(err, ErrNotFound) {
		return nil, crypto.ErrNoSigningKey
	}
	if err != nil {
		return nil, err
	}
	return crypto.SelectSigningKey(keys)
}

// SetKeypair stores the encryption keypair of address.
func (s *Store) SetKeypair(address string, kp *crypto.Keypair) error {
	if !crypto.ValidateKeypair(kp) {
		return crypto.ErrInvalidSecretKeySize
	}
	return s.set(itemKey(encryptionPrefix, address), "encryption key of "+address, kp.SecretKey)
}

// Keypair returns the encryption keypair of address.
func (s *Store) Keypair(address string) (*crypto.Keypair, error) {
	data, err := s.get(itemKey(encryptionPrefix, address))
	if err != nil {
		return nil, err
	}
	return crypto.KeypairFromSecretKey(data)
}

// PublicKey returns the encryption public key of address.
func (s *Store) PublicKey(ctx context.Context, address string) ([]byte, error) {
	kp, err := s.Keypair(address)
	if err != nil {
		return nil, err
	}
	return kp.PublicKey, nil
}
