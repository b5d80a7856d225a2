package directory

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/vaultsandbox/outbound-go/internal/crypto"
	"github.com/vaultsandbox/outbound-go/internal/prefs"
)

// Contact holds the per-address overrides of the contact book.
type Contact struct {
	Email string `yaml:"email"`
	// Encrypt enables encryption to external keys. Unset means encrypt
	// whenever the directory publishes a key.
	Encrypt *bool `yaml:"encrypt,omitempty"`
	Sign    *bool `yaml:"sign,omitempty"`
	// Scheme is "pgp-mime" or "pgp-inline".
	Scheme string `yaml:"scheme,omitempty"`
	// MIMEType "text/plain" downgrades HTML messages for this contact.
	MIMEType string `yaml:"mime_type,omitempty"`
	// Keys are pinned public keys, base64url encoded.
	Keys []string `yaml:"keys,omitempty"`
}

// Book is the contact book keyed by lowercase address.
type Book struct {
	contacts map[string]*Contact
}

type bookFile struct {
	Contacts []*Contact `yaml:"contacts"`
}

// NewBook builds a Book from contacts, validating every entry.
func NewBook(contacts ...*Contact) (*Book, error) {
	b := &Book{contacts: make(map[string]*Contact, len(contacts))}
	for _, c := range contacts {
		if err := c.validate(); err != nil {
			return nil, err
		}
		b.contacts[strings.ToLower(c.Email)] = c
	}
	return b, nil
}

// LoadBook reads a YAML contact book from fs.
func LoadBook(fs afero.Fs, path string) (*Book, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contact book: %w", err)
	}

	var f bookFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse contact book: %w", err)
	}
	return NewBook(f.Contacts...)
}

// Contact returns the entry for address, if any.
func (b *Book) Contact(address string) (*Contact, bool) {
	if b == nil {
		return nil, false
	}
	c, ok := b.contacts[strings.ToLower(address)]
	return c, ok
}

// Len returns the number of contacts.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.contacts)
}

func (c *Contact) validate() error {
	if c.Email == "" {
		return fmt.Errorf("contact without email")
	}
	if _, err := prefs.ParsePGPScheme(c.Scheme); err != nil {
		return fmt.Errorf("contact %s: %w", c.Email, err)
	}
	if c.MIMEType != "" {
		if _, err := prefs.ParseMIMEType(c.MIMEType); err != nil {
			return fmt.Errorf("contact %s: %w", c.Email, err)
		}
	}
	return nil
}

func (c *Contact) pgpScheme() prefs.PGPScheme {
	s, _ := prefs.ParsePGPScheme(c.Scheme)
	return s
}

func (c *Contact) mimeOverride() prefs.MIMEType {
	if c.MIMEType == "" {
		return ""
	}
	m, _ := prefs.ParseMIMEType(c.MIMEType)
	return m
}

// pinnedKeys decodes the pinned keys. Undecodable entries are reported.
func (c *Contact) pinnedKeys() ([]prefs.PublicKey, error) {
	out := make([]prefs.PublicKey, 0, len(c.Keys))
	for i, k := range c.Keys {
		data, err := crypto.FromBase64URL(k)
		if err != nil {
			return nil, fmt.Errorf("pinned key %d: %w", i, err)
		}
		if err := crypto.ValidatePublicKey(data); err != nil {
			return nil, fmt.Errorf("pinned key %d: %w", i, err)
		}
		out = append(out, prefs.PublicKey{ID: fmt.Sprintf("pinned-%d", i), Data: data})
	}
	return out, nil
}
