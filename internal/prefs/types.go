package prefs

import (
	"fmt"
	"strings"
)

// Scheme is the resolved encryption relationship with one recipient.
type Scheme int

const (
	// SchemeCleartext delivers the body without recipient-side decryption.
	SchemeCleartext Scheme = iota
	// SchemeInternal encrypts to a same-provider public key.
	SchemeInternal
	// SchemeExternalPGP encrypts to an external public key.
	SchemeExternalPGP
	// SchemePassword encrypts under a key derived from the message password.
	SchemePassword
)

func (s Scheme) String() string {
	switch s {
	case SchemeCleartext:
		return "cleartext"
	case SchemeInternal:
		return "internal"
	case SchemeExternalPGP:
		return "external-pgp"
	case SchemePassword:
		return "password"
	}
	return fmt.Sprintf("scheme(%d)", int(s))
}

// Asymmetric reports whether the body key is wrapped to recipient public keys.
func (s Scheme) Asymmetric() bool {
	return s == SchemeInternal || s == SchemeExternalPGP
}

// Wrapped reports whether the recipient receives a body key packet.
func (s Scheme) Wrapped() bool {
	return s.Asymmetric() || s == SchemePassword
}

// MIMEType is the content type of one body representation.
type MIMEType string

const (
	MIMEPlain MIMEType = "text/plain"
	MIMEHTML  MIMEType = "text/html"
	MIMEMixed MIMEType = "multipart/mixed"
)

// ParseMIMEType accepts the three body types, ignoring parameters and case.
func ParseMIMEType(s string) (MIMEType, error) {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(s, ";", 2)[0]))
	switch MIMEType(base) {
	case MIMEPlain, MIMEHTML, MIMEMixed:
		return MIMEType(base), nil
	}
	return "", fmt.Errorf("unsupported MIME type %q", s)
}

// PGPScheme is the external packaging a contact asks for.
type PGPScheme int

const (
	// PGPMIME wraps the whole message, attachments included, in one MIME tree.
	PGPMIME PGPScheme = iota
	// PGPInline encrypts a plaintext body with attachments kept separate.
	PGPInline
)

func (p PGPScheme) String() string {
	if p == PGPInline {
		return "pgp-inline"
	}
	return "pgp-mime"
}

// ParsePGPScheme parses "pgp-mime" or "pgp-inline"; empty means PGPMIME.
func ParsePGPScheme(s string) (PGPScheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pgp-mime":
		return PGPMIME, nil
	case "pgp-inline":
		return PGPInline, nil
	}
	return PGPMIME, fmt.Errorf("unsupported PGP scheme %q", s)
}

// PublicKey is one recipient encryption key (ML-KEM-768).
type PublicKey struct {
	ID   string
	Data []byte
}

// FailureType classifies why an address cannot be delivered as requested.
type FailureType int

const (
	// FailureLookup means the preference source returned an error.
	FailureLookup FailureType = iota
	// FailureInvalidKeys means keys were found but are not usable.
	FailureInvalidKeys
	// FailureNoKeys means an internal address has no active key.
	FailureNoKeys
)

func (t FailureType) String() string {
	switch t {
	case FailureLookup:
		return "lookup"
	case FailureInvalidKeys:
		return "invalid-keys"
	case FailureNoKeys:
		return "no-keys"
	}
	return fmt.Sprintf("failure(%d)", int(t))
}

// Failure explains why an address cannot be delivered encrypted.
type Failure struct {
	Type FailureType
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Type, f.Err)
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// SendPreference is the resolved delivery decision for one address.
type SendPreference struct {
	Scheme     Scheme
	MIMEType   MIMEType
	PGPScheme  PGPScheme
	Sign       bool
	PublicKeys []PublicKey
	Failure    *Failure
}

// PrimaryKey returns the key session keys are wrapped to, if any.
func (p SendPreference) PrimaryKey() (PublicKey, bool) {
	if len(p.PublicKeys) == 0 {
		return PublicKey{}, false
	}
	return p.PublicKeys[0], true
}
