package packages

import (
	"fmt"

	"github.com/vaultsandbox/outbound-go/internal/crypto"
	"github.com/vaultsandbox/outbound-go/internal/prefs"
	"github.com/vaultsandbox/outbound-go/internal/render"
)

// Context is the key-derivation context of a package's session key.
type Context int

const (
	// ContextDefault session keys are wrapped to public keys or exposed to
	// the server for cleartext delivery.
	ContextDefault Context = iota
	// ContextPassword session keys are wrapped under a password-derived key.
	ContextPassword
)

func (c Context) String() string {
	if c == ContextPassword {
		return "password"
	}
	return "default"
}

// ContextFor returns the key-derivation context a scheme requires.
func ContextFor(s prefs.Scheme) Context {
	if s == prefs.SchemePassword {
		return ContextPassword
	}
	return ContextDefault
}

// Key identifies one top package.
type Key struct {
	MIMEType prefs.MIMEType
	Context  Context
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.MIMEType, k.Context)
}

func (k Key) less(o Key) bool {
	if k.MIMEType != o.MIMEType {
		return k.MIMEType < o.MIMEType
	}
	return k.Context < o.Context
}

// Type is the package type bitmask carried on the wire.
type Type int

const (
	TypeInternal      Type = 1
	TypePassword      Type = 2
	TypeCleartext     Type = 4
	TypePGPInline     Type = 8
	TypePGPMIME       Type = 16
	TypeCleartextMIME Type = 32
)

// TypeFor returns the wire type of an address resolved to pref and served a
// representation of MIME type mime.
func TypeFor(pref prefs.SendPreference, mime prefs.MIMEType) Type {
	switch pref.Scheme {
	case prefs.SchemeInternal:
		return TypeInternal
	case prefs.SchemePassword:
		return TypePassword
	case prefs.SchemeExternalPGP:
		if pref.PGPScheme == prefs.PGPInline {
			return TypePGPInline
		}
		return TypePGPMIME
	}
	if pref.Sign && mime == prefs.MIMEMixed {
		return TypeCleartextMIME
	}
	return TypeCleartext
}

// AddressPackage is the entry of one recipient inside a top package.
type AddressPackage struct {
	Address string
	Scheme  prefs.Scheme
	Type    Type
	Sign    bool
	// PublicKey is the wrap target of asymmetric schemes.
	PublicKey prefs.PublicKey
	// PasswordHint is set for password recipients.
	PasswordHint string

	// BodyKeyPacket is the wrapped body session key, filled by the
	// encryption engine. It stays empty for cleartext recipients.
	BodyKeyPacket []byte
	// AttachmentKeyPackets maps attachment ID to its wrapped session key.
	AttachmentKeyPackets map[string][]byte
}

// NeedsWrap reports whether the recipient receives key packets.
func (a *AddressPackage) NeedsWrap() bool {
	return a.Scheme.Wrapped()
}

// TopPackage is one representation of the body shared by all recipients with
// the same Key.
type TopPackage struct {
	Key            Key
	Representation render.Representation
	Addresses      map[string]*AddressPackage

	// Filled by the encryption engine.
	Body           []byte
	BodyKey        *crypto.SessionKey
	AttachmentKeys map[string]*crypto.SessionKey
	Signature      []byte
	PasswordSalt   []byte
}

// Type returns the union of the address package types.
func (p *TopPackage) Type() Type {
	var t Type
	for _, a := range p.Addresses {
		t |= a.Type
	}
	return t
}

// Sign reports whether any recipient of the package asked for a signature.
func (p *TopPackage) Sign() bool {
	for _, a := range p.Addresses {
		if a.Sign {
			return true
		}
	}
	return false
}

// HasCleartext reports whether any recipient reads the body without a key packet.
func (p *TopPackage) HasCleartext() bool {
	for _, a := range p.Addresses {
		if !a.NeedsWrap() {
			return true
		}
	}
	return false
}

// SortedAddresses returns the recipient addresses in sorted order.
func (p *TopPackage) SortedAddresses() []string {
	return sortedKeys(p.Addresses)
}
