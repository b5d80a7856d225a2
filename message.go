package outbound

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

// Role is the header a recipient appears in.
type Role int

const (
	RoleTo Role = iota
	RoleCC
	RoleBCC
)

func (r Role) String() string {
	switch r {
	case RoleTo:
		return "to"
	case RoleCC:
		return "cc"
	case RoleBCC:
		return "bcc"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole parses "to", "cc" or "bcc".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "to":
		return RoleTo, nil
	case "cc":
		return RoleCC, nil
	case "bcc":
		return RoleBCC, nil
	}
	return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, s)
}

// Recipient is one address of the message.
type Recipient struct {
	Address string
	Role    Role
}

// Body formats.
const (
	FormatPlain = "text/plain"
	FormatHTML  = "text/html"
)

// Attachment is a file sent with the message.
type Attachment struct {
	// ID identifies the attachment in key packets. Generated when empty.
	ID       string
	Filename string
	MIMEType string
	// ContentID marks an inline attachment referenced from the HTML body.
	ContentID string
	Data      []byte
}

// Message is the composed message handed to Send.
type Message struct {
	// ID is the server-side draft the packages are sent for.
	ID         string
	From       string
	Recipients []Recipient
	// Format is FormatPlain or FormatHTML.
	Format      string
	Body        string
	Attachments []Attachment

	// Password enables password-protected delivery to recipients without keys.
	Password     string
	PasswordHint string
	// ExpiresIn makes the whole message expire after this duration. It is
	// sent in whole seconds, rounded up; zero means no expiration.
	ExpiresIn time.Duration
	// AttachPublicKey appends the sender's public key as an attachment.
	AttachPublicKey bool
}

func (m *Message) validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing message ID", ErrInvalidMessage)
	}
	if m.From == "" {
		return fmt.Errorf("%w: missing sender", ErrInvalidMessage)
	}
	switch m.Format {
	case "", FormatPlain, FormatHTML:
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidMessage, m.Format)
	}
	if m.ExpiresIn < 0 {
		return fmt.Errorf("%w: negative expiration", ErrInvalidMessage)
	}
	if m.ExpiresIn > 0 && m.ExpiresIn < time.Second {
		return fmt.Errorf("%w: expiration under one second", ErrInvalidMessage)
	}
	return nil
}

// normalizeAddress lowercases the address and converts its domain to
// its ASCII form, so that equivalent spellings compare equal.
func normalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return "", fmt.Errorf("%w: malformed address %q", ErrInvalidMessage, addr)
	}
	domain, err := idna.Lookup.ToASCII(addr[at+1:])
	if err != nil {
		return "", fmt.Errorf("%w: malformed domain in %q: %v", ErrInvalidMessage, addr, err)
	}
	return strings.ToLower(addr[:at]) + "@" + strings.ToLower(domain), nil
}

// uniqueRecipients drops repeated addresses. The first occurrence, and its
// role, wins.
func uniqueRecipients(recipients []Recipient) ([]Recipient, error) {
	seen := make(map[string]bool, len(recipients))
	out := make([]Recipient, 0, len(recipients))
	for _, r := range recipients {
		addr, err := normalizeAddress(r.Address)
		if err != nil {
			return nil, err
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, Recipient{Address: addr, Role: r.Role})
	}
	return out, nil
}
