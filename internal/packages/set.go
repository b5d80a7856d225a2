package packages

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vaultsandbox/outbound-go/internal/prefs"
	"github.com/vaultsandbox/outbound-go/internal/render"
)

var (
	// ErrUnresolved is returned when a preference still carries a failure.
	ErrUnresolved = errors.New("preferences contain unresolved failures")
	// ErrMissingRepresentation is returned when no representation serves a
	// required MIME type.
	ErrMissingRepresentation = errors.New("no representation for required MIME type")
)

// Set is the arena of top packages of one send attempt, indexed by Key.
type Set struct {
	packages map[Key]*TopPackage
}

// Len returns the number of top packages.
func (s *Set) Len() int {
	return len(s.packages)
}

// Get returns the package stored under k.
func (s *Set) Get(k Key) (*TopPackage, bool) {
	p, ok := s.packages[k]
	return p, ok
}

// Keys returns the package keys sorted by MIME type, then context.
func (s *Set) Keys() []Key {
	keys := make([]Key, 0, len(s.packages))
	for k := range s.packages {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// Packages returns the packages in Keys order.
func (s *Set) Packages() []*TopPackage {
	out := make([]*TopPackage, 0, len(s.packages))
	for _, k := range s.Keys() {
		out = append(out, s.packages[k])
	}
	return out
}

// Lookup returns the package serving address.
func (s *Set) Lookup(address string) (*TopPackage, bool) {
	for _, p := range s.packages {
		if _, ok := p.Addresses[address]; ok {
			return p, true
		}
	}
	return nil, false
}

// Remove drops address from its package. Packages left without recipients
// are removed.
func (s *Set) Remove(address string) {
	for k, p := range s.packages {
		if _, ok := p.Addresses[address]; !ok {
			continue
		}
		delete(p.Addresses, address)
		if len(p.Addresses) == 0 {
			delete(s.packages, k)
		}
	}
}

// Build creates one empty top package per distinct Key required by p. Every
// preference must be free of failures.
func Build(p prefs.Preferences, sel render.Selection) (*Set, error) {
	if failed := sortedKeys(p.Failures()); len(failed) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, strings.Join(failed, ", "))
	}

	set := &Set{packages: make(map[Key]*TopPackage)}
	for _, addr := range p.Addresses() {
		pref := p[addr]

		key, rep, err := keyFor(pref, sel)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", addr, err)
		}

		if existing, ok := set.packages[key]; ok {
			if !bytes.Equal(existing.Representation.Body, rep.Body) {
				return nil, fmt.Errorf("package %s: conflicting representations", key)
			}
			continue
		}

		set.packages[key] = &TopPackage{
			Key:            key,
			Representation: rep,
			Addresses:      make(map[string]*AddressPackage),
		}
	}

	return set, nil
}

// Attach inserts one address package per recipient into the package serving
// it. Cleartext recipients get an entry without key material; wrapped
// recipients get a skeleton awaiting the encryption engine.
func Attach(set *Set, p prefs.Preferences, sel render.Selection, passwordHint string) error {
	for _, addr := range p.Addresses() {
		pref := p[addr]

		key, _, err := keyFor(pref, sel)
		if err != nil {
			return fmt.Errorf("%s: %w", addr, err)
		}

		top, ok := set.packages[key]
		if !ok {
			return fmt.Errorf("%s: no package %s", addr, key)
		}

		ap := &AddressPackage{
			Address: addr,
			Scheme:  pref.Scheme,
			Type:    TypeFor(pref, key.MIMEType),
			Sign:    pref.Sign,
		}
		if pref.Scheme.Asymmetric() {
			pk, ok := pref.PrimaryKey()
			if !ok {
				return fmt.Errorf("%s: %s recipient has no public key", addr, pref.Scheme)
			}
			ap.PublicKey = pk
		}
		if pref.Scheme == prefs.SchemePassword {
			ap.PasswordHint = passwordHint
		}
		if ap.NeedsWrap() && len(top.Representation.Detached) > 0 {
			ap.AttachmentKeyPackets = make(map[string][]byte, len(top.Representation.Detached))
		}

		top.Addresses[addr] = ap
	}

	return nil
}

func keyFor(pref prefs.SendPreference, sel render.Selection) (Key, render.Representation, error) {
	rep, ok := sel.For(pref.MIMEType)
	if !ok {
		return Key{}, render.Representation{}, fmt.Errorf("%w: %s", ErrMissingRepresentation, pref.MIMEType)
	}
	return Key{MIMEType: rep.MIMEType, Context: ContextFor(pref.Scheme)}, rep, nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
