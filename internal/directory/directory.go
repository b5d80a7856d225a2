// Package directory answers preference lookups by combining the public key
// directory of the mail API with the local contact book.
package directory

import (
	"bytes"
	"context"
	"errors"

	"github.com/vaultsandbox/outbound-go/internal/api"
	"github.com/vaultsandbox/outbound-go/internal/apierrors"
	"github.com/vaultsandbox/outbound-go/internal/crypto"
	"github.com/vaultsandbox/outbound-go/internal/log"
	"github.com/vaultsandbox/outbound-go/internal/prefs"
)

var (
	// ErrNoUsableKeys is reported when an address publishes keys but none
	// can be used for encryption.
	ErrNoUsableKeys = errors.New("no usable encryption key")
	// ErrPinnedKeyMismatch is reported when none of a contact's pinned keys
	// matches the keys the directory publishes.
	ErrPinnedKeyMismatch = errors.New("pinned keys do not match published keys")
)

// KeyDirectory returns the published public keys of an address.
type KeyDirectory interface {
	GetPublicKeys(ctx context.Context, email string) (*api.KeysResponse, error)
}

// Directory implements prefs.Lookup.
type Directory struct {
	keys KeyDirectory
	book *Book
}

// New creates a Directory. book may be nil.
func New(keys KeyDirectory, book *Book) *Directory {
	return &Directory{keys: keys, book: book}
}

// EncryptionPreferences resolves what is known about address.
func (d *Directory) EncryptionPreferences(ctx context.Context, address string) (*prefs.EncryptionPreferences, error) {
	resp, err := d.keys.GetPublicKeys(ctx, address)
	if errors.Is(err, apierrors.ErrAddressNotFound) {
		resp, err = &api.KeysResponse{RecipientType: api.RecipientTypeExternal}, nil
	}
	if err != nil {
		return nil, err
	}

	published, invalid := publishedKeys(resp)
	if invalid > 0 {
		log.Debug(ctx).Str("address", address).Int("invalid", invalid).Msg("skipped unusable published keys")
	}

	ep := &prefs.EncryptionPreferences{
		IsInternal: resp.RecipientType == api.RecipientTypeInternal,
		PublicKeys: published,
	}
	if len(published) == 0 && invalid > 0 {
		ep.Err = ErrNoUsableKeys
	}

	contact, ok := d.book.Contact(address)
	if !ok {
		ep.Encrypt = !ep.IsInternal && len(published) > 0
		return ep, nil
	}

	ep.PGPScheme = contact.pgpScheme()
	ep.MIMEType = contact.mimeOverride()
	if contact.Sign != nil {
		ep.Sign = *contact.Sign
	}

	pinned, err := contact.pinnedKeys()
	if err != nil {
		ep.Err = err
		return ep, nil
	}

	switch {
	case ep.IsInternal && len(pinned) > 0:
		trusted := intersect(published, pinned)
		if len(trusted) == 0 {
			ep.Err = ErrPinnedKeyMismatch
		}
		ep.PublicKeys = trusted
	case !ep.IsInternal && len(pinned) > 0:
		// Pinned keys take precedence over keys discovered for external
		// addresses.
		ep.PublicKeys = pinned
	}

	if contact.Encrypt != nil {
		ep.Encrypt = *contact.Encrypt
	} else {
		ep.Encrypt = !ep.IsInternal && len(ep.PublicKeys) > 0
	}
	return ep, nil
}

// publishedKeys returns the decodable encryption keys, primary first, and
// the number of keys that were skipped.
func publishedKeys(resp *api.KeysResponse) ([]prefs.PublicKey, int) {
	var (
		primary, rest []prefs.PublicKey
		invalid       int
	)
	for _, k := range resp.Keys {
		if !k.CanEncrypt() {
			invalid++
			continue
		}
		data, err := crypto.FromBase64URL(k.PublicKey)
		if err != nil || crypto.ValidatePublicKey(data) != nil {
			invalid++
			continue
		}
		pk := prefs.PublicKey{ID: k.ID, Data: data}
		if k.Primary == 1 {
			primary = append(primary, pk)
		} else {
			rest = append(rest, pk)
		}
	}
	return append(primary, rest...), invalid
}

// intersect keeps the keys of published that are pinned, in published order.
func intersect(published, pinned []prefs.PublicKey) []prefs.PublicKey {
	var out []prefs.PublicKey
	for _, p := range published {
		for _, q := range pinned {
			if bytes.Equal(p.Data, q.Data) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
