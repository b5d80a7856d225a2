package outbound

import (
	"time"

	"github.com/vaultsandbox/outbound-go/internal/api"
	"github.com/vaultsandbox/outbound-go/internal/crypto"
	"github.com/vaultsandbox/outbound-go/internal/encrypt"
	"github.com/vaultsandbox/outbound-go/internal/packages"
)

// buildRequest serializes an encrypted package set. Packages are emitted in
// key order so equal inputs produce equal requests.
func buildRequest(set *packages.Set, res *encrypt.Result, expiresIn time.Duration) *api.SendRequest {
	req := &api.SendRequest{
		Packages:  make([]api.Package, 0, set.Len()),
		ExpiresIn: int64((expiresIn + time.Second - 1) / time.Second),
	}

	for _, k := range set.Keys() {
		p, _ := set.Get(k)
		req.Packages = append(req.Packages, toPackage(p))
	}

	for _, a := range res.Attachments {
		req.Attachments = append(req.Attachments, api.AttachmentUpload{
			ID:         a.ID,
			Filename:   a.Name,
			MIMEType:   a.MIMEType,
			ContentID:  a.ContentID,
			DataPacket: crypto.ToBase64(a.DataPacket),
		})
	}

	return req
}

func toPackage(p *packages.TopPackage) api.Package {
	out := api.Package{
		MIMEType:  string(p.Key.MIMEType),
		Type:      int(p.Type()),
		Body:      crypto.ToBase64(p.Body),
		Addresses: make(map[string]api.AddressPackage, len(p.Addresses)),
	}
	if p.BodyKey != nil {
		sk := toSessionKey(p.BodyKey)
		out.BodyKey = &sk
	}
	if len(p.AttachmentKeys) > 0 {
		out.AttachmentKeys = make(map[string]api.SessionKey, len(p.AttachmentKeys))
		for id, k := range p.AttachmentKeys {
			out.AttachmentKeys[id] = toSessionKey(k)
		}
	}
	if p.Signature != nil {
		out.Signature = crypto.ToBase64(p.Signature)
	}
	if p.PasswordSalt != nil {
		out.PasswordSalt = crypto.ToBase64(p.PasswordSalt)
	}

	for addr, ap := range p.Addresses {
		entry := api.AddressPackage{
			Type:         int(ap.Type),
			PasswordHint: ap.PasswordHint,
		}
		if ap.Sign && p.Signature != nil {
			entry.Signature = 1
		}
		if ap.BodyKeyPacket != nil {
			entry.BodyKeyPacket = crypto.ToBase64(ap.BodyKeyPacket)
		}
		if len(ap.AttachmentKeyPackets) > 0 {
			entry.AttachmentKeyPackets = make(map[string]string, len(ap.AttachmentKeyPackets))
			for id, pkt := range ap.AttachmentKeyPackets {
				entry.AttachmentKeyPackets[id] = crypto.ToBase64(pkt)
			}
		}
		out.Addresses[addr] = entry
	}

	return out
}

func toSessionKey(k *crypto.SessionKey) api.SessionKey {
	return api.SessionKey{
		Key:       crypto.ToBase64(k.Key),
		Algorithm: string(k.Algorithm),
	}
}
