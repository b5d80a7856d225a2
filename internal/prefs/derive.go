package prefs

import (
	"errors"
)

var (
	errNoInternalKeys = errors.New("internal address has no active public key")
)

// EncryptionPreferences is what the external preference source knows about
// one address: capability, discovered keys and contact-level overrides.
type EncryptionPreferences struct {
	// IsInternal is true for same-provider addresses.
	IsInternal bool
	// PublicKeys are the usable keys, primary first.
	PublicKeys []PublicKey
	// Encrypt is the contact's request to encrypt to an external key.
	Encrypt bool
	// Sign is the contact's request to sign.
	Sign bool
	// PGPScheme is the contact's external packaging choice.
	PGPScheme PGPScheme
	// MIMEType, when MIMEPlain, forces a plaintext downgrade.
	MIMEType MIMEType
	// Err reports keys that exist but cannot be used (pinned key mismatch,
	// expired key, ...).
	Err error
}

// MessageContext carries the message-wide inputs of resolution.
type MessageContext struct {
	// MIMEType is the authored body format (MIMEPlain or MIMEHTML).
	MIMEType MIMEType
	// Password enables password-protected delivery to recipients without keys.
	Password string
	// SignExternal is the sender setting to sign messages to external recipients.
	SignExternal bool
}

// bodyMIMEType applies the contact downgrade to the authored format.
func bodyMIMEType(ep *EncryptionPreferences, mc MessageContext) MIMEType {
	if ep.MIMEType == MIMEPlain || mc.MIMEType != MIMEHTML {
		return MIMEPlain
	}
	return MIMEHTML
}

// SendPreferenceFor derives the send preference of one address. It is a pure
// function of its inputs.
func SendPreferenceFor(ep *EncryptionPreferences, mc MessageContext) SendPreference {
	if ep == nil {
		ep = &EncryptionPreferences{}
	}

	mime := bodyMIMEType(ep, mc)

	if ep.Err != nil {
		return SendPreference{
			MIMEType: mime,
			Failure:  &Failure{Type: FailureInvalidKeys, Err: ep.Err},
		}
	}

	switch {
	case ep.IsInternal:
		if len(ep.PublicKeys) == 0 {
			return SendPreference{
				MIMEType: mime,
				Failure:  &Failure{Type: FailureNoKeys, Err: errNoInternalKeys},
			}
		}
		return SendPreference{
			Scheme:     SchemeInternal,
			MIMEType:   mime,
			Sign:       true,
			PublicKeys: ep.PublicKeys,
		}

	case ep.Encrypt && len(ep.PublicKeys) > 0:
		pref := SendPreference{
			Scheme:     SchemeExternalPGP,
			PGPScheme:  ep.PGPScheme,
			Sign:       ep.Sign || mc.SignExternal,
			PublicKeys: ep.PublicKeys,
		}
		if ep.PGPScheme == PGPInline {
			pref.MIMEType = MIMEPlain
		} else {
			pref.MIMEType = MIMEMixed
		}
		return pref

	case mc.Password != "":
		return SendPreference{
			Scheme:   SchemePassword,
			MIMEType: mime,
		}
	}

	pref := SendPreference{
		Scheme:    SchemeCleartext,
		MIMEType:  mime,
		PGPScheme: ep.PGPScheme,
		Sign:      ep.Sign || mc.SignExternal,
	}
	if pref.Sign && ep.PGPScheme == PGPMIME {
		pref.MIMEType = MIMEMixed
	}
	return pref
}
