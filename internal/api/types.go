package api

// SendRequest is the body of POST /api/mail/v4/messages/{id}.
type SendRequest struct {
	Packages    []Package          `json:"Packages"`
	ExpiresIn   int64              `json:"ExpiresIn,omitempty"`
	Attachments []AttachmentUpload `json:"Attachments,omitempty"`
}

// Package is one top package: a body encrypted once and the recipients
// sharing it.
type Package struct {
	MIMEType       string                    `json:"MIMEType"`
	Type           int                       `json:"Type"`
	Body           string                    `json:"Body"`
	BodyKey        *SessionKey               `json:"BodyKey,omitempty"`
	AttachmentKeys map[string]SessionKey     `json:"AttachmentKeys,omitempty"`
	Signature      string                    `json:"Signature,omitempty"`
	PasswordSalt   string                    `json:"PasswordSalt,omitempty"`
	Addresses      map[string]AddressPackage `json:"Addresses"`
}

// AddressPackage is one recipient's entry in a Package.
type AddressPackage struct {
	Type int `json:"Type"`
	// Signature is 1 when the package signature applies to this recipient.
	Signature            int               `json:"Signature"`
	BodyKeyPacket        string            `json:"BodyKeyPacket,omitempty"`
	AttachmentKeyPackets map[string]string `json:"AttachmentKeyPackets,omitempty"`
	PasswordHint         string            `json:"PasswordHint,omitempty"`
}

// SessionKey is a session key handed to the server for cleartext delivery.
type SessionKey struct {
	Key       string `json:"Key"`
	Algorithm string `json:"Algorithm"`
}

// AttachmentUpload carries an attachment's single encrypted data packet.
type AttachmentUpload struct {
	ID         string `json:"ID"`
	Filename   string `json:"Filename"`
	MIMEType   string `json:"MIMEType"`
	ContentID  string `json:"ContentID,omitempty"`
	DataPacket string `json:"DataPacket"`
}

// SendResponse is the response of a successful send.
type SendResponse struct {
	ID   string `json:"ID"`
	Sent int64  `json:"Sent"`
}

// Recipient types returned by the key directory.
const (
	RecipientTypeInternal = 1
	RecipientTypeExternal = 2
)

// Key flags returned by the key directory.
const (
	KeyFlagVerify  = 1
	KeyFlagEncrypt = 2
)

// KeysResponse is the response of GET /api/core/v4/keys.
type KeysResponse struct {
	RecipientType int        `json:"RecipientType"`
	Keys          []KeyEntry `json:"Keys"`
}

// KeyEntry is one public key of an address.
type KeyEntry struct {
	ID        string `json:"ID"`
	Flags     int    `json:"Flags"`
	Primary   int    `json:"Primary"`
	PublicKey string `json:"PublicKey"`
}

// CanEncrypt reports whether the key may be used to wrap session keys.
func (k KeyEntry) CanEncrypt() bool {
	return k.Flags&KeyFlagEncrypt != 0
}
