package render

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/emersion/go-message"

	"github.com/vaultsandbox/outbound-go/internal/prefs"
)

var (
	// ErrHTMLUnavailable is returned when HTML is required from a plaintext document.
	ErrHTMLUnavailable = errors.New("html representation requested for a plaintext document")
)

// Document is the authored message body.
type Document struct {
	MIMEType prefs.MIMEType
	Body     string
}

// Attachment is one file of the message.
type Attachment struct {
	ID        string
	Name      string
	MIMEType  string
	ContentID string
	Data      []byte
}

// Inline reports whether the attachment is referenced from the body.
func (a Attachment) Inline() bool {
	return a.ContentID != ""
}

// Representation is one rendering of the body.
type Representation struct {
	// MIMEType is the content type of Body.
	MIMEType prefs.MIMEType
	// BodyType is the authored part type inside a multipart body, otherwise
	// equal to MIMEType.
	BodyType prefs.MIMEType
	Body     []byte
	// Detached lists attachments that travel as separate encrypted parts.
	// It is empty for multipart bodies, which carry their attachments inline.
	Detached []Attachment
}

// Selection maps each requested MIME type to the representation serving it.
type Selection map[prefs.MIMEType]Representation

// For returns the representation serving the requested MIME type.
func (s Selection) For(requested prefs.MIMEType) (Representation, bool) {
	r, ok := s[requested]
	return r, ok
}

// Select builds one representation per required MIME type. HTML with
// attachments is promoted to multipart/mixed. Plaintext representations never
// inline attachments.
func Select(doc Document, attachments []Attachment, required []prefs.MIMEType) (Selection, error) {
	sel := make(Selection, len(required))

	for _, m := range required {
		if _, ok := sel[m]; ok {
			continue
		}

		var (
			rep Representation
			err error
		)
		switch m {
		case prefs.MIMEPlain:
			rep, err = plainRepresentation(doc, attachments)
		case prefs.MIMEHTML:
			if doc.MIMEType != prefs.MIMEHTML {
				return nil, ErrHTMLUnavailable
			}
			if len(attachments) > 0 {
				rep, err = mixedRepresentation(doc, attachments)
			} else {
				rep = Representation{MIMEType: prefs.MIMEHTML, BodyType: prefs.MIMEHTML, Body: []byte(doc.Body)}
			}
		case prefs.MIMEMixed:
			rep, err = mixedRepresentation(doc, attachments)
		default:
			return nil, fmt.Errorf("unsupported MIME type %q", m)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", m, err)
		}
		sel[m] = rep
	}

	return sel, nil
}

func plainRepresentation(doc Document, attachments []Attachment) (Representation, error) {
	text, err := Plaintext(doc)
	if err != nil {
		return Representation{}, err
	}
	return Representation{
		MIMEType: prefs.MIMEPlain,
		BodyType: prefs.MIMEPlain,
		Body:     []byte(text),
		Detached: attachments,
	}, nil
}

func mixedRepresentation(doc Document, attachments []Attachment) (Representation, error) {
	bodyType := doc.MIMEType
	if bodyType != prefs.MIMEHTML {
		bodyType = prefs.MIMEPlain
	}

	body, err := Multipart(bodyType, doc.Body, attachments)
	if err != nil {
		return Representation{}, err
	}
	return Representation{MIMEType: prefs.MIMEMixed, BodyType: bodyType, Body: body}, nil
}

// Multipart writes a multipart/mixed entity with one body part followed by one
// part per attachment. The boundary is derived from the content.
func Multipart(bodyType prefs.MIMEType, body string, attachments []Attachment) ([]byte, error) {
	var h message.Header
	h.Set("MIME-Version", "1.0")
	h.SetContentType(string(prefs.MIMEMixed), map[string]string{"boundary": boundary(bodyType, body, attachments)})

	var buf bytes.Buffer
	mw, err := message.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	var bh message.Header
	bh.SetContentType(string(bodyType), map[string]string{"charset": "utf-8"})
	bh.Set("Content-Transfer-Encoding", "quoted-printable")
	if err := writePart(mw, bh, []byte(body)); err != nil {
		return nil, err
	}

	for _, a := range attachments {
		var ah message.Header
		ct := a.MIMEType
		if ct == "" {
			ct = "application/octet-stream"
		}
		ah.SetContentType(ct, map[string]string{"name": a.Name})
		ah.Set("Content-Transfer-Encoding", "base64")
		if a.Inline() {
			ah.SetContentDisposition("inline", map[string]string{"filename": a.Name})
			ah.Set("Content-ID", "<"+a.ContentID+">")
		} else {
			ah.SetContentDisposition("attachment", map[string]string{"filename": a.Name})
		}
		if err := writePart(mw, ah, a.Data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePart(mw *message.Writer, h message.Header, data []byte) error {
	pw, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(pw, bytes.NewReader(data)); err != nil {
		return err
	}
	return pw.Close()
}

func boundary(bodyType prefs.MIMEType, body string, attachments []Attachment) string {
	h := sha256.New()
	io.WriteString(h, string(bodyType))
	h.Write([]byte{0})
	io.WriteString(h, body)
	for _, a := range attachments {
		h.Write([]byte{0})
		io.WriteString(h, a.ID)
		h.Write([]byte{0})
		io.WriteString(h, a.Name)
		h.Write([]byte{0})
		h.Write(a.Data)
	}
	return "outbound-" + hex.EncodeToString(h.Sum(nil)[:16])
}
