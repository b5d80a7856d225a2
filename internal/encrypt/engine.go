package encrypt

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vaultsandbox/outbound-go/internal/crypto"
	"github.com/vaultsandbox/outbound-go/internal/log"
	"github.com/vaultsandbox/outbound-go/internal/packages"
	"github.com/vaultsandbox/outbound-go/internal/render"
)

// DefaultConcurrency is the number of packages encrypted at once.
const DefaultConcurrency = 4

// SigningKeySource returns the single key an address signs with.
type SigningKeySource interface {
	SigningKey(ctx context.Context, address string) (*crypto.SigningKey, error)
}

// Engine encrypts a package set.
type Engine struct {
	// Algorithm is the symmetric cipher of every session key.
	Algorithm crypto.Algorithm
	// Concurrency bounds how many packages are processed at once.
	Concurrency int
}

// Input is everything one encryption run needs.
type Input struct {
	Sender   string
	Packages *packages.Set
	Signer   SigningKeySource
	Password string
}

// EncryptedAttachment is an attachment encrypted once for the attempt.
type EncryptedAttachment struct {
	ID         string
	Name       string
	MIMEType   string
	ContentID  string
	DataPacket []byte
	Key        *crypto.SessionKey
}

// Result is the outcome of a successful run.
type Result struct {
	// Attachments are the encrypted attachments referenced by the packages
	// left after wrap failures, sorted by ID.
	Attachments []*EncryptedAttachment
	// Failures holds one WrapError per recipient removed from delivery.
	Failures map[string]*WrapError
}

// Encrypt fills every package of in.Packages with its ciphertext, signature
// and key packets. Recipients whose key cannot be wrapped are removed from
// their package and reported in Result.Failures. Any other failure is fatal
// and returned as *Error.
func (e *Engine) Encrypt(ctx context.Context, in Input) (*Result, error) {
	alg := e.Algorithm
	if alg == "" {
		alg = crypto.DefaultAlgorithm
	}
	limit := e.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	run := &run{
		alg:         alg,
		in:          in,
		attachments: make(map[string]*attachmentSlot),
		failures:    make(map[string]*WrapError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, p := range in.Packages.Packages() {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return run.encryptPackage(gctx, p)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(run.failures))
	for addr := range run.failures {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		in.Packages.Remove(addr)
	}

	return &Result{
		Attachments: run.encryptedAttachments(),
		Failures:    run.failures,
	}, nil
}

type attachmentSlot struct {
	once sync.Once
	enc  *EncryptedAttachment
	err  error
}

// run holds the state shared by the packages of one Encrypt call.
type run struct {
	alg crypto.Algorithm
	in  Input

	signOnce sync.Once
	signKey  *crypto.SigningKey
	signErr  error

	mu          sync.Mutex
	attachments map[string]*attachmentSlot
	failures    map[string]*WrapError
}

func (r *run) encryptPackage(ctx context.Context, p *packages.TopPackage) error {
	sk, err := crypto.GenerateSessionKey(r.alg)
	if err != nil {
		return &Error{Stage: StageSessionKey, Err: err}
	}

	body, err := sk.Encrypt(p.Representation.Body)
	if err != nil {
		return &Error{Stage: StageBody, Err: err}
	}
	p.Body = body

	if p.Sign() {
		sig, err := r.sign(ctx, p.Representation.Body)
		if err != nil {
			return &Error{Stage: StageSign, Err: err}
		}
		p.Signature = sig
	}

	attKeys := make(map[string]*crypto.SessionKey, len(p.Representation.Detached))
	for _, a := range p.Representation.Detached {
		enc, err := r.attachment(a)
		if err != nil {
			return &Error{Stage: StageAttachment, Err: err}
		}
		attKeys[a.ID] = enc.Key
	}

	if p.HasCleartext() {
		p.BodyKey = sk
		if len(attKeys) > 0 {
			p.AttachmentKeys = attKeys
		}
	}

	wrap, err := r.wrapper(p)
	if err != nil {
		return err
	}

	for _, addr := range p.SortedAddresses() {
		ap := p.Addresses[addr]
		if !ap.NeedsWrap() {
			continue
		}
		if err := wrapAddress(ap, sk, attKeys, wrap); err != nil {
			werr := &WrapError{Address: addr, Err: err}
			log.Warn(log.WithAddress(ctx, addr)).Err(err).Msg("excluding recipient after wrap failure")
			r.mu.Lock()
			r.failures[addr] = werr
			r.mu.Unlock()
		}
	}

	log.Debug(ctx).
		Str("package", p.Key.String()).
		Int("recipients", len(p.Addresses)).
		Bool("signed", p.Signature != nil).
		Msg("package encrypted")
	return nil
}

type wrapFunc func(sk *crypto.SessionKey, ap *packages.AddressPackage) ([]byte, error)

// wrapper returns the key wrapping of the package's key-derivation context.
func (r *run) wrapper(p *packages.TopPackage) (wrapFunc, error) {
	if p.Key.Context != packages.ContextPassword {
		return func(sk *crypto.SessionKey, ap *packages.AddressPackage) ([]byte, error) {
			return crypto.WrapSessionKey(sk, ap.PublicKey.Data)
		}, nil
	}

	if r.in.Password == "" {
		return nil, &Error{Stage: StagePassword, Err: ErrNoPassword}
	}
	salt, err := crypto.GeneratePasswordSalt()
	if err != nil {
		return nil, &Error{Stage: StagePassword, Err: err}
	}
	kek, err := crypto.DerivePasswordKey(r.in.Password, salt)
	if err != nil {
		return nil, &Error{Stage: StagePassword, Err: err}
	}
	p.PasswordSalt = salt

	return func(sk *crypto.SessionKey, _ *packages.AddressPackage) ([]byte, error) {
		return crypto.WrapSessionKeyWithKey(sk, kek)
	}, nil
}

func wrapAddress(ap *packages.AddressPackage, body *crypto.SessionKey, attKeys map[string]*crypto.SessionKey, wrap wrapFunc) error {
	packet, err := wrap(body, ap)
	if err != nil {
		return err
	}

	var attPackets map[string][]byte
	if len(attKeys) > 0 {
		attPackets = make(map[string][]byte, len(attKeys))
		for id, k := range attKeys {
			pkt, err := wrap(k, ap)
			if err != nil {
				return err
			}
			attPackets[id] = pkt
		}
	}

	ap.BodyKeyPacket = packet
	ap.AttachmentKeyPackets = attPackets
	return nil
}

// sign produces a signature with the sender's single selected key. The key
// is fetched once per run.
func (r *run) sign(ctx context.Context, message []byte) ([]byte, error) {
	r.signOnce.Do(func() {
		if r.in.Signer == nil {
			r.signErr = ErrNoSigner
			return
		}
		r.signKey, r.signErr = r.in.Signer.SigningKey(ctx, r.in.Sender)
	})
	if r.signErr != nil {
		return nil, r.signErr
	}
	return r.signKey.Sign(message)
}

// attachment encrypts a once per run, however many packages carry it.
func (r *run) attachment(a render.Attachment) (*EncryptedAttachment, error) {
	r.mu.Lock()
	slot, ok := r.attachments[a.ID]
	if !ok {
		slot = &attachmentSlot{}
		r.attachments[a.ID] = slot
	}
	r.mu.Unlock()

	slot.once.Do(func() {
		sk, err := crypto.GenerateSessionKey(r.alg)
		if err != nil {
			slot.err = err
			return
		}
		data, err := sk.Encrypt(a.Data)
		if err != nil {
			slot.err = err
			return
		}
		slot.enc = &EncryptedAttachment{
			ID:         a.ID,
			Name:       a.Name,
			MIMEType:   a.MIMEType,
			ContentID:  a.ContentID,
			DataPacket: data,
			Key:        sk,
		}
	})
	return slot.enc, slot.err
}

func (r *run) encryptedAttachments() []*EncryptedAttachment {
	used := make(map[string]bool, len(r.attachments))
	for _, p := range r.in.Packages.Packages() {
		for _, a := range p.Representation.Detached {
			used[a.ID] = true
		}
	}

	out := make([]*EncryptedAttachment, 0, len(used))
	for _, slot := range r.attachments {
		if slot.enc != nil && used[slot.enc.ID] {
			out = append(out, slot.enc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
