package outbound

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaultsandbox/outbound-go/internal/api"
	"github.com/vaultsandbox/outbound-go/internal/crypto"
	"github.com/vaultsandbox/outbound-go/internal/directory"
	"github.com/vaultsandbox/outbound-go/internal/encrypt"
	"github.com/vaultsandbox/outbound-go/internal/keystore"
	"github.com/vaultsandbox/outbound-go/internal/log"
	"github.com/vaultsandbox/outbound-go/internal/packages"
	"github.com/vaultsandbox/outbound-go/internal/prefs"
	"github.com/vaultsandbox/outbound-go/internal/render"
)

// transport submits a serialized package set.
type transport interface {
	SendMessage(ctx context.Context, messageID string, req *api.SendRequest) (*api.SendResponse, error)
}

// keySource holds the sender's own keys.
type keySource interface {
	encrypt.SigningKeySource
	PublicKey(ctx context.Context, address string) ([]byte, error)
}

// Sender encrypts messages and submits them.
type Sender struct {
	cfg       *senderConfig
	resolver  *prefs.Resolver
	engine    *encrypt.Engine
	keys      keySource
	transport transport
	logger    zerolog.Logger
}

// New creates a Sender that looks up recipient keys and submits messages
// through the mail API, and signs with keys from the configured keyring.
func New(apiKey string, opts ...Option) (*Sender, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger, err := cfg.logger()
	if err != nil {
		return nil, err
	}

	apiOpts := []api.Option{
		api.WithBaseURL(cfg.baseURL),
		api.WithRetries(cfg.apiRetries),
		api.WithRetryDelay(cfg.retryDelay),
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	client, err := api.New(apiKey, apiOpts...)
	if err != nil {
		return nil, err
	}

	store, err := keystore.Open(cfg.keyring)
	if err != nil {
		return nil, err
	}

	var book *directory.Book
	if cfg.contacts != "" {
		book, err = directory.LoadBook(cfg.fs, cfg.contacts)
		if err != nil {
			return nil, err
		}
	}

	return newSender(cfg, logger, directory.New(client, book), store, client)
}

func newSender(cfg *senderConfig, logger zerolog.Logger, lookup prefs.Lookup, keys keySource, t transport) (*Sender, error) {
	alg, err := crypto.ParseAlgorithm(cfg.algorithm)
	if err != nil {
		return nil, err
	}

	var ropts []prefs.ResolverOption
	if cfg.lookupTimeout > 0 {
		ropts = append(ropts, prefs.WithTimeout(cfg.lookupTimeout))
	}
	if cfg.resolveConcurrency > 0 {
		ropts = append(ropts, prefs.WithConcurrency(cfg.resolveConcurrency))
	}

	return &Sender{
		cfg:      cfg,
		resolver: prefs.NewResolver(lookup, ropts...),
		engine: &encrypt.Engine{
			Algorithm:   alg,
			Concurrency: cfg.encryptConcurrency,
		},
		keys:      keys,
		transport: t,
		logger:    logger,
	}, nil
}

// Prepared is the outcome of one pipeline run that was not submitted.
type Prepared struct {
	// AttemptID identifies the run in logs.
	AttemptID string
	// Packages is the number of top packages built.
	Packages int
	// Excluded lists the recipients left out, with the reason.
	Excluded map[string]error

	request *api.SendRequest
}

// JSON returns the request that would be submitted.
func (p *Prepared) JSON() ([]byte, error) {
	return json.MarshalIndent(p.request, "", "  ")
}

// Result describes a submitted message.
type Result struct {
	ID       string
	Sent     time.Time
	Attempts int
	Packages int
	Excluded map[string]error
}

// draft is a validated message with its recipients deduplicated and its
// attachments identified. It is reused by every attempt of one send.
type draft struct {
	msg         *Message
	addresses   []string
	doc         render.Document
	attachments []render.Attachment
}

// Prepare runs the pipeline once without submitting the result.
func (s *Sender) Prepare(ctx context.Context, msg *Message) (*Prepared, error) {
	ctx = log.Into(ctx, s.logger)
	d, err := s.draft(ctx, msg)
	if err != nil {
		return nil, err
	}
	return s.prepare(log.WithMessage(ctx, msg.ID), d)
}

// Send encrypts msg and submits it. A submission that fails with a
// retryable error re-runs the whole pipeline, so no ciphertext or session
// key is ever submitted twice.
func (s *Sender) Send(ctx context.Context, msg *Message) (*Result, error) {
	ctx = log.Into(ctx, s.logger)
	d, err := s.draft(ctx, msg)
	if err != nil {
		return nil, err
	}
	ctx = log.WithMessage(ctx, msg.ID)

	b := s.retryConfig().NewBackOff()
	for attempt := 1; ; attempt++ {
		prep, err := s.prepare(ctx, d)
		if err != nil {
			return nil, err
		}

		actx := log.WithAttempt(ctx, prep.AttemptID)
		resp, err := s.transport.SendMessage(actx, msg.ID, prep.request)
		if err == nil {
			log.Info(actx).Int("attempt", attempt).Msg("message sent")
			return &Result{
				ID:       resp.ID,
				Sent:     time.Unix(resp.Sent, 0).UTC(),
				Attempts: attempt,
				Packages: prep.Packages,
				Excluded: prep.Excluded,
			}, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable(err) {
			return nil, &TransportError{Attempts: attempt, Err: err}
		}
		next := b.NextBackOff()
		if next == backoff.Stop {
			return nil, &TransportError{Attempts: attempt, Err: err}
		}

		log.Warn(actx).Err(err).Dur("backoff", next).Msg("send failed, rebuilding packages")
		if werr := api.Wait(ctx, next); werr != nil {
			return nil, werr
		}
	}
}

func (s *Sender) retryConfig() *api.RetryConfig {
	cfg := api.DefaultRetryConfig()
	cfg.MaxRetries = s.cfg.retries
	cfg.BaseDelay = s.cfg.retryDelay
	cfg.MaxDelay = s.cfg.maxDelay
	return cfg
}

func (s *Sender) draft(ctx context.Context, msg *Message) (*draft, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}

	recipients, err := uniqueRecipients(msg.Recipients)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	d := &draft{
		msg:       msg,
		addresses: make([]string, len(recipients)),
		doc:       render.Document{MIMEType: prefs.MIMEPlain, Body: msg.Body},
	}
	for i, r := range recipients {
		d.addresses[i] = r.Address
	}
	if msg.Format == FormatHTML {
		d.doc.MIMEType = prefs.MIMEHTML
	}

	seen := make(map[string]bool, len(msg.Attachments))
	for _, a := range msg.Attachments {
		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate attachment ID %q", ErrInvalidMessage, id)
		}
		seen[id] = true

		mimeType := a.MIMEType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		d.attachments = append(d.attachments, render.Attachment{
			ID:        id,
			Name:      a.Filename,
			MIMEType:  mimeType,
			ContentID: a.ContentID,
			Data:      a.Data,
		})
	}

	if msg.AttachPublicKey {
		att, err := s.publicKeyAttachment(ctx, msg.From)
		if err != nil {
			return nil, err
		}
		if att != nil {
			d.attachments = append(d.attachments, *att)
		}
	}

	return d, nil
}

// publicKeyAttachment returns the sender's public key as a PEM file, or nil
// when the sender has no stored keypair.
func (s *Sender) publicKeyAttachment(ctx context.Context, from string) (*render.Attachment, error) {
	pub, err := s.keys.PublicKey(ctx, from)
	if errors.Is(err, keystore.ErrNotFound) {
		log.Warn(ctx).Str("sender", from).Msg("no public key to attach")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load sender public key: %w", err)
	}

	return &render.Attachment{
		ID:       uuid.NewString(),
		Name:     fmt.Sprintf("publickey - %s.pem", from),
		MIMEType: "application/x-pem-file",
		Data:     pem.EncodeToMemory(&pem.Block{Type: "ML-KEM-768 PUBLIC KEY", Bytes: pub}),
	}, nil
}

// prepare runs resolution, packaging and encryption for one attempt.
// Everything it returns is fresh, including every session key.
func (s *Sender) prepare(ctx context.Context, d *draft) (*Prepared, error) {
	attemptID := uuid.NewString()
	ctx = log.WithAttempt(ctx, attemptID)

	mc := prefs.MessageContext{
		MIMEType:     d.doc.MIMEType,
		Password:     d.msg.Password,
		SignExternal: s.cfg.signExternal,
	}
	p, err := s.resolver.Resolve(ctx, d.addresses, mc)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]error)
	if failures := p.Failures(); len(failures) > 0 {
		errs := make(map[string]error, len(failures))
		failed := make([]string, 0, len(failures))
		for addr, f := range failures {
			errs[addr] = f
			failed = append(failed, addr)
		}
		sort.Strings(failed)

		if s.cfg.confirm == nil || !s.cfg.confirm(ctx, errs) {
			return nil, &ResolutionError{Failures: errs}
		}
		log.Warn(ctx).Strs("excluded", failed).Msg("sending without unresolved recipients")
		p = p.Without(failed...)
		for addr, err := range errs {
			excluded[addr] = err
		}
	}
	if len(p) == 0 {
		return nil, ErrNoRecipients
	}

	sel, err := render.Select(d.doc, d.attachments, p.MIMETypes())
	if err != nil {
		return nil, fmt.Errorf("select representations: %w", err)
	}
	set, err := packages.Build(p, sel)
	if err != nil {
		return nil, fmt.Errorf("build packages: %w", err)
	}
	if err := packages.Attach(set, p, sel, d.msg.PasswordHint); err != nil {
		return nil, fmt.Errorf("attach recipients: %w", err)
	}

	res, err := s.engine.Encrypt(ctx, encrypt.Input{
		Sender:   d.msg.From,
		Packages: set,
		Signer:   s.keys,
		Password: d.msg.Password,
	})
	if err != nil {
		err = wrapError(err)
		log.Error(ctx).Err(err).Msg("encryption failed")
		return nil, err
	}
	for addr, werr := range res.Failures {
		excluded[addr] = wrapError(werr)
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: every recipient failed key wrapping", ErrNoRecipients)
	}

	log.Info(ctx).
		Int("packages", set.Len()).
		Int("recipients", len(p)-len(res.Failures)).
		Int("excluded", len(excluded)).
		Msg("message prepared")

	return &Prepared{
		AttemptID: attemptID,
		Packages:  set.Len(),
		Excluded:  excluded,
		request:   buildRequest(set, res, d.msg.ExpiresIn),
	}, nil
}
