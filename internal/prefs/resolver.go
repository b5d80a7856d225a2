package prefs

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vaultsandbox/outbound-go/internal/log"
)

const (
	// DefaultLookupTimeout bounds each external preference lookup.
	DefaultLookupTimeout = 10 * time.Second
	// DefaultConcurrency is the number of lookups run at once.
	DefaultConcurrency = 8
)

// Lookup is the external preference source. It must be safe to call
// concurrently for distinct addresses.
type Lookup interface {
	EncryptionPreferences(ctx context.Context, address string) (*EncryptionPreferences, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, address string) (*EncryptionPreferences, error)

// EncryptionPreferences calls f.
func (f LookupFunc) EncryptionPreferences(ctx context.Context, address string) (*EncryptionPreferences, error) {
	return f(ctx, address)
}

// Resolver resolves send preferences for a set of addresses in parallel.
type Resolver struct {
	lookup      Lookup
	timeout     time.Duration
	concurrency int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTimeout sets the per-lookup timeout. Zero disables it.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithConcurrency sets how many lookups run at once.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewResolver creates a Resolver over lookup.
func NewResolver(lookup Lookup, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		lookup:      lookup,
		timeout:     DefaultLookupTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one SendPreference per address. A failed lookup yields a
// Failure for that address and never aborts the others. The only error
// returned is the parent context's.
func (r *Resolver) Resolve(ctx context.Context, addresses []string, mc MessageContext) (Preferences, error) {
	// Each goroutine owns exactly one slot.
	slots := make([]SendPreference, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			slots[i] = r.resolveOne(gctx, addr, mc)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(Preferences, len(addresses))
	for i, addr := range addresses {
		out[addr] = slots[i]
	}
	return out, nil
}

func (r *Resolver) resolveOne(ctx context.Context, addr string, mc MessageContext) SendPreference {
	ctx = log.WithAddress(ctx, addr)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ep, err := r.lookup.EncryptionPreferences(ctx, addr)
	if err != nil {
		err = errors.Wrapf(err, "lookup preferences for %s", addr)
		log.Warn(ctx).Err(err).Msg("preference lookup failed")
		return SendPreference{
			MIMEType: mc.MIMEType,
			Failure:  &Failure{Type: FailureLookup, Err: err},
		}
	}

	pref := SendPreferenceFor(ep, mc)
	if pref.Failure != nil {
		log.Warn(ctx).Str("failure", pref.Failure.Type.String()).Msg("address cannot be delivered encrypted")
	} else {
		log.Debug(ctx).
			Str("scheme", pref.Scheme.String()).
			Str("mime_type", string(pref.MIMEType)).
			Bool("sign", pref.Sign).
			Msg("resolved send preference")
	}
	return pref
}
