package outbound

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/vaultsandbox/outbound-go/internal/api"
	"github.com/vaultsandbox/outbound-go/internal/keystore"
	"github.com/vaultsandbox/outbound-go/internal/log"
)

const (
	defaultBaseURL    = "https://mail.vaultsandbox.com"
	defaultRetries    = 2
	defaultRetryDelay = 500 * time.Millisecond
	defaultMaxDelay   = 10 * time.Second
)

// ConfirmFunc is asked whether to send anyway after excluding the recipients
// in failures. Returning false aborts the send before anything is encrypted.
type ConfirmFunc func(ctx context.Context, failures map[string]error) bool

// senderConfig holds configuration for the sender.
type senderConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	apiRetries int

	keyring  keystore.Config
	contacts string
	fs       afero.Fs

	algorithm          string
	signExternal       bool
	lookupTimeout      time.Duration
	resolveConcurrency int
	encryptConcurrency int

	retries    int
	retryDelay time.Duration
	maxDelay   time.Duration

	confirm ConfirmFunc

	logWriter io.Writer
	logLevel  string
}

func defaultConfig() *senderConfig {
	return &senderConfig{
		baseURL:    defaultBaseURL,
		apiRetries: api.DefaultMaxRetries,
		fs:         afero.NewOsFs(),
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		maxDelay:   defaultMaxDelay,
	}
}

// Option configures the sender.
type Option func(*senderConfig)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *senderConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *senderConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of each HTTP request, including the final
// submission.
func WithTimeout(timeout time.Duration) Option {
	return func(c *senderConfig) {
		c.timeout = timeout
	}
}

// WithKeyLookupRetries sets how often a failed public key lookup is retried.
func WithKeyLookupRetries(count int) Option {
	return func(c *senderConfig) {
		c.apiRetries = count
	}
}

// WithKeyring selects the keyring holding the sender's keys.
func WithKeyring(cfg keystore.Config) Option {
	return func(c *senderConfig) {
		c.keyring = cfg
	}
}

// WithContactBook loads per-contact overrides from a YAML file.
func WithContactBook(path string) Option {
	return func(c *senderConfig) {
		c.contacts = path
	}
}

// WithFs sets the filesystem the contact book is read from.
func WithFs(fs afero.Fs) Option {
	return func(c *senderConfig) {
		c.fs = fs
	}
}

// WithAlgorithm sets the session key algorithm ("aes256-gcm" or
// "xsalsa20-poly1305").
func WithAlgorithm(name string) Option {
	return func(c *senderConfig) {
		c.algorithm = name
	}
}

// WithSignExternal signs messages to external recipients even when their
// contact does not ask for it.
func WithSignExternal(sign bool) Option {
	return func(c *senderConfig) {
		c.signExternal = sign
	}
}

// WithLookupTimeout bounds each recipient preference lookup.
func WithLookupTimeout(timeout time.Duration) Option {
	return func(c *senderConfig) {
		c.lookupTimeout = timeout
	}
}

// WithResolveConcurrency sets how many recipients are resolved at once.
func WithResolveConcurrency(n int) Option {
	return func(c *senderConfig) {
		c.resolveConcurrency = n
	}
}

// WithEncryptConcurrency sets how many packages are encrypted at once.
func WithEncryptConcurrency(n int) Option {
	return func(c *senderConfig) {
		c.encryptConcurrency = n
	}
}

// WithRetries sets how many times a failed submission re-runs the whole
// pipeline. Zero disables retries.
func WithRetries(count int) Option {
	return func(c *senderConfig) {
		c.retries = count
	}
}

// WithBackoff sets the first and the maximum delay between send attempts.
// The first delay also spaces out retried key lookups.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *senderConfig) {
		c.retryDelay = initial
		c.maxDelay = max
	}
}

// WithConfirm installs the hook asked before unresolved recipients are
// excluded. Without it, any resolution failure aborts the send.
func WithConfirm(fn ConfirmFunc) Option {
	return func(c *senderConfig) {
		c.confirm = fn
	}
}

// logger builds the Sender's own logger. Without WithLogger it writes to
// stderr at info level.
func (c *senderConfig) logger() (zerolog.Logger, error) {
	w := c.logWriter
	if w == nil {
		w = os.Stderr
	}
	l, err := log.New(w, c.logLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("configure logging: %w", err)
	}
	return l, nil
}

// WithLogger sends logs to w at the given level.
func WithLogger(w io.Writer, level string) Option {
	return func(c *senderConfig) {
		c.logWriter = w
		c.logLevel = level
	}
}
