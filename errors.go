package outbound

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vaultsandbox/outbound-go/internal/apierrors"
	"github.com/vaultsandbox/outbound-go/internal/encrypt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingAPIKey is returned when no API key is provided.
	ErrMissingAPIKey = apierrors.ErrMissingAPIKey

	// ErrUnauthorized is returned when the API key is invalid or expired.
	ErrUnauthorized = apierrors.ErrUnauthorized

	// ErrMessageNotFound is returned when the message being sent does not exist.
	ErrMessageNotFound = apierrors.ErrMessageNotFound

	// ErrAlreadySent is returned when the message was already sent.
	ErrAlreadySent = apierrors.ErrAlreadySent

	// ErrInvalidPackages is returned when the server rejects the package set.
	ErrInvalidPackages = apierrors.ErrInvalidPackages

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = apierrors.ErrRateLimited

	// ErrInvalidMessage is returned when a message misses required fields.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrNoRecipients is returned when no recipient is left to deliver to.
	ErrNoRecipients = errors.New("no deliverable recipients")

	// ErrResolution matches every *ResolutionError.
	ErrResolution = errors.New("recipient preferences could not be resolved")

	// ErrEncryption matches every *EncryptionError.
	ErrEncryption = errors.New("message encryption failed")

	// ErrWrap matches every *WrapError.
	ErrWrap = errors.New("session key wrapping failed")

	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("message submission failed")
)

// OutboundError is implemented by the typed errors of this package.
type OutboundError interface {
	error
	OutboundError() // marker method
}

// APIError represents an HTTP error from the mail API.
type APIError = apierrors.APIError

// NetworkError represents a network-level failure.
type NetworkError = apierrors.NetworkError

// ResolutionError lists the recipients whose preferences could not be
// resolved. The send was not attempted.
type ResolutionError struct {
	Failures map[string]error
}

func (e *ResolutionError) Error() string {
	addrs := make([]string, 0, len(e.Failures))
	for addr := range e.Failures {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	parts := make([]string, len(addrs))
	for i, addr := range addrs {
		parts[i] = fmt.Sprintf("%s: %v", addr, e.Failures[addr])
	}
	return fmt.Sprintf("cannot resolve %d recipient(s): %s", len(addrs), strings.Join(parts, "; "))
}

// Is implements errors.Is for sentinel error matching.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// OutboundError implements the OutboundError interface.
func (e *ResolutionError) OutboundError() {}

// EncryptionError is a fatal failure of a symmetric stage. Nothing was sent.
type EncryptionError struct {
	Stage string // "session-key", "body", "sign", "attachment", "password"
	Err   error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encryption failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *EncryptionError) Is(target error) bool {
	return target == ErrEncryption
}

// OutboundError implements the OutboundError interface.
func (e *EncryptionError) OutboundError() {}

// WrapError reports a recipient whose session key could not be wrapped.
// The recipient was excluded from delivery.
type WrapError struct {
	Address string
	Err     error
}

func (e *WrapError) Error() string {
	return fmt.Sprintf("wrap session key for %s: %v", e.Address, e.Err)
}

// Unwrap returns the underlying error.
func (e *WrapError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *WrapError) Is(target error) bool {
	return target == ErrWrap
}

// OutboundError implements the OutboundError interface.
func (e *WrapError) OutboundError() {}

// TransportError is returned when the request could not be submitted after
// Attempts full pipeline runs.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send failed after %d attempt(s): %v", e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// OutboundError implements the OutboundError interface.
func (e *TransportError) OutboundError() {}

// wrapError converts errors of the encryption engine to public errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var encErr *encrypt.Error
	if errors.As(err, &encErr) {
		return &EncryptionError{Stage: string(encErr.Stage), Err: encErr.Err}
	}

	var wrapErr *encrypt.WrapError
	if errors.As(err, &wrapErr) {
		return &WrapError{Address: wrapErr.Address, Err: wrapErr.Err}
	}

	return err
}

// retryable reports whether a submission error may succeed on a fresh
// pipeline run.
func retryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 429, 500, 502, 503, 504:
			return true
		}
	}
	return false
}
