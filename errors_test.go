package outbound

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vaultsandbox/outbound-go/internal/apierrors"
	"github.com/vaultsandbox/outbound-go/internal/encrypt"
)

func TestSentinelErrors(t *testing.T) {
	sentinels := []struct {
		name string
		err  error
	}{
		{"ErrMissingAPIKey", ErrMissingAPIKey},
		{"ErrUnauthorized", ErrUnauthorized},
		{"ErrMessageNotFound", ErrMessageNotFound},
		{"ErrAlreadySent", ErrAlreadySent},
		{"ErrInvalidPackages", ErrInvalidPackages},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrInvalidMessage", ErrInvalidMessage},
		{"ErrNoRecipients", ErrNoRecipients},
		{"ErrResolution", ErrResolution},
		{"ErrEncryption", ErrEncryption},
		{"ErrWrap", ErrWrap},
		{"ErrTransport", ErrTransport},
	}

	for _, s := range sentinels {
		t.Run(s.name, func(t *testing.T) {
			if s.err == nil {
				t.Fatal("sentinel error is nil")
			}
			if s.err.Error() == "" {
				t.Error("sentinel error has empty message")
			}
		})
	}
}

func TestResolutionError(t *testing.T) {
	err := &ResolutionError{Failures: map[string]error{
		"b@x.org": errors.New("timeout"),
		"a@x.org": errors.New("no keys"),
	}}

	want := "cannot resolve 2 recipient(s): a@x.org: no keys; b@x.org: timeout"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrResolution) {
		t.Error("errors.Is(err, ErrResolution) = false")
	}
	if errors.Is(err, ErrTransport) {
		t.Error("errors.Is(err, ErrTransport) = true")
	}
}

func TestTypedErrors_Unwrap(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{"EncryptionError", &EncryptionError{Stage: "body", Err: cause}, ErrEncryption, "encryption failed at body: cause"},
		{"WrapError", &WrapError{Address: "a@x.org", Err: cause}, ErrWrap, "wrap session key for a@x.org: cause"},
		{"TransportError", &TransportError{Attempts: 3, Err: cause}, ErrTransport, "send failed after 3 attempt(s): cause"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.message {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.message)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("cause not reachable through Unwrap")
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Error("sentinel does not match")
			}
		})
	}
}

func TestOutboundError_Interface(t *testing.T) {
	errs := []OutboundError{
		&ResolutionError{},
		&EncryptionError{},
		&WrapError{},
		&TransportError{},
	}
	for _, err := range errs {
		err.OutboundError()
	}
}

func TestTransportError_MatchesAPISentinels(t *testing.T) {
	err := &TransportError{Attempts: 1, Err: &apierrors.APIError{StatusCode: 401}}
	if !errors.Is(err, ErrUnauthorized) {
		t.Error("errors.Is(err, ErrUnauthorized) = false")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
		t.Errorf("errors.As(err, *APIError) = %v", apiErr)
	}
}

func TestWrapError_Conversion(t *testing.T) {
	if wrapError(nil) != nil {
		t.Error("wrapError(nil) != nil")
	}

	enc := wrapError(fmt.Errorf("run: %w", &encrypt.Error{Stage: encrypt.StageBody, Err: errors.New("x")}))
	var encErr *EncryptionError
	if !errors.As(enc, &encErr) || encErr.Stage != "body" {
		t.Errorf("wrapError(encrypt.Error) = %v", enc)
	}

	w := wrapError(&encrypt.WrapError{Address: "a@x.org", Err: errors.New("bad key")})
	var wErr *WrapError
	if !errors.As(w, &wErr) || wErr.Address != "a@x.org" {
		t.Errorf("wrapError(encrypt.WrapError) = %v", w)
	}

	other := errors.New("other")
	if wrapError(other) != other {
		t.Error("unrelated errors must pass through")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&apierrors.NetworkError{Err: errors.New("reset")}, true},
		{&apierrors.APIError{StatusCode: 503}, true},
		{&apierrors.APIError{StatusCode: 429}, true},
		{&apierrors.APIError{StatusCode: 409}, false},
		{&apierrors.APIError{StatusCode: 422}, false},
		{errors.New("plain"), false},
	}

	for _, tt := range tests {
		if got := retryable(tt.err); got != tt.want {
			t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
