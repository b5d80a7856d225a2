package encrypt

import (
	"errors"
	"fmt"
)

// Stage names the step of the engine that failed.
type Stage string

const (
	StageSessionKey Stage = "session-key"
	StageBody       Stage = "body"
	StageSign       Stage = "sign"
	StageAttachment Stage = "attachment"
	StagePassword   Stage = "password"
)

var (
	// ErrNoPassword is returned when a password package exists but the
	// message has no password.
	ErrNoPassword = errors.New("password recipients without a message password")
	// ErrNoSigner is returned when a package must be signed but no signing
	// key source was configured.
	ErrNoSigner = errors.New("signature requested without a signing key source")
)

// Error is a fatal failure of a shared step. No packages are emitted when it
// is returned.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("encrypt %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError is a failure to wrap a session key for one recipient. It only
// removes that recipient from delivery.
type WrapError struct {
	Address string
	Err     error
}

func (e *WrapError) Error() string {
	return fmt.Sprintf("wrap session key for %s: %v", e.Address, e.Err)
}

func (e *WrapError) Unwrap() error {
	return e.Err
}
