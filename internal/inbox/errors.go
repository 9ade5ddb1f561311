package inbox

import (
	"errors"
	"fmt"
)

// ErrAuthFailed marks a login the mail server rejected. Retrying with the
// same credentials cannot succeed.
var ErrAuthFailed = errors.New("authentication failed")

// ConnectionError means the mailbox could not be reached or the login was
// rejected.
type ConnectionError struct {
	Address  string
	Username string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mailbox connection to %s as %s: %v", e.Address, e.Username, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ScopeError means a folder could not be listed, selected or searched.
// The folder is skipped.
type ScopeError struct {
	Folder string
	Err    error
}

func (e *ScopeError) Error() string {
	if e.Folder == "" {
		return fmt.Sprintf("mailbox scope: %v", e.Err)
	}
	return fmt.Sprintf("mailbox folder %q: %v", e.Folder, e.Err)
}

func (e *ScopeError) Unwrap() error { return e.Err }

// DecodeError means a message could not be fetched or decoded. The
// message is skipped.
type DecodeError struct {
	Folder string
	UID    uint32
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("message %s/%d: %v", e.Folder, e.UID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or any error in its chain) is a
// ConnectionError.
func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

// IsScopeError reports whether err (or any error in its chain) is a
// ScopeError.
func IsScopeError(err error) bool {
	var target *ScopeError
	return errors.As(err, &target)
}

// IsDecodeError reports whether err (or any error in its chain) is a
// DecodeError.
func IsDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}

// IsAuthFailure reports whether err (or any error in its chain) is a
// rejected login.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}
