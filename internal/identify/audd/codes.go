package audd

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Failure classes for recognition errors. Callers branch on these to decide
// between retrying, failing the file, and aborting the run.
var (
	// ErrNoMatch means the service processed the clip but recognized nothing.
	ErrNoMatch = errors.New("no match for clip")
	// ErrInvalidToken means the configured api token was rejected.
	ErrInvalidToken = errors.New("api token rejected")
	// ErrRateLimited means the service asked us to slow down.
	ErrRateLimited = errors.New("rate limited")
	// ErrBadClip means the uploaded clip itself was unusable.
	ErrBadClip = errors.New("clip rejected")
	// ErrTransient covers timeouts and unknown service failures worth retrying.
	ErrTransient = errors.New("transient recognition failure")
)

// AudD error codes, returned both as HTTP statuses and inside error payloads.
const (
	codeFileTooSmall = 300
	codeFileTooBig   = 400
	codeInvalidFile  = 500
	codeNoFile       = 700
	codeInvalidToken = 900
	codeRateLimited  = 901
)

// classifyCode maps a service error code onto a failure class. Unknown codes
// are treated as transient so a flaky service does not permanently fail files.
func classifyCode(code int, message string) error {
	var class error
	switch code {
	case codeInvalidToken:
		class = ErrInvalidToken
	case codeRateLimited:
		class = ErrRateLimited
	case codeNoFile, codeInvalidFile, codeFileTooBig, codeFileTooSmall:
		class = ErrBadClip
	default:
		class = ErrTransient
	}
	if message != "" {
		return fmt.Errorf("%w: code %d: %s", class, code, message)
	}
	return fmt.Errorf("%w: code %d", class, code)
}

// classifyTransportError maps network-level failures. Timeouts and connection
// errors are retryable; context cancellation propagates unchanged.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: request timeout: %v", ErrTransient, err)
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
