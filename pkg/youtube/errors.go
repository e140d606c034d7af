package youtube

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTranscript means the remote service reports no transcript for the
	// video (captions disabled or never generated). Not retryable.
	ErrNoTranscript = errors.New("no transcript available")

	// ErrInvalidVideoID means the identifier is not syntactically valid for
	// the remote service. Not retryable.
	ErrInvalidVideoID = errors.New("invalid video id")

	// ErrVideoUnavailable means the video was removed or made private.
	// Not retryable.
	ErrVideoUnavailable = errors.New("video unavailable")
)

// TransientError wraps a failure that is expected to resolve on retry:
// network errors, timeouts, 429s and 5xx-equivalents from the remote side.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is one of the known non-retryable
// fetch failures.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNoTranscript) ||
		errors.Is(err, ErrInvalidVideoID) ||
		errors.Is(err, ErrVideoUnavailable)
}
