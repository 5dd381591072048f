package publish

import "errors"

var (
	// ErrAuthRequired surfaces an HTTP 401 from the storage endpoint.
	ErrAuthRequired = errors.New("publish: storage endpoint rejected authorization")
	// ErrMalformedUpload surfaces a non-retryable 4xx other than 401/409.
	ErrMalformedUpload = errors.New("publish: storage endpoint rejected upload")
	// ErrUploadExhausted is returned once every retry attempt against a
	// transient (5xx) failure has been used.
	ErrUploadExhausted = errors.New("publish: upload retries exhausted")
	// ErrBroadcastFailed is returned when every broadcast endpoint rejects
	// or fails to acknowledge the published event.
	ErrBroadcastFailed = errors.New("publish: no endpoint acknowledged broadcast")
)

// Error wraps a stage-specific failure with the PendingUpload status it
// should transition to (spec.md §7, "User-visible behavior").
type Error struct {
	Stage     string
	Retryable bool
	Err       error
}

func (e *Error) Error() string { return "publish: " + e.Stage + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
