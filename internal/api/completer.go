package api

import (
	"context"
	"errors"
	"fmt"
)

// DefaultTemperature is the sampling temperature used for validation calls.
// A low value keeps analyses stable between runs.
const DefaultTemperature = 0.2

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("response contained no text")

// Completer is a text-in/text-out completion service.
type Completer interface {
	// Complete sends prompt to the model and returns the generated text.
	// Failures are reported as *CompletionError.
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string, temperature float64) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	return f(ctx, prompt, temperature)
}

// CompletionError reports a failed completion call.
type CompletionError struct {
	// Provider names the backend that failed (e.g. "anthropic:claude-sonnet-4").
	Provider string
	// Cause is the underlying transport, auth, quota or decoding error.
	Cause error
	// Permanent marks failures that will not succeed on retry (bad key, bad request).
	Permanent bool
}

func (e *CompletionError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("completion failed: %v", e.Cause)
	}
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Cause)
}

func (e *CompletionError) Unwrap() error {
	return e.Cause
}

// IsPermanent reports whether err is a CompletionError marked permanent.
func IsPermanent(err error) bool {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Permanent
	}
	return false
}

// Close releases resources held by c if it implements Close.
func Close(c Completer) error {
	if cl, ok := c.(interface{ Close() error }); ok {
		return cl.Close()
	}
	return nil
}
