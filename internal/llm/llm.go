package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client is the minimal surface of a generative backend: it turns a prompt
// plus a structured briefing into file content.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt string, input any) (string, error)
	Close() error
}

// ErrEmptyResponse is returned when the model produced no usable candidate.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// PermanentError marks a failure that retrying cannot fix (bad request,
// content policy, invalid model). Retry middleware stops on it.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("llm: permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so it short-circuits retries. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
