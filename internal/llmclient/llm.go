// Package llmclient is the boundary to the streaming text-completion
// service. Cross-cutting retry policy lives in RetryPolicy and is
// applied by the batch scheduler, not inside clients.
package llmclient

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the model answered with no usable
// candidate text.
var ErrEmptyResponse = errors.New("llmclient: empty response from model")

// ServiceError is a typed completion-service failure. RateLimited is
// set when the service rejected the call for quota reasons, which
// retry policy treats as retryable.
type ServiceError struct {
	Message     string
	RateLimited bool
}

func (e *ServiceError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("llmclient: rate limited: %s", e.Message)
	}
	return fmt.Sprintf("llmclient: %s", e.Message)
}

// Retryable reports whether an error is worth another attempt.
// Validation failures and context cancellation are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return true
	}
	return errors.Is(err, ErrEmptyResponse) || errors.Is(err, context.DeadlineExceeded)
}

// InlineImage is an optional reference image sent with a prompt.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// Request carries one prompt to the completion service.
type Request struct {
	Prompt string
	Image  *InlineImage
}

// Client is the completion-service contract. Generate returns the full
// text in one shot; GenerateStream yields ordered chunks through
// onChunk and returns the concatenated text once the stream ends.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	GenerateStream(ctx context.Context, req Request, onChunk func(chunk string)) (string, error)
	Close() error
}
