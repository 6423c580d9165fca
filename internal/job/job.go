// Package job defines one unit of generation work: a single
// completion-service call whose output streams into an accumulator and
// settles exactly once.
package job

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/rs/zerolog"

	"pagesmith/internal/llmclient"
	"pagesmith/internal/session"
	"pagesmith/internal/stream"
)

// ProgressFunc receives the full accumulated buffer after each chunk.
// The buffer grows monotonically within one attempt; a retried attempt
// starts over from an empty buffer. It must be safe to call for a job
// that has been abandoned by its consumer; the state store drops
// progress against settled targets.
type ProgressFunc func(buffer string)

// SettleFunc receives the terminal outcome exactly once. content is
// the finalized document on success, or a rendered diagnostic on
// error; diagnostic carries the raw model output when validation
// failed.
type SettleFunc func(status session.Status, content, diagnostic string)

// Job wraps one completion call for one artifact or site page.
// A job never retries itself; the scheduler passes the retry policy
// into Run so policy stays uniform across call sites.
type Job struct {
	TargetID string
	Request  llmclient.Request
	Client   llmclient.Client

	// Streaming selects the chunked call; otherwise a single-shot
	// call is made and accumulated as one chunk.
	Streaming bool

	// Timeout bounds each attempt. Zero means no per-attempt bound
	// beyond the caller's context.
	Timeout time.Duration

	OnProgress ProgressFunc
	OnSettle   SettleFunc

	Logger zerolog.Logger

	settled bool
}

// Run executes the job and settles exactly once. Any failure,
// including a panic from a callback, is converted into an error
// settlement so sibling jobs in the same batch are unaffected.
func (j *Job) Run(ctx context.Context, retry llmclient.RetryPolicy) {
	defer func() {
		if r := recover(); r != nil {
			j.Logger.Error().Str("target_id", j.TargetID).Any("panic", r).Msg("job: recovered panic")
			j.settle(session.StatusError, renderDiagnostic(fmt.Sprintf("internal error: %v", r)), "")
		}
	}()

	var content string
	var diagnostic string
	err := retry.Do(ctx, func() error {
		c, d, attemptErr := j.attempt(ctx)
		content, diagnostic = c, d
		return attemptErr
	})
	if err != nil {
		j.Logger.Warn().Str("target_id", j.TargetID).Err(err).Msg("job: settled with error")
		j.settle(session.StatusError, renderDiagnostic(userMessage(err)), diagnostic)
		return
	}
	j.settle(session.StatusComplete, content, "")
}

// attempt performs one call against the completion service. The
// accumulator is fresh per attempt so a retry starts from an empty
// buffer.
func (j *Job) attempt(parent context.Context) (content, diagnostic string, err error) {
	ctx := parent
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, j.Timeout)
		defer cancel()
	}

	acc := stream.NewAccumulator(func(buffer string) {
		if j.OnProgress != nil {
			j.OnProgress(buffer)
		}
	})

	if j.Streaming {
		_, err = j.Client.GenerateStream(ctx, j.Request, acc.Append)
	} else {
		var text string
		text, err = j.Client.Generate(ctx, j.Request)
		if err == nil {
			acc.Append(text)
		}
	}
	if err != nil {
		return "", "", err
	}

	finalized, ferr := acc.Finalize()
	if ferr != nil {
		var verr *stream.ValidationError
		if errors.As(ferr, &verr) {
			return "", verr.Raw, ferr
		}
		return "", acc.String(), ferr
	}
	return finalized, "", nil
}

func (j *Job) settle(status session.Status, content, diagnostic string) {
	if j.settled {
		return
	}
	j.settled = true
	if j.OnSettle != nil {
		j.OnSettle(status, content, diagnostic)
	}
}

// userMessage maps an error to the message shown inline in place of
// the artifact's content.
func userMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the generation timed out"
	case errors.Is(err, llmclient.ErrEmptyResponse):
		return "the model returned an empty response"
	default:
		var svcErr *llmclient.ServiceError
		if errors.As(err, &svcErr) {
			if svcErr.RateLimited {
				return "the generation service is rate limiting requests, try again shortly"
			}
			return "the generation service failed: " + svcErr.Message
		}
		var verr *stream.ValidationError
		if errors.As(err, &verr) {
			return "the generated output was not a valid document (" + verr.Reason + ")"
		}
		return err.Error()
	}
}

// renderDiagnostic wraps a failure message in a minimal document so a
// failed variant still renders something in place of content.
func renderDiagnostic(msg string) string {
	return `<!DOCTYPE html><html><body style="font-family:sans-serif;padding:2rem;color:#991b1b">` +
		`<h2>Generation failed</h2><p>` + html.EscapeString(msg) + `</p></body></html>`
}
