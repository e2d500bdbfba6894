// Package generate drives the model call for one commit message: bounded
// attempts, a per-attempt timeout, linear backoff, and validation of the
// returned message's shape. It never composes a message itself; exhausting
// all attempts returns ErrExhausted and the caller falls back.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"c4f/cli/internal/config"
	"c4f/cli/internal/message"
	"c4f/cli/internal/ollama"
	"c4f/cli/internal/prompt"
)

// ErrExhausted indicates every attempt failed (timeout, backend error, or
// validation failure). The last cause is attached via %w.
var ErrExhausted = errors.New("commit message generation exhausted")

// Backend is the text-generation collaborator. *ollama.Client satisfies it;
// tests inject stubs.
type Backend interface {
	Generate(ctx context.Context, model, system, prompt string, opts *ollama.GenerateOptions) (string, error)
}

// Outcome labels how one attempt ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeTimeout Outcome = "timeout"
	OutcomeBackend Outcome = "backend error"
	OutcomeInvalid Outcome = "validation failure"
)

// Attempt records one generation attempt for status reporting.
type Attempt struct {
	Index   int // 1-based
	Elapsed time.Duration
	Outcome Outcome
	Err     error // nil on success
}

// backoff is the wait before retry k (k >= 1): linear and capped, so total
// pipeline latency stays predictable. Exhausting attempts is recovered by
// the fallback composer, never by waiting longer.
func backoff(k int) time.Duration {
	d := time.Duration(k) * 500 * time.Millisecond
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}

// Engine makes bounded generation attempts against a backend.
type Engine struct {
	backend Backend
	cfg     *config.Config
}

// New returns an Engine. backend and cfg must be non-nil.
func New(backend Backend, cfg *config.Config) *Engine {
	return &Engine{backend: backend, cfg: cfg}
}

// Generate runs up to cfg.Attempts attempts for the given prompt. Each
// attempt gets a fresh context bounded by cfg.FallbackTimeout, so a hung
// backend call cannot starve later attempts. A response is accepted only
// when it parses as a conventional commit message, passes Validate, and —
// for comprehensive prompts — meets cfg.MinComprehensiveLength. Returns the
// attempt log alongside the result so callers can report progress.
func (e *Engine) Generate(ctx context.Context, p prompt.Prompt) (message.Message, []Attempt, error) {
	attempts := make([]Attempt, 0, e.cfg.Attempts)
	var lastErr error

	for k := 1; k <= e.cfg.Attempts; k++ {
		if k > 1 {
			if err := sleep(ctx, backoff(k-1)); err != nil {
				return message.Message{}, attempts, fmt.Errorf("%w: %w", ErrExhausted, err)
			}
		}

		start := time.Now()
		msg, err := e.attempt(ctx, p)
		a := Attempt{Index: k, Elapsed: time.Since(start)}
		if err == nil {
			a.Outcome = OutcomeSuccess
			attempts = append(attempts, a)
			return msg, attempts, nil
		}

		a.Err = err
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			a.Outcome = OutcomeTimeout
		case isInvalid(err):
			a.Outcome = OutcomeInvalid
		default:
			a.Outcome = OutcomeBackend
		}
		attempts = append(attempts, a)
		lastErr = err

		// Parent cancellation ends the run; a per-attempt deadline does not.
		if ctx.Err() != nil {
			break
		}
	}
	return message.Message{}, attempts, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

// errInvalid marks validation failures so the attempt log can distinguish
// them from transport errors.
type errInvalid struct{ err error }

func (e errInvalid) Error() string { return e.err.Error() }
func (e errInvalid) Unwrap() error { return e.err }

func isInvalid(err error) bool {
	var ei errInvalid
	return errors.As(err, &ei)
}

// attempt makes a single bounded backend call and validates the response.
func (e *Engine) attempt(ctx context.Context, p prompt.Prompt) (message.Message, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.FallbackTimeout)
	defer cancel()

	raw, err := e.backend.Generate(attemptCtx, e.cfg.Model, prompt.SystemPrompt, p.Text, &ollama.GenerateOptions{
		Temperature: e.cfg.Temperature,
		NumCtx:      e.cfg.NumCtx,
	})
	if err != nil {
		return message.Message{}, err
	}

	msg, err := message.Parse(raw)
	if err != nil {
		return message.Message{}, errInvalid{err}
	}
	if err := msg.Validate(e.cfg.SubjectMaxLength, e.cfg.ForceBrackets); err != nil {
		return message.Message{}, errInvalid{err}
	}
	if p.Kind == prompt.KindComprehensive && len(msg.Format()) < e.cfg.MinComprehensiveLength {
		return message.Message{}, errInvalid{fmt.Errorf("comprehensive message %d chars below minimum %d",
			len(msg.Format()), e.cfg.MinComprehensiveLength)}
	}
	return msg, nil
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
