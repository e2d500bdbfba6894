// Package pipeline wires the stages of one commit-message run: collect the
// changeset, classify it, build a prompt, generate, and — when generation
// fails — compose the deterministic fallback.
//
// Generation failure is never surfaced to the caller; the fallback message
// takes its place and the result records that it did. The only error a clean
// invocation can return is change.ErrNoChanges.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"c4f/cli/internal/change"
	"c4f/cli/internal/classify"
	"c4f/cli/internal/config"
	"c4f/cli/internal/fallback"
	"c4f/cli/internal/generate"
	"c4f/cli/internal/message"
	"c4f/cli/internal/prompt"
	"c4f/cli/internal/tokens"
)

// contextWarnThreshold is the fraction of the model context window above
// which the estimated prompt size triggers a warning.
const contextWarnThreshold = 0.9

// Reporter receives progress during a run. Implementations must tolerate
// being called from the pipeline goroutine only; no locking is required.
type Reporter interface {
	// Track reports progress through a multi-step stage (done of total).
	Track(description string, done, total int)
	// Report emits a one-off status line. status is a short tag ("warn",
	// "info", "retry"); detail is the human-readable text.
	Report(status, detail string)
}

// NopReporter discards all progress. Useful for tests and --quiet.
type NopReporter struct{}

func (NopReporter) Track(string, int, int) {}
func (NopReporter) Report(string, string)  {}

// Options are the collaborators for one run. Config, Repo, and Backend are
// required; a nil Reporter defaults to NopReporter.
type Options struct {
	Config   *config.Config
	Repo     change.Repository
	Backend  generate.Backend
	Reporter Reporter
}

// Result is the outcome of one run.
type Result struct {
	Message   message.Message
	Files     []classify.Classification
	Aggregate classify.Aggregate
	Prompt    prompt.Prompt
	Attempts  []generate.Attempt
	FellBack  bool // Message came from the fallback composer, not the model.
}

// Run executes the pipeline once. A clean repository returns
// change.ErrNoChanges; repository access errors propagate; generation
// failure of any kind falls back to the composed message and returns nil
// error.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil || opts.Repo == nil || opts.Backend == nil {
		return nil, errors.New("pipeline: Config, Repo, and Backend are required")
	}
	rep := opts.Reporter
	if rep == nil {
		rep = NopReporter{}
	}
	cfg := opts.Config

	rep.Report("info", "collecting changes")
	files, err := change.Collect(ctx, opts.Repo)
	if err != nil {
		return nil, err
	}

	per, agg := classify.Classify(files)
	rep.Report("info", fmt.Sprintf("%d changed file(s), dominant type %s", len(per), agg.Type))

	p := prompt.Build(per, agg, cfg)
	if warn := tokens.WarnIfOver(p.Tokens, tokens.DefaultResponseReserve, cfg.NumCtx, contextWarnThreshold); warn != "" {
		rep.Report("warn", warn)
	}

	res := &Result{Files: per, Aggregate: agg, Prompt: p}

	engine := generate.New(opts.Backend, cfg)
	msg, attempts, genErr := engine.Generate(ctx, p)
	res.Attempts = attempts
	for _, a := range attempts {
		rep.Track("generating commit message", a.Index, cfg.Attempts)
		if a.Outcome != generate.OutcomeSuccess {
			rep.Report("retry", fmt.Sprintf("attempt %d/%d: %s", a.Index, cfg.Attempts, a.Outcome))
		}
	}
	if genErr == nil {
		res.Message = msg
		return res, nil
	}

	rep.Report("warn", "generation failed, composing fallback message")
	res.Message = fallback.Compose(per, agg, fallback.Options{
		Comprehensive: p.Kind == prompt.KindComprehensive,
		ForceBrackets: cfg.ForceBrackets,
	})
	res.FellBack = true
	return res, nil
}
