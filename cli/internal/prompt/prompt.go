// Package prompt builds the bounded natural-language prompt sent to the
// generation model: a simple single-subject request for small changesets, a
// comprehensive subject-plus-body request for large ones.
//
// Prompt text is deterministic for identical input; there is no randomness
// and no clock, which keeps prompts reproducible in tests.
package prompt

import (
	"fmt"
	"strings"

	"c4f/cli/internal/change"
	"c4f/cli/internal/classify"
	"c4f/cli/internal/config"
	"c4f/cli/internal/tokens"
)

// Kind selects the prompt template.
type Kind string

const (
	KindSimple        Kind = "simple"
	KindComprehensive Kind = "comprehensive"
)

// Prompt is the rendered request for the model, with the budget it was
// built against.
type Prompt struct {
	Kind       Kind
	Text       string
	Tokens     int // estimated token count of Text
	TotalLines int // total changed lines across the changeset
}

// SystemPrompt instructs the model to produce a conventional commit message.
const SystemPrompt = `You generate conventional git commit messages from file changes and diffs.
Output only the commit message, no other text, explanation, markdown, code blocks, or quotes.
The first line must be "<type>(<scope>): <description>" or "<type>: <description>" where type is one of: feat, fix, docs, style, refactor, test, chore, build.
Use imperative mood (e.g. "add feature" not "added feature"). Append "!" after the type or scope for a breaking change.`

const truncationMarkerFormat = "…truncated %d lines…"

// Build renders the prompt for the given changeset. The simple template is
// chosen when the total changed-line count is below cfg.PromptThreshold;
// everything at or above the threshold gets the comprehensive template.
func Build(per []classify.Classification, agg classify.Aggregate, cfg *config.Config) Prompt {
	total := 0
	for _, c := range per {
		total += c.File.Lines()
	}

	kind := KindSimple
	if total >= cfg.PromptThreshold {
		kind = KindComprehensive
	}

	var b strings.Builder
	if kind == KindSimple {
		writeSimple(&b, per, agg)
	} else {
		writeComprehensive(&b, per, agg, cfg.DiffMaxLines)
	}
	text := b.String()
	return Prompt{
		Kind:       kind,
		Text:       text,
		Tokens:     tokens.Estimate(text),
		TotalLines: total,
	}
}

// writeSimple asks for a single-line subject only.
func writeSimple(b *strings.Builder, per []classify.Classification, agg classify.Aggregate) {
	b.WriteString("Generate a single-line commit message for these changes:\n\n")
	writeCombinedContext(b, per)
	b.WriteString("\nThe dominant change type is \"")
	b.WriteString(string(agg.Type))
	b.WriteString("\".")
	if agg.Breaking {
		b.WriteString(" The change is breaking; mark it with \"!\".")
	}
	b.WriteString("\nRespond with only the subject line.")
}

// writeComprehensive asks for a subject plus a bulleted body, with per-file
// diffs truncated to the configured budget.
func writeComprehensive(b *strings.Builder, per []classify.Classification, agg classify.Aggregate, diffMaxLines int) {
	b.WriteString("Analyze these file changes and their diffs:\n\n")
	writeCombinedContext(b, per)
	b.WriteString("\nDiffs:\n")
	for _, c := range per {
		if c.File.Diff == "" {
			continue
		}
		fmt.Fprintf(b, "\n--- %s ---\n", c.File.Path)
		b.WriteString(TruncateDiff(c.File.Diff, diffMaxLines))
		b.WriteString("\n")
	}
	b.WriteString("\nGenerate a commit message in this format:\n")
	b.WriteString("<type>(<scope>): <subject line>\n\n- <bullet describing one logically distinct change>\n- <bullet for the next change>\n\n")
	fmt.Fprintf(b, "The dominant change type is %q. Describe each logically distinct change group as its own bullet.\n", string(agg.Type))
	if agg.Breaking {
		b.WriteString("The change is breaking: mark the subject with \"!\" and add a \"BREAKING CHANGE:\" footer explaining what broke.\n")
	}
}

// writeCombinedContext writes one "path<TAB>type" line per file, with the
// status and rename origin when present.
func writeCombinedContext(b *strings.Builder, per []classify.Classification) {
	for _, c := range per {
		b.WriteString(c.File.Path)
		b.WriteString("\t")
		b.WriteString(string(c.Type))
		b.WriteString("\t")
		b.WriteString(string(c.File.Status))
		if c.File.Status == change.StatusRenamed && c.File.OldPath != "" {
			fmt.Fprintf(b, " (from %s, %d%% similar)", c.File.OldPath, c.File.Similarity)
		}
		b.WriteString("\n")
	}
}

// TruncateDiff bounds one file's diff to maxLines, keeping the leading
// two-thirds and trailing third of the budget around a single
// "…truncated N lines…" marker so both ends of the diff stay visible.
func TruncateDiff(diff string, maxLines int) string {
	lines := strings.Split(diff, "\n")
	if len(lines) <= maxLines {
		return diff
	}
	head := maxLines * 2 / 3
	tail := maxLines - head
	omitted := len(lines) - head - tail
	out := make([]string, 0, maxLines+1)
	out = append(out, lines[:head]...)
	out = append(out, fmt.Sprintf(truncationMarkerFormat, omitted))
	out = append(out, lines[len(lines)-tail:]...)
	return strings.Join(out, "\n")
}
