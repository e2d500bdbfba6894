// Package message holds the conventional-commit message value and the
// parser that normalizes raw model output into it.
//
// Model output is messy: code fences, HTML tags, "here is your commit
// message" preambles, trailing disclaimers. Parse strips all of that before
// looking for the conventional header; anything still unusable is a
// validation failure the caller treats as a failed generation attempt.
package message

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"c4f/cli/internal/classify"
)

// Message is one commit message: subject parts, optional body bullets, and
// an optional breaking-change footer.
type Message struct {
	Type        classify.Type
	Scope       string
	Breaking    bool
	Description string
	Body        []string
	Footer      string // BREAKING CHANGE footer text, without the prefix
}

// Subject renders the first line: <type>(<scope>)!: <description>.
func (m Message) Subject() string {
	var b strings.Builder
	b.WriteString(string(m.Type))
	if m.Scope != "" {
		b.WriteString("(")
		b.WriteString(m.Scope)
		b.WriteString(")")
	}
	if m.Breaking {
		b.WriteString("!")
	}
	b.WriteString(": ")
	b.WriteString(m.Description)
	return b.String()
}

// BodyText renders the body bullets and footer without the subject, for
// passing as a second -m argument to git commit. Empty when there is no body
// and no footer.
func (m Message) BodyText() string {
	var parts []string
	for _, line := range m.Body {
		parts = append(parts, "- "+line)
	}
	out := strings.Join(parts, "\n")
	if m.Footer != "" {
		if out != "" {
			out += "\n\n"
		}
		out += "BREAKING CHANGE: " + m.Footer
	}
	return out
}

// Format renders the full message: subject, blank line, body bullets, blank
// line, footer.
func (m Message) Format() string {
	out := m.Subject()
	if body := m.BodyText(); body != "" {
		out += "\n\n" + body
	}
	return out
}

// validTypes is the accepted type vocabulary after normalization.
var validTypes = map[classify.Type]struct{}{
	classify.Feat: {}, classify.Fix: {}, classify.Docs: {}, classify.Style: {},
	classify.Refactor: {}, classify.Test: {}, classify.Chore: {}, classify.Build: {},
}

// Validate checks the CommitMessage invariants: non-empty description, known
// type, bounded subject, breaking marker when Breaking is set, and — when
// requireScope — a non-empty scope.
func (m Message) Validate(maxSubject int, requireScope bool) error {
	if strings.TrimSpace(m.Description) == "" {
		return errors.New("message: empty description")
	}
	if _, ok := validTypes[m.Type]; !ok {
		return fmt.Errorf("message: unknown type %q", m.Type)
	}
	subject := m.Subject()
	if maxSubject > 0 && len(subject) > maxSubject {
		return fmt.Errorf("message: subject %d chars exceeds limit %d", len(subject), maxSubject)
	}
	if m.Breaking && !strings.Contains(subject, "!") && m.Footer == "" {
		return errors.New("message: breaking change without ! or footer")
	}
	if requireScope && m.Scope == "" {
		return errors.New("message: scope required")
	}
	return nil
}

// headerRegex matches the conventional-commit subject line. Type aliases
// (feature, bugfix, perf, ci, ...) are normalized afterwards.
var headerRegex = regexp.MustCompile(`(?i)^(feat|feature|fix|bugfix|docs?|style|refactor|perf|test|tests|chore|build|ci)(\(([^)]*)\))?(!)?\s*:\s*(.+)$`)

// typeAliases maps model-emitted variants onto the fixed vocabulary. perf
// and ci have no slot of their own here; they fold into refactor and build.
var typeAliases = map[string]classify.Type{
	"feat": classify.Feat, "feature": classify.Feat,
	"fix": classify.Fix, "bugfix": classify.Fix,
	"doc": classify.Docs, "docs": classify.Docs,
	"style":    classify.Style,
	"refactor": classify.Refactor, "perf": classify.Refactor,
	"test": classify.Test, "tests": classify.Test,
	"chore": classify.Chore,
	"build": classify.Build, "ci": classify.Build,
}

var (
	htmlTagRegex    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	introRegex      = regexp.MustCompile(`(?i)^\s*(here(?:'s| is)\b.*commit message.*|sure[,!.].*|certainly[,!.].*|(?:the )?commit message\s*:?\s*)$`)
	introPrefix     = regexp.MustCompile(`(?i)^\s*commit message\s*:\s*`)
	disclaimerRegex = regexp.MustCompile(`(?i)^\s*(note:|let me know\b|hope this\b|feel free\b|this (commit )?message\b)`)
	bulletRegex     = regexp.MustCompile(`^\s*[-*•]\s+`)
	footerRegex     = regexp.MustCompile(`(?i)^\s*BREAKING[ -]CHANGE\s*:?\s*(.*)$`)
)

// Parse normalizes raw model output into a Message. It strips code fences,
// HTML tags, preamble lines, and trailing disclaimers, then requires a
// conventional-commit header on the first remaining line. Body lines become
// bullets; a BREAKING CHANGE line becomes the footer.
func Parse(raw string) (Message, error) {
	lines := sanitize(raw)
	if len(lines) == 0 {
		return Message{}, errors.New("message: empty response")
	}

	header := headerRegex.FindStringSubmatch(lines[0])
	if header == nil {
		return Message{}, fmt.Errorf("message: no conventional commit header in %q", lines[0])
	}
	m := Message{
		Type:        typeAliases[strings.ToLower(header[1])],
		Scope:       strings.TrimSpace(header[3]),
		Breaking:    header[4] == "!",
		Description: strings.TrimRight(strings.TrimSpace(header[5]), "."),
	}

	for _, line := range lines[1:] {
		if f := footerRegex.FindStringSubmatch(line); f != nil {
			m.Breaking = true
			m.Footer = strings.TrimSpace(f[1])
			continue
		}
		if disclaimerRegex.MatchString(line) {
			break
		}
		line = bulletRegex.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m.Body = append(m.Body, line)
	}
	return m, nil
}

// sanitize splits raw output into trimmed lines with fences, tags, and
// preambles removed. Blank lines are dropped (structure is re-imposed by
// Format).
func sanitize(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		trimmed = htmlTagRegex.ReplaceAllString(trimmed, "")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == "" {
			continue
		}
		if len(out) == 0 {
			if introRegex.MatchString(trimmed) {
				continue
			}
			trimmed = introPrefix.ReplaceAllString(trimmed, "")
			if strings.TrimSpace(trimmed) == "" {
				continue
			}
		}
		out = append(out, trimmed)
	}
	return out
}
