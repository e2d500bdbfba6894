// Package classify assigns each changed file a conventional-commit type and
// resolves the dominant type for the whole changeset.
//
// Path rules take precedence over diff-content rules; content rules run only
// when no path rule fires. The rule tables are exported data (PathRules,
// DiffRules) so the vocabulary is inspectable and testable, not hard-coded
// inside the matcher. The aggregate tie-break order is likewise a fixed,
// documented table (typePriority).
package classify

import (
	"path"
	"regexp"
	"strings"

	"c4f/cli/internal/change"
)

// Type is a conventional-commit type token.
type Type string

const (
	Feat     Type = "feat"
	Fix      Type = "fix"
	Docs     Type = "docs"
	Style    Type = "style"
	Refactor Type = "refactor"
	Test     Type = "test"
	Chore    Type = "chore"
	Build    Type = "build"
)

// typePriority breaks plurality ties in the aggregate: earlier wins. The
// order reflects conventional-commit semantic weight.
var typePriority = []Type{Feat, Fix, Refactor, Build, Test, Style, Docs, Chore}

// Classification is the per-file result.
type Classification struct {
	File     change.ChangedFile
	Type     Type
	Breaking bool
}

// Aggregate is the changeset-level result: the dominant type, whether any
// file carries a breaking change, and the per-type file counts.
type Aggregate struct {
	Type     Type
	Breaking bool
	Counts   map[Type]int
}

// Rule maps a compiled pattern to a commit type. Rules are evaluated in
// order; the first match wins.
type Rule struct {
	Type    Type
	Pattern *regexp.Regexp
}

// pathRules match against the slash-normalized, lowercased file path.
// Build precedes Docs so manifest files like requirements.txt never read as
// documentation. CI workflow paths map to Build: the type vocabulary folds
// ci into build (see DESIGN.md).
var pathRules = []Rule{
	{Test, regexp.MustCompile(`(^|/)(tests?|specs?)(/|$)|(^|/)test_[^/]+$|_test\.[a-z0-9]+$|\.(spec|test)\.[a-z]+$|(^|/)[^/]*unit_test[^/]*$`)},
	{Build, regexp.MustCompile(`(^|/)\.github/workflows/|(^|/)\.gitlab-ci\.yml$|(^|/)jenkinsfile$|(^|/)(dockerfile|makefile|setup\.py|setup\.cfg|pyproject\.toml|go\.mod|go\.sum|package\.json|package-lock\.json|yarn\.lock|cargo\.toml|cargo\.lock|gemfile|pom\.xml|build\.gradle)$|(^|/)requirements[^/]*\.(txt|in)$|\.dockerfile$`)},
	{Docs, regexp.MustCompile(`(^|/)(docs?|documentation)(/|$)|\.(md|rst|txt|adoc)$|(^|/)(readme|changelog|contributing|license|authors)(\.[a-z]+)?$`)},
	{Chore, regexp.MustCompile(`(^|/)\.(gitignore|gitattributes|editorconfig|env[^/]*)$|(^|/)(scripts|tools)(/|$)|\.(cfg|conf|ini)$`)},
	{Style, regexp.MustCompile(`\.(css|scss|sass|less)$|(^|/)\.(prettierrc|eslintrc)[^/]*$`)},
	{Feat, regexp.MustCompile(`(^|/)(features?|feat)(/|$)`)},
	{Fix, regexp.MustCompile(`(^|/)(hotfix(es)?|fix(es)?|patch(es)?)(/|$)`)},
	{Refactor, regexp.MustCompile(`(^|/)refactor(ing)?(/|$)`)},
}

// diffRules match against the diff text (case-insensitive). Evaluated in
// order; test signals come first so "def test_" never reads as feat.
var diffRules = []Rule{
	{Test, regexp.MustCompile(`(?i)\bdef test_|\bfunc Test[A-Z_]|\bassert\w*\(|\bit\(['"]|\bdescribe\(['"]|@pytest\b|@test\b`)},
	{Fix, regexp.MustCompile(`(?i)\b(fix(es|ed)?|bugs?|patch(es|ed)?|resolve[sd]?|crash(es|ed)?|exception)\b`)},
	{Refactor, regexp.MustCompile(`(?i)\brefactor(ed|ing|s)?\b|\brestructur(e|ed|ing)\b|\brewrit(e|ten|ing)\b|\bclean\s?up\b|\bsimplif(y|ied)\b`)},
	{Docs, regexp.MustCompile(`(?i)\breadme\b|\bdocumentation\b|\bdocstring\b|\bchangelog\b|\bdocs\b`)},
	{Style, regexp.MustCompile(`(?i)\bformat(ted|ting)?\b|\blint(ed|ing|er)?\b|\bprettier\b|\bwhitespace\b|\bindent(ation)?\b`)},
	{Feat, regexp.MustCompile(`(?i)\bfeat(ure)?s?\b|\bimplement(ed|s|ing)?\b|\bintroduc(e|ed|ing)\b|\bnew (api|endpoint|command|option|feature)\b`)},
	{Chore, regexp.MustCompile(`(?i)\bbump(ed|s)?\b|\bupgrad(e|ed|ing)\b|\bdependenc(y|ies)\b|\bversion bump\b`)},
}

// PathRules returns a copy of the path rule table (first match wins).
func PathRules() []Rule {
	return append([]Rule(nil), pathRules...)
}

// DiffRules returns a copy of the diff-content rule table (first match wins).
func DiffRules() []Rule {
	return append([]Rule(nil), diffRules...)
}

// breakingMarker matches an explicit breaking-change note anywhere in a diff.
var breakingMarker = regexp.MustCompile(`(?i)BREAKING[ -]CHANGE`)

// symbolDecl extracts a declared symbol name from an added or removed diff
// line: Go func/type, Python def/class, and `public`-style declarations.
var symbolDecl = regexp.MustCompile(`^[-+]\s*(?:export\s+)?(?:public\s+)?(?:func(?:\s+\([^)]*\))?|def|class|type)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// smallDeltaMax is the changed-line bound under which a modification with no
// new symbols reads as a fix.
const smallDeltaMax = 10

// Classify assigns a per-file Classification to each file and resolves the
// aggregate for the changeset. Deterministic for identical input.
func Classify(files []change.ChangedFile) ([]Classification, Aggregate) {
	per := make([]Classification, 0, len(files))
	counts := make(map[Type]int, len(files))
	agg := Aggregate{Type: Chore, Counts: counts}

	for _, f := range files {
		c := Classification{
			File:     f,
			Type:     classifyFile(f),
			Breaking: isBreaking(f),
		}
		per = append(per, c)
		counts[c.Type]++
		if c.Breaking {
			agg.Breaking = true
		}
	}

	best := Chore
	bestCount := -1
	for _, t := range typePriority {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	if bestCount > 0 {
		agg.Type = best
	}
	return per, agg
}

// classifyFile applies path rules, then diff rules, then structural
// heuristics: new declarations read as feat; a small modification with no
// new declarations reads as fix; anything else is chore.
func classifyFile(f change.ChangedFile) Type {
	p := strings.ToLower(path.Clean(strings.ReplaceAll(f.Path, "\\", "/")))
	for _, r := range pathRules {
		if r.Pattern.MatchString(p) {
			return r.Type
		}
	}
	if f.Diff != "" {
		for _, r := range diffRules {
			if r.Pattern.MatchString(f.Diff) {
				return r.Type
			}
		}
		if len(addedSymbols(f.Diff)) > 0 {
			return Feat
		}
		if f.Status == change.StatusModified && f.Lines() <= smallDeltaMax {
			return Fix
		}
	}
	if f.Status == change.StatusAdded {
		return Feat
	}
	return Chore
}

// isBreaking reports whether the file's diff removes or renames a previously
// declared symbol, or carries an explicit breaking-change marker.
func isBreaking(f change.ChangedFile) bool {
	if f.Diff == "" {
		return false
	}
	if breakingMarker.MatchString(f.Diff) {
		return true
	}
	removed := removedSymbols(f.Diff)
	if len(removed) == 0 {
		return false
	}
	added := addedSymbols(f.Diff)
	for name := range removed {
		if _, stillThere := added[name]; !stillThere {
			return true
		}
	}
	return false
}

func addedSymbols(diff string) map[string]struct{}   { return declaredSymbols(diff, '+') }
func removedSymbols(diff string) map[string]struct{} { return declaredSymbols(diff, '-') }

func declaredSymbols(diff string, sign byte) map[string]struct{} {
	out := make(map[string]struct{})
	for _, line := range strings.Split(diff, "\n") {
		if len(line) == 0 || line[0] != sign {
			continue
		}
		// Skip the +++/--- file header lines.
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if m := symbolDecl.FindStringSubmatch(line); m != nil {
			out[m[1]] = struct{}{}
		}
	}
	return out
}
