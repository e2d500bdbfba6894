// Package fallback composes a deterministic commit message straight from the
// classified changeset. It is the recovery path when generation exhausts its
// attempts, so it must always produce a message that passes validation.
package fallback

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"c4f/cli/internal/classify"
	"c4f/cli/internal/message"
)

// Options control the composed message's shape.
type Options struct {
	Comprehensive bool // Add a per-type body, matching the comprehensive prompt contract.
	ForceBrackets bool // Always derive a scope so the subject carries (scope).
}

// scopeClean strips characters that would break the (scope) syntax.
var scopeClean = regexp.MustCompile(`[^a-z0-9._-]+`)

// Compose builds a commit message from the classification results alone.
// The subject names what changed (one file by name, several files by their
// shared directory), the type comes from the aggregate, and a breaking
// changeset gets the ! marker plus a footer. Identical input always yields
// an identical message.
func Compose(per []classify.Classification, agg classify.Aggregate, opts Options) message.Message {
	m := message.Message{
		Type:        agg.Type,
		Breaking:    agg.Breaking,
		Description: describe(per),
	}
	if opts.ForceBrackets {
		m.Scope = scope(per)
	}
	if agg.Breaking {
		m.Footer = "removes or changes a public interface"
	}
	if opts.Comprehensive {
		m.Body = bodyBullets(per)
	}
	return m
}

// describe renders the subject description: a single file by base name,
// several files by their shared directory when they have one.
func describe(per []classify.Classification) string {
	if len(per) == 1 {
		return "update " + path.Base(per[0].File.Path)
	}
	if dir := commonDir(per); dir != "" {
		return fmt.Sprintf("update %d files in %s/", len(per), dir)
	}
	return fmt.Sprintf("update %d files", len(per))
}

// scope derives a scope token: the single file's stem, the shared directory's
// base name, or "repo".
func scope(per []classify.Classification) string {
	var raw string
	switch {
	case len(per) == 1:
		base := path.Base(per[0].File.Path)
		raw = strings.TrimSuffix(base, path.Ext(base))
	case commonDir(per) != "":
		raw = path.Base(commonDir(per))
	default:
		raw = "repo"
	}
	raw = scopeClean.ReplaceAllString(strings.ToLower(raw), "")
	if raw == "" {
		raw = "repo"
	}
	return raw
}

// commonDir returns the directory shared by every changed file, or "" when
// they live at the repository root or in different directories.
func commonDir(per []classify.Classification) string {
	dir := ""
	for i, c := range per {
		d := path.Dir(c.File.Path)
		if d == "." {
			return ""
		}
		if i == 0 {
			dir = d
			continue
		}
		if d != dir {
			return ""
		}
	}
	return dir
}

// bodyBullets groups files by type, one bullet per type, files in sorted
// order so the output is stable.
func bodyBullets(per []classify.Classification) []string {
	byType := make(map[classify.Type][]string, len(per))
	var order []classify.Type
	for _, c := range per {
		if len(byType[c.Type]) == 0 {
			order = append(order, c.Type)
		}
		byType[c.Type] = append(byType[c.Type], c.File.Path)
	}

	bullets := make([]string, 0, len(order))
	for _, t := range order {
		files := byType[t]
		sort.Strings(files)
		bullets = append(bullets, fmt.Sprintf("%s: update %s", t, strings.Join(files, ", ")))
	}
	return bullets
}
