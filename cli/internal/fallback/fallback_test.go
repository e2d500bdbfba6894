package fallback

import (
	"strings"
	"testing"

	"c4f/cli/internal/change"
	"c4f/cli/internal/classify"
	"c4f/cli/internal/config"
)

func cls(path string, typ classify.Type) classify.Classification {
	return classify.Classification{
		File: change.ChangedFile{Path: path, Status: change.StatusModified},
		Type: typ,
	}
}

func TestCompose_subjects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		per  []classify.Classification
		agg  classify.Aggregate
		want string
	}{
		{
			"single_file",
			[]classify.Classification{cls("src/feature1.py", classify.Feat)},
			classify.Aggregate{Type: classify.Feat},
			"feat: update feature1.py",
		},
		{
			"shared_directory",
			[]classify.Classification{cls("src/api/a.go", classify.Fix), cls("src/api/b.go", classify.Fix)},
			classify.Aggregate{Type: classify.Fix},
			"fix: update 2 files in src/api/",
		},
		{
			"scattered_files",
			[]classify.Classification{cls("a.go", classify.Chore), cls("docs/b.md", classify.Docs), cls("c.go", classify.Chore)},
			classify.Aggregate{Type: classify.Chore},
			"chore: update 3 files",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Compose(tt.per, tt.agg, Options{})
			if got.Subject() != tt.want {
				t.Errorf("Subject = %q, want %q", got.Subject(), tt.want)
			}
		})
	}
}

func TestCompose_breaking(t *testing.T) {
	t.Parallel()
	per := []classify.Classification{cls("api/server.go", classify.Feat)}
	agg := classify.Aggregate{Type: classify.Feat, Breaking: true}
	got := Compose(per, agg, Options{})
	if !strings.Contains(got.Subject(), "!") {
		t.Errorf("breaking subject missing !: %q", got.Subject())
	}
	if !strings.HasPrefix(got.BodyText(), "BREAKING CHANGE: ") {
		t.Errorf("footer missing: %q", got.BodyText())
	}
}

func TestCompose_forceBracketsScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		per  []classify.Classification
		want string
	}{
		{"single_file_stem", []classify.Classification{cls("src/Parser.go", classify.Feat)}, "parser"},
		{"shared_dir_base", []classify.Classification{cls("cli/internal/git/a.go", classify.Fix), cls("cli/internal/git/b.go", classify.Fix)}, "git"},
		{"scattered", []classify.Classification{cls("a.go", classify.Chore), cls("b/c.go", classify.Chore)}, "repo"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Compose(tt.per, classify.Aggregate{Type: classify.Chore}, Options{ForceBrackets: true})
			if got.Scope != tt.want {
				t.Errorf("Scope = %q, want %q", got.Scope, tt.want)
			}
		})
	}
}

func TestCompose_comprehensiveBodyGroupsByType(t *testing.T) {
	t.Parallel()
	per := []classify.Classification{
		cls("src/b.go", classify.Feat),
		cls("tests/b_test.go", classify.Test),
		cls("src/a.go", classify.Feat),
	}
	got := Compose(per, classify.Aggregate{Type: classify.Feat}, Options{Comprehensive: true})
	if len(got.Body) != 2 {
		t.Fatalf("Body = %q, want one bullet per type", got.Body)
	}
	if got.Body[0] != "feat: update src/a.go, src/b.go" {
		t.Errorf("feat bullet = %q (files should be sorted)", got.Body[0])
	}
	if got.Body[1] != "test: update tests/b_test.go" {
		t.Errorf("test bullet = %q", got.Body[1])
	}
}

func TestCompose_alwaysValid(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()

	cases := [][]classify.Classification{
		{cls("x", classify.Chore)},
		{cls("a/b/c.go", classify.Feat), cls("a/b/d.go", classify.Fix)},
		{cls("weird name (1).txt", classify.Docs)},
	}
	for _, per := range cases {
		_, agg := classify.Classify(nil)
		agg.Type = per[0].Type
		msg := Compose(per, agg, Options{Comprehensive: true, ForceBrackets: cfg.ForceBrackets})
		if err := msg.Validate(cfg.SubjectMaxLength, cfg.ForceBrackets); err != nil {
			t.Errorf("Compose(%v) not valid: %v", per, err)
		}
	}
}

func TestCompose_deterministic(t *testing.T) {
	t.Parallel()
	per := []classify.Classification{
		cls("src/a.go", classify.Feat),
		cls("src/b.go", classify.Fix),
	}
	agg := classify.Aggregate{Type: classify.Feat}
	first := Compose(per, agg, Options{Comprehensive: true, ForceBrackets: true})
	second := Compose(per, agg, Options{Comprehensive: true, ForceBrackets: true})
	if first.Format() != second.Format() {
		t.Error("identical input produced different messages")
	}
}
