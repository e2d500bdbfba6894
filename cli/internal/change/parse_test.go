package change

import "testing"

func TestParseStatus(t *testing.T) {
	t.Parallel()
	out := "M  staged.go\n M worktree.go\nA  added.go\nD  deleted.go\nR  a.go -> b.go\n?? untracked.go\n"
	entries := parseStatus(out)
	if len(entries) != 6 {
		t.Fatalf("got %d entries, want 6", len(entries))
	}
	tests := []struct {
		i      int
		path   string
		status Status
		staged bool
	}{
		{0, "staged.go", StatusModified, true},
		{1, "worktree.go", StatusModified, false},
		{2, "added.go", StatusAdded, true},
		{3, "deleted.go", StatusDeleted, true},
		{4, "b.go", StatusRenamed, true},
		{5, "untracked.go", StatusAdded, false},
	}
	for _, tt := range tests {
		e := entries[tt.i]
		if e.path != tt.path || e.status != tt.status || e.staged != tt.staged {
			t.Errorf("entry %d = %+v, want path=%q status=%q staged=%v", tt.i, e, tt.path, tt.status, tt.staged)
		}
	}
	if entries[4].oldPath != "a.go" {
		t.Errorf("rename oldPath = %q, want a.go", entries[4].oldPath)
	}
}

func TestParseUnifiedDiff_multipleFiles(t *testing.T) {
	t.Parallel()
	out := stagedDiffFixture + unstagedDiffFixture
	got := parseUnifiedDiff(out)
	if len(got) != 2 {
		t.Fatalf("got %d sections, want 2", len(got))
	}
	m, ok := got["main.go"]
	if !ok {
		t.Fatal("main.go section missing")
	}
	if m.added != 1 || m.removed != 1 {
		t.Errorf("main.go counts = +%d -%d", m.added, m.removed)
	}
	n, ok := got["notes.txt"]
	if !ok {
		t.Fatal("notes.txt section missing")
	}
	if n.added != 1 || n.removed != 0 {
		t.Errorf("notes.txt counts = +%d -%d", n.added, n.removed)
	}
}

func TestParseUnifiedDiff_empty(t *testing.T) {
	t.Parallel()
	if got := parseUnifiedDiff("  \n"); len(got) != 0 {
		t.Errorf("got %d sections, want 0", len(got))
	}
}
