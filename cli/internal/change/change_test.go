package change

import (
	"context"
	"errors"
	"testing"
)

// stubRepo returns canned git output for Collect tests.
type stubRepo struct {
	status   string
	staged   string
	unstaged string
}

func (s *stubRepo) Status(context.Context) (string, error)       { return s.status, nil }
func (s *stubRepo) StagedDiff(context.Context) (string, error)   { return s.staged, nil }
func (s *stubRepo) UnstagedDiff(context.Context) (string, error) { return s.unstaged, nil }

const stagedDiffFixture = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
 package main
+func Added() {}
-var removed int
`

const unstagedDiffFixture = `diff --git a/notes.txt b/notes.txt
index 3333333..4444444 100644
--- a/notes.txt
+++ b/notes.txt
@@ -1 +1,2 @@
 hello
+world
`

func TestCollect_cleanTree(t *testing.T) {
	t.Parallel()
	_, err := Collect(context.Background(), &stubRepo{status: "\n"})
	if !errors.Is(err, ErrNoChanges) {
		t.Errorf("err = %v, want ErrNoChanges", err)
	}
}

func TestCollect_stagedPreferred(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{
		status: "M  main.go\n M notes.txt\n",
		staged: stagedDiffFixture,
		unstaged: unstagedDiffFixture + `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -1 +1,2 @@
 package main
+worktree noise
`,
	}
	files, err := Collect(context.Background(), repo)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}

	mainFile := files[0]
	if mainFile.Path != "main.go" || !mainFile.Staged {
		t.Fatalf("files[0] = %+v, want staged main.go", mainFile)
	}
	if mainFile.Added != 1 || mainFile.Removed != 1 {
		t.Errorf("main.go counts = +%d -%d, want +1 -1 (staged content only)", mainFile.Added, mainFile.Removed)
	}

	notes := files[1]
	if notes.Path != "notes.txt" || notes.Staged {
		t.Fatalf("files[1] = %+v, want unstaged notes.txt", notes)
	}
	if notes.Added != 1 || notes.Removed != 0 {
		t.Errorf("notes.txt counts = +%d -%d, want +1 -0", notes.Added, notes.Removed)
	}
}

func TestCollect_renameSingleEntry(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{
		status: "R  old_name.go -> new_name.go\n",
		staged: `diff --git a/old_name.go b/new_name.go
similarity index 97%
rename from old_name.go
rename to new_name.go
index 1111111..2222222 100644
--- a/old_name.go
+++ b/new_name.go
@@ -1 +1 @@
-package old
+package new
`,
	}
	files, err := Collect(context.Background(), repo)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("rename produced %d entries, want 1", len(files))
	}
	f := files[0]
	if f.Status != StatusRenamed {
		t.Errorf("Status = %q, want renamed", f.Status)
	}
	if f.Path != "new_name.go" || f.OldPath != "old_name.go" {
		t.Errorf("Path = %q, OldPath = %q", f.Path, f.OldPath)
	}
	if f.Similarity != 97 {
		t.Errorf("Similarity = %d, want 97", f.Similarity)
	}
	if f.Added != 1 || f.Removed != 1 {
		t.Errorf("counts = +%d -%d, want +1 -1 (no double counting)", f.Added, f.Removed)
	}
}

func TestCollect_untrackedFile(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{status: "?? brand_new.py\n"}
	files, err := Collect(context.Background(), repo)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	f := files[0]
	if f.Status != StatusAdded || f.Staged {
		t.Errorf("untracked file = %+v, want unstaged added", f)
	}
	if f.Diff != "" {
		t.Errorf("untracked Diff = %q, want empty", f.Diff)
	}
}

func TestCollect_binaryFileEmptyDiff(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{
		status: "M  logo.png\n",
		staged: `diff --git a/logo.png b/logo.png
index 1111111..2222222 100644
Binary files a/logo.png and b/logo.png differ
`,
	}
	files, err := Collect(context.Background(), repo)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	f := files[0]
	if f.Diff != "" || f.Added != 0 || f.Removed != 0 {
		t.Errorf("binary file = %+v, want empty diff and zero counts", f)
	}
}

func TestCollect_deletion(t *testing.T) {
	t.Parallel()
	repo := &stubRepo{
		status: "D  gone.go\n",
		staged: `diff --git a/gone.go b/gone.go
deleted file mode 100644
index 1111111..0000000
--- a/gone.go
+++ /dev/null
@@ -1,2 +0,0 @@
-package gone
-var x = 1
`,
	}
	files, err := Collect(context.Background(), repo)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	f := files[0]
	if f.Status != StatusDeleted {
		t.Errorf("Status = %q, want deleted", f.Status)
	}
	if f.Removed != 2 || f.Added != 0 {
		t.Errorf("counts = +%d -%d, want +0 -2", f.Added, f.Removed)
	}
}
