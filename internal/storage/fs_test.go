package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func testFS(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	f, err := NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, f
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewFS_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(file); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestListOnlyMarkdown(t *testing.T) {
	root, f := testFS(t)
	write(t, root, "a.md", "alpha")
	write(t, root, "dir/b.md", "beta")
	write(t, root, "dir/skip.txt", "nope")
	write(t, root, ".hidden/c.md", "hidden")

	files, err := f.List("")
	if err != nil {
		t.Fatal(err)
	}
	paths := make(map[string]bool)
	for _, fi := range files {
		paths[fi.Path] = true
		if fi.ModifiedAt.IsZero() {
			t.Errorf("%s has zero mod time", fi.Path)
		}
	}
	if !paths["a.md"] || !paths["dir/b.md"] {
		t.Errorf("missing markdown files: %v", paths)
	}
	if paths["dir/skip.txt"] {
		t.Error("non-markdown file listed")
	}
	if paths[".hidden/c.md"] {
		t.Error("hidden directory not skipped")
	}
}

func TestListSubdir(t *testing.T) {
	root, f := testFS(t)
	write(t, root, "a.md", "a")
	write(t, root, "sub/b.md", "b")

	files, err := f.List("sub")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Path != "sub/b.md" {
		t.Errorf("files = %+v", files)
	}
}

func TestReadAndStat(t *testing.T) {
	root, f := testFS(t)
	write(t, root, "note.md", "content here")

	data, err := f.Read("note.md")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content here" {
		t.Errorf("data = %q", data)
	}

	fi, err := f.Stat("note.md")
	if err != nil {
		t.Fatal(err)
	}
	if fi.Path != "note.md" || fi.ModifiedAt.IsZero() {
		t.Errorf("stat = %+v", fi)
	}
}

func TestTraversalRejected(t *testing.T) {
	_, f := testFS(t)
	if _, err := f.Read("../outside.md"); err == nil {
		t.Error("traversal read allowed")
	}
	if _, err := f.Read("/etc/passwd"); err == nil {
		t.Error("absolute read allowed")
	}
	if _, err := f.List("../.."); err == nil {
		t.Error("traversal list allowed")
	}
}
