package index

import (
	"fmt"
	"testing"
	"time"

	"github.com/zet-dev/zet/internal/hash"
	"github.com/zet-dev/zet/internal/models"
)

// memStore is an in-memory Provider that counts content reads, so tests can
// assert which classification tier a file stopped at.
type memStore struct {
	files map[string][]byte
	infos []models.FileInfo
	reads int
}

func (m *memStore) List(string) ([]models.FileInfo, error) { return m.infos, nil }

func (m *memStore) Read(path string) ([]byte, error) {
	m.reads++
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("memstore: no such file: %s", path)
	}
	return data, nil
}

func (m *memStore) Stat(path string) (models.FileInfo, error) {
	for _, fi := range m.infos {
		if fi.Path == path {
			return fi, nil
		}
	}
	return models.FileInfo{}, fmt.Errorf("memstore: no such file: %s", path)
}

func (m *memStore) add(path string, content []byte, mod time.Time) {
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = content
	m.infos = append(m.infos, models.FileInfo{Path: path, ModifiedAt: mod})
}

func cachedDoc(path string, content []byte, mod time.Time) models.Document {
	return models.Document{
		ID:         path,
		Path:       path,
		Hash:       hash.Sum(content),
		ModifiedAt: mod,
	}
}

func TestClassifyAdded(t *testing.T) {
	store := &memStore{}
	t0 := time.Unix(1700000000, 0)
	store.add("new.md", []byte("fresh"), t0)

	c := Classify(store, nil, store.infos)
	if len(c.Added) != 1 || c.Added[0].Path != "new.md" {
		t.Fatalf("added = %+v", c.Added)
	}
	if store.reads != 0 {
		t.Errorf("classification read %d files; added files are read by the parse phase, not here", store.reads)
	}
}

func TestClassifyUnchangedSkipsRead(t *testing.T) {
	store := &memStore{}
	t0 := time.Unix(1700000000, 500)
	content := []byte("stable")
	store.add("a.md", content, t0)

	prev := []models.Document{cachedDoc("a.md", content, t0)}
	c := Classify(store, prev, store.infos)

	if c.Unchanged != 1 || len(c.Added)+len(c.Modified)+len(c.Touched) != 0 {
		t.Fatalf("classification = %+v", c)
	}
	if store.reads != 0 {
		t.Errorf("timestamp tier must not read files, got %d reads", store.reads)
	}
}

func TestClassifyTouched(t *testing.T) {
	store := &memStore{}
	t0 := time.Unix(1700000000, 0)
	content := []byte("same bytes")
	store.add("a.md", content, t0.Add(2*time.Second))

	prev := []models.Document{cachedDoc("a.md", content, t0)}
	c := Classify(store, prev, store.infos)

	if len(c.Touched) != 1 {
		t.Fatalf("classification = %+v", c)
	}
	if store.reads != 1 {
		t.Errorf("hash tier reads = %d, want 1", store.reads)
	}
}

func TestClassifyModifiedRetainsContent(t *testing.T) {
	store := &memStore{}
	t0 := time.Unix(1700000000, 0)
	store.add("a.md", []byte("new content"), t0.Add(time.Second))

	prev := []models.Document{cachedDoc("a.md", []byte("old content"), t0)}
	c := Classify(store, prev, store.infos)

	if len(c.Modified) != 1 {
		t.Fatalf("classification = %+v", c)
	}
	ch := c.Modified[0]
	if string(ch.Content) != "new content" {
		t.Errorf("content not retained: %q", ch.Content)
	}
	if ch.Hash != hash.Sum([]byte("new content")) {
		t.Errorf("hash = %#x", ch.Hash)
	}
	if ch.Previous.ID != "a.md" {
		t.Errorf("previous = %+v", ch.Previous)
	}
	if store.reads != 1 {
		t.Errorf("reads = %d, want exactly 1 (retained for parse)", store.reads)
	}
}

func TestClassifyRemoved(t *testing.T) {
	store := &memStore{}
	prev := []models.Document{cachedDoc("gone.md", []byte("x"), time.Unix(1700000000, 0))}
	c := Classify(store, prev, nil)

	if len(c.Removed) != 1 || c.Removed[0].Path != "gone.md" {
		t.Fatalf("removed = %+v", c.Removed)
	}
}

func TestClassifyReadErrorIsIsolated(t *testing.T) {
	store := &memStore{}
	t0 := time.Unix(1700000000, 0)
	// Listed but unreadable: info present, content missing.
	store.infos = append(store.infos, models.FileInfo{Path: "broken.md", ModifiedAt: t0.Add(time.Second)})
	store.add("ok.md", []byte("fine"), t0)

	prev := []models.Document{
		cachedDoc("broken.md", []byte("old"), t0),
		cachedDoc("ok.md", []byte("fine"), t0),
	}
	c := Classify(store, prev, store.infos)

	if len(c.Errors) != 1 || c.Errors[0].Path != "broken.md" {
		t.Fatalf("errors = %+v", c.Errors)
	}
	// The broken file neither aborts the run nor lands in any change bucket.
	if len(c.Modified)+len(c.Touched)+len(c.Added)+len(c.Removed) != 0 {
		t.Errorf("classification = %+v", c)
	}
}
