package roadmap

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileStore_LoadMissing(t *testing.T) {
	fs := NewFileStore()
	if _, err := fs.Load(t.TempDir(), "default"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load on empty dir = %v, want ErrNotFound", err)
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	fs := NewFileStore()
	root := t.TempDir()

	doc := &Document{
		Goal:     "learn Go",
		Branches: []Branch{{ID: "basics", Title: "Basics"}},
		Tasks:    []Task{{ID: "task_1", Title: "Tour", BranchID: "basics", Priority: DefaultPriority}},
	}
	if err := fs.Save(root, "default", doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if doc.Revision != 1 {
		t.Errorf("revision after first save = %d, want 1", doc.Revision)
	}
	if doc.CreatedAt == "" || doc.LastUpdatedAt == "" {
		t.Error("timestamps not stamped")
	}

	loaded, err := fs.Load(root, "default")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Goal != "learn Go" || len(loaded.Tasks) != 1 || loaded.Revision != 1 {
		t.Errorf("loaded document mismatch: %+v", loaded)
	}
}

func TestFileStore_SaveConflict(t *testing.T) {
	fs := NewFileStore()
	root := t.TempDir()

	doc := &Document{Goal: "g", Branches: []Branch{{ID: "b", Title: "B"}}}
	if err := fs.Save(root, "default", doc); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	// A second writer with a stale copy at revision 0.
	stale := &Document{Goal: "g"}
	if err := fs.Save(root, "default", stale); !errors.Is(err, ErrConflict) {
		t.Errorf("stale save = %v, want ErrConflict", err)
	}

	// A fresh document cannot claim a nonzero revision.
	eager := &Document{Goal: "g", Revision: 5}
	if err := fs.Save(root, "other", eager); !errors.Is(err, ErrConflict) {
		t.Errorf("fresh save at revision 5 = %v, want ErrConflict", err)
	}
}

func TestFileStore_RevisionMonotonic(t *testing.T) {
	fs := NewFileStore()
	root := t.TempDir()

	doc := &Document{Goal: "g"}
	for i := 1; i <= 3; i++ {
		if err := fs.Save(root, "default", doc); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if doc.Revision != i {
			t.Fatalf("revision after save %d = %d", i, doc.Revision)
		}
	}
}

// Every successful Save must bump the stored revision by exactly one:
// with N racing writers off the same snapshot, the final revision equals
// the seed revision plus the number of saves that reported success. A
// lost update would leave the revision short of that count.
func TestFileStore_ConcurrentSavesLoseNoUpdate(t *testing.T) {
	fs := NewFileStore()
	root := t.TempDir()

	seed := &Document{Goal: "g", Branches: []Branch{{ID: "b", Title: "B"}}}
	if err := fs.Save(root, "default", seed); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	const writers = 16
	var conflicts int64
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := fs.Load(root, "default")
			if err != nil {
				t.Errorf("load: %v", err)
				return
			}
			switch err := fs.Save(root, "default", doc); {
			case errors.Is(err, ErrConflict):
				atomic.AddInt64(&conflicts, 1)
			case err != nil:
				t.Errorf("save: %v", err)
			}
		}()
	}
	wg.Wait()

	final, err := fs.Load(root, "default")
	if err != nil {
		t.Fatalf("final load: %v", err)
	}
	successes := writers - int(conflicts)
	if final.Revision != 1+successes {
		t.Errorf("revision = %d after %d successful saves, want %d — an update was lost",
			final.Revision, successes, 1+successes)
	}
}

func TestFileStore_Update(t *testing.T) {
	fs := NewFileStore()
	root := t.TempDir()

	doc := &Document{Goal: "g", Branches: []Branch{{ID: "b", Title: "B"}}}
	if err := fs.Save(root, "default", doc); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	updated, err := fs.Update(root, "default", func(d *Document) error {
		return d.AppendTasks([]Task{{Title: "New", BranchID: "b"}})
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(updated.Tasks) != 1 || updated.Revision != 2 {
		t.Errorf("updated doc: tasks=%d revision=%d", len(updated.Tasks), updated.Revision)
	}

	// fn errors abort without writing.
	boom := errors.New("boom")
	if _, err := fs.Update(root, "default", func(*Document) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Update with failing fn = %v, want boom", err)
	}
	after, _ := fs.Load(root, "default")
	if after.Revision != 2 {
		t.Errorf("revision changed by failed update: %d", after.Revision)
	}
}

func TestFileStore_UpdateMissing(t *testing.T) {
	fs := NewFileStore()
	_, err := fs.Update(t.TempDir(), "default", func(*Document) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update on missing doc = %v, want ErrNotFound", err)
	}
}

func TestDocumentPath_SlugsPathName(t *testing.T) {
	got := DocumentPath("/proj", "Deep Focus Path")
	want := "/proj/.trailguide/roadmaps/deep_focus_path.json"
	if got != want {
		t.Errorf("DocumentPath = %q, want %q", got, want)
	}

	if got := DocumentPath("/proj", "!!!"); got != "/proj/.trailguide/roadmaps/default.json" {
		t.Errorf("empty slug fallback = %q", got)
	}
}

func TestFileStore_TimestampUsesInjectedClock(t *testing.T) {
	orig := timeNow
	defer func() { timeNow = orig }()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }

	fs := NewFileStore()
	doc := &Document{Goal: "g"}
	if err := fs.Save(t.TempDir(), "default", doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if doc.LastUpdatedAt != "2025-03-01T12:00:00Z" {
		t.Errorf("LastUpdatedAt = %q", doc.LastUpdatedAt)
	}
}
