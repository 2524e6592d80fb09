package roadmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// DataDir is the per-project directory holding trailguide documents.
	DataDir = ".trailguide"
	// RoadmapsDir is the subdirectory under DataDir where roadmap
	// documents live, one JSON file per learning path.
	RoadmapsDir = "roadmaps"
)

// ErrNotFound is returned by Load when no roadmap exists for the path.
// Not found is an expected outcome, not a failure.
var ErrNotFound = errors.New("roadmap not found")

// ErrConflict is returned by Save when the document's revision does not
// match the stored one — another writer got there first. Callers retry
// with fresh state (Update does this with a bounded attempt count).
var ErrConflict = errors.New("roadmap revision conflict")

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Store defines persistence for roadmap documents.
// Abstracted for testability (DIP).
type Store interface {
	Load(projectRoot, path string) (*Document, error)
	Save(projectRoot, path string, doc *Document) error
	Update(projectRoot, path string, fn func(*Document) error) (*Document, error)
}

// FileStore implements Store using one JSON file per learning path
// under <projectRoot>/.trailguide/roadmaps/.
//
// The mutex serializes Save's load-check-write sequence; without it two
// in-process writers holding the same revision could both pass the
// revision check and one update would be silently lost.
type FileStore struct {
	mu sync.Mutex
}

// NewFileStore creates a filesystem-backed roadmap store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// DocumentPath returns the absolute path to a learning path's JSON file.
func DocumentPath(projectRoot, path string) string {
	name := Slugify(path)
	if name == "" {
		name = "default"
	}
	return filepath.Join(projectRoot, DataDir, RoadmapsDir, name+".json")
}

// Load reads the roadmap document for a learning path.
// Returns ErrNotFound when the document does not exist.
func (fs *FileStore) Load(projectRoot, path string) (*Document, error) {
	data, err := os.ReadFile(DocumentPath(projectRoot, path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading roadmap: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing roadmap for %q: %w", path, err)
	}
	return &doc, nil
}

// Save writes the document, enforcing compare-and-swap on the revision:
// the write is refused with ErrConflict unless the document's revision
// matches what is currently on disk. On success the stored revision is
// the document's revision plus one.
func (fs *FileStore) Save(projectRoot, path string, doc *Document) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	current, err := fs.Load(projectRoot, path)
	switch {
	case errors.Is(err, ErrNotFound):
		if doc.Revision != 0 {
			return fmt.Errorf("%w: document at revision %d but nothing stored", ErrConflict, doc.Revision)
		}
	case err != nil:
		return err
	default:
		if current.Revision != doc.Revision {
			return fmt.Errorf("%w: document at revision %d, stored at %d", ErrConflict, doc.Revision, current.Revision)
		}
	}

	doc.Revision++
	doc.LastUpdatedAt = timeNow().UTC().Format(time.RFC3339)
	if doc.CreatedAt == "" {
		doc.CreatedAt = doc.LastUpdatedAt
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling roadmap: %w", err)
	}

	file := DocumentPath(projectRoot, path)
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("creating roadmaps directory: %w", err)
	}

	// Write-then-rename so a concurrent Load never observes torn JSON.
	tmp, err := os.CreateTemp(filepath.Dir(file), ".roadmap-*.json")
	if err != nil {
		return fmt.Errorf("creating temp roadmap file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing roadmap: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp roadmap file: %w", err)
	}
	if err := os.Rename(tmp.Name(), file); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing roadmap: %w", err)
	}
	return nil
}

// maxUpdateAttempts bounds the CAS retry loop in Update.
const maxUpdateAttempts = 3

// Update loads the document, applies fn, and saves it, retrying with
// fresh state on ErrConflict up to maxUpdateAttempts times. fn must be
// safe to re-run against a reloaded document.
func (fs *FileStore) Update(projectRoot, path string, fn func(*Document) error) (*Document, error) {
	var lastErr error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := fs.Load(projectRoot, path)
		if err != nil {
			return nil, err
		}
		if err := fn(doc); err != nil {
			return nil, err
		}
		if err := fs.Save(projectRoot, path, doc); err != nil {
			if errors.Is(err, ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return doc, nil
	}
	return nil, fmt.Errorf("update gave up after %d attempts: %w", maxUpdateAttempts, lastErr)
}
