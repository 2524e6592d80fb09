package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		goal    string
		level   int
		wantErr bool
	}{
		{"valid", "learn Go", 3, false},
		{"empty goal", "   ", 3, true},
		{"level too low", "g", 0, true},
		{"level too high", "g", 11, true},
		{"level bounds", "g", 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := New(tt.goal, tt.level, nil, nil, "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (cfg.CreatedAt == "" || cfg.UpdatedAt == "") {
				t.Error("timestamps not set")
			}
		})
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs := NewFileStore()
	root := t.TempDir()

	if _, err := fs.Load(root); !errors.Is(err, ErrNoActiveProject) {
		t.Fatalf("Load before init = %v, want ErrNoActiveProject", err)
	}

	cfg, err := New("learn Rust", 5, []string{"games"}, nil, "evenings only")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := fs.Save(root, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := fs.Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Goal != "learn Rust" || loaded.KnowledgeLevel != 5 || loaded.Context != "evenings only" {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Interests) != 1 || loaded.Interests[0] != "games" {
		t.Errorf("interests = %v", loaded.Interests)
	}
}

func TestFindRootFrom_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg, err := New("g", 1, nil, nil, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := NewFileStore().Save(root, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	found, err := findRootFrom(nested)
	if err != nil {
		t.Fatalf("findRootFrom: %v", err)
	}
	if found != root {
		t.Errorf("found %q, want %q", found, root)
	}
}

func TestFindRootFrom_NoProject(t *testing.T) {
	if _, err := findRootFrom(t.TempDir()); !errors.Is(err, ErrNoActiveProject) {
		t.Errorf("err = %v, want ErrNoActiveProject", err)
	}
}
