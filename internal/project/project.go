// Package project manages the per-project learner configuration and
// resolves the active project from the working directory.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ConfigFile is the filename for the project config inside .trailguide/.
const ConfigFile = "project.json"

// DataDir is the per-project trailguide directory.
const DataDir = ".trailguide"

// ErrNoActiveProject is returned when no project config can be found in
// the working directory or any of its parents.
var ErrNoActiveProject = errors.New("no active project: run path_init_project first")

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Config holds the learner and goal for one project.
type Config struct {
	Goal           string   `json:"goal"`
	KnowledgeLevel int      `json:"knowledge_level"` // 1-10
	Interests      []string `json:"interests,omitempty"`
	FocusAreas     []string `json:"focus_areas,omitempty"`
	Context        string   `json:"context,omitempty"` // freeform learner context
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// New creates a validated project config with timestamps set.
func New(goal string, knowledgeLevel int, interests, focusAreas []string, context string) (*Config, error) {
	cfg := &Config{
		Goal:           strings.TrimSpace(goal),
		KnowledgeLevel: knowledgeLevel,
		Interests:      interests,
		FocusAreas:     focusAreas,
		Context:        context,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	now := timeNow().UTC().Format(time.RFC3339)
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	return cfg, nil
}

// Validate enforces the config invariants: non-empty goal, knowledge
// level in [1,10].
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Goal) == "" {
		return fmt.Errorf("goal must not be empty")
	}
	if c.KnowledgeLevel < 1 || c.KnowledgeLevel > 10 {
		return fmt.Errorf("knowledge_level %d out of range [1,10]", c.KnowledgeLevel)
	}
	return nil
}

// ConfigPath returns the absolute path to a project's config file.
func ConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, DataDir, ConfigFile)
}

// Store defines persistence for project configs.
type Store interface {
	Load(projectRoot string) (*Config, error)
	Save(projectRoot string, cfg *Config) error
}

// FileStore implements Store on the local filesystem.
type FileStore struct{}

// NewFileStore creates a filesystem-backed project store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Load reads the project config. Returns ErrNoActiveProject when the
// config file does not exist.
func (fs *FileStore) Load(projectRoot string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoActiveProject
		}
		return nil, fmt.Errorf("reading project config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing project.json: %w", err)
	}
	return &cfg, nil
}

// Save writes the project config, creating the directory as needed.
func (fs *FileStore) Save(projectRoot string, cfg *Config) error {
	cfg.UpdatedAt = timeNow().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling project config: %w", err)
	}

	path := ConfigPath(projectRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", DataDir, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// FindRoot walks up from the current working directory looking for an
// existing .trailguide/project.json. This lets tools run from any
// subdirectory of a project. Returns ErrNoActiveProject when the walk
// reaches the filesystem root without a hit.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return findRootFrom(dir)
}

func findRootFrom(dir string) (string, error) {
	current := dir
	for {
		if _, err := os.Stat(ConfigPath(current)); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrNoActiveProject
		}
		current = parent
	}
}
