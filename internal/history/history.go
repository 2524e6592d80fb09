// Package history persists task-completion events.
//
// It uses SQLite (WAL mode) so stall detection can query trailing
// windows cheaply: when did the learner last finish anything, and how
// did their energy look afterwards. Completion events are append-only.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Completion is one recorded task completion with the learner's
// self-reported energy right after finishing.
type Completion struct {
	ID          int64  `json:"id"`
	ProjectRoot string `json:"project_root"`
	Path        string `json:"path"`
	TaskID      string `json:"task_id"`
	Title       string `json:"title"`
	Difficulty  int    `json:"difficulty"`
	EnergyAfter int    `json:"energy_after"` // 1-5
	CompletedAt string `json:"completed_at"` // RFC3339
}

// Config holds history store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig stores the database under ~/.trailguide.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".trailguide")}
}

// Store is the completion-history engine backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the history database and runs
// migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "history.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS completions (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			project_root TEXT    NOT NULL,
			path         TEXT    NOT NULL,
			task_id      TEXT    NOT NULL,
			title        TEXT    NOT NULL,
			difficulty   INTEGER NOT NULL DEFAULT 1,
			energy_after INTEGER NOT NULL DEFAULT 3,
			completed_at TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_comp_project ON completions(project_root, path, completed_at DESC);
	`)
	return err
}

// Record appends a completion event and returns its id.
func (s *Store) Record(c Completion) (int64, error) {
	if c.CompletedAt == "" {
		c.CompletedAt = timeNow().UTC().Format(time.RFC3339)
	}
	res, err := s.db.Exec(`
		INSERT INTO completions (project_root, path, task_id, title, difficulty, energy_after, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ProjectRoot, c.Path, c.TaskID, c.Title, c.Difficulty, c.EnergyAfter, c.CompletedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("history: record completion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: last insert id: %w", err)
	}
	return id, nil
}

// Since returns completions for a (project, path) at or after the given
// time, most recent first.
func (s *Store) Since(projectRoot, path string, since time.Time) ([]Completion, error) {
	rows, err := s.db.Query(`
		SELECT id, project_root, path, task_id, title, difficulty, energy_after, completed_at
		FROM completions
		WHERE project_root = ? AND path = ? AND completed_at >= ?
		ORDER BY completed_at DESC`,
		projectRoot, path, since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("history: query completions: %w", err)
	}
	defer rows.Close()

	var result []Completion
	for rows.Next() {
		var c Completion
		if err := rows.Scan(&c.ID, &c.ProjectRoot, &c.Path, &c.TaskID, &c.Title, &c.Difficulty, &c.EnergyAfter, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("history: scan completion: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Last returns the most recent completion for a (project, path), or nil
// when nothing has been completed yet.
func (s *Store) Last(projectRoot, path string) (*Completion, error) {
	row := s.db.QueryRow(`
		SELECT id, project_root, path, task_id, title, difficulty, energy_after, completed_at
		FROM completions
		WHERE project_root = ? AND path = ?
		ORDER BY completed_at DESC, id DESC
		LIMIT 1`,
		projectRoot, path,
	)

	var c Completion
	err := row.Scan(&c.ID, &c.ProjectRoot, &c.Path, &c.TaskID, &c.Title, &c.Difficulty, &c.EnergyAfter, &c.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: query last completion: %w", err)
	}
	return &c, nil
}
