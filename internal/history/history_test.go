package history

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLast(t *testing.T) {
	s := newTestStore(t)

	if last, err := s.Last("/proj", "default"); err != nil || last != nil {
		t.Fatalf("Last on empty store = %v, %v, want nil, nil", last, err)
	}

	id, err := s.Record(Completion{
		ProjectRoot: "/proj",
		Path:        "default",
		TaskID:      "task_1",
		Title:       "First",
		Difficulty:  2,
		EnergyAfter: 4,
		CompletedAt: "2026-01-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if id == 0 {
		t.Error("expected nonzero insert id")
	}

	if _, err := s.Record(Completion{
		ProjectRoot: "/proj",
		Path:        "default",
		TaskID:      "task_2",
		Title:       "Second",
		Difficulty:  3,
		EnergyAfter: 2,
		CompletedAt: "2026-01-02T10:00:00Z",
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	last, err := s.Last("/proj", "default")
	if err != nil {
		t.Fatalf("Last failed: %v", err)
	}
	if last == nil || last.TaskID != "task_2" || last.Difficulty != 3 {
		t.Errorf("Last = %+v, want the second completion", last)
	}
}

func TestSince_WindowAndOrder(t *testing.T) {
	s := newTestStore(t)

	stamps := []string{
		"2026-01-01T10:00:00Z",
		"2026-01-05T10:00:00Z",
		"2026-01-09T10:00:00Z",
	}
	for i, ts := range stamps {
		if _, err := s.Record(Completion{
			ProjectRoot: "/proj", Path: "default",
			TaskID: stamps[i], Title: "t", EnergyAfter: 3, CompletedAt: ts,
		}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	cutoff := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	got, err := s.Since("/proj", "default", cutoff)
	if err != nil {
		t.Fatalf("Since failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("completions in window = %d, want 2", len(got))
	}
	if got[0].CompletedAt != "2026-01-09T10:00:00Z" {
		t.Errorf("not ordered most recent first: %q", got[0].CompletedAt)
	}
}

func TestSince_ScopedToProjectAndPath(t *testing.T) {
	s := newTestStore(t)

	rows := []Completion{
		{ProjectRoot: "/a", Path: "default", TaskID: "1", Title: "t", CompletedAt: "2026-01-01T10:00:00Z"},
		{ProjectRoot: "/a", Path: "evenings", TaskID: "2", Title: "t", CompletedAt: "2026-01-01T10:00:00Z"},
		{ProjectRoot: "/b", Path: "default", TaskID: "3", Title: "t", CompletedAt: "2026-01-01T10:00:00Z"},
	}
	for _, c := range rows {
		if _, err := s.Record(c); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Since("/a", "default", time.Time{})
	if err != nil {
		t.Fatalf("Since failed: %v", err)
	}
	if len(got) != 1 || got[0].TaskID != "1" {
		t.Errorf("got %+v, want only the /a default row", got)
	}
}

func TestRecord_StampsMissingTimestamp(t *testing.T) {
	orig := timeNow
	defer func() { timeNow = orig }()
	timeNow = func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }

	s := newTestStore(t)
	if _, err := s.Record(Completion{ProjectRoot: "/p", Path: "default", TaskID: "t", Title: "t"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	last, err := s.Last("/p", "default")
	if err != nil || last == nil {
		t.Fatalf("Last = %v, %v", last, err)
	}
	if last.CompletedAt != "2026-02-01T09:00:00Z" {
		t.Errorf("CompletedAt = %q", last.CompletedAt)
	}
}
