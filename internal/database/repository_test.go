package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/focuslog/focuslog/internal/models"
	"github.com/focuslog/focuslog/internal/tracker"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	db, err := Connect(filepath.Join(t.TempDir(), "history", "test.db"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return NewRepository(db)
}

func session(app string, start time.Time, seconds int64) *models.SessionRecord {
	return &models.SessionRecord{
		Date:        start.Format("2006-01-02"),
		Application: app,
		StartedAt:   start,
		EndedAt:     start.Add(time.Duration(seconds) * time.Second),
		Seconds:     seconds,
		RunID:       "run-1",
	}
}

func TestRecordSessionAndQuery(t *testing.T) {
	repo := setupTestDB(t)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, s := range []*models.SessionRecord{
		session("Editor", base, 600),
		session("Browser", base.Add(10*time.Minute), 120),
		session("Editor", base.Add(12*time.Minute), 300),
	} {
		if err := repo.RecordSession(s); err != nil {
			t.Fatalf("RecordSession() error = %v", err)
		}
		if s.ID == 0 {
			t.Error("RecordSession() did not assign an ID")
		}
	}

	sessions, err := repo.SessionsSince(base.Add(5 * time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("SessionsSince() returned %d sessions, want 2", len(sessions))
	}
	if sessions[0].Application != "Browser" || sessions[1].Application != "Editor" {
		t.Errorf("sessions out of order: %s, %s", sessions[0].Application, sessions[1].Application)
	}

	summaries, err := repo.AppSummarySince(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("AppSummarySince() returned %d rows, want 2", len(summaries))
	}
	top := summaries[0]
	if top.Application != "Editor" || top.TotalSeconds != 900 || top.SessionCount != 2 {
		t.Errorf("top summary = %+v", top)
	}
	if top.TotalMinutes != 15 {
		t.Errorf("TotalMinutes = %v, want 15", top.TotalMinutes)
	}
}

func TestDeleteSessionsBefore(t *testing.T) {
	repo := setupTestDB(t)

	old := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	_ = repo.RecordSession(session("Editor", old, 60))
	_ = repo.RecordSession(session("Editor", recent, 60))

	n, err := repo.DeleteSessionsBefore("2024-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	left, _ := repo.SessionsSince(time.Time{})
	if len(left) != 1 || left[0].Date != "2024-03-01" {
		t.Errorf("remaining sessions = %+v", left)
	}
}

func TestErrorLogs(t *testing.T) {
	repo := setupTestDB(t)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, msg := range []string{"first", "second", "third"} {
		err := repo.CreateErrorLog(&models.ErrorLog{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Component: "flush",
			ErrorMsg:  msg,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	logs, err := repo.RecentErrors(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("RecentErrors(2) returned %d rows", len(logs))
	}
	if logs[0].ErrorMsg != "third" || logs[1].ErrorMsg != "second" {
		t.Errorf("RecentErrors order = %s, %s", logs[0].ErrorMsg, logs[1].ErrorMsg)
	}
}

func TestClear(t *testing.T) {
	repo := setupTestDB(t)
	_ = repo.RecordSession(session("Editor", time.Now(), 1))
	_ = repo.CreateErrorLog(&models.ErrorLog{Timestamp: time.Now(), Component: "probe", ErrorMsg: "x"})

	if err := repo.Clear(); err != nil {
		t.Fatal(err)
	}

	sessions, _ := repo.SessionsSince(time.Time{})
	logs, _ := repo.RecentErrors(10)
	if len(sessions) != 0 || len(logs) != 0 {
		t.Errorf("after Clear: %d sessions, %d errors", len(sessions), len(logs))
	}
}

func TestRecorder(t *testing.T) {
	repo := setupTestDB(t)
	rec := NewRecorder(repo)

	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	err := rec.RecordSession(tracker.Session{
		RunID:       "abc",
		Date:        "2024-03-01",
		Application: "Terminal",
		Start:       start,
		End:         start.Add(42 * time.Second),
		Seconds:     42,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.RecordError("probe", errors.New("cannot open display")); err != nil {
		t.Fatal(err)
	}

	sessions, _ := repo.SessionsSince(time.Time{})
	if len(sessions) != 1 || sessions[0].Seconds != 42 || sessions[0].RunID != "abc" {
		t.Errorf("sessions = %+v", sessions)
	}
	logs, _ := repo.RecentErrors(1)
	if len(logs) != 1 || logs[0].Component != "probe" || logs[0].ErrorMsg != "cannot open display" {
		t.Errorf("error logs = %+v", logs)
	}
}
