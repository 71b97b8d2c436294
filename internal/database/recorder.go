package database

import (
	"time"

	"github.com/focuslog/focuslog/internal/models"
	"github.com/focuslog/focuslog/internal/tracker"
)

// Recorder stores tracker sessions and failures in the history database.
type Recorder struct {
	repo *Repository
}

func NewRecorder(repo *Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) RecordSession(s tracker.Session) error {
	return r.repo.RecordSession(&models.SessionRecord{
		Date:        s.Date,
		Application: s.Application,
		StartedAt:   s.Start,
		EndedAt:     s.End,
		Seconds:     s.Seconds,
		RunID:       s.RunID,
	})
}

func (r *Recorder) RecordError(component string, err error) error {
	return r.repo.CreateErrorLog(&models.ErrorLog{
		Timestamp: time.Now(),
		Component: component,
		ErrorMsg:  err.Error(),
	})
}
