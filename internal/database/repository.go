package database

import (
	"time"

	"github.com/focuslog/focuslog/internal/models"

	"github.com/pkg/errors"
)

// Repository handles all database operations for session history
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// RecordSession inserts a closed focus session
func (r *Repository) RecordSession(session *models.SessionRecord) error {
	result := r.db.Create(session)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert session")
	}
	return nil
}

// SessionsSince retrieves all sessions that started at or after since
func (r *Repository) SessionsSince(since time.Time) ([]*models.SessionRecord, error) {
	var sessions []*models.SessionRecord
	result := r.db.Where("started_at >= ?", since).Order("started_at ASC").Find(&sessions)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query sessions")
	}

	return sessions, nil
}

// AppSummarySince returns per-application totals since a given time
func (r *Repository) AppSummarySince(since time.Time) ([]models.AppSummary, error) {
	var summaries []models.AppSummary

	result := r.db.Model(&models.SessionRecord{}).
		Select("application, SUM(seconds) as total_seconds, COUNT(*) as session_count").
		Where("started_at >= ?", since).
		Group("application").
		Order("total_seconds DESC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query app summary")
	}

	for i := range summaries {
		summaries[i].TotalMinutes = float64(summaries[i].TotalSeconds) / 60
		summaries[i].TotalHours = float64(summaries[i].TotalSeconds) / 3600
	}
	return summaries, nil
}

// DeleteSessionsBefore deletes sessions whose date key sorts before date (soft delete)
func (r *Repository) DeleteSessionsBefore(date string) (int64, error) {
	result := r.db.Where("date < ?", date).Delete(&models.SessionRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old sessions")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// RecentErrors returns the newest error logs first
func (r *Repository) RecentErrors(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// Clear removes all sessions and error logs from the database
func (r *Repository) Clear() error {
	if result := r.db.Exec("DELETE FROM session_records"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear sessions")
	}
	if result := r.db.Exec("DELETE FROM error_logs"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	return nil
}
