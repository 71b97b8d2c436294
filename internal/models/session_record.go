package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionRecord is one closed interval of continuous focus on a window title.
type SessionRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Date        string         `gorm:"not null;index" json:"date"` // usage document key
	Application string         `gorm:"not null;index" json:"application"`
	StartedAt   time.Time      `gorm:"not null;index" json:"started_at"`
	EndedAt     time.Time      `gorm:"not null" json:"ended_at"`
	Seconds     int64          `gorm:"not null;default:0" json:"seconds"`
	RunID       string         `gorm:"not null;index" json:"run_id"` // one per tracker process
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type AppSummary struct {
	Application  string  `json:"application"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	SessionCount int     `json:"session_count,omitempty"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period       ReportPeriod `json:"period"`
	Apps         []AppSummary `json:"apps"`
	TotalSeconds int64        `json:"total_seconds"`
	TotalMinutes float64      `json:"total_minutes"`
	TotalHours   float64      `json:"total_hours"`
	GeneratedAt  time.Time    `json:"generated_at"`
}
