package db

import (
	"time"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
)

// Volunteer represents a pre-provisioned volunteer record
type Volunteer struct {
	ID         string    `json:"id"`
	Org        model.Org `json:"org"`
	UniqueCode string    `json:"unique_code"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	TelegramID string    `json:"telegram_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttendanceSession represents one check-in/check-out pair.
// A session with a nil ExitTime is open.
type AttendanceSession struct {
	ID              string       `json:"id"`
	Org             model.Org    `json:"org"`
	VolunteerID     string       `json:"volunteer_id"`
	UniqueCode      string       `json:"unique_code"`
	DeviceID        string       `json:"device_id"`
	EntryTime       time.Time    `json:"entry_time"`
	ExitTime        *time.Time   `json:"exit_time"`
	DurationMinutes *int         `json:"duration_minutes"`
	Status          model.Status `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
}

// IsOpen reports whether the session has not been checked out
func (s *AttendanceSession) IsOpen() bool {
	return s.ExitTime == nil
}

// Task represents a unit of volunteer work, self-logged or assigned
type Task struct {
	ID              string       `json:"id"`
	Org             model.Org    `json:"org"`
	VolunteerID     string       `json:"volunteer_id"`
	UniqueCode      string       `json:"unique_code"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Category        string       `json:"category"`
	Status          model.Status `json:"status"`
	DurationMinutes int          `json:"duration_minutes"`
	CompletedAt     *time.Time   `json:"completed_at"`
	CreatedAt       time.Time    `json:"created_at"`
}

// AuditRecord is an append-only log entry for a mutating action
type AuditRecord struct {
	ID          string         `json:"id"`
	Org         model.Org      `json:"org"`
	Actor       string         `json:"actor"`
	Action      string         `json:"action"`
	TargetTable string         `json:"target_table"`
	TargetID    string         `json:"target_id"`
	Details     map[string]any `json:"details"`
	CreatedAt   time.Time      `json:"created_at"`
}
