package db

import (
	"context"
	"errors"
	"time"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
)

var (
	// ErrNotFound is returned when a lookup or conditional update matches no row
	ErrNotFound = errors.New("record not found")
	// ErrOpenSessionExists is returned when inserting a second open session for a volunteer
	ErrOpenSessionExists = errors.New("volunteer already has an open attendance session")
)

// VolunteerStore defines the interface for volunteer database operations
type VolunteerStore interface {
	// GetVolunteerByCode matches code case-insensitively within org
	GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*Volunteer, error)
	GetVolunteerByID(ctx context.Context, id string) (*Volunteer, error)
	ListVolunteers(ctx context.Context, org model.Org) ([]Volunteer, error)
	SetVolunteerTelegramID(ctx context.Context, id string, telegramID string) error
}

// VolunteerProvisioner creates volunteer records; volunteers are otherwise read-only
type VolunteerProvisioner interface {
	InsertVolunteer(ctx context.Context, volunteer *Volunteer) error
}

// AttendanceStore defines the interface for attendance session database operations
type AttendanceStore interface {
	// GetOpenSession returns the most recently opened session with no exit time
	GetOpenSession(ctx context.Context, volunteerID string) (*AttendanceSession, error)
	// GetOpenSessionByCode is GetOpenSession keyed by a case-insensitive code within org
	GetOpenSessionByCode(ctx context.Context, org model.Org, code string) (*AttendanceSession, error)
	GetSession(ctx context.Context, id string) (*AttendanceSession, error)
	InsertSession(ctx context.Context, session *AttendanceSession) error
	// CloseSession sets the exit fields only if the session is still open
	CloseSession(ctx context.Context, id string, exitTime time.Time, durationMinutes int) (*AttendanceSession, error)
	SetSessionStatus(ctx context.Context, id string, status model.Status) (*AttendanceSession, error)
	ListSessions(ctx context.Context, volunteerID string, limit int) ([]AttendanceSession, error)
	ListOpenSessions(ctx context.Context) ([]AttendanceSession, error)
	ListSessionsByOrg(ctx context.Context, org model.Org) ([]AttendanceSession, error)
}

// TaskStore defines the interface for task database operations
type TaskStore interface {
	InsertTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	ListTasks(ctx context.Context, volunteerID string, limit int) ([]Task, error)
	ListTasksByOrg(ctx context.Context, org model.Org) ([]Task, error)
}

// AuditStore defines the interface for audit log persistence
type AuditStore interface {
	InsertAuditRecord(ctx context.Context, record *AuditRecord) error
}

// AuditReader defines the interface for reading the audit trail of a row
type AuditReader interface {
	ListAuditRecords(ctx context.Context, targetTable, targetID string) ([]AuditRecord, error)
}

// Database defines the interface for all database operations.
// Both postgres.DB and sqlite.DB implement this interface.
type Database interface {
	VolunteerStore
	VolunteerProvisioner
	AttendanceStore
	TaskStore
	AuditStore
	AuditReader
	RunMigrations(ctx context.Context) error
	Close()
}
