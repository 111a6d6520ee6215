package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// ModerationStore is the datastore surface used to approve or decline work
type ModerationStore interface {
	GetVolunteerByID(ctx context.Context, id string) (*db.Volunteer, error)
	GetSession(ctx context.Context, id string) (*db.AttendanceSession, error)
	SetSessionStatus(ctx context.Context, id string, status model.Status) (*db.AttendanceSession, error)
	GetTask(ctx context.Context, id string) (*db.Task, error)
	UpdateTask(ctx context.Context, task *db.Task) error
}

// ModerationInput is an administrator's decision on an attendance session or task
type ModerationInput struct {
	ID     string
	Status model.Status
	Note   string
	// Actor defaults to "admin"
	Actor string
	// Org, when set, must match the record's org
	Org model.Org
}

// ModerationResult carries whichever record was moderated
type ModerationResult struct {
	Session   *db.AttendanceSession
	Task      *db.Task
	Volunteer *db.Volunteer
}

func (in ModerationInput) validate() error {
	if strings.TrimSpace(in.ID) == "" || in.Status == "" {
		return requestError(ErrMissingFields, "Missing required fields (id, status)")
	}
	if !in.Status.IsModeration() {
		return requestError(ErrInvalidStatus, "Invalid status '%s'. Use 'approved' or 'declined'.", in.Status)
	}
	return nil
}

func (in ModerationInput) actor() string {
	if a := strings.TrimSpace(in.Actor); a != "" {
		return a
	}
	return model.ActorAdmin
}

// ModerateSession approves or declines an attendance session
func ModerateSession(ctx context.Context, store ModerationStore, deps Deps, logger *zap.Logger, in ModerationInput) (*ModerationResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := store.GetSession(ctx, in.ID)
	if errors.Is(err, db.ErrNotFound) || (err == nil && in.Org.IsValid() && existing.Org != in.Org) {
		return nil, requestError(ErrSessionNotFound, "Attendance record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance session: %w", err)
	}

	volunteer, err := store.GetVolunteerByID(ctx, existing.VolunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session owner: %w", err)
	}

	session, err := store.SetSessionStatus(ctx, in.ID, in.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to update attendance status: %w", err)
	}

	logger.Debug("Moderated attendance session",
		zap.String("session_id", session.ID),
		zap.String("status", string(in.Status)),
		zap.String("actor", in.actor()))

	if err := deps.Auditor.Record(ctx, session.Org, in.actor(), "approve", model.TableAttendance, session.ID,
		map[string]any{"status": string(in.Status), "note": in.Note, "volunteer": volunteer.Name}); err != nil {
		return nil, err
	}

	deps.notifyVolunteer(volunteer.TelegramID, moderationMessage(in.Status, in.Note,
		"🕒 Attendance", "Date: "+session.EntryTime.In(EventZone).Format("1/2/2006")))

	return &ModerationResult{Session: session, Volunteer: volunteer}, nil
}

// ModerateTask approves or declines a task
func ModerateTask(ctx context.Context, store ModerationStore, deps Deps, logger *zap.Logger, in ModerationInput) (*ModerationResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	task, err := store.GetTask(ctx, in.ID)
	if errors.Is(err, db.ErrNotFound) || (err == nil && in.Org.IsValid() && task.Org != in.Org) {
		return nil, requestError(ErrTaskNotFound, "Task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	volunteer, err := store.GetVolunteerByID(ctx, task.VolunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task owner: %w", err)
	}

	task.Status = in.Status
	if err := store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	logger.Debug("Moderated task",
		zap.String("task_id", task.ID),
		zap.String("status", string(in.Status)),
		zap.String("actor", in.actor()))

	if err := deps.Auditor.Record(ctx, task.Org, in.actor(), "approve", model.TableTasks, task.ID,
		map[string]any{"status": string(in.Status), "note": in.Note, "volunteer": volunteer.Name}); err != nil {
		return nil, err
	}

	title := task.Title
	if title == "" {
		title = "Untitled Task"
	}
	deps.notifyVolunteer(volunteer.TelegramID, moderationMessage(in.Status, in.Note, "🛠 Task", "Title: "+title))

	return &ModerationResult{Task: task, Volunteer: volunteer}, nil
}

func moderationMessage(status model.Status, note, kind, subject string) string {
	var b strings.Builder
	if status == model.StatusApproved {
		b.WriteString("🎉 *Item Approved*\n\n")
	} else {
		b.WriteString("⚠️ *Item Declined*\n\n")
	}
	b.WriteString("Type: " + kind + "\n")
	b.WriteString(subject + "\n")
	if status == model.StatusApproved {
		b.WriteString("Status: ✅ *Approved*\n")
	} else {
		b.WriteString("Status: ❌ *Declined*\n")
	}
	if note != "" {
		b.WriteString("Note: " + note + "\n")
	}
	if status == model.StatusApproved {
		b.WriteString("\nGreat job! Keep up the good work. 🚀")
	}
	return b.String()
}
