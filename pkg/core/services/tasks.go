package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// TaskStore is the datastore surface used by the task lifecycle
type TaskStore interface {
	GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*db.Volunteer, error)
	GetVolunteerByID(ctx context.Context, id string) (*db.Volunteer, error)
	InsertTask(ctx context.Context, task *db.Task) error
	GetTask(ctx context.Context, id string) (*db.Task, error)
	UpdateTask(ctx context.Context, task *db.Task) error
}

// TaskInput carries the fields common to self-logged and assigned tasks
type TaskInput struct {
	Code        string
	Org         model.Org
	Title       string
	Description string
	Category    string
	// Minutes is only honoured for self-logged tasks
	Minutes *int
}

// TaskResult is a task together with its owner
type TaskResult struct {
	Task      *db.Task
	Volunteer *db.Volunteer
	Org       model.Org
}

func newTask(volunteer *db.Volunteer, in TaskInput, status model.Status) *db.Task {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = model.DefaultTaskCategory
	}
	return &db.Task{
		ID:          uuid.New().String(),
		Org:         volunteer.Org,
		VolunteerID: volunteer.ID,
		UniqueCode:  volunteer.UniqueCode,
		Title:       in.Title,
		Description: in.Description,
		Category:    category,
		Status:      status,
	}
}

// CreateTask records a task a volunteer already did, pending review
func CreateTask(ctx context.Context, store TaskStore, deps Deps, logger *zap.Logger, in TaskInput) (*TaskResult, error) {
	volunteer, err := ResolveVolunteer(ctx, store, logger, in.Code, in.Org, ModeFallback)
	if errors.Is(err, ErrVolunteerNotFound) {
		return nil, requestError(ErrVolunteerNotFound, "Invalid Code")
	}
	if err != nil {
		return nil, err
	}

	task := newTask(volunteer, in, model.StatusPending)
	if in.Minutes != nil && *in.Minutes > 0 {
		task.DurationMinutes = *in.Minutes
	}

	logger.Debug("Creating self-logged task",
		zap.String("volunteer", volunteer.Name),
		zap.String("title", task.Title),
		zap.Int("duration_minutes", task.DurationMinutes))

	if err := store.InsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := deps.Auditor.Record(ctx, task.Org, model.ActorVolunteer, "create_task", model.TableTasks, task.ID,
		map[string]any{"title": task.Title}); err != nil {
		return nil, err
	}

	deps.notifyAdmin(fmt.Sprintf("📝 *Task Logged*\nVolunteer: *%s*\nTask: %s\nDuration: %d mins\nOrg: %s\nStatus: Pending Approval",
		volunteer.Name, task.Title, task.DurationMinutes, task.Org))

	return &TaskResult{Task: task, Volunteer: volunteer, Org: task.Org}, nil
}

// AssignTask creates a task for a volunteer on an administrator's behalf
func AssignTask(ctx context.Context, store TaskStore, deps Deps, logger *zap.Logger, in TaskInput) (*TaskResult, error) {
	if strings.TrimSpace(in.Code) == "" || !in.Org.IsValid() || strings.TrimSpace(in.Title) == "" {
		return nil, requestError(ErrMissingFields, "Missing required fields (code, org, title)")
	}

	volunteer, err := ResolveVolunteer(ctx, store, logger, in.Code, in.Org, ModeRedirect)
	if err != nil {
		return nil, err
	}

	task := newTask(volunteer, in, model.StatusAssigned)

	logger.Debug("Assigning task",
		zap.String("volunteer", volunteer.Name),
		zap.String("title", task.Title),
		zap.String("category", task.Category))

	if err := store.InsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	if err := deps.Auditor.Record(ctx, task.Org, model.ActorAdmin, "assign_task", model.TableTasks, task.ID,
		map[string]any{"title": task.Title, "volunteer": volunteer.Name}); err != nil {
		return nil, err
	}

	deps.notifyAdmin(fmt.Sprintf("🛠 *Task Assigned*\n\n👤 Volunteer: %s\n📌 Task: %s\n⏱ Priority: High\n\nAssignment sent successfully.",
		volunteer.Name, task.Title))

	description := task.Description
	if description == "" {
		description = "No additional details."
	}
	deps.notifyVolunteer(volunteer.TelegramID, fmt.Sprintf("🆕 *New Task Assigned*\n\n📌 Task: %s\n🧭 Category: %s\n⏱ Priority: High\n\n📝 Details:\n%s\n\nPlease complete and update once done.",
		task.Title, task.Category, description))

	logger.Info("Task assigned",
		zap.String("task_id", task.ID),
		zap.String("volunteer", volunteer.Name),
		zap.String("org", string(task.Org)))

	return &TaskResult{Task: task, Volunteer: volunteer, Org: task.Org}, nil
}

// TransitionInput is a volunteer's accept or complete request for a task
type TransitionInput struct {
	TaskID  string
	Action  string
	Minutes *int
	// Org, when set, must match the task's org
	Org model.Org
}

// TransitionTask moves a task through accept (in progress) or complete (pending review)
func TransitionTask(ctx context.Context, store TaskStore, deps Deps, logger *zap.Logger, in TransitionInput) (*TaskResult, error) {
	taskID := strings.TrimSpace(in.TaskID)
	action := strings.TrimSpace(in.Action)
	if taskID == "" || action == "" || in.Org == "" {
		return nil, requestError(ErrMissingFields, "Missing required fields (taskId, action, org)")
	}

	if action != model.TaskActionAccept && action != model.TaskActionComplete {
		return nil, requestError(ErrInvalidAction, "Invalid action. Use 'accept' or 'complete'.")
	}
	if action == model.TaskActionComplete && (in.Minutes == nil || *in.Minutes <= 0) {
		return nil, requestError(ErrMissingMinutes, "Minutes spent is required for completion")
	}

	task, err := store.GetTask(ctx, taskID)
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

	var auditAction string
	details := map[string]any{"title": task.Title, "volunteer": volunteer.Name}
	switch action {
	case model.TaskActionAccept:
		task.Status = model.StatusInProgress
		auditAction = "accept_task"
	case model.TaskActionComplete:
		completedAt := deps.now()
		task.Status = model.StatusPending
		task.DurationMinutes = *in.Minutes
		task.CompletedAt = &completedAt
		auditAction = "submit_task"
		details["minutes"] = *in.Minutes
	}

	logger.Debug("Transitioning task",
		zap.String("task_id", task.ID),
		zap.String("action", action),
		zap.String("status", string(task.Status)))

	if err := store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if err := deps.Auditor.Record(ctx, task.Org, model.ActorVolunteer, auditAction, model.TableTasks, task.ID, details); err != nil {
		return nil, err
	}

	if action == model.TaskActionComplete {
		deps.notifyAdmin(fmt.Sprintf("🛠️ *Task Submitted*\nVolunteer: *%s*\nTask: %s\nDuration: %d mins\nOrg: %s\nStatus: Pending Approval",
			volunteer.Name, task.Title, task.DurationMinutes, task.Org))
	} else {
		deps.notifyAdmin(fmt.Sprintf("▶️ *Task Accepted*\nVolunteer: *%s*\nTask: %s\nOrg: %s",
			volunteer.Name, task.Title, task.Org))
	}

	return &TaskResult{Task: task, Volunteer: volunteer, Org: task.Org}, nil
}
