package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

func intPtr(i int) *int { return &i }

func TestCreateTask_SelfLoggedIsPending(t *testing.T) {
	store := newFakeStore(itVolunteer())
	deps, auditor, notifier := newDeps()

	result, err := CreateTask(context.Background(), store, deps, zap.NewNop(), TaskInput{
		Code:    "IT-001",
		Title:   "Badge printing",
		Minutes: intPtr(40),
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, result.Task.Status)
	assert.Equal(t, 40, result.Task.DurationMinutes)
	assert.Equal(t, model.DefaultTaskCategory, result.Task.Category)
	assert.Equal(t, model.OrgITECPEC, result.Org)

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, "create_task", auditor.entries[0].Action)
	assert.Equal(t, model.ActorVolunteer, auditor.entries[0].Actor)
	assert.Len(t, notifier.adminMessages(), 1)
}

func TestCreateTask_WithoutMinutes(t *testing.T) {
	store := newFakeStore(caVolunteer())
	deps, _, _ := newDeps()

	result, err := CreateTask(context.Background(), store, deps, zap.NewNop(), TaskInput{
		Code: "CA-001", Org: model.OrgITECPEC, Title: "Cleanup", Category: "venue",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Task.DurationMinutes)
	assert.Equal(t, "venue", result.Task.Category)
	// silent fallback to the partition owning the code
	assert.Equal(t, model.OrgCAPEC, result.Org)
}

func TestCreateTask_InvalidCode(t *testing.T) {
	deps, _, _ := newDeps()
	_, err := CreateTask(context.Background(), newFakeStore(), deps, zap.NewNop(), TaskInput{Code: "NOPE"})
	assert.ErrorIs(t, err, ErrVolunteerNotFound)
	assert.Equal(t, "Invalid Code", err.Error())
}

func TestAssignTask(t *testing.T) {
	store := newFakeStore(caVolunteer())
	deps, auditor, notifier := newDeps()

	result, err := AssignTask(context.Background(), store, deps, zap.NewNop(), TaskInput{
		Code: "CA-001", Org: model.OrgCAPEC, Title: "Stage setup", Description: "Chairs and mics",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusAssigned, result.Task.Status)
	assert.Equal(t, 0, result.Task.DurationMinutes)
	assert.Equal(t, model.DefaultTaskCategory, result.Task.Category)

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, "assign_task", auditor.entries[0].Action)
	assert.Equal(t, model.ActorAdmin, auditor.entries[0].Actor)

	admin := notifier.adminMessages()
	require.Len(t, admin, 1)
	assert.Contains(t, admin[0], "*Task Assigned*")

	personal := notifier.to("555")
	require.Len(t, personal, 1)
	assert.Contains(t, personal[0], "Chairs and mics")
}

func TestAssignTask_UnlinkedVolunteerOnlyNotifiesAdmin(t *testing.T) {
	store := newFakeStore(itVolunteer())
	deps, _, notifier := newDeps()

	_, err := AssignTask(context.Background(), store, deps, zap.NewNop(), TaskInput{
		Code: "IT-001", Org: model.OrgITECPEC, Title: "Help desk",
	})
	require.NoError(t, err)
	assert.Len(t, notifier.messages, 1)
}

func TestAssignTask_MissingFields(t *testing.T) {
	deps, _, _ := newDeps()
	inputs := []TaskInput{
		{Org: model.OrgITECPEC, Title: "x"},
		{Code: "IT-001", Title: "x"},
		{Code: "IT-001", Org: model.OrgITECPEC},
	}
	for _, in := range inputs {
		_, err := AssignTask(context.Background(), newFakeStore(itVolunteer()), deps, zap.NewNop(), in)
		assert.ErrorIs(t, err, ErrMissingFields)
		assert.Equal(t, "Missing required fields (code, org, title)", err.Error())
	}
}

func TestAssignTask_WrongOrganization(t *testing.T) {
	deps, _, _ := newDeps()
	_, err := AssignTask(context.Background(), newFakeStore(itVolunteer()), deps, zap.NewNop(), TaskInput{
		Code: "IT-001", Org: model.OrgCAPEC, Title: "x",
	})
	var wrong *WrongOrganizationError
	require.True(t, errors.As(err, &wrong))
	assert.Equal(t, model.OrgITECPEC, wrong.Correct)
}

func assignedTask() db.Task {
	return db.Task{ID: "task-1", Org: model.OrgCAPEC, VolunteerID: "vol-ca", UniqueCode: "CA-001",
		Title: "Stage setup", Category: "general", Status: model.StatusAssigned}
}

func TestTransitionTask_AcceptThenComplete(t *testing.T) {
	store := newFakeStore(caVolunteer())
	store.tasks = []db.Task{assignedTask()}
	deps, auditor, notifier := newDeps()
	ctx := context.Background()

	accepted, err := TransitionTask(ctx, store, deps, zap.NewNop(), TransitionInput{
		TaskID: "task-1", Action: "accept", Org: model.OrgCAPEC,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, accepted.Task.Status)
	assert.Nil(t, accepted.Task.CompletedAt)

	completed, err := TransitionTask(ctx, store, deps, zap.NewNop(), TransitionInput{
		TaskID: "task-1", Action: "complete", Minutes: intPtr(75), Org: model.OrgCAPEC,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, completed.Task.Status)
	assert.Equal(t, 75, completed.Task.DurationMinutes)
	require.NotNil(t, completed.Task.CompletedAt)
	assert.True(t, completed.Task.CompletedAt.Equal(fixedNow))

	stored, err := store.GetTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)

	require.Len(t, auditor.entries, 2)
	assert.Equal(t, "accept_task", auditor.entries[0].Action)
	assert.Equal(t, "submit_task", auditor.entries[1].Action)
	assert.Equal(t, 75, auditor.entries[1].Details["minutes"])
	assert.Equal(t, "Bikash", auditor.entries[1].Details["volunteer"])

	admin := notifier.adminMessages()
	require.Len(t, admin, 2)
	assert.Contains(t, admin[1], "*Task Submitted*")
	assert.Contains(t, admin[1], "Duration: 75 mins")
}

func TestTransitionTask_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      TransitionInput
		kind    error
		message string
	}{
		{
			name:    "missing task id",
			in:      TransitionInput{Action: "accept", Org: model.OrgCAPEC},
			kind:    ErrMissingFields,
			message: "Missing required fields (taskId, action, org)",
		},
		{
			name:    "missing org",
			in:      TransitionInput{TaskID: "task-1", Action: "accept"},
			kind:    ErrMissingFields,
			message: "Missing required fields (taskId, action, org)",
		},
		{
			name:    "complete without minutes",
			in:      TransitionInput{TaskID: "task-1", Action: "complete", Org: model.OrgCAPEC},
			kind:    ErrMissingMinutes,
			message: "Minutes spent is required for completion",
		},
		{
			name:    "unknown action",
			in:      TransitionInput{TaskID: "task-1", Action: "finish", Org: model.OrgCAPEC},
			kind:    ErrInvalidAction,
			message: "Invalid action. Use 'accept' or 'complete'.",
		},
		{
			name:    "unknown task",
			in:      TransitionInput{TaskID: "task-404", Action: "accept", Org: model.OrgCAPEC},
			kind:    ErrTaskNotFound,
			message: "Task not found",
		},
		{
			name:    "task in other org",
			in:      TransitionInput{TaskID: "task-1", Action: "accept", Org: model.OrgITECPEC},
			kind:    ErrTaskNotFound,
			message: "Task not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(caVolunteer())
			store.tasks = []db.Task{assignedTask()}
			deps, auditor, _ := newDeps()

			_, err := TransitionTask(context.Background(), store, deps, zap.NewNop(), tt.in)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, err.Error())
			assert.Empty(t, auditor.entries)
			assert.Equal(t, model.StatusAssigned, store.tasks[0].Status)
		})
	}
}

func TestTransitionTask_OwnerLookupFailureLeavesTaskUnchanged(t *testing.T) {
	// No volunteer row for the task's owner
	store := newFakeStore()
	store.tasks = []db.Task{assignedTask()}
	deps, auditor, notifier := newDeps()
	ctx := context.Background()

	_, err := TransitionTask(ctx, store, deps, zap.NewNop(), TransitionInput{
		TaskID: "task-1", Action: "complete", Minutes: intPtr(20), Org: model.OrgCAPEC,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load task owner")

	stored, err := store.GetTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, stored.Status)
	assert.Equal(t, 0, stored.DurationMinutes)
	assert.Nil(t, stored.CompletedAt)
	assert.Empty(t, auditor.entries)
	assert.Empty(t, notifier.messages)
}
