package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
)

// ReportStore is the datastore surface used by BuildHoursReport
type ReportStore interface {
	ListVolunteers(ctx context.Context, org model.Org) ([]db.Volunteer, error)
	ListSessionsByOrg(ctx context.Context, org model.Org) ([]db.AttendanceSession, error)
	ListTasksByOrg(ctx context.Context, org model.Org) ([]db.Task, error)
}

// HoursRow summarises one volunteer's contribution
type HoursRow struct {
	Org               model.Org
	Code              string
	Name              string
	Role              string
	AttendanceMinutes int
	TaskMinutes       int
	PendingSessions   int
	PendingTasks      int
	OpenSession       bool
}

// TotalMinutes is approved attendance plus approved task time
func (r HoursRow) TotalMinutes() int {
	return r.AttendanceMinutes + r.TaskMinutes
}

// BuildHoursReport totals approved minutes per volunteer for each org.
// Rows are ordered by org, then total minutes descending, then name.
func BuildHoursReport(ctx context.Context, store ReportStore, logger *zap.Logger, orgs []model.Org) ([]HoursRow, error) {
	var rows []HoursRow

	for _, org := range orgs {
		logger.Debug("Building hours report", zap.String("org", string(org)))

		volunteers, err := store.ListVolunteers(ctx, org)
		if err != nil {
			return nil, fmt.Errorf("failed to list volunteers for %s: %w", org, err)
		}
		sessions, err := store.ListSessionsByOrg(ctx, org)
		if err != nil {
			return nil, fmt.Errorf("failed to list attendance for %s: %w", org, err)
		}
		tasks, err := store.ListTasksByOrg(ctx, org)
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks for %s: %w", org, err)
		}

		byID := make(map[string]*HoursRow, len(volunteers))
		orgRows := make([]*HoursRow, 0, len(volunteers))
		for _, v := range volunteers {
			row := &HoursRow{Org: org, Code: v.UniqueCode, Name: v.Name, Role: v.Role}
			byID[v.ID] = row
			orgRows = append(orgRows, row)
		}

		for _, s := range sessions {
			row, ok := byID[s.VolunteerID]
			if !ok {
				logger.Warn("Attendance session for unknown volunteer", zap.String("session_id", s.ID))
				continue
			}
			switch {
			case s.IsOpen():
				row.OpenSession = true
			case s.Status == model.StatusApproved && s.DurationMinutes != nil:
				row.AttendanceMinutes += *s.DurationMinutes
			case s.Status == model.StatusPending:
				row.PendingSessions++
			}
		}

		for _, t := range tasks {
			row, ok := byID[t.VolunteerID]
			if !ok {
				logger.Warn("Task for unknown volunteer", zap.String("task_id", t.ID))
				continue
			}
			switch t.Status {
			case model.StatusApproved:
				row.TaskMinutes += t.DurationMinutes
			case model.StatusPending:
				row.PendingTasks++
			}
		}

		sort.SliceStable(orgRows, func(i, j int) bool {
			if orgRows[i].TotalMinutes() != orgRows[j].TotalMinutes() {
				return orgRows[i].TotalMinutes() > orgRows[j].TotalMinutes()
			}
			return orgRows[i].Name < orgRows[j].Name
		})
		for _, r := range orgRows {
			rows = append(rows, *r)
		}

		logger.Debug("Hours report built for org",
			zap.String("org", string(org)),
			zap.Int("volunteers", len(orgRows)),
			zap.Int("sessions", len(sessions)),
			zap.Int("tasks", len(tasks)))
	}

	return rows, nil
}
