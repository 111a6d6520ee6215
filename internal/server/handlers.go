package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/core/services"
)

// minutes accepts a JSON number, a numeric string, or null
type minutes struct {
	value *int
}

func (m *minutes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = string(data)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("invalid minutes %q", raw)
	}
	v := int(f)
	m.value = &v
	return nil
}

type checkInRequest struct {
	Code     string `json:"code"`
	DeviceID string `json:"device_id"`
	Org      string `json:"org"`
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := services.CheckIn(r.Context(), s.store, s.deps, s.logger, req.Code, model.ParseOrgHint(req.Org), req.DeviceID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if result.Already {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      false,
			"error":        "Already checked in",
			"participant":  result.Volunteer,
			"resolved_org": result.Org,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"data":         result.Session,
		"participant":  result.Volunteer,
		"resolved_org": result.Org,
	})
}

type checkOutRequest struct {
	Code string `json:"code"`
	Org  string `json:"org"`
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	var req checkOutRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := services.CheckOut(r.Context(), s.store, s.deps, s.logger, req.Code, model.ParseOrgHint(req.Org))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"data":         result.Session,
		"resolved_org": result.Org,
	})
}

type taskRequest struct {
	Code             string  `json:"code"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	TimeSpentMinutes minutes `json:"time_spent_minutes"`
	Org              string  `json:"org"`
}

func (req taskRequest) input() services.TaskInput {
	return services.TaskInput{
		Code:        req.Code,
		Org:         model.ParseOrgHint(req.Org),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Minutes:     req.TimeSpentMinutes.value,
	}
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := services.CreateTask(r.Context(), s.store, s.deps, s.logger, req.input())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"data":         result.Task,
		"resolved_org": result.Org,
	})
}

func (s *Server) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := services.AssignTask(r.Context(), s.store, s.deps, s.logger, req.input())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": result.Task})
}

type transitionRequest struct {
	TaskID  string  `json:"taskId"`
	Action  string  `json:"action"`
	Minutes minutes `json:"minutes"`
	Org     string  `json:"org"`
}

func (s *Server) handleTransitionTask(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := services.TransitionTask(r.Context(), s.store, s.deps, s.logger, services.TransitionInput{
		TaskID:  req.TaskID,
		Action:  req.Action,
		Minutes: req.Minutes.value,
		Org:     model.Org(strings.ToUpper(strings.TrimSpace(req.Org))),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": result.Task})
}

type moderationRequest struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Org        string `json:"org"`
	ApprovedBy string `json:"approved_by"`
	Note       string `json:"note"`
}

func (s *Server) handleModerate(w http.ResponseWriter, r *http.Request) {
	var req moderationRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	actor := req.ApprovedBy
	if actor == "" {
		actor = subject(r)
	}
	in := services.ModerationInput{
		ID:     req.ID,
		Status: model.Status(strings.ToLower(strings.TrimSpace(req.Status))),
		Note:   req.Note,
		Actor:  actor,
		Org:    model.ParseOrgHint(req.Org),
	}

	var result *services.ModerationResult
	var err error
	if req.Type == "task" {
		result, err = services.ModerateTask(r.Context(), s.store, s.deps, s.logger, in)
	} else {
		result, err = services.ModerateSession(r.Context(), s.store, s.deps, s.logger, in)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var data any = result.Session
	if result.Task != nil {
		data = result.Task
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	profile, err := services.LookupVolunteer(r.Context(), s.store, s.logger, query.Get("code"), query.Get("org"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"data":         profile,
		"resolved_org": profile.Volunteer.Org,
	})
}

var auditTables = map[string]bool{
	model.TableVolunteers: true,
	model.TableAttendance: true,
	model.TableTasks:      true,
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	id := r.URL.Query().Get("id")
	if !auditTables[table] || id == "" {
		s.respondError(w, r, &services.RequestError{
			Kind:    services.ErrMissingFields,
			Message: "Missing required fields (table, id)",
		})
		return
	}

	records, err := s.store.ListAuditRecords(r.Context(), table, id)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("failed to list audit records: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": records})
}
