package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/db"
	"github.com/jakechorley/volunteer-portal/pkg/notify"
)

// fakeStore is an in-memory datastore honouring the same invariants as the SQL stores
type fakeStore struct {
	mu         sync.Mutex
	volunteers []db.Volunteer
	sessions   []db.AttendanceSession
	tasks      []db.Task

	// probes counts GetVolunteerByCode calls per org
	probes map[model.Org]int

	lookupErr error
	insertErr error
}

func newFakeStore(volunteers ...db.Volunteer) *fakeStore {
	return &fakeStore{volunteers: volunteers, probes: map[model.Org]int{}}
}

func (f *fakeStore) GetVolunteerByCode(ctx context.Context, org model.Org, code string) (*db.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes[org]++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, v := range f.volunteers {
		if v.Org == org && strings.EqualFold(v.UniqueCode, code) {
			v := v
			return &v, nil
		}
	}
	return nil, fmt.Errorf("get volunteer: %w", db.ErrNotFound)
}

func (f *fakeStore) GetVolunteerByID(ctx context.Context, id string) (*db.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.volunteers {
		if v.ID == id {
			v := v
			return &v, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) ListVolunteers(ctx context.Context, org model.Org) ([]db.Volunteer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Volunteer
	for _, v := range f.volunteers {
		if v.Org == org {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertVolunteer(ctx context.Context, volunteer *db.Volunteer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	volunteer.CreatedAt = time.Now().UTC()
	f.volunteers = append(f.volunteers, *volunteer)
	return nil
}

func (f *fakeStore) SetVolunteerTelegramID(ctx context.Context, id string, telegramID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.volunteers {
		if f.volunteers[i].ID == id {
			f.volunteers[i].TelegramID = telegramID
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeStore) openSessions(match func(db.AttendanceSession) bool) []db.AttendanceSession {
	var out []db.AttendanceSession
	for _, s := range f.sessions {
		if s.IsOpen() && match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.After(out[j].EntryTime) })
	return out
}

func (f *fakeStore) GetOpenSession(ctx context.Context, volunteerID string) (*db.AttendanceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	open := f.openSessions(func(s db.AttendanceSession) bool { return s.VolunteerID == volunteerID })
	if len(open) == 0 {
		return nil, db.ErrNotFound
	}
	return &open[0], nil
}

func (f *fakeStore) GetOpenSessionByCode(ctx context.Context, org model.Org, code string) (*db.AttendanceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	open := f.openSessions(func(s db.AttendanceSession) bool {
		return s.Org == org && strings.EqualFold(s.UniqueCode, code)
	})
	if len(open) == 0 {
		return nil, db.ErrNotFound
	}
	return &open[0], nil
}

func (f *fakeStore) GetSession(ctx context.Context, id string) (*db.AttendanceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) InsertSession(ctx context.Context, session *db.AttendanceSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, s := range f.sessions {
		if s.VolunteerID == session.VolunteerID && s.IsOpen() {
			return db.ErrOpenSessionExists
		}
	}
	session.CreatedAt = time.Now().UTC()
	f.sessions = append(f.sessions, *session)
	return nil
}

func (f *fakeStore) CloseSession(ctx context.Context, id string, exitTime time.Time, durationMinutes int) (*db.AttendanceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		s := &f.sessions[i]
		if s.ID == id && s.IsOpen() {
			exit := exitTime
			minutes := durationMinutes
			s.ExitTime = &exit
			s.DurationMinutes = &minutes
			s.Status = model.StatusPending
			out := *s
			return &out, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) SetSessionStatus(ctx context.Context, id string, status model.Status) (*db.AttendanceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			f.sessions[i].Status = status
			out := f.sessions[i]
			return &out, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) ListSessions(ctx context.Context, volunteerID string, limit int) ([]db.AttendanceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.AttendanceSession
	for _, s := range f.sessions {
		if s.VolunteerID == volunteerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.After(out[j].EntryTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListOpenSessions(ctx context.Context) ([]db.AttendanceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openSessions(func(db.AttendanceSession) bool { return true }), nil
}

func (f *fakeStore) ListSessionsByOrg(ctx context.Context, org model.Org) ([]db.AttendanceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.AttendanceSession
	for _, s := range f.sessions {
		if s.Org == org {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertTask(ctx context.Context, task *db.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task.CreatedAt = time.Now().UTC()
	f.tasks = append(f.tasks, *task)
	return nil
}

func (f *fakeStore) GetTask(ctx context.Context, id string) (*db.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) UpdateTask(ctx context.Context, task *db.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == task.ID {
			f.tasks[i].Status = task.Status
			f.tasks[i].DurationMinutes = task.DurationMinutes
			f.tasks[i].CompletedAt = task.CompletedAt
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeStore) ListTasks(ctx context.Context, volunteerID string, limit int) ([]db.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Task
	for _, t := range f.tasks {
		if t.VolunteerID == volunteerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListTasksByOrg(ctx context.Context, org model.Org) ([]db.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Task
	for _, t := range f.tasks {
		if t.Org == org {
			out = append(out, t)
		}
	}
	return out, nil
}

// auditEntry is one call to mockAuditor.Record
type auditEntry struct {
	Org     model.Org
	Actor   string
	Action  string
	Table   string
	ID      string
	Details map[string]any
}

type mockAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
	err     error
}

func (m *mockAuditor) Record(ctx context.Context, org model.Org, actor, action, targetTable, targetID string, details map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, auditEntry{org, actor, action, targetTable, targetID, details})
	return nil
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (m *mockNotifier) Enqueue(msg notify.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return true
}

// adminMessages returns texts sent to the admin chat
func (m *mockNotifier) adminMessages() []string {
	return m.to("")
}

func (m *mockNotifier) to(chatID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, msg.Text)
		}
	}
	return out
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newDeps() (Deps, *mockAuditor, *mockNotifier) {
	auditor := &mockAuditor{}
	notifier := &mockNotifier{}
	return Deps{Auditor: auditor, Notifier: notifier, Now: func() time.Time { return fixedNow }}, auditor, notifier
}

func itVolunteer() db.Volunteer {
	return db.Volunteer{ID: "vol-it", Org: model.OrgITECPEC, UniqueCode: "IT-001", Name: "Asha", Role: "Registration"}
}

func caVolunteer() db.Volunteer {
	return db.Volunteer{ID: "vol-ca", Org: model.OrgCAPEC, UniqueCode: "CA-001", Name: "Bikash", Role: "Logistics", TelegramID: "555"}
}
