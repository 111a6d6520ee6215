package services

import (
	"context"
	"math"
	"time"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
	"github.com/jakechorley/volunteer-portal/pkg/notify"
)

// Auditor appends one audit record per mutating action
type Auditor interface {
	Record(ctx context.Context, org model.Org, actor, action, targetTable, targetID string, details map[string]any) error
}

// Notifier queues best-effort chat messages. An empty ChatID targets the admin chat.
type Notifier interface {
	Enqueue(msg notify.Message) bool
}

// Deps bundles the side-effect collaborators shared by every mutating service
type Deps struct {
	Auditor  Auditor
	Notifier Notifier
	// Now defaults to time.Now
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// notifyAdmin queues a message for the admin chat
func (d Deps) notifyAdmin(text string) {
	d.Notifier.Enqueue(notify.Message{Text: text})
}

// notifyVolunteer queues a message for a volunteer if they have linked Telegram
func (d Deps) notifyVolunteer(telegramID, text string) {
	if telegramID == "" {
		return
	}
	d.Notifier.Enqueue(notify.Message{ChatID: telegramID, Text: text})
}

// EventZone is the event's local time (Nepal, UTC+05:45, no DST)
var EventZone = time.FixedZone("NPT", 5*60*60+45*60)

func eventClock(t time.Time) string {
	return t.In(EventZone).Format("3:04:05 PM")
}

// durationMinutes rounds the elapsed time between entry and exit to whole minutes
func durationMinutes(entry, exit time.Time) int {
	ms := exit.Sub(entry).Milliseconds()
	if ms < 0 {
		return 0
	}
	return int(math.Round(float64(ms) / 60000))
}
