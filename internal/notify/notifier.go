package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/tfdigest/tfdigest/pkg/models"
)

// Event represents a digest event sent to notification backends.
type Event struct {
	Source    string    `json:"source"`
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"`
	Plan      Plan      `json:"plan"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Plan is the plan info embedded in a digest event.
type Plan struct {
	Source    string `json:"source"`
	Created   int    `json:"created"`
	Changed   int    `json:"changed"`
	Replaced  int    `json:"replaced"`
	Destroyed int    `json:"destroyed"`
	Moved     int    `json:"moved"`
	Resources int    `json:"resources"`
}

// Notifier defines the interface for sending digest events.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send dispatches an event to the notification backend.
	Send(ctx context.Context, event Event) error
}

// Multi sends events to multiple notifiers.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a multi-notifier that dispatches to all backends.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Name returns "multi".
func (m *Multi) Name() string {
	return "multi"
}

// Send dispatches the event to all configured notifiers.
func (m *Multi) Send(ctx context.Context, event Event) error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, event); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// EventFromDigest builds the notification event for a digest. Destroys
// make the event critical, replacements a warning, anything else is
// informational.
func EventFromDigest(d *models.Digest) Event {
	plan := Plan{
		Source:    d.Source,
		Created:   d.Changes.Count(models.ActionCreated),
		Changed:   d.Changes.Count(models.ActionChanged),
		Replaced:  d.Changes.Count(models.ActionReplaced),
		Destroyed: d.Changes.Count(models.ActionDestroyed),
		Moved:     d.Changes.Count(models.ActionMoved),
		Resources: len(d.Changes.All()),
	}

	severity := "info"
	switch {
	case plan.Destroyed > 0:
		severity = "critical"
	case plan.Replaced > 0:
		severity = "warning"
	}

	msg := fmt.Sprintf("plan digest: %d to create, %d to change, %d to replace, %d to destroy, %d moved",
		plan.Created, plan.Changed, plan.Replaced, plan.Destroyed, plan.Moved)

	return Event{
		Source:    "tfdigest",
		EventType: "plan_digest",
		Severity:  severity,
		Plan:      plan,
		Message:   msg,
		Timestamp: d.AnalyzedAt,
	}
}
