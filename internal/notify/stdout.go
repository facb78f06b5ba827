package notify

import (
	"context"
	"fmt"
	"time"
)

// StdoutNotifier prints events to stdout.
type StdoutNotifier struct{}

// NewStdoutNotifier creates a new stdout notifier.
func NewStdoutNotifier() *StdoutNotifier {
	return &StdoutNotifier{}
}

// Name returns "stdout".
func (s *StdoutNotifier) Name() string {
	return "stdout"
}

// Send prints the event to stdout.
func (s *StdoutNotifier) Send(_ context.Context, event Event) error {
	icon := severityIcon(event.Severity)
	ts := event.Timestamp.Format(time.RFC3339)

	fmt.Printf("%s [%s] %s %s — %s\n", icon, ts, event.EventType, event.Plan.Source, event.Message)

	if event.Plan.Replaced > 0 || event.Plan.Destroyed > 0 {
		fmt.Printf("   Disruptive: %d replaced, %d destroyed\n", event.Plan.Replaced, event.Plan.Destroyed)
	}

	return nil
}

func severityIcon(severity string) string {
	switch severity {
	case "critical":
		return "[CRIT]"
	case "warning":
		return "[WARN]"
	case "info":
		return "[INFO]"
	default:
		return "[----]"
	}
}
