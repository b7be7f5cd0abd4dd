// Package notify delivers operator alerts (detected opportunities, trade
// outcomes, unbalanced positions) over one or more channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is implemented by each notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to its senders, filtered by event type.
// An empty event list allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to senders. Only events listed in
// events pass the filter; an empty list allows all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers to all senders when the event type passes the filter. A
// failing sender does not block delivery to the rest; failures are combined
// into the returned error.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		return nil
	}
	if len(n.senders) == 0 {
		return nil
	}

	var failed []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Warn("sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			failed = append(failed, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}
