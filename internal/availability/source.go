// Package availability defines where attendees' busy times come from.
package availability

import (
	"context"
	"slotfinder/internal/models"
	"strings"
	"time"
)

// Source looks up the busy events of one attendee between from and to.
// An attendee the source knows nothing about has no events; that is not an error.
type Source interface {
	Name() string
	Busy(ctx context.Context, email string, from, to time.Time) ([]models.Event, error)
}

// Namer is implemented by sources that know attendees' display names.
type Namer interface {
	DisplayNames() map[string]string
}

// Identity is implemented by sources that know who the current user is.
type Identity interface {
	SelfEmail() string
}

// normalizeEmail lowercases an address and strips a mailto: prefix.
func normalizeEmail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= len("mailto:") && strings.EqualFold(s[:len("mailto:")], "mailto:") {
		s = s[len("mailto:"):]
	}
	return strings.ToLower(s)
}

// within keeps the events that overlap [from, to). Zero bounds are open.
func within(events []models.Event, from, to time.Time) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if !from.IsZero() && !e.End.After(from) {
			continue
		}
		if !to.IsZero() && !e.Start.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}
