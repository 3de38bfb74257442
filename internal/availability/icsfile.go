package availability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"slotfinder/internal/models"
	"time"

	"github.com/emersion/go-ical"
)

// ICSFile serves busy times from an iCalendar file. Each VEVENT blocks
// the attendees and the organizer it lists, on every occurrence.
type ICSFile struct {
	events map[string][]BusyEvent
}

// LoadICSFile reads the calendar at path. Floating times are read in loc.
func LoadICSFile(path string, loc *time.Location) (*ICSFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ics file: %w", err)
	}
	defer f.Close()

	src, err := ParseICS(f, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return src, nil
}

// ParseICS decodes every calendar in r.
func ParseICS(r io.Reader, loc *time.Location) (*ICSFile, error) {
	src := &ICSFile{events: make(map[string][]BusyEvent)}
	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		for _, ev := range cal.Events() {
			src.add(ev, loc)
		}
	}
	return src, nil
}

func (s *ICSFile) add(ev ical.Event, loc *time.Location) {
	event, ok := NewBusyEvent(ev, loc, "ics")
	if !ok {
		return
	}

	seen := make(map[string]bool)
	people := slices.Clone(ev.Props.Values(ical.PropAttendee))
	if org := ev.Props.Get(ical.PropOrganizer); org != nil {
		people = append(people, *org)
	}
	for _, p := range people {
		email := normalizeEmail(p.Value)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		s.events[email] = append(s.events[email], event)
	}
}

func (s *ICSFile) Name() string { return "ics" }

func (s *ICSFile) Busy(_ context.Context, email string, from, to time.Time) ([]models.Event, error) {
	return Expand(s.events[normalizeEmail(email)], from, to), nil
}
