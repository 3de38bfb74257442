package availability

import (
	"slotfinder/internal/models"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// BusyEvent is one VEVENT that blocks time, possibly repeating.
type BusyEvent struct {
	first models.Event
	recur *rrule.Set // nil for a single occurrence
}

// NewBusyEvent reads a VEVENT. Floating times are read in loc. It returns false
// for events without a usable time range or with a broken recurrence rule.
func NewBusyEvent(ev ical.Event, loc *time.Location, source string) (BusyEvent, bool) {
	start, err := ev.DateTimeStart(loc)
	if err != nil || start.IsZero() {
		return BusyEvent{}, false
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil || !end.After(start) {
		return BusyEvent{}, false
	}
	recur, err := ev.RecurrenceSet(loc)
	if err != nil {
		return BusyEvent{}, false
	}
	uid, _ := ev.Props.Text(ical.PropUID)
	summary, _ := ev.Props.Text(ical.PropSummary)
	return BusyEvent{
		first: models.Event{ID: uid, Title: summary, Start: start, End: end, Source: source},
		recur: recur,
	}, true
}

// Except drops the occurrence starting at t, for instances that were moved
// or cancelled and are listed on their own.
func (b BusyEvent) Except(t time.Time) {
	if b.recur != nil {
		b.recur.ExDate(t)
	}
}

// Between returns the occurrences overlapping [from, to). A recurring event
// needs both bounds; with an open bound only its first occurrence is returned.
func (b BusyEvent) Between(from, to time.Time) []models.Event {
	if b.recur == nil || from.IsZero() || to.IsZero() {
		return within([]models.Event{b.first}, from, to)
	}
	length := b.first.End.Sub(b.first.Start)
	var out []models.Event
	for _, start := range b.recur.Between(from.Add(-length), to, true) {
		e := b.first
		e.Start = start
		e.End = start.Add(length)
		out = append(out, e)
	}
	return within(out, from, to)
}

// Expand returns the occurrences of the events overlapping [from, to).
func Expand(events []BusyEvent, from, to time.Time) []models.Event {
	var out []models.Event
	for _, b := range events {
		out = append(out, b.Between(from, to)...)
	}
	return out
}
