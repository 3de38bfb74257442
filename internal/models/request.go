package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrNoAttendees       = errors.New("at least one attendee is required")
	ErrStartDateInPast   = errors.New("start date must be today or in the future")
	ErrEndBeforeStart    = errors.New("end time must be after start time")
	ErrEmptyDateRange    = errors.New("end date must not be before start date")
	ErrInvalidSlotLength = errors.New("slot length must be positive")
)

// Request describes one search for meeting times.
// Dates and the daily window are wall-clock values in Location.
type Request struct {
	Attendees  []string       // Attendee emails, in the order given
	StartDate  time.Time      // First day searched; only the calendar date is used
	EndDate    time.Time      // Exclusive last day; only the calendar date is used
	DailyStart int            // Minutes since midnight
	DailyEnd   int            // Minutes since midnight, after DailyStart
	SlotLength int            // Meeting length in minutes
	Location   *time.Location // Zone the dates and window are read in; nil means time.Local
}

// Loc returns the request's location, defaulting to time.Local.
func (r Request) Loc() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

// Window returns the instants bounding the searched date range:
// midnight of StartDate to midnight of EndDate.
func (r Request) Window() (time.Time, time.Time) {
	return Midnight(r.StartDate, r.Loc()), Midnight(r.EndDate, r.Loc())
}

// Validate checks the request the way the entry form did before searching.
// now decides what "today" is.
func (r Request) Validate(now time.Time) error {
	if len(r.Attendees) == 0 {
		return ErrNoAttendees
	}
	loc := r.Loc()
	if Midnight(r.StartDate, loc).Before(Midnight(now.In(loc), loc)) {
		return ErrStartDateInPast
	}
	if Midnight(r.EndDate, loc).Before(Midnight(r.StartDate, loc)) {
		return ErrEmptyDateRange
	}
	if r.DailyEnd <= r.DailyStart {
		return ErrEndBeforeStart
	}
	if r.SlotLength <= 0 {
		return ErrInvalidSlotLength
	}
	return nil
}

// Midnight returns the start of t's calendar date in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseClock converts an HH:MM time of day into minutes since midnight.
// 24:00 is accepted as the end of the day.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	total := hours*60 + minutes
	if hours < 0 || minutes < 0 || minutes > 59 || total > 24*60 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return total, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
