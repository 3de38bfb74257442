package models

import "time"

// Event represents a busy block on an attendee's calendar.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID     string    // Identifier from the source calendar, if any
	Title  string    // Summary of the event; free/busy sources leave it empty
	Start  time.Time // Start instant of the event
	End    time.Time // End instant of the event, after Start
	Source string    // The source of the event (e.g., "google", "demo")
}

// Slot is a candidate meeting time.
type Slot struct {
	Start  time.Time
	Length time.Duration
}

// End returns the instant the slot finishes.
func (s Slot) End() time.Time {
	return s.Start.Add(s.Length)
}
