package availability

import (
	"context"
	"fmt"
	"maps"
	"slotfinder/internal/models"
	"time"
)

const demoUserEmail = "demo@example.com"

var demoNames = map[string]string{
	"demo@example.com":  "Demo User",
	"john@example.com":  "John Smith",
	"jane@example.com":  "Jane Doe",
	"bob@example.com":   "Bob Johnson",
	"alice@example.com": "Alice Brown",
	"mike@example.com":  "Mike Wilson",
}

// demoEntry is a fixture event: days after today, then UTC start and end clock times.
type demoEntry struct {
	day        int
	start, end string
	title      string
}

var demoSchedule = map[string][]demoEntry{
	"demo@example.com": {
		{1, "09:00", "10:00", "Morning Standup"},
		{2, "15:00", "16:00", "Demo Preparation"},
		{3, "11:00", "12:00", "Product Review"},
	},
	"john@example.com": {
		{1, "10:00", "11:00", "Team Standup"},
		{1, "14:00", "15:30", "Client Meeting"},
		{2, "09:00", "10:00", "Morning Sync"},
		{2, "13:00", "14:00", "Lunch Meeting"},
		{3, "11:00", "12:00", "Project Review"},
		{3, "15:30", "16:30", "Design Discussion"},
		{4, "10:30", "11:30", "Code Review"},
	},
	"jane@example.com": {
		{1, "09:30", "10:30", "Marketing Sync"},
		{1, "11:30", "12:30", "Budget Meeting"},
		{2, "10:00", "11:30", "Strategy Planning"},
		{2, "14:30", "15:30", "HR Interview"},
		{3, "09:00", "10:30", "Quarterly Review"},
		{3, "14:00", "15:00", "Team Meeting"},
		{4, "13:30", "14:30", "Client Call"},
	},
	"bob@example.com": {
		{1, "11:00", "12:00", "Architecture Review"},
		{1, "15:00", "16:00", "Security Audit"},
		{2, "09:30", "10:30", "Database Migration"},
		{2, "16:00", "17:00", "Infrastructure Planning"},
		{3, "10:00", "11:30", "Technical Deep Dive"},
		{3, "13:00", "14:30", "Performance Review"},
		{4, "09:00", "10:00", "Sprint Planning"},
		{4, "15:00", "16:00", "DevOps Sync"},
	},
	"alice@example.com": {
		{1, "13:00", "14:00", "UX Research"},
		{1, "16:30", "17:30", "Design Review"},
		{2, "11:00", "12:00", "User Testing"},
		{2, "15:00", "16:00", "Prototype Demo"},
		{3, "12:30", "13:30", "Stakeholder Meeting"},
		{3, "16:00", "17:00", "Design System Update"},
		{4, "11:30", "12:30", "Accessibility Review"},
	},
	"mike@example.com": {
		{1, "12:30", "13:30", "Sales Call"},
		{2, "12:00", "13:00", "Customer Demo"},
		{3, "08:30", "09:30", "Early Meeting"},
		{3, "17:00", "18:00", "Late Call"},
		{4, "14:00", "15:00", "Pipeline Review"},
	},
}

// Demo is a simulated calendar for trying the tool without any account.
// Its events are laid out over the week following the day it was built for.
type Demo struct {
	events map[string][]models.Event
}

// NewDemo builds the demo calendar relative to the calendar date of today
// in its own location. Fixture clock times are UTC.
func NewDemo(today time.Time) *Demo {
	y, m, d := today.Date()
	events := make(map[string][]models.Event, len(demoSchedule))
	for email, entries := range demoSchedule {
		for i, e := range entries {
			events[email] = append(events[email], models.Event{
				ID:     fmt.Sprintf("%s-%d", email, i),
				Title:  e.title,
				Start:  demoInstant(y, m, d+e.day, e.start),
				End:    demoInstant(y, m, d+e.day, e.end),
				Source: "demo",
			})
		}
	}
	return &Demo{events: events}
}

func demoInstant(y int, m time.Month, d int, clock string) time.Time {
	minutes, err := models.ParseClock(clock)
	if err != nil {
		panic(err)
	}
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, time.UTC)
}

func (s *Demo) Name() string { return "demo" }

func (s *Demo) Busy(_ context.Context, email string, from, to time.Time) ([]models.Event, error) {
	return within(s.events[normalizeEmail(email)], from, to), nil
}

func (s *Demo) DisplayNames() map[string]string { return maps.Clone(demoNames) }

func (s *Demo) SelfEmail() string { return demoUserEmail }
