package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slotfinder/internal/availability"
	"slotfinder/internal/models"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

const (
	// DefaultEndpoint is iCloud's CalDAV server.
	DefaultEndpoint = "https://caldav.icloud.com/"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "slotfinder/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient reads attendees' busy times from calendars on a CalDAV server
// (iCloud by default). Each attendee email is mapped to one calendar by name.
type CalDAVClient struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	calendars    map[string]string // attendee email -> calendar path
}

// NewClient connects to the CalDAV server at endpoint and resolves the calendar
// of each attendee in calendarNames (attendee email -> calendar display name).
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password string, calendarNames map[string]string) (*CalDAVClient, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		logger:       logger,
	}

	logger.Info("Finding CalDAV calendars", "endpoint", endpoint, "count", len(calendarNames))
	paths, err := c.findCalendars(ctx, calendarNames)
	if err != nil {
		return nil, err
	}
	c.calendars = paths
	logger.Info("Successfully found CalDAV calendars", "count", len(paths))

	return c, nil
}

func (c *CalDAVClient) Name() string { return "caldav" }

// Busy returns the opaque events on the attendee's calendar overlapping [from, to).
// Attendees without a mapped calendar are free.
func (c *CalDAVClient) Busy(ctx context.Context, email string, from, to time.Time) ([]models.Event, error) {
	calendarPath, ok := c.calendars[strings.ToLower(email)]
	if !ok {
		c.logger.Debug("No calendar mapped for attendee", "email", email)
		return nil, nil
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{
				Name: ical.CompEvent,
				Props: []string{
					ical.PropUID,
					ical.PropSummary,
					ical.PropDateTimeStart,
					ical.PropDateTimeEnd,
					ical.PropDuration,
					ical.PropTransparency,
					ical.PropRecurrenceRule,
					ical.PropRecurrenceDates,
					ical.PropExceptionDates,
					ical.PropRecurrenceID,
				},
			}},
			Expand: &caldav.CalendarExpandRequest{Start: from, End: to},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   to,
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar for %s: %w", email, err)
	}

	events := busyEvents(objects, from, to)
	c.logger.Debug("Fetched CalDAV events", "email", email, "count", len(events))
	return events, nil
}

// busyEvents extracts the occurrences that block time within [from, to)
// from calendar objects. Recurring events are expanded here as well, for
// servers that ignore the expand request. Transparent events and events
// without a usable time range are skipped.
func busyEvents(objects []caldav.CalendarObject, from, to time.Time) []models.Event {
	var events []models.Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		var busy []availability.BusyEvent
		var moved []time.Time
		for _, ev := range obj.Data.Events() {
			if rid := ev.Props.Get(ical.PropRecurrenceID); rid != nil {
				if t, err := rid.DateTime(time.UTC); err == nil {
					moved = append(moved, t)
				}
			}
			if transp, _ := ev.Props.Text(ical.PropTransparency); strings.EqualFold(transp, "TRANSPARENT") {
				continue
			}
			if b, ok := availability.NewBusyEvent(ev, time.UTC, "caldav"); ok {
				busy = append(busy, b)
			}
		}
		for _, b := range busy {
			for _, t := range moved {
				b.Except(t)
			}
		}
		events = append(events, availability.Expand(busy, from, to)...)
	}
	return events
}

// findCalendars discovers the user's calendars and maps each attendee to the path
// of the calendar with the matching name.
func (c *CalDAVClient) findCalendars(ctx context.Context, names map[string]string) (map[string]string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}

	byName := make(map[string]string, len(calendars))
	for _, cal := range calendars {
		byName[cal.Name] = cal.Path
	}

	paths := make(map[string]string, len(names))
	for email, name := range names {
		path, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("no calendar found with name '%s' for %s", name, email)
		}
		paths[strings.ToLower(email)] = path
	}
	return paths, nil
}
