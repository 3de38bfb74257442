package icloud

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/stretchr/testify/require"
)

func vevent(uid string, start, end time.Time, transparent bool) *ical.Component {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, uid)
	ev.Props.SetText(ical.PropSummary, "busy "+uid)
	ev.Props.SetDateTime(ical.PropDateTimeStart, start)
	ev.Props.SetDateTime(ical.PropDateTimeEnd, end)
	if transparent {
		ev.Props.SetText(ical.PropTransparency, "TRANSPARENT")
	}
	return ev.Component
}

func TestBusyEventsSkipsFreeAndBrokenEvents(t *testing.T) {
	start := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

	cal := ical.NewCalendar()
	cal.Children = append(cal.Children,
		vevent("opaque", start, start.Add(time.Hour), false),
		vevent("transparent", start, start.Add(time.Hour), true),
		vevent("backwards", start, start.Add(-time.Hour), false),
	)

	events := busyEvents([]caldav.CalendarObject{{Path: "/a.ics", Data: cal}, {Path: "/empty.ics"}}, time.Time{}, time.Time{})
	require.Len(t, events, 1)
	require.Equal(t, "opaque", events[0].ID)
	require.Equal(t, "busy opaque", events[0].Title)
	require.True(t, events[0].Start.Equal(start))
	require.True(t, events[0].End.Equal(start.Add(time.Hour)))
	require.Equal(t, "caldav", events[0].Source)
}

func TestCustomTransportAddsAuth(t *testing.T) {
	var user, pass, agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		agent = r.UserAgent()
	}))
	defer srv.Close()

	client := &http.Client{Transport: &customTransport{Username: "me", Password: "app-pw", Transport: http.DefaultTransport}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "me", user)
	require.Equal(t, "app-pw", pass)
	require.Equal(t, "slotfinder/1.0", agent)
}

func TestBusyEventsExpandsRecurringEvents(t *testing.T) {
	first := time.Date(2026, time.October, 5, 9, 0, 0, 0, time.UTC)
	standup := ical.NewEvent()
	standup.Props.SetText(ical.PropUID, "standup")
	standup.Props.SetDateTime(ical.PropDateTimeStart, first)
	standup.Props.SetDateTime(ical.PropDateTimeEnd, first.Add(30*time.Minute))
	rule := ical.NewProp(ical.PropRecurrenceRule)
	rule.Value = "FREQ=WEEKLY;COUNT=10"
	standup.Props.Set(rule)

	// The occurrence of the 26th moved to the 27th.
	moved := vevent("standup", first.AddDate(0, 0, 22), first.AddDate(0, 0, 22).Add(30*time.Minute), false)
	moved.Props.SetDateTime(ical.PropRecurrenceID, first.AddDate(0, 0, 21))

	cal := ical.NewCalendar()
	cal.Children = append(cal.Children, standup.Component, moved)
	objects := []caldav.CalendarObject{{Path: "/standup.ics", Data: cal}}

	from := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	events := busyEvents(objects, from, from.AddDate(0, 0, 5))
	require.Len(t, events, 1)
	require.True(t, events[0].Start.Equal(time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)))

	from = from.AddDate(0, 0, 7)
	events = busyEvents(objects, from, from.AddDate(0, 0, 5))
	require.Len(t, events, 1)
	require.True(t, events[0].Start.Equal(time.Date(2026, time.October, 27, 9, 0, 0, 0, time.UTC)))
}

// calendarBackend serves the discovery requests of a single-user CalDAV
// account. Methods it does not override are never called by the client.
type calendarBackend struct {
	caldav.Backend
	calendars []caldav.Calendar
}

func (b *calendarBackend) CurrentUserPrincipal(ctx context.Context) (string, error) {
	return "/user/", nil
}

func (b *calendarBackend) CalendarHomeSetPath(ctx context.Context) (string, error) {
	return "/user/calendars/", nil
}

func (b *calendarBackend) ListCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	return b.calendars, nil
}

func (b *calendarBackend) GetCalendar(ctx context.Context, path string) (*caldav.Calendar, error) {
	for _, cal := range b.calendars {
		if cal.Path == path {
			return &cal, nil
		}
	}
	return nil, fmt.Errorf("calendar %s not found", path)
}

const weeklyICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20261001T000000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"DTSTART:20261005T090000Z\r\n" +
	"DTEND:20261005T093000Z\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=10\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:review\r\n" +
	"DTSTAMP:20261001T000000Z\r\n" +
	"SUMMARY:Review\r\n" +
	"DTSTART:20261020T140000Z\r\n" +
	"DTEND:20261020T150000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

// reports records the calendar-query REPORTs a server received.
type reports struct {
	mu     sync.Mutex
	paths  []string
	bodies []string
}

func (r *reports) add(path, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	r.bodies = append(r.bodies, body)
}

func (r *reports) get() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.paths), slices.Clone(r.bodies)
}

// newCalDAVServer serves discovery through caldav.Handler and answers every
// calendar-query REPORT with weeklyICS.
func newCalDAVServer(t *testing.T) (*httptest.Server, *reports) {
	t.Helper()
	received := &reports{}
	handler := &caldav.Handler{Backend: &calendarBackend{calendars: []caldav.Calendar{
		{Path: "/user/calendars/work/", Name: "Work", SupportedComponentSet: []string{ical.CompEvent}},
		{Path: "/user/calendars/home/", Name: "Home", SupportedComponentSet: []string{ical.CompEvent}},
	}}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "REPORT" {
			handler.ServeHTTP(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		received.add(r.URL.Path, string(body))

		var data bytes.Buffer
		_ = xml.EscapeText(&data, []byte(weeklyICS))
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:response>
    <D:href>%sstandup.ics</D:href>
    <D:propstat>
      <D:prop>
        <D:getetag>"1"</D:getetag>
        <D:getlastmodified>Thu, 01 Oct 2026 00:00:00 GMT</D:getlastmodified>
        <C:calendar-data>%s</C:calendar-data>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`, r.URL.Path, data.String())
	}))
	t.Cleanup(srv.Close)
	return srv, received
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCalDAVClientBusy(t *testing.T) {
	srv, received := newCalDAVServer(t)
	ctx := context.Background()

	client, err := NewClient(ctx, discard(), srv.URL+"/", "me", "pw", map[string]string{
		"Ann@Example.com": "Work",
	})
	require.NoError(t, err)
	require.Equal(t, "caldav", client.Name())
	require.Equal(t, map[string]string{"ann@example.com": "/user/calendars/work/"}, client.calendars)

	from := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	events, err := client.Busy(ctx, "ann@example.com", from, from.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "standup", events[0].ID)
	require.True(t, events[0].Start.Equal(time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)))
	require.Equal(t, "review", events[1].ID)

	paths, bodies := received.get()
	require.Equal(t, []string{"/user/calendars/work/"}, paths)
	require.Contains(t, bodies[0], "expand")
	require.Contains(t, bodies[0], "time-range")

	events, err = client.Busy(ctx, "bob@example.com", from, from.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Empty(t, events)
	paths, _ = received.get()
	require.Len(t, paths, 1, "unmapped attendees are not queried")
}

func TestNewClientRequiresNamedCalendar(t *testing.T) {
	srv, _ := newCalDAVServer(t)

	_, err := NewClient(context.Background(), discard(), srv.URL+"/", "me", "pw", map[string]string{
		"ann@example.com": "Travel",
	})
	require.ErrorContains(t, err, "no calendar found with name 'Travel'")
}
