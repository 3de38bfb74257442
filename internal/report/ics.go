package report

import (
	"fmt"
	"io"
	"slotfinder/internal/attendees"
	"slotfinder/internal/models"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// WriteICS writes the proposals as tentative events, one per result, so they
// can be imported into any calendar as holds.
func WriteICS(w io.Writer, results []models.Result, slotLength time.Duration, organizer string, invited []string, names attendees.Directory) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//slotfinder//EN")

	now := time.Now().UTC()
	for _, r := range results {
		cal.Children = append(cal.Children, toICal(r, slotLength, organizer, invited, names, now))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode proposals to iCal format: %w", err)
	}
	return nil
}

// toICal converts a proposal to an ical.Component (VEvent).
func toICal(r models.Result, slotLength time.Duration, organizer string, invited []string, names attendees.Directory, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uuid.NewString())
	ve.Props.SetText(ical.PropSummary, fmt.Sprintf("Proposed meeting (%d%% available)", r.Percentage))
	ve.Props.SetText(ical.PropStatus, "TENTATIVE")
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	ve.Props.SetDateTime(ical.PropDateTimeStart, r.DateTime.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, r.DateTime.Add(slotLength).UTC())

	if len(r.UnavailableAttendees) > 0 {
		ve.Props.SetText(ical.PropDescription, fmt.Sprintf("%d of %d available. Unavailable: %s",
			r.AvailableCount, r.TotalCount, strings.Join(names.Names(r.UnavailableAttendees), ", ")))
	} else {
		ve.Props.SetText(ical.PropDescription, fmt.Sprintf("All %d attendees available.", r.TotalCount))
	}

	if organizer != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.SetText(fmt.Sprintf("mailto:%s", organizer))
		ve.Props.Add(p)
	}
	for _, attendee := range invited {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		p.Params.Set(ical.ParamCommonName, names.Name(attendee))
		ve.Props.Add(p)
	}
	return ve
}
