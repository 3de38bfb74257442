// Package report presents proposed meeting times to the user.
package report

import (
	"fmt"
	"io"
	"slices"
	"slotfinder/internal/attendees"
	"slotfinder/internal/models"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

const dateTimeLayout = "Mon Jan 2 2006 15:04"

// NoResultsMessage is printed when no slot could be proposed.
const NoResultsMessage = "No available meeting times found for the selected criteria."

// Column is a field results can be re-sorted by.
type Column string

const (
	ColumnDateTime    Column = "dateTime"
	ColumnAvailable   Column = "availableCount"
	ColumnPercentage  Column = "percentage"
	ColumnUnavailable Column = "unavailableAttendees"
)

var (
	highStyle   = color.New(color.FgGreen, color.Bold)
	mediumStyle = color.New(color.FgYellow)
	lowStyle    = color.New(color.FgRed)
)

// Sort returns a copy of results ordered by column. Equal values keep their
// current relative order.
func Sort(results []models.Result, column Column, desc bool) ([]models.Result, error) {
	var cmp func(a, b models.Result) int
	switch column {
	case ColumnDateTime:
		cmp = func(a, b models.Result) int { return a.DateTime.Compare(b.DateTime) }
	case ColumnAvailable:
		cmp = func(a, b models.Result) int { return a.AvailableCount - b.AvailableCount }
	case ColumnPercentage:
		cmp = func(a, b models.Result) int { return a.Percentage - b.Percentage }
	case ColumnUnavailable:
		cmp = func(a, b models.Result) int { return len(a.UnavailableAttendees) - len(b.UnavailableAttendees) }
	default:
		return nil, fmt.Errorf("unknown sort column %q", column)
	}

	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b models.Result) int {
		if desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return sorted, nil
}

// WriteTable renders results as an aligned table. Times are shown in loc and
// unavailable attendees by display name.
func WriteTable(w io.Writer, results []models.Result, names attendees.Directory, loc *time.Location) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, NoResultsMessage)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE & TIME\tAVAILABLE\tAVAILABILITY\tUNAVAILABLE")
	for _, r := range results {
		unavailable := "None"
		if len(r.UnavailableAttendees) > 0 {
			unavailable = strings.Join(names.Names(r.UnavailableAttendees), ", ")
		}
		fmt.Fprintf(tw, "%s\t%d of %d\t%s\t%s\n",
			r.DateTime.In(loc).Format(dateTimeLayout),
			r.AvailableCount, r.TotalCount,
			styleFor(r.Percentage).Sprintf("%d%%", r.Percentage),
			unavailable)
	}
	return tw.Flush()
}

// styleFor picks the display class of a percentage. The classes are
// coarser than the selection tiers: 80% already counts as high.
func styleFor(percentage int) *color.Color {
	switch {
	case percentage >= 80:
		return highStyle
	case percentage >= 50:
		return mediumStyle
	default:
		return lowStyle
	}
}
