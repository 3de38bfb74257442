package scheduler

import (
	"iter"
	"slices"
	"slotfinder/internal/models"
	"strings"
)

// Bucket caps for the proposals shown to the user.
const (
	MaxResults = 10
	maxHigh    = 4
	maxMedium  = 4
	maxLow     = 2
)

// Conflicts holds each attendee's busy events, keyed by email.
// An attendee with no entry is free.
type Conflicts map[string][]models.Event

// Overlaps reports whether the event conflicts with the slot.
// Intervals that only touch do not conflict.
func Overlaps(event models.Event, slot models.Slot) bool {
	return event.End.After(slot.Start) && slot.End().After(event.Start)
}

// Score computes the availability of every slot for the given attendees.
func Score(slots iter.Seq[models.Slot], attendees []string, conflicts Conflicts) ([]models.Result, error) {
	if len(attendees) == 0 {
		return nil, models.ErrNoAttendees
	}

	var results []models.Result
	for slot := range slots {
		var unavailable []string
		for _, email := range attendees {
			if busy(conflicts[email], slot) {
				unavailable = append(unavailable, email)
			}
		}
		available := len(attendees) - len(unavailable)
		results = append(results, models.Result{
			DateTime:             slot.Start,
			AvailableCount:       available,
			TotalCount:           len(attendees),
			Percentage:           percentage(available, len(attendees)),
			UnavailableAttendees: unavailable,
		})
	}
	return results, nil
}

func busy(events []models.Event, slot models.Slot) bool {
	for _, e := range events {
		if Overlaps(e, slot) {
			return true
		}
	}
	return false
}

// percentage rounds 100*available/total to the nearest integer, halves up.
func percentage(available, total int) int {
	return (200*available + total) / (2 * total)
}

// Rank orders results by percentage descending, then chronologically.
func Rank(results []models.Result) {
	slices.SortStableFunc(results, compareRank)
}

func compareRank(a, b models.Result) int {
	if a.Percentage != b.Percentage {
		return b.Percentage - a.Percentage
	}
	return a.DateTime.Compare(b.DateTime)
}

// Select picks a ranked sample of at most MaxResults, mixing tiers:
// up to four slots everyone can attend, four most can, two few can,
// topped up from the best of the rest.
func Select(results []models.Result) []models.Result {
	ranked := slices.Clone(results)
	Rank(ranked)

	caps := map[models.Tier]int{
		models.TierHigh:   maxHigh,
		models.TierMedium: maxMedium,
		models.TierLow:    maxLow,
	}
	taken := make([]bool, len(ranked))
	selected := make([]models.Result, 0, MaxResults)
	for _, tier := range []models.Tier{models.TierHigh, models.TierMedium, models.TierLow} {
		for i, r := range ranked {
			if caps[tier] == 0 {
				break
			}
			if r.Tier() == tier {
				selected = append(selected, r)
				taken[i] = true
				caps[tier]--
			}
		}
	}

	for i, r := range ranked {
		if len(selected) >= MaxResults {
			break
		}
		if !taken[i] {
			selected = append(selected, r)
		}
	}

	Rank(selected)
	if len(selected) > MaxResults {
		selected = selected[:MaxResults]
	}
	return selected
}

// Find runs the whole search: generate the slots for req, score them
// against the attendees' conflicts and select the proposals to show.
// No possible slot yields an empty, non-nil result.
func Find(req models.Request, conflicts Conflicts) ([]models.Result, error) {
	attendees := Distinct(req.Attendees)
	scored, err := Score(Slots(req), attendees, conflicts)
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return []models.Result{}, nil
	}
	return Select(scored), nil
}

// Distinct drops repeated attendees, keeping first occurrences in order.
// Addresses differing only in case are the same attendee; the first
// spelling is kept.
func Distinct(attendees []string) []string {
	seen := make(map[string]struct{}, len(attendees))
	out := make([]string, 0, len(attendees))
	for _, a := range attendees {
		key := strings.ToLower(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
