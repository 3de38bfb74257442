// Package scheduler generates candidate meeting slots and ranks them by
// attendee availability.
package scheduler

import (
	"iter"
	"slotfinder/internal/models"
	"time"
)

// SlotIncrement is the scheduling resolution. Slots start on this grid
// relative to the daily start, whatever their length.
const SlotIncrement = 30

// Slots returns the candidate slots for req in chronological order.
// The sequence is lazy and may be ranged over more than once.
func Slots(req models.Request) iter.Seq[models.Slot] {
	return func(yield func(models.Slot) bool) {
		loc := req.Loc()
		length := time.Duration(req.SlotLength) * time.Minute
		first, last := req.Window()

		for day := first; day.Before(last); day = nextDay(day) {
			if isWeekend(day) {
				continue
			}
			y, m, d := day.Date()
			for offset := req.DailyStart; offset+req.SlotLength <= req.DailyEnd; offset += SlotIncrement {
				slot := models.Slot{
					Start:  time.Date(y, m, d, offset/60, offset%60, 0, 0, loc),
					Length: length,
				}
				end := slot.End().In(loc)
				if end.Hour()*60+end.Minute() > req.DailyEnd {
					continue
				}
				if !yield(slot) {
					return
				}
			}
		}
	}
}

func nextDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
