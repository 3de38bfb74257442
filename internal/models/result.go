package models

import "time"

// Tier is an availability band used to diversify the proposals shown.
type Tier string

const (
	TierHigh   Tier = "high"   // everyone is free
	TierMedium Tier = "medium" // at least half are free
	TierLow    Tier = "low"
)

// Result is the availability of one candidate slot.
type Result struct {
	DateTime             time.Time `json:"dateTime"`
	AvailableCount       int       `json:"availableCount"`
	TotalCount           int       `json:"totalCount"`
	Percentage           int       `json:"percentage"`
	UnavailableAttendees []string  `json:"unavailableAttendees"`
}

// Tier reports which availability band the result falls in.
func (r Result) Tier() Tier {
	return TierFor(r.Percentage)
}

// TierFor maps a percentage to its tier.
func TierFor(percentage int) Tier {
	switch {
	case percentage == 100:
		return TierHigh
	case percentage >= 50:
		return TierMedium
	default:
		return TierLow
	}
}
