// Package finder answers a meeting-time request against an availability source.
package finder

import (
	"context"
	"fmt"
	"log/slog"
	"slotfinder/internal/availability"
	"slotfinder/internal/models"
	"slotfinder/internal/scheduler"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Finder looks up every attendee's busy times, then ranks candidate slots.
type Finder struct {
	logger      *slog.Logger
	source      availability.Source
	concurrency int
}

// New creates a Finder. concurrency bounds the lookups in flight; values
// below one fall back to a small default.
func New(logger *slog.Logger, source availability.Source, concurrency int) *Finder {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Finder{logger: logger, source: source, concurrency: concurrency}
}

// Find proposes at most scheduler.MaxResults meeting times for req.
// Every attendee's conflicts are fetched before any slot is scored.
func (f *Finder) Find(ctx context.Context, req models.Request) ([]models.Result, error) {
	logger := f.logger.With("requestID", uuid.NewString(), "source", f.source.Name())
	started := time.Now()

	attendees := scheduler.Distinct(req.Attendees)
	if len(attendees) == 0 {
		return nil, models.ErrNoAttendees
	}
	req.Attendees = attendees

	from, to := req.Window()
	logger.Info("Finding meeting times",
		"attendees", len(attendees),
		"from", models.FormatDate(from),
		"to", models.FormatDate(to),
		"window", models.FormatClock(req.DailyStart)+"-"+models.FormatClock(req.DailyEnd),
		"slotLength", req.SlotLength)

	conflicts, err := f.lookup(ctx, logger, attendees, from, to)
	if err != nil {
		return nil, err
	}

	results, err := scheduler.Find(req, conflicts)
	if err != nil {
		return nil, fmt.Errorf("failed to rank slots: %w", err)
	}

	logger.Info("Found meeting times", "count", len(results), "elapsed", time.Since(started))
	return results, nil
}

// lookup fetches the busy events of every attendee.
func (f *Finder) lookup(ctx context.Context, logger *slog.Logger, attendees []string, from, to time.Time) (scheduler.Conflicts, error) {
	busy := make([][]models.Event, len(attendees))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, email := range attendees {
		g.Go(func() error {
			events, err := f.source.Busy(ctx, email, from, to)
			if err != nil {
				return fmt.Errorf("failed to look up availability of %s: %w", email, err)
			}
			logger.Debug("Fetched busy times", "email", email, "count", len(events))
			busy[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	conflicts := make(scheduler.Conflicts, len(attendees))
	for i, email := range attendees {
		if len(busy[i]) > 0 {
			conflicts[email] = busy[i]
		}
	}
	return conflicts, nil
}
