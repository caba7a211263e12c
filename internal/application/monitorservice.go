// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/efredriksson/provvakt/internal/domain/model"
	"github.com/efredriksson/provvakt/internal/domain/port/driven"
)

const (
	// maxFetchAttempts caps the per-location retries within one cycle.
	maxFetchAttempts = 3

	// retryBackoff is the fixed sleep between per-location attempts.
	retryBackoff = 10 * time.Second
)

// CycleResult summarizes one completed monitor cycle.
type CycleResult struct {
	Added    []model.SlotKey
	Removed  []model.SlotKey
	Fetched  int
	Failed   int // locations that contributed nothing this cycle
	Next     *model.Slot
	Duration time.Duration
}

// MonitorService runs the polling cycle: it fetches availability for every
// configured location of one exam type, replaces the persisted snapshot, and
// reports which slots appeared or disappeared since the previous cycle.
type MonitorService struct {
	client      driven.BookingClient
	store       driven.SlotStore
	sessions    driven.SessionKeeper
	examType    model.ExamType
	locationIDs []int
	interval    time.Duration

	backoff  time.Duration
	previous model.SlotSet
}

// NewMonitorService creates a MonitorService with all required dependencies.
// Locations are polled in the given order every cycle.
func NewMonitorService(
	client driven.BookingClient,
	store driven.SlotStore,
	sessions driven.SessionKeeper,
	examType model.ExamType,
	locationIDs []int,
	interval time.Duration,
) *MonitorService {
	return &MonitorService{
		client:      client,
		store:       store,
		sessions:    sessions,
		examType:    examType,
		locationIDs: locationIDs,
		interval:    interval,
		backoff:     retryBackoff,
	}
}

// Start begins the monitor loop. It seeds the previous snapshot from the
// store, runs an immediate cycle, then cycles on the configured interval
// until the context is cancelled.
func (s *MonitorService) Start(ctx context.Context) {
	previous, err := s.store.SnapshotSet(ctx, s.examType)
	if err != nil {
		slog.Error("failed to load previous snapshot", "exam_type", s.examType, "error", err)
		previous = make(model.SlotSet)
	}
	s.previous = previous

	if _, err := s.RunCycle(ctx); err != nil {
		slog.Error("initial monitor cycle failed", "exam_type", s.examType, "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor service stopped", "exam_type", s.examType)
			return
		case <-ticker.C:
			if _, err := s.RunCycle(ctx); err != nil {
				slog.Error("monitor cycle failed", "exam_type", s.examType, "error", err)
			}
		}
	}
}

// RunCycle performs one full poll of all configured locations, replaces the
// stored snapshot, and returns the diff against the previous cycle. A
// location that fails every attempt contributes nothing for the cycle, which
// the diff then reports as removed slots; that approximation is accepted
// rather than carrying stale rows forward.
func (s *MonitorService) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	cycleID := uuid.NewString()[:8]
	log := slog.With("cycle", cycleID, "exam_type", s.examType)

	var batch []model.Slot
	var failed int
	for _, locationID := range s.locationIDs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		slots, err := s.fetchLocation(ctx, log, locationID)
		if err != nil {
			log.Error("location contributed nothing this cycle", "location_id", locationID, "error", err)
			failed++
			continue
		}
		batch = append(batch, slots...)
	}

	if err := s.store.ReplaceForExamType(ctx, s.examType, batch); err != nil {
		return nil, err
	}

	current, err := s.store.SnapshotSet(ctx, s.examType)
	if err != nil {
		return nil, err
	}

	added, removed := current.Diff(s.previous)
	s.previous = current

	s.report(log, added, removed)

	next, err := s.store.NextAvailable(ctx, s.examType, time.Now().Format("2006-01-02"))
	if err != nil {
		log.Error("next available lookup failed", "error", err)
	} else if next != nil {
		log.Info("next available slot", "date", next.Date, "time", next.Time, "location", next.Location)
	} else {
		log.Info("no future slots available")
	}

	result := &CycleResult{
		Added:    added,
		Removed:  removed,
		Fetched:  len(batch),
		Failed:   failed,
		Next:     next,
		Duration: time.Since(start),
	}

	log.Info("monitor cycle complete",
		"locations", len(s.locationIDs),
		"slots", result.Fetched,
		"failed_locations", result.Failed,
		"added", len(added),
		"removed", len(removed),
		"duration", result.Duration.Round(time.Millisecond),
	)

	return result, nil
}

// fetchLocation polls one location with the fixed retry policy: up to
// maxFetchAttempts attempts with a fixed backoff, and one extra recoverable
// retry via proactive renewal when the session expired.
func (s *MonitorService) fetchLocation(ctx context.Context, log *slog.Logger, locationID int) ([]model.Slot, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		slots, err := s.client.AvailableSlots(ctx, locationID)
		if err == nil {
			return slots, nil
		}
		lastErr = err

		if errors.Is(err, driven.ErrSessionExpired) {
			log.Warn("session expired, attempting manual renewal", "location_id", locationID)
			if renewErr := s.sessions.RenewProactively(ctx); renewErr != nil {
				log.Error("manual renewal failed", "location_id", locationID, "error", renewErr)
				return nil, err
			}

			slots, err = s.client.AvailableSlots(ctx, locationID)
			if err == nil {
				return slots, nil
			}
			// Still broken after a successful renewal; give up on this
			// location for the cycle.
			return nil, err
		}

		log.Warn("fetch attempt failed",
			"location_id", locationID,
			"attempt", attempt,
			"error", err,
		)

		if attempt < maxFetchAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff):
			}
		}
	}

	return nil, lastErr
}

// report logs the appeared and disappeared slots, green for new and red for
// removed.
func (s *MonitorService) report(log *slog.Logger, added, removed []model.SlotKey) {
	for _, k := range added {
		log.Info(color.GreenString("new slot: %s, %s %s in %s for %s",
			k.Name, k.Date, k.Time, k.Location, k.Cost))
	}
	for _, k := range removed {
		log.Info(color.RedString("slot removed: %s, %s %s in %s for %s",
			k.Name, k.Date, k.Time, k.Location, k.Cost))
	}
}
