package driven

import (
	"context"

	"github.com/efredriksson/provvakt/internal/domain/model"
)

// BookingClient defines the driven port for querying the booking service for
// available exam occasions at a single location.
//
// Both methods ensure the session is fresh before the round-trip and attempt
// at most one renewal-and-retry when the response signals an invalidated
// session. Failures surface as *StatusError or ErrSessionExpired.
type BookingClient interface {
	// AvailableSlots returns the full occasion records for the location.
	AvailableSlots(ctx context.Context, locationID int) ([]model.Slot, error)

	// AvailableDates returns only the date strings (YYYY-MM-DD) for the
	// location, one per discovered occasion bundle.
	AvailableDates(ctx context.Context, locationID int) ([]string, error)
}
