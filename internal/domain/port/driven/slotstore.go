package driven

import (
	"context"

	"github.com/efredriksson/provvakt/internal/domain/model"
)

// SlotStore defines the driven port for slot snapshot persistence.
// Uses full replacement strategy: all slots for an exam type are replaced
// atomically so the stored set always reflects exactly the last successful
// fetch, never a merge of stale and fresh rows.
type SlotStore interface {
	// ReplaceForExamType deletes all existing slots for the given exam type
	// and inserts the provided slots atomically in a transaction.
	ReplaceForExamType(ctx context.Context, examType model.ExamType, slots []model.Slot) error

	// AllSlots returns every slot for the exam type, ordered by date and time
	// descending.
	AllSlots(ctx context.Context, examType model.ExamType) ([]model.Slot, error)

	// SlotsInRange returns slots with startDate <= date <= endDate, ordered by
	// date and time ascending. Dates are YYYY-MM-DD strings.
	SlotsInRange(ctx context.Context, examType model.ExamType, startDate, endDate string) ([]model.Slot, error)

	// SlotsAtLocation returns slots at the named location, ordered by date and
	// time ascending.
	SlotsAtLocation(ctx context.Context, examType model.ExamType, location string) ([]model.Slot, error)

	// NextAvailable returns the earliest slot with date >= asOfDate, or nil if
	// none exists.
	NextAvailable(ctx context.Context, examType model.ExamType, asOfDate string) (*model.Slot, error)

	// SnapshotSet returns the stored slots as a comparable identity set for
	// change detection.
	SnapshotSet(ctx context.Context, examType model.ExamType) (model.SlotSet, error)
}
