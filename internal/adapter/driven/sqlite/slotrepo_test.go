package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efredriksson/provvakt/internal/domain/model"
)

func testSlot(date, timeOfDay, location string) model.Slot {
	return model.Slot{
		Name:     "Kunskapsprov B",
		Date:     date,
		Time:     timeOfDay,
		Location: location,
		Cost:     "325 kr",
		ExamType: model.ExamTypeKunskapsprov,
	}
}

func TestSlotRepo_ReplaceAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()

	slots := []model.Slot{
		testSlot("2025-03-01", "09:00", "Stockholm"),
		testSlot("2025-03-02", "10:15", "Uppsala"),
	}

	err := repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, slots)
	require.NoError(t, err)

	got, err := repo.AllSlots(ctx, model.ExamTypeKunskapsprov)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// AllSlots orders newest first.
	assert.Equal(t, "2025-03-02", got[0].Date)
	assert.Equal(t, "10:15", got[0].Time)
	assert.Equal(t, "Uppsala", got[0].Location)
	assert.Equal(t, "325 kr", got[0].Cost)
	assert.Equal(t, model.ExamTypeKunskapsprov, got[0].ExamType)
	assert.NotZero(t, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())
	assert.False(t, got[0].UpdatedAt.IsZero())

	assert.Equal(t, "2025-03-01", got[1].Date)
	assert.Equal(t, "Stockholm", got[1].Location)
}

func TestSlotRepo_ReplaceIsFullReplacement(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()

	first := []model.Slot{
		testSlot("2025-03-01", "09:00", "Stockholm"),
		testSlot("2025-03-02", "10:15", "Uppsala"),
	}
	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, first))

	second := []model.Slot{
		testSlot("2025-04-10", "13:00", "Göteborg"),
	}
	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, second))

	got, err := repo.AllSlots(ctx, model.ExamTypeKunskapsprov)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Göteborg", got[0].Location)
}

func TestSlotRepo_ReplaceWithEmptyClearsSnapshot(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, []model.Slot{
		testSlot("2025-03-01", "09:00", "Stockholm"),
	}))
	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, nil))

	got, err := repo.AllSlots(ctx, model.ExamTypeKunskapsprov)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSlotRepo_ReplaceFailureKeepsPreviousSnapshot(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()

	previous := []model.Slot{testSlot("2025-03-01", "09:00", "Stockholm")}
	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, previous))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.ReplaceForExamType(cancelled, model.ExamTypeKunskapsprov, []model.Slot{
		testSlot("2025-04-10", "13:00", "Göteborg"),
	})
	require.Error(t, err)

	// The failed replacement must not have touched the stored rows.
	got, err := repo.AllSlots(ctx, model.ExamTypeKunskapsprov)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Stockholm", got[0].Location)
}

func TestSlotRepo_ReplaceIsolatesExamTypes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()

	theory := testSlot("2025-03-01", "09:00", "Stockholm")
	driving := testSlot("2025-03-05", "11:30", "Stockholm")
	driving.Name = "Körprov B"
	driving.ExamType = model.ExamTypeKorprov

	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, []model.Slot{theory}))
	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKorprov, []model.Slot{driving}))

	// Replacing one exam type leaves the other untouched.
	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, nil))

	gotTheory, err := repo.AllSlots(ctx, model.ExamTypeKunskapsprov)
	require.NoError(t, err)
	assert.Empty(t, gotTheory)

	gotDriving, err := repo.AllSlots(ctx, model.ExamTypeKorprov)
	require.NoError(t, err)
	require.Len(t, gotDriving, 1)
	assert.Equal(t, "Körprov B", gotDriving[0].Name)
}

func TestSlotRepo_SlotsInRange(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, []model.Slot{
		testSlot("2025-03-20", "09:00", "Stockholm"),
		testSlot("2025-03-01", "09:00", "Stockholm"),
		testSlot("2025-03-10", "14:00", "Uppsala"),
		testSlot("2025-03-10", "08:00", "Uppsala"),
	}))

	got, err := repo.SlotsInRange(ctx, model.ExamTypeKunskapsprov, "2025-03-01", "2025-03-10")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ascending by date, then time.
	assert.Equal(t, "2025-03-01", got[0].Date)
	assert.Equal(t, "08:00", got[1].Time)
	assert.Equal(t, "14:00", got[2].Time)
}

func TestSlotRepo_SlotsAtLocation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, []model.Slot{
		testSlot("2025-03-20", "09:00", "Stockholm"),
		testSlot("2025-03-01", "09:00", "Uppsala"),
		testSlot("2025-03-10", "14:00", "Uppsala"),
	}))

	got, err := repo.SlotsAtLocation(ctx, model.ExamTypeKunskapsprov, "Uppsala")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-03-01", got[0].Date)
	assert.Equal(t, "2025-03-10", got[1].Date)
}

func TestSlotRepo_NextAvailable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, []model.Slot{
		testSlot("2025-01-20", "09:00", "Uppsala"),
		testSlot("2025-01-15", "13:00", "Stockholm"),
		testSlot("2025-01-15", "09:00", "Stockholm"),
	}))

	slot, err := repo.NextAvailable(ctx, model.ExamTypeKunskapsprov, "2025-01-01")
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, "2025-01-15", slot.Date)
	assert.Equal(t, "09:00", slot.Time)

	// As-of date past the earliest slot skips it.
	slot, err = repo.NextAvailable(ctx, model.ExamTypeKunskapsprov, "2025-01-16")
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, "2025-01-20", slot.Date)
}

func TestSlotRepo_NextAvailableNone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()

	slot, err := repo.NextAvailable(ctx, model.ExamTypeKunskapsprov, "2025-01-01")
	require.NoError(t, err)
	assert.Nil(t, slot)
}

func TestSlotRepo_SnapshotSet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()

	a := testSlot("2025-03-01", "09:00", "Stockholm")
	b := testSlot("2025-03-02", "10:15", "Uppsala")
	require.NoError(t, repo.ReplaceForExamType(ctx, model.ExamTypeKunskapsprov, []model.Slot{a, b}))

	set, err := repo.SnapshotSet(ctx, model.ExamTypeKunskapsprov)
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.True(t, set.Contains(a.Key()))
	assert.True(t, set.Contains(b.Key()))

	other, err := repo.SnapshotSet(ctx, model.ExamTypeKorprov)
	require.NoError(t, err)
	assert.Empty(t, other)
}
