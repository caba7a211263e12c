package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/efredriksson/provvakt/internal/domain/model"
	"github.com/efredriksson/provvakt/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SlotStore = (*SlotRepo)(nil)

// SlotRepo is the SQLite implementation of the SlotStore port interface.
type SlotRepo struct {
	db *DB
}

// NewSlotRepo creates a new SlotRepo backed by the given DB.
func NewSlotRepo(db *DB) *SlotRepo {
	return &SlotRepo{db: db}
}

// ReplaceForExamType atomically replaces all slots for an exam type. It
// deletes existing rows and inserts the provided slots in a single
// transaction, so a failure mid-write leaves the previous snapshot intact.
func (r *SlotRepo) ReplaceForExamType(ctx context.Context, examType model.ExamType, slots []model.Slot) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const deleteQuery = `DELETE FROM slots WHERE examination_type = ?`
	if _, err := tx.ExecContext(ctx, deleteQuery, examType); err != nil {
		return fmt.Errorf("delete slots for %s: %w", examType, err)
	}

	const insertQuery = `
		INSERT INTO slots (name, date, time, location, cost, examination_type)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	for _, slot := range slots {
		if _, err := tx.ExecContext(ctx, insertQuery,
			slot.Name, slot.Date, slot.Time, slot.Location, slot.Cost, examType,
		); err != nil {
			return fmt.Errorf("insert slot %s %s %s: %w", slot.Date, slot.Time, slot.Location, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit slots for %s: %w", examType, err)
	}

	return nil
}

// AllSlots returns every slot for the exam type, newest dates first.
func (r *SlotRepo) AllSlots(ctx context.Context, examType model.ExamType) ([]model.Slot, error) {
	const query = `
		SELECT id, name, date, time, location, cost, examination_type, created_at, updated_at
		FROM slots
		WHERE examination_type = ?
		ORDER BY date DESC, time DESC
	`
	return r.querySlots(ctx, query, examType)
}

// SlotsInRange returns slots with startDate <= date <= endDate, ascending.
func (r *SlotRepo) SlotsInRange(ctx context.Context, examType model.ExamType, startDate, endDate string) ([]model.Slot, error) {
	const query = `
		SELECT id, name, date, time, location, cost, examination_type, created_at, updated_at
		FROM slots
		WHERE examination_type = ? AND date BETWEEN ? AND ?
		ORDER BY date ASC, time ASC
	`
	return r.querySlots(ctx, query, examType, startDate, endDate)
}

// SlotsAtLocation returns slots at the named location, ascending.
func (r *SlotRepo) SlotsAtLocation(ctx context.Context, examType model.ExamType, location string) ([]model.Slot, error) {
	const query = `
		SELECT id, name, date, time, location, cost, examination_type, created_at, updated_at
		FROM slots
		WHERE examination_type = ? AND location = ?
		ORDER BY date ASC, time ASC
	`
	return r.querySlots(ctx, query, examType, location)
}

// NextAvailable returns the earliest slot on or after asOfDate, or nil when
// none exists.
func (r *SlotRepo) NextAvailable(ctx context.Context, examType model.ExamType, asOfDate string) (*model.Slot, error) {
	const query = `
		SELECT id, name, date, time, location, cost, examination_type, created_at, updated_at
		FROM slots
		WHERE examination_type = ? AND date >= ?
		ORDER BY date ASC, time ASC
		LIMIT 1
	`

	row := r.db.Reader.QueryRowContext(ctx, query, examType, asOfDate)
	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next available slot for %s: %w", examType, err)
	}
	return slot, nil
}

// SnapshotSet returns the stored slots as an identity set for diffing.
func (r *SlotRepo) SnapshotSet(ctx context.Context, examType model.ExamType) (model.SlotSet, error) {
	const query = `
		SELECT name, date, time, location, cost
		FROM slots
		WHERE examination_type = ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, examType)
	if err != nil {
		return nil, fmt.Errorf("query snapshot for %s: %w", examType, err)
	}
	defer rows.Close()

	set := make(model.SlotSet)
	for rows.Next() {
		var k model.SlotKey
		if err := rows.Scan(&k.Name, &k.Date, &k.Time, &k.Location, &k.Cost); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		set[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return set, nil
}

func (r *SlotRepo) querySlots(ctx context.Context, query string, args ...any) ([]model.Slot, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanSlot(s scanner) (*model.Slot, error) {
	var slot model.Slot
	var examType string
	var createdAt, updatedAt string

	err := s.Scan(
		&slot.ID, &slot.Name, &slot.Date, &slot.Time, &slot.Location,
		&slot.Cost, &examType, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	slot.ExamType = model.ExamType(examType)

	slot.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	slot.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &slot, nil
}
