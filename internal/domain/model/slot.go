// Package model contains the domain types shared across provvakt.
package model

import "time"

// Slot represents one bookable exam occasion discovered at Trafikverket.
type Slot struct {
	ID        int64
	Name      string
	Date      string // YYYY-MM-DD
	Time      string // HH:MM
	Location  string
	Cost      string
	ExamType  ExamType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotKey is the identity of a slot for change detection. Two slots with the
// same key are the same occasion regardless of when they were stored; the
// surrogate ID and timestamps are excluded on purpose.
type SlotKey struct {
	Name     string
	Date     string
	Time     string
	Location string
	Cost     string
}

// Key returns the comparable identity of the slot.
func (s Slot) Key() SlotKey {
	return SlotKey{
		Name:     s.Name,
		Date:     s.Date,
		Time:     s.Time,
		Location: s.Location,
		Cost:     s.Cost,
	}
}

// SlotSet is a snapshot of slot identities used for diffing between cycles.
type SlotSet map[SlotKey]struct{}

// Contains reports whether the set holds the given key.
func (ss SlotSet) Contains(k SlotKey) bool {
	_, ok := ss[k]
	return ok
}

// Diff compares the current set against a previous one and returns the keys
// that appeared and the keys that disappeared.
func (ss SlotSet) Diff(previous SlotSet) (added, removed []SlotKey) {
	for k := range ss {
		if !previous.Contains(k) {
			added = append(added, k)
		}
	}
	for k := range previous {
		if !ss.Contains(k) {
			removed = append(removed, k)
		}
	}
	return added, removed
}
