package scheduler

import (
	"sort"

	"github.com/example/lab-scheduler/internal/catalog"
)

// Booking is the part of a booking that conflict detection looks at.
type Booking struct {
	ID          int64
	Date        catalog.Date
	TimeSlotID  int
	EquipmentID int
	GradeID     int
	GradeClass  string
}

// ConflictType describes the type of conflict detected between bookings.
type ConflictType string

const (
	// ConflictTypeEquipment indicates the same equipment is booked twice in one slot.
	ConflictTypeEquipment ConflictType = "equipment"
	// ConflictTypeClass indicates the same class holds two bookings in one slot.
	ConflictTypeClass ConflictType = "class"
)

// Conflict details an overlapping booking that callers can present to users.
type Conflict struct {
	WithBookingID int64
	Type          ConflictType
	Date          catalog.Date
	TimeSlotID    int
	EquipmentID   int
}

// DetectConflicts identifies conflicts for the candidate booking against existing ones.
// Conflicts are soft: they are reported, never enforced. An existing booking with
// the candidate's own id is skipped so that edits do not conflict with themselves.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	var conflicts []Conflict
	for _, other := range existing {
		if candidate.ID != 0 && other.ID == candidate.ID {
			continue
		}
		if !other.Date.Equal(candidate.Date) || other.TimeSlotID != candidate.TimeSlotID {
			continue
		}

		switch {
		case other.EquipmentID == candidate.EquipmentID:
			conflicts = append(conflicts, newConflict(other, ConflictTypeEquipment))
		case other.GradeID == candidate.GradeID && other.GradeClass == candidate.GradeClass:
			conflicts = append(conflicts, newConflict(other, ConflictTypeClass))
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].WithBookingID < conflicts[j].WithBookingID
	})
	return conflicts
}

func newConflict(other Booking, kind ConflictType) Conflict {
	return Conflict{
		WithBookingID: other.ID,
		Type:          kind,
		Date:          other.Date,
		TimeSlotID:    other.TimeSlotID,
		EquipmentID:   other.EquipmentID,
	}
}
