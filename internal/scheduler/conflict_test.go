package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lab-scheduler/internal/catalog"
)

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	day := catalog.MustParseDate("2024-03-04")
	existing := []Booking{
		{ID: 1, Date: day, TimeSlotID: 1, EquipmentID: 1, GradeID: 1, GradeClass: "A"},
		{ID: 2, Date: day, TimeSlotID: 2, EquipmentID: 1, GradeID: 2, GradeClass: "B"},
		{ID: 3, Date: day.AddDays(7), TimeSlotID: 1, EquipmentID: 1, GradeID: 1, GradeClass: "A"},
		{ID: 4, Date: day, TimeSlotID: 1, EquipmentID: 3, GradeID: 2, GradeClass: "A"},
	}

	t.Run("same equipment in the same slot produces conflict", func(t *testing.T) {
		t.Parallel()

		conflicts := DetectConflicts(existing, Booking{Date: day, TimeSlotID: 1, EquipmentID: 1, GradeID: 3, GradeClass: "B"})
		require.Len(t, conflicts, 1)
		assert.Equal(t, int64(1), conflicts[0].WithBookingID)
		assert.Equal(t, ConflictTypeEquipment, conflicts[0].Type)
	})

	t.Run("same class in the same slot produces conflict", func(t *testing.T) {
		t.Parallel()

		conflicts := DetectConflicts(existing, Booking{Date: day, TimeSlotID: 1, EquipmentID: 2, GradeID: 2, GradeClass: "A"})
		require.Len(t, conflicts, 1)
		assert.Equal(t, int64(4), conflicts[0].WithBookingID)
		assert.Equal(t, ConflictTypeClass, conflicts[0].Type)
	})

	t.Run("different dates or slots yield no conflicts", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, DetectConflicts(existing, Booking{Date: day.AddDays(1), TimeSlotID: 1, EquipmentID: 1}))
		assert.Empty(t, DetectConflicts(existing, Booking{Date: day, TimeSlotID: 3, EquipmentID: 1}))
	})

	t.Run("a booking does not conflict with itself", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, DetectConflicts(existing, existing[1]))
	})
}
