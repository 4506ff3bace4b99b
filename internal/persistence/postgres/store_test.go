package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/lab-scheduler/internal/persistence"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(gorm.ErrRecordNotFound), persistence.ErrNotFound)
	assert.ErrorIs(t, mapError(gorm.ErrDuplicatedKey), persistence.ErrDuplicate)
	assert.ErrorIs(t, mapError(gorm.ErrForeignKeyViolated), persistence.ErrConstraintViolation)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}

func TestBookingModelRoundTrip(t *testing.T) {
	t.Parallel()

	notes := "lab 2"
	end := "2024-05-27"
	parent := int64(4)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	booking := persistence.Booking{
		ID: 9, GradeID: 7, GradeClass: "B", TeacherName: "Rita", Date: "2024-03-04",
		TimeSlotID: 2, EquipmentID: 3, Content: "Robotics", Notes: &notes, Shift: "afternoon",
		IsRecurring: false, RecurringFrequency: "none", RecurringEndDate: &end, RecurringParentID: &parent,
		CreatedAt: created, UpdatedAt: created,
	}

	assert.Equal(t, booking, fromPersistenceBooking(booking).toPersistence())
}

// TestStore_Postgres runs against a live database when LABSCHED_TEST_POSTGRES_DSN is set.
func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("LABSCHED_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LABSCHED_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.db.Exec("DELETE FROM bookings")
		store.db.Exec("DELETE FROM users")
		_ = store.Close()
	})
	store.db.Exec("DELETE FROM bookings")
	store.db.Exec("DELETE FROM users")

	require.NoError(t, store.CreateUser(ctx, persistence.User{ID: "u1", Username: "Ana", DisplayName: "Ana", PasswordHash: "h", Role: "admin"}))
	err = store.CreateUser(ctx, persistence.User{ID: "u2", Username: "ana", DisplayName: "Ana", PasswordHash: "h", Role: "admin"})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	errAbort := errors.New("abort")
	err = store.WithinTransaction(ctx, func(repo persistence.BookingRepository) error {
		if _, err := repo.InsertBooking(ctx, persistence.Booking{
			GradeID: 7, GradeClass: "A", TeacherName: "Ana", Date: "2024-03-04", TimeSlotID: 1,
			EquipmentID: 1, Content: "x", Shift: "afternoon", RecurringFrequency: "none",
		}); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	all, err := store.ListBookings(ctx, persistence.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	inserted, err := store.InsertBooking(ctx, persistence.Booking{
		GradeID: 7, GradeClass: "A", TeacherName: "Ana", Date: "2024-03-04", TimeSlotID: 1,
		EquipmentID: 1, Content: "x", Shift: "afternoon", RecurringFrequency: "none",
	})
	require.NoError(t, err)
	inserted.IsCompleted = true
	updated, err := store.UpdateBooking(ctx, inserted)
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)

	require.NoError(t, store.DeleteBooking(ctx, inserted.ID))
	assert.ErrorIs(t, store.DeleteBooking(ctx, inserted.ID), persistence.ErrNotFound)
}
