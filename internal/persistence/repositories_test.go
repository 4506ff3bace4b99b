package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lab-scheduler/internal/persistence"
	"github.com/example/lab-scheduler/internal/persistence/memory"
	"github.com/example/lab-scheduler/internal/persistence/sqlite"
)

type store interface {
	persistence.UserRepository
	persistence.BookingRepository
	Close() error
}

func backends(t *testing.T) map[string]func(t *testing.T) store {
	t.Helper()
	return map[string]func(t *testing.T) store{
		"memory": func(t *testing.T) store {
			return memory.New()
		},
		"sqlite": func(t *testing.T) store {
			s, err := sqlite.Open(context.Background(), sqlite.InMemoryConfig(), nil)
			require.NoError(t, err)
			return s
		},
	}
}

func stringPtr(v string) *string { return &v }

func int64Ptr(v int64) *int64 { return &v }

func booking(date string, slot, equipment int) persistence.Booking {
	return persistence.Booking{
		GradeID:            7,
		GradeClass:         "A",
		TeacherName:        "Maria",
		Date:               date,
		TimeSlotID:         slot,
		EquipmentID:        equipment,
		Content:            "Spreadsheets",
		Shift:              "afternoon",
		RecurringFrequency: "none",
		CreatedAt:          time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:          time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUserRepository(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			repo := open(t)
			t.Cleanup(func() { _ = repo.Close() })

			ana := persistence.User{
				ID:            "user-1",
				Username:      "ana",
				DisplayName:   "Ana",
				PasswordHash:  "hash",
				Role:          "teacher",
				AssignedClass: stringPtr("7A"),
			}
			require.NoError(t, repo.CreateUser(ctx, ana))
			require.NoError(t, repo.CreateUser(ctx, persistence.User{
				ID: "user-2", Username: "bruno", DisplayName: "Bruno", PasswordHash: "hash", Role: "admin",
			}))

			fetched, err := repo.GetUserByUsername(ctx, "ANA")
			require.NoError(t, err)
			assert.Equal(t, "user-1", fetched.ID)
			require.NotNil(t, fetched.AssignedClass)
			assert.Equal(t, "7A", *fetched.AssignedClass)

			fetched, err = repo.GetUser(ctx, "user-2")
			require.NoError(t, err)
			assert.Nil(t, fetched.AssignedClass)
			assert.Equal(t, "admin", fetched.Role)

			dup := ana
			dup.ID = "user-3"
			dup.Username = "Ana"
			assert.ErrorIs(t, repo.CreateUser(ctx, dup), persistence.ErrDuplicate)

			_, err = repo.GetUser(ctx, "missing")
			assert.ErrorIs(t, err, persistence.ErrNotFound)

			users, err := repo.ListUsers(ctx)
			require.NoError(t, err)
			require.Len(t, users, 2)
			assert.Equal(t, "ana", users[0].Username)
			assert.Equal(t, "bruno", users[1].Username)
		})
	}
}

func TestBookingRepository_CRUD(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			repo := open(t)
			t.Cleanup(func() { _ = repo.Close() })

			first, err := repo.InsertBooking(ctx, booking("2024-03-04", 1, 1))
			require.NoError(t, err)
			second, err := repo.InsertBooking(ctx, booking("2024-03-04", 2, 1))
			require.NoError(t, err)
			assert.Greater(t, second.ID, first.ID)

			stored, err := repo.GetBooking(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, "2024-03-04", stored.Date)
			assert.Nil(t, stored.Notes)
			assert.Nil(t, stored.RecurringParentID)
			assert.True(t, stored.CreatedAt.Equal(first.CreatedAt))

			stored.Notes = stringPtr("bring headphones")
			stored.IsCompleted = true
			stored.UpdatedAt = stored.UpdatedAt.Add(time.Hour)
			updated, err := repo.UpdateBooking(ctx, stored)
			require.NoError(t, err)
			require.NotNil(t, updated.Notes)
			assert.Equal(t, "bring headphones", *updated.Notes)
			assert.True(t, updated.IsCompleted)
			assert.True(t, updated.CreatedAt.Equal(first.CreatedAt))

			missing := stored
			missing.ID = 999
			_, err = repo.UpdateBooking(ctx, missing)
			assert.ErrorIs(t, err, persistence.ErrNotFound)

			require.NoError(t, repo.DeleteBooking(ctx, first.ID))
			_, err = repo.GetBooking(ctx, first.ID)
			assert.ErrorIs(t, err, persistence.ErrNotFound)
			assert.ErrorIs(t, repo.DeleteBooking(ctx, first.ID), persistence.ErrNotFound)

			_, err = repo.GetBooking(ctx, second.ID)
			assert.NoError(t, err)
		})
	}
}

func TestBookingRepository_ListBookings(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			repo := open(t)
			t.Cleanup(func() { _ = repo.Close() })

			parent, err := repo.InsertBooking(ctx, booking("2024-03-04", 3, 1))
			require.NoError(t, err)
			child := booking("2024-03-11", 3, 1)
			child.RecurringParentID = int64Ptr(parent.ID)
			child, err = repo.InsertBooking(ctx, child)
			require.NoError(t, err)

			early, err := repo.InsertBooking(ctx, booking("2024-03-04", 1, 2))
			require.NoError(t, err)
			other := booking("2024-03-06", 1, 2)
			other.GradeID = 8
			other, err = repo.InsertBooking(ctx, other)
			require.NoError(t, err)

			ids := func(list []persistence.Booking) []int64 {
				out := make([]int64, 0, len(list))
				for _, b := range list {
					out = append(out, b.ID)
				}
				return out
			}

			all, err := repo.ListBookings(ctx, persistence.BookingFilter{})
			require.NoError(t, err)
			assert.Equal(t, []int64{early.ID, parent.ID, other.ID, child.ID}, ids(all))

			byDate, err := repo.ListBookings(ctx, persistence.BookingFilter{Date: "2024-03-04"})
			require.NoError(t, err)
			assert.Equal(t, []int64{early.ID, parent.ID}, ids(byDate))

			byRange, err := repo.ListBookings(ctx, persistence.BookingFilter{From: "2024-03-05", To: "2024-03-11"})
			require.NoError(t, err)
			assert.Equal(t, []int64{other.ID, child.ID}, ids(byRange))

			byGrade, err := repo.ListBookings(ctx, persistence.BookingFilter{GradeID: 8})
			require.NoError(t, err)
			assert.Equal(t, []int64{other.ID}, ids(byGrade))

			series, err := repo.ListBookings(ctx, persistence.BookingFilter{ParentID: parent.ID})
			require.NoError(t, err)
			assert.Equal(t, []int64{child.ID}, ids(series))

			limited, err := repo.ListBookings(ctx, persistence.BookingFilter{From: "2024-03-04", Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, []int64{early.ID, parent.ID}, ids(limited))

			none, err := repo.ListBookings(ctx, persistence.BookingFilter{Date: "2030-01-01"})
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestBookingRepository_WithinTransaction(t *testing.T) {
	t.Parallel()

	errAbort := errors.New("abort")

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			repo := open(t)
			t.Cleanup(func() { _ = repo.Close() })

			err := repo.WithinTransaction(ctx, func(tx persistence.BookingRepository) error {
				parent, err := tx.InsertBooking(ctx, booking("2024-03-04", 1, 1))
				if err != nil {
					return err
				}
				child := booking("2024-03-11", 1, 1)
				child.RecurringParentID = int64Ptr(parent.ID)
				if _, err := tx.InsertBooking(ctx, child); err != nil {
					return err
				}
				return errAbort
			})
			require.ErrorIs(t, err, errAbort)

			all, err := repo.ListBookings(ctx, persistence.BookingFilter{})
			require.NoError(t, err)
			assert.Empty(t, all)

			err = repo.WithinTransaction(ctx, func(tx persistence.BookingRepository) error {
				parent, err := tx.InsertBooking(ctx, booking("2024-03-04", 1, 1))
				if err != nil {
					return err
				}
				return tx.WithinTransaction(ctx, func(inner persistence.BookingRepository) error {
					child := booking("2024-03-11", 1, 1)
					child.RecurringParentID = int64Ptr(parent.ID)
					_, err := inner.InsertBooking(ctx, child)
					return err
				})
			})
			require.NoError(t, err)

			all, err = repo.ListBookings(ctx, persistence.BookingFilter{})
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, all[0].ID, *all[1].RecurringParentID)
		})
	}
}
