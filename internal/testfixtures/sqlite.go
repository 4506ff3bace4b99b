package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/lab-scheduler/internal/persistence"
	"github.com/example/lab-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated lab database living in the test's temp dir.
type SQLiteHarness struct {
	Store *sqlite.Store
	Path  string

	tb testing.TB
}

// NewSQLiteHarness opens the database and closes it during tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "labscheduler.db")
	store, err := sqlite.Open(context.Background(), sqlite.DefaultConfig(path), nil)
	if err != nil {
		tb.Fatalf("open lab database: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	return &SQLiteHarness{Store: store, Path: path, tb: tb}
}

// SeedUsers stores the fixtures and fails the test on the first error.
func (h *SQLiteHarness) SeedUsers(users ...UserFixture) {
	h.tb.Helper()
	for _, u := range users {
		if err := h.Store.CreateUser(context.Background(), u.Persistence()); err != nil {
			h.tb.Fatalf("seed user %s: %v", u.Username, err)
		}
	}
}

// SeedBookings stores the fixtures in order and returns them with their
// assigned ids.
func (h *SQLiteHarness) SeedBookings(bookings ...BookingFixture) []persistence.Booking {
	h.tb.Helper()
	stored := make([]persistence.Booking, 0, len(bookings))
	for _, b := range bookings {
		inserted, err := h.Store.InsertBooking(context.Background(), b.Persistence())
		if err != nil {
			h.tb.Fatalf("seed booking on %s: %v", b.Date, err)
		}
		stored = append(stored, inserted)
	}
	return stored
}
