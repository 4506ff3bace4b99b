// Package memory provides an in-process implementation of the persistence
// repositories. It backs tests and local runs without a database.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/lab-scheduler/internal/persistence"
)

// Storage keeps users and bookings in maps guarded by a single lock.
type Storage struct {
	mu    sync.RWMutex
	users map[string]persistence.User
	state bookingState
}

type bookingState struct {
	bookings map[int64]persistence.Booking
	nextID   int64
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		users: make(map[string]persistence.User),
		state: bookingState{bookings: make(map[int64]persistence.Booking), nextID: 1},
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// --- UserRepository implementation ---

// CreateUser stores a new user. Usernames are unique regardless of case.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s: %w", user.ID, persistence.ErrDuplicate)
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return fmt.Errorf("memory: username %s: %w", user.Username, persistence.ErrDuplicate)
		}
	}

	s.users[user.ID] = cloneUser(user)
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return cloneUser(user), nil
}

// GetUserByUsername retrieves a user by username, ignoring case.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Username, username) {
			return cloneUser(user), nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// ListUsers returns all users ordered by username.
func (s *Storage) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, cloneUser(user))
	}
	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i].Username) < strings.ToLower(users[j].Username)
	})
	return users, nil
}

// --- BookingRepository implementation ---

// InsertBooking stores a booking under the next sequential id.
func (s *Storage) InsertBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.insert(booking), nil
}

// GetBooking retrieves a booking by id.
func (s *Storage) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.get(id)
}

// UpdateBooking replaces a stored booking.
func (s *Storage) UpdateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.update(booking)
}

// DeleteBooking removes a single booking.
func (s *Storage) DeleteBooking(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.delete(id)
}

// ListBookings returns bookings matching the filter ordered by date, time slot and id.
func (s *Storage) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.list(filter), nil
}

// WithinTransaction runs fn against a private copy of the bookings and publishes
// the copy only when fn succeeds. The storage stays locked for the duration, so
// transactions are serialized.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(repo persistence.BookingRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := bookingState{bookings: maps.Clone(s.state.bookings), nextID: s.state.nextID}
	tx := &txRepository{state: &working}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = working
	return nil
}

// txRepository operates on a working copy while the owning Storage is locked.
type txRepository struct {
	state *bookingState
}

func (t *txRepository) InsertBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Booking{}, err
	}
	return t.state.insert(booking), nil
}

func (t *txRepository) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	return t.state.get(id)
}

func (t *txRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	return t.state.update(booking)
}

func (t *txRepository) DeleteBooking(ctx context.Context, id int64) error {
	return t.state.delete(id)
}

func (t *txRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	return t.state.list(filter), nil
}

// WithinTransaction joins the enclosing transaction.
func (t *txRepository) WithinTransaction(ctx context.Context, fn func(repo persistence.BookingRepository) error) error {
	return fn(t)
}

func (st *bookingState) insert(booking persistence.Booking) persistence.Booking {
	booking.ID = st.nextID
	st.nextID++
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = booking.CreatedAt
	}
	st.bookings[booking.ID] = cloneBooking(booking)
	return cloneBooking(booking)
}

func (st *bookingState) get(id int64) (persistence.Booking, error) {
	booking, ok := st.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return cloneBooking(booking), nil
}

func (st *bookingState) update(booking persistence.Booking) (persistence.Booking, error) {
	existing, ok := st.bookings[booking.ID]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	booking.CreatedAt = existing.CreatedAt
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = time.Now().UTC()
	}
	st.bookings[booking.ID] = cloneBooking(booking)
	return cloneBooking(booking), nil
}

func (st *bookingState) delete(id int64) error {
	if _, ok := st.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(st.bookings, id)
	return nil
}

func (st *bookingState) list(filter persistence.BookingFilter) []persistence.Booking {
	out := make([]persistence.Booking, 0)
	for _, booking := range st.bookings {
		if matchesBookingFilter(booking, filter) {
			out = append(out, cloneBooking(booking))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].TimeSlotID != out[j].TimeSlotID {
			return out[i].TimeSlotID < out[j].TimeSlotID
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// Dates are YYYY-MM-DD, so lexical comparison is chronological.
func matchesBookingFilter(booking persistence.Booking, filter persistence.BookingFilter) bool {
	if filter.Date != "" && booking.Date != filter.Date {
		return false
	}
	if filter.From != "" && booking.Date < filter.From {
		return false
	}
	if filter.To != "" && booking.Date > filter.To {
		return false
	}
	if filter.GradeID != 0 && booking.GradeID != filter.GradeID {
		return false
	}
	if filter.ParentID != 0 {
		if booking.RecurringParentID == nil || *booking.RecurringParentID != filter.ParentID {
			return false
		}
	}
	return true
}

func cloneUser(user persistence.User) persistence.User {
	user.AssignedClass = cloneString(user.AssignedClass)
	return user
}

func cloneBooking(booking persistence.Booking) persistence.Booking {
	booking.Notes = cloneString(booking.Notes)
	booking.RecurringEndDate = cloneString(booking.RecurringEndDate)
	if booking.RecurringParentID != nil {
		id := *booking.RecurringParentID
		booking.RecurringParentID = &id
	}
	return booking
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
