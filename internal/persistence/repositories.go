package persistence

import "context"

// UserRepository exposes account storage.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// BookingFilter narrows booking queries. Zero fields do not constrain the result.
// Results are always ordered by date, then time slot, then id.
type BookingFilter struct {
	Date     string
	From     string
	To       string
	GradeID  int
	ParentID int64
	Limit    int
}

// BookingRepository stores booking rows.
type BookingRepository interface {
	// InsertBooking stores a new row and returns it with its assigned id.
	InsertBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	// WithinTransaction runs fn against a repository bound to one transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTransaction(ctx context.Context, fn func(repo BookingRepository) error) error
}
