// Package postgres persists users and bookings in PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/lab-scheduler/internal/persistence"
)

// Store implements persistence.UserRepository and persistence.BookingRepository.
// A Store returned inside WithinTransaction is bound to that transaction.
type Store struct {
	db   *gorm.DB
	inTx bool
}

// Open connects to PostgreSQL and brings the schema up to date.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	log.InfoContext(ctx, "postgres schema ready", "component", "postgres")
	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&userModel{}, &bookingModel{}); err != nil {
		return fmt.Errorf("postgres: auto-migrate: %w", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users (lower(username))`).Error; err != nil {
		return fmt.Errorf("postgres: username index: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- UserRepository implementation ---

// CreateUser inserts a new user. Usernames are unique regardless of case.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	model := fromPersistenceUser(user)
	return mapError(s.db.WithContext(ctx).Create(&model).Error)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	var model userModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return persistence.User{}, mapError(err)
	}
	return model.toPersistence(), nil
}

// GetUserByUsername retrieves a user by username, ignoring case.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	var model userModel
	if err := s.db.WithContext(ctx).Where("lower(username) = lower(?)", username).First(&model).Error; err != nil {
		return persistence.User{}, mapError(err)
	}
	return model.toPersistence(), nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	var models []userModel
	if err := s.db.WithContext(ctx).Order("lower(username) ASC, id ASC").Find(&models).Error; err != nil {
		return nil, mapError(err)
	}
	users := make([]persistence.User, 0, len(models))
	for _, m := range models {
		users = append(users, m.toPersistence())
	}
	return users, nil
}

// --- BookingRepository implementation ---

// InsertBooking stores a booking and returns it with its generated id.
func (s *Store) InsertBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	booking.ID = 0
	model := fromPersistenceBooking(booking)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return model.toPersistence(), nil
}

// GetBooking retrieves a booking by id.
func (s *Store) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	var model bookingModel
	if err := s.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return model.toPersistence(), nil
}

// UpdateBooking overwrites every mutable column of an existing booking.
func (s *Store) UpdateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	model := fromPersistenceBooking(booking)
	if model.UpdatedAt.IsZero() {
		model.UpdatedAt = time.Now().UTC()
	}

	result := s.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ?", booking.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(&model)
	if result.Error != nil {
		return persistence.Booking{}, mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return s.GetBooking(ctx, booking.ID)
}

// DeleteBooking removes a single booking row.
func (s *Store) DeleteBooking(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&bookingModel{}, id)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListBookings returns bookings matching the filter ordered by date, time slot and id.
func (s *Store) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	q := s.db.WithContext(ctx).Model(&bookingModel{})
	if filter.Date != "" {
		q = q.Where("date = ?", filter.Date)
	}
	if filter.From != "" {
		q = q.Where("date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("date <= ?", filter.To)
	}
	if filter.GradeID != 0 {
		q = q.Where("grade_id = ?", filter.GradeID)
	}
	if filter.ParentID != 0 {
		q = q.Where("recurring_parent_id = ?", filter.ParentID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var models []bookingModel
	if err := q.Order("date ASC, time_slot_id ASC, id ASC").Find(&models).Error; err != nil {
		return nil, mapError(err)
	}
	bookings := make([]persistence.Booking, 0, len(models))
	for _, m := range models {
		bookings = append(bookings, m.toPersistence())
	}
	return bookings, nil
}

// WithinTransaction runs fn inside db.Transaction. Calls on a transactional
// store join the running transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(repo persistence.BookingRepository) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return persistence.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated), errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}
