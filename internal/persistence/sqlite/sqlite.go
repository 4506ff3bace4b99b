// Package sqlite persists users and bookings in SQLite through sqlx and the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/lab-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store bundles the SQLite repositories over one connection pool.
type Store struct {
	*UserRepository
	*BookingRepository

	pool *ConnectionPool
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, pool, logger); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &Store{
		UserRepository:    NewUserRepository(pool),
		BookingRepository: NewBookingRepository(pool),
		pool:              pool,
	}, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *ConnectionPool, logger *slog.Logger) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewExecutor(pool.DB().DB),
		logger,
	)
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
