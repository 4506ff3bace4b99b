package migration

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	logger   *slog.Logger
}

// NewManager wires a scanner and an executor. A nil logger discards output.
func NewManager(scanner *Scanner, executor *Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With("component", "migration"),
	}
}

// Run executes all pending migrations. It stops at the first failure; earlier
// migrations stay applied.
func (m *Manager) Run(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	if len(status.Pending) == 0 {
		m.logger.InfoContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	for i, migration := range status.Pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", i+1,
			"pending", len(status.Pending),
		)
		if err := m.executor.Apply(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "error", err)
			return err
		}
	}

	m.logger.InfoContext(ctx, "migrations complete",
		"applied", len(status.Pending),
		"version", status.Pending[len(status.Pending)-1].Version,
	)
	return nil
}

// Status compares the migration files with schema_migrations. Files that were
// edited after being applied, and applied versions with no file, are errors.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := m.scanner.Scan()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	byVersion := make(map[string]Migration, len(available))
	for _, migration := range available {
		byVersion[migration.Version] = migration
	}

	status := Status{Applied: applied}
	appliedSet := make(map[string]bool, len(applied))
	for _, record := range applied {
		appliedSet[record.Version] = true
		migration, ok := byVersion[record.Version]
		if !ok {
			return Status{}, NewMigrationError(record.Version, "", "verify applied", ErrUnknownVersion)
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return Status{}, NewMigrationError(record.Version, migration.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s, file %s", ErrChecksumMismatch, record.Checksum, migration.Checksum))
		}
		if versionNumber(record.Version) > versionNumber(status.CurrentVersion) {
			status.CurrentVersion = record.Version
		}
	}

	for _, migration := range available {
		if !appliedSet[migration.Version] {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}
