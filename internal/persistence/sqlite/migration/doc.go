// Package migration applies versioned SQL files to a SQLite database.
//
// Files are named {version}_{description}.sql and are read from any fs.FS,
// usually an embedded directory. Applied versions are tracked in the
// schema_migrations table so that each file runs exactly once, inside its own
// transaction.
//
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
