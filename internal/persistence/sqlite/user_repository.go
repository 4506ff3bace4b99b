package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lab-scheduler/internal/persistence"
)

type userRow struct {
	ID            string         `db:"id"`
	Username      string         `db:"username"`
	DisplayName   string         `db:"display_name"`
	PasswordHash  string         `db:"password_hash"`
	Role          string         `db:"role"`
	AssignedClass sql.NullString `db:"assigned_class"`
	CreatedAt     string         `db:"created_at"`
	UpdatedAt     string         `db:"updated_at"`
}

const userColumns = `id, username, display_name, password_hash, role, assigned_class, created_at, updated_at`

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreateUser inserts a new user. Usernames are unique regardless of case.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	row := userRow{
		ID:           user.ID,
		Username:     strings.TrimSpace(user.Username),
		DisplayName:  user.DisplayName,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    user.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if user.AssignedClass != nil {
		row.AssignedClass = sql.NullString{String: *user.AssignedClass, Valid: true}
	}

	_, err := sqlx.NamedExecContext(ctx, r.pool.DB(), `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :username, :display_name, :password_hash, :role, :assigned_class, :created_at, :updated_at)
	`, row)
	return r.mapper.MapError(err)
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username, ignoring case.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE`, username)
}

// ListUsers returns all users ordered by username.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	var rows []userRow
	err := sqlx.SelectContext(ctx, r.pool.DB(), &rows,
		`SELECT `+userColumns+` FROM users ORDER BY username COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	users := make([]persistence.User, 0, len(rows))
	for _, row := range rows {
		user, err := row.toPersistence()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (persistence.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, r.pool.DB(), &row, query, arg); err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return row.toPersistence()
}

func (row userRow) toPersistence() (persistence.User, error) {
	user := persistence.User{
		ID:           row.ID,
		Username:     row.Username,
		DisplayName:  row.DisplayName,
		PasswordHash: row.PasswordHash,
		Role:         row.Role,
	}
	if row.AssignedClass.Valid {
		class := row.AssignedClass.String
		user.AssignedClass = &class
	}

	var err error
	if user.CreatedAt, err = time.Parse(time.RFC3339Nano, row.CreatedAt); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if user.UpdatedAt, err = time.Parse(time.RFC3339Nano, row.UpdatedAt); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return user, nil
}
