package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/catalog"
	"github.com/example/lab-scheduler/internal/persistence"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, creds UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// PasswordHasher turns a plain password into a storable hash.
type PasswordHasher func(password string) (string, error)

// UserService registers and lists staff accounts. Both operations are reserved
// to administrators.
type UserService struct {
	users       UserRepository
	hash        PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, nil, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires the user service with a password hasher and logger.
func NewUserServiceWithLogger(users UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hash: hash, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// RegisterUser validates input and persists a new account.
func (s *UserService) RegisterUser(ctx context.Context, principal access.Principal, input UserInput) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "UserService", "RegisterUser",
		"principal_id", principal.UserID,
		"username", strings.TrimSpace(input.Username),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID, "role", user.Role).InfoContext(ctx, "user registered")
	}()

	if !access.CanManageUsers(principal) {
		err = ErrPermissionDenied
		return
	}

	return s.register(ctx, input)
}

// Bootstrap creates an administrator without an acting principal. It backs the
// command line flag used to create the first account.
func (s *UserService) Bootstrap(ctx context.Context, input UserInput) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	input.Role = string(access.RoleAdmin)
	input.ConfirmPassword = input.Password
	return s.register(ctx, input)
}

func (s *UserService) register(ctx context.Context, input UserInput) (User, error) {
	normalized := normalizeUserInput(input)
	role, vErr := validateUserInput(normalized)
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := s.hash(normalized.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := User{
		ID:          s.idGenerator(),
		Username:    normalized.Username,
		DisplayName: normalized.DisplayName,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if role == access.RoleTeacher {
		user.AssignedClass = normalized.AssignedClass
	}

	persisted, err := s.users.CreateUser(ctx, UserCredentials{User: user, PasswordHash: hash})
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return persisted, nil
}

// ListUsers returns all accounts ordered by username.
func (s *UserService) ListUsers(ctx context.Context, principal access.Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !access.CanManageUsers(principal) {
		return nil, ErrPermissionDenied
	}
	if s.users == nil {
		return nil, nil
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapUserRepoError(err)
	}

	out := make([]User, len(users))
	copy(out, users)
	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Username, out[j].Username) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out, nil
}

// CurrentUser loads the account behind principal. Any authenticated role may
// read its own record.
func (s *UserService) CurrentUser(ctx context.Context, principal access.Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return User{}, ErrUnauthorized
	}
	if s.users == nil {
		return User{}, ErrNotFound
	}

	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

func validateUserInput(input UserInput) (access.Role, *ValidationError) {
	vErr := structErrors(input)

	if input.ConfirmPassword != input.Password {
		vErr.add("confirmPassword", "passwords do not match")
	}

	role, ok := access.ParseRole(input.Role)
	if input.Role != "" && !ok {
		vErr.add("role", "must be one of: admin, teacher, coordinator")
	}

	if role == access.RoleTeacher {
		if input.AssignedClass == "" {
			vErr.add("assignedClass", "is required for teachers")
		} else if gradeID, class, ok := catalog.ResolveClassCode(input.AssignedClass); !ok {
			vErr.add("assignedClass", "must look like 3A or 1EM-A")
		} else if grade, found := catalog.GradeByID(gradeID); !found || !grade.HasClass(class) {
			vErr.add("assignedClass", "class does not exist")
		}
	}
	return role, vErr
}

func mapUserRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	}
	return &RepositoryError{Op: "user", Err: err}
}
