package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/persistence"
	"github.com/example/lab-scheduler/internal/testfixtures"
)

type userRepoStub struct {
	created []UserCredentials
	list    []User
	err     error
}

func (u *userRepoStub) CreateUser(_ context.Context, creds UserCredentials) (User, error) {
	if u.err != nil {
		return User{}, u.err
	}
	for _, existing := range u.created {
		if strings.EqualFold(existing.User.Username, creds.User.Username) {
			return User{}, persistence.ErrDuplicate
		}
	}
	u.created = append(u.created, creds)
	return creds.User, nil
}

func (u *userRepoStub) GetUser(_ context.Context, id string) (User, error) {
	if u.err != nil {
		return User{}, u.err
	}
	for _, user := range u.list {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, persistence.ErrNotFound
}

func (u *userRepoStub) ListUsers(context.Context) ([]User, error) {
	if u.err != nil {
		return nil, u.err
	}
	return u.list, nil
}

func plainHasher(password string) (string, error) { return "hashed:" + password, nil }

func newTestUserService(repo UserRepository) *UserService {
	return NewUserServiceWithLogger(repo, plainHasher, testfixtures.NewIDGenerator("user").NextFunc(), testfixtures.NewClock(time.Time{}).NowFunc(), nil)
}

func teacherInput() UserInput {
	return UserInput{
		Username:        " marcia ",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		DisplayName:     "Márcia Santos",
		Role:            "teacher",
		AssignedClass:   "1a",
	}
}

func TestUserService_RegisterUser(t *testing.T) {
	t.Parallel()
	repo := &userRepoStub{}
	svc := newTestUserService(repo)

	user, err := svc.RegisterUser(context.Background(), testfixtures.Admin(), teacherInput())
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "marcia", user.Username)
	assert.Equal(t, access.RoleTeacher, user.Role)
	assert.Equal(t, "1A", user.AssignedClass)
	assert.Equal(t, testfixtures.ReferenceTime(), user.CreatedAt)

	require.Len(t, repo.created, 1)
	assert.Equal(t, "hashed:secret1", repo.created[0].PasswordHash)

	_, err = svc.RegisterUser(context.Background(), testfixtures.Admin(), teacherInput())
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUserService_RegisterUser_DropsClassForNonTeachers(t *testing.T) {
	t.Parallel()
	svc := newTestUserService(&userRepoStub{})

	input := teacherInput()
	input.Role = "coordinator"
	user, err := svc.RegisterUser(context.Background(), testfixtures.Admin(), input)
	require.NoError(t, err)
	assert.Equal(t, access.RoleCoordinator, user.Role)
	assert.Empty(t, user.AssignedClass)
}

func TestUserService_RegisterUser_Validation(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		mutate func(*UserInput)
		field  string
	}{
		"short username":     {func(in *UserInput) { in.Username = "ab" }, "username"},
		"short password":     {func(in *UserInput) { in.Password, in.ConfirmPassword = "12345", "12345" }, "password"},
		"mismatched confirm": {func(in *UserInput) { in.ConfirmPassword = "other" }, "confirmPassword"},
		"short display name": {func(in *UserInput) { in.DisplayName = "Al" }, "displayName"},
		"unknown role":       {func(in *UserInput) { in.Role = "principal" }, "role"},
		"teacher no class":   {func(in *UserInput) { in.AssignedClass = "" }, "assignedClass"},
		"malformed class":    {func(in *UserInput) { in.AssignedClass = "A1" }, "assignedClass"},
		"nonexistent class":  {func(in *UserInput) { in.AssignedClass = "1F" }, "assignedClass"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			repo := &userRepoStub{}
			input := teacherInput()
			tc.mutate(&input)

			_, err := newTestUserService(repo).RegisterUser(context.Background(), testfixtures.Admin(), input)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.FieldErrors, tc.field)
			assert.Empty(t, repo.created)
		})
	}
}

func TestUserService_RequiresAdmin(t *testing.T) {
	t.Parallel()
	repo := &userRepoStub{}
	svc := newTestUserService(repo)

	_, err := svc.RegisterUser(context.Background(), testfixtures.Teacher("1A"), teacherInput())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.ListUsers(context.Background(), testfixtures.Coordinator())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, repo.created)
}

func TestUserService_Bootstrap(t *testing.T) {
	t.Parallel()
	svc := newTestUserService(&userRepoStub{})

	user, err := svc.Bootstrap(context.Background(), UserInput{Username: "admin", Password: "changeme", DisplayName: "Administrator"})
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, user.Role)
}

func TestUserService_ListUsers(t *testing.T) {
	t.Parallel()
	repo := &userRepoStub{list: []User{
		{ID: "2", Username: "bruno"},
		{ID: "1", Username: "Ana"},
		{ID: "3", Username: "carla"},
	}}
	svc := newTestUserService(repo)

	users, err := svc.ListUsers(context.Background(), testfixtures.Admin())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "bruno", "carla"}, []string{users[0].Username, users[1].Username, users[2].Username})

	repo.err = errors.New("db down")
	_, err = svc.ListUsers(context.Background(), testfixtures.Admin())
	assert.ErrorIs(t, err, ErrRepository)
}

func TestUserService_CurrentUser(t *testing.T) {
	t.Parallel()
	repo := &userRepoStub{list: []User{
		{ID: "t-1", Username: "marcia", Role: access.RoleTeacher, AssignedClass: "1A"},
	}}
	svc := newTestUserService(repo)

	user, err := svc.CurrentUser(context.Background(), access.Principal{UserID: "t-1", Role: access.RoleTeacher, AssignedClass: "1A"})
	require.NoError(t, err)
	assert.Equal(t, "marcia", user.Username)
	assert.Equal(t, "1A", user.AssignedClass)

	_, err = svc.CurrentUser(context.Background(), access.Principal{UserID: "gone", Role: access.RoleAdmin})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CurrentUser(context.Background(), access.Principal{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	repo.err = errors.New("db down")
	_, err = svc.CurrentUser(context.Background(), access.Principal{UserID: "t-1"})
	assert.ErrorIs(t, err, ErrRepository)
}
