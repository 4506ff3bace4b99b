package main

import (
	"context"
	"fmt"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/application"
	"github.com/example/lab-scheduler/internal/catalog"
	"github.com/example/lab-scheduler/internal/persistence"
	"github.com/example/lab-scheduler/internal/recurrence"
)

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) Insert(ctx context.Context, booking application.Booking) (application.Booking, error) {
	row, err := a.repo.InsertBooking(ctx, toPersistenceBooking(booking))
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(row)
}

func (a *bookingRepositoryAdapter) GetByID(ctx context.Context, id int64) (application.Booking, error) {
	row, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(row)
}

func (a *bookingRepositoryAdapter) Update(ctx context.Context, booking application.Booking) (application.Booking, error) {
	row, err := a.repo.UpdateBooking(ctx, toPersistenceBooking(booking))
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(row)
}

func (a *bookingRepositoryAdapter) Delete(ctx context.Context, id int64) error {
	return a.repo.DeleteBooking(ctx, id)
}

func (a *bookingRepositoryAdapter) FindAll(ctx context.Context) ([]application.Booking, error) {
	return a.list(ctx, persistence.BookingFilter{})
}

func (a *bookingRepositoryAdapter) FindByDate(ctx context.Context, date catalog.Date) ([]application.Booking, error) {
	return a.list(ctx, persistence.BookingFilter{Date: date.String()})
}

func (a *bookingRepositoryAdapter) FindByDateRange(ctx context.Context, start, end catalog.Date) ([]application.Booking, error) {
	return a.list(ctx, persistence.BookingFilter{From: start.String(), To: end.String()})
}

func (a *bookingRepositoryAdapter) FindByGrade(ctx context.Context, gradeID int) ([]application.Booking, error) {
	return a.list(ctx, persistence.BookingFilter{GradeID: gradeID})
}

func (a *bookingRepositoryAdapter) FindByParent(ctx context.Context, parentID int64) ([]application.Booking, error) {
	return a.list(ctx, persistence.BookingFilter{ParentID: parentID})
}

func (a *bookingRepositoryAdapter) FindUpcoming(ctx context.Context, from catalog.Date, limit int) ([]application.Booking, error) {
	return a.list(ctx, persistence.BookingFilter{From: from.String(), Limit: limit})
}

func (a *bookingRepositoryAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context, repo application.BookingRepository) error) error {
	return a.repo.WithinTransaction(ctx, func(tx persistence.BookingRepository) error {
		return fn(ctx, &bookingRepositoryAdapter{repo: tx})
	})
}

func (a *bookingRepositoryAdapter) list(ctx context.Context, filter persistence.BookingFilter) ([]application.Booking, error) {
	rows, err := a.repo.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]application.Booking, 0, len(rows))
	for _, row := range rows {
		booking, err := toApplicationBooking(row)
		if err != nil {
			return nil, err
		}
		out = append(out, booking)
	}
	return out, nil
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(creds.User, creds.PasswordHash)); err != nil {
		return application.User{}, err
	}
	return creds.User, nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	row, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(row), nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	rows, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.User, len(rows))
	for i, row := range rows {
		out[i] = toApplicationUser(row)
	}
	return out, nil
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByUsername(ctx context.Context, username string) (application.UserCredentials, error) {
	row, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{User: toApplicationUser(row), PasswordHash: row.PasswordHash}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	row, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(row), nil
}

func toApplicationBooking(row persistence.Booking) (application.Booking, error) {
	date, err := catalog.ParseDate(row.Date)
	if err != nil {
		return application.Booking{}, fmt.Errorf("booking %d: %w", row.ID, err)
	}
	freq, err := recurrence.ParseFrequency(row.RecurringFrequency)
	if err != nil {
		return application.Booking{}, fmt.Errorf("booking %d: %w", row.ID, err)
	}

	booking := application.Booking{
		ID:                 row.ID,
		GradeID:            row.GradeID,
		GradeClass:         row.GradeClass,
		TeacherName:        row.TeacherName,
		Date:               date,
		TimeSlotID:         row.TimeSlotID,
		EquipmentID:        row.EquipmentID,
		Content:            row.Content,
		Shift:              catalog.Shift(row.Shift),
		IsCompleted:        row.IsCompleted,
		IsRecurring:        row.IsRecurring,
		RecurringFrequency: freq,
		RecurringParentID:  cloneInt64(row.RecurringParentID),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.Notes != nil {
		booking.Notes = *row.Notes
	}
	if row.RecurringEndDate != nil {
		end, err := catalog.ParseDate(*row.RecurringEndDate)
		if err != nil {
			return application.Booking{}, fmt.Errorf("booking %d: recurring end date: %w", row.ID, err)
		}
		booking.RecurringEndDate = &end
	}
	return booking, nil
}

func toPersistenceBooking(b application.Booking) persistence.Booking {
	row := persistence.Booking{
		ID:                 b.ID,
		GradeID:            b.GradeID,
		GradeClass:         b.GradeClass,
		TeacherName:        b.TeacherName,
		Date:               b.Date.String(),
		TimeSlotID:         b.TimeSlotID,
		EquipmentID:        b.EquipmentID,
		Content:            b.Content,
		Shift:              string(b.Shift),
		IsCompleted:        b.IsCompleted,
		IsRecurring:        b.IsRecurring,
		RecurringFrequency: string(b.RecurringFrequency),
		RecurringParentID:  cloneInt64(b.RecurringParentID),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if row.RecurringFrequency == "" {
		row.RecurringFrequency = string(recurrence.FrequencyNone)
	}
	if b.Notes != "" {
		notes := b.Notes
		row.Notes = &notes
	}
	if b.RecurringEndDate != nil {
		end := b.RecurringEndDate.String()
		row.RecurringEndDate = &end
	}
	return row
}

func toApplicationUser(row persistence.User) application.User {
	role, ok := access.ParseRole(row.Role)
	if !ok {
		role = access.Role(row.Role)
	}
	user := application.User{
		ID:          row.ID,
		Username:    row.Username,
		DisplayName: row.DisplayName,
		Role:        role,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.AssignedClass != nil {
		user.AssignedClass = *row.AssignedClass
	}
	return user
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	row := persistence.User{
		ID:           user.ID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		PasswordHash: passwordHash,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if user.AssignedClass != "" {
		class := user.AssignedClass
		row.AssignedClass = &class
	}
	return row
}

func cloneInt64(value *int64) *int64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
