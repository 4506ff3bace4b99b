package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/catalog"
	"github.com/example/lab-scheduler/internal/persistence"
	"github.com/example/lab-scheduler/internal/recurrence"
	"github.com/example/lab-scheduler/internal/scheduler"
)

// BookingRepository captures the persistence interactions needed by the booking service.
// Lists are ordered by date, then time slot, then id.
type BookingRepository interface {
	Insert(ctx context.Context, booking Booking) (Booking, error)
	GetByID(ctx context.Context, id int64) (Booking, error)
	Update(ctx context.Context, booking Booking) (Booking, error)
	Delete(ctx context.Context, id int64) error
	FindAll(ctx context.Context) ([]Booking, error)
	FindByDate(ctx context.Context, date catalog.Date) ([]Booking, error)
	FindByDateRange(ctx context.Context, start, end catalog.Date) ([]Booking, error)
	FindByGrade(ctx context.Context, gradeID int) ([]Booking, error)
	FindByParent(ctx context.Context, parentID int64) ([]Booking, error)
	FindUpcoming(ctx context.Context, from catalog.Date, limit int) ([]Booking, error)
	// WithinTx runs fn in one transaction. A non-nil error from fn rolls back
	// every write made through the repository passed to fn.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo BookingRepository) error) error
}

// QueryCache stores booking list results between writes.
type QueryCache interface {
	GetBookings(ctx context.Context, key string) (CacheLookup, error)
	// StoreBookings drops the entry when Invalidate ran after the lookup that
	// produced generation.
	StoreBookings(ctx context.Context, key string, generation int64, bookings []Booking) error
	Invalidate(ctx context.Context) error
}

// CacheLookup is the result of QueryCache.GetBookings. Generation names the
// cache state the lookup saw, hit or miss.
type CacheLookup struct {
	Bookings   []Booking
	Hit        bool
	Generation int64
}

// Notifier delivers fire-and-forget messages to staff devices.
type Notifier interface {
	NotifyAll(ctx context.Context, title, body string) error
	NotifyUser(ctx context.Context, userID, title, body string) error
}

const (
	// DefaultUpcomingLimit is the number of upcoming bookings returned when no limit is given.
	DefaultUpcomingLimit = 3
	maxUpcomingLimit     = 100
)

// BookingServiceDeps wires the collaborators of a BookingService. Only Bookings is required.
type BookingServiceDeps struct {
	Bookings BookingRepository
	Engine   *recurrence.Engine
	Cache    QueryCache
	Notifier Notifier
	// Location decides what "today" means for upcoming bookings.
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// BookingService orchestrates validation, authorization, recurrence expansion and
// persistence for bookings.
type BookingService struct {
	bookings BookingRepository
	engine   *recurrence.Engine
	cache    QueryCache
	notifier Notifier
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewBookingService wires the booking service with the default recurrence engine.
func NewBookingService(bookings BookingRepository, now func() time.Time) *BookingService {
	return NewBookingServiceWithDeps(BookingServiceDeps{Bookings: bookings, Now: now})
}

// NewBookingServiceWithDeps wires the booking service with explicit collaborators.
func NewBookingServiceWithDeps(deps BookingServiceDeps) *BookingService {
	if deps.Engine == nil {
		deps.Engine = recurrence.NewEngine(recurrence.DefaultMaxOccurrences)
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &BookingService{
		bookings: deps.Bookings,
		engine:   deps.Engine,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		location: deps.Location,
		now:      deps.Now,
		logger:   defaultLogger(deps.Logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates the request, expands weekly repetition and persists the
// whole series in one transaction. The parent is inserted first so that each
// child can reference its id. Slot conflicts are returned as warnings.
func (s *BookingService) CreateBooking(ctx context.Context, principal access.Principal, input BookingInput) (result CreateBookingResult, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", principal.UserID,
		"grade_id", input.GradeID,
		"grade_class", input.GradeClass,
		"date", input.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"booking_id", result.Parent.ID,
			"total_created", result.TotalCreated(),
			"conflicts", len(result.Warnings),
		).InfoContext(ctx, "booking created")
	}()

	draft, vErr := buildBooking(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if aErr := access.Authorize(principal, access.ActionCreate, draft.target()); aErr != nil {
		err = ErrPermissionDenied
		return
	}

	occurrences, err := s.engine.Expand(seriesRule(draft))
	if err != nil {
		err = mapRecurrenceError(err)
		return
	}

	now := s.now().UTC()
	draft.CreatedAt = now
	draft.UpdatedAt = now

	err = s.bookings.WithinTx(ctx, func(ctx context.Context, repo BookingRepository) error {
		parent, err := repo.Insert(ctx, draft)
		if err != nil {
			return mapBookingRepoError("insert", err)
		}

		created := []Booking{parent}
		children := make([]Booking, 0, len(occurrences)-1)
		for _, occ := range occurrences {
			if occ.IsParent() {
				continue
			}
			child, err := repo.Insert(ctx, seriesChild(parent, occ.Date))
			if err != nil {
				return mapBookingRepoError("insert", err)
			}
			children = append(children, child)
			created = append(created, child)
		}

		warnings, err := conflictsFor(ctx, repo, created)
		if err != nil {
			return err
		}

		result = CreateBookingResult{Parent: parent, Children: children, Warnings: warnings}
		return nil
	})
	if err != nil {
		result = CreateBookingResult{}
		err = mapBookingRepoError("transaction", err)
		return
	}

	s.invalidateCache(ctx, logger)
	s.notifyAll(ctx, logger, "New lab booking", bookingSummary(result.Parent, result.TotalCreated()))
	return
}

// UpdateBooking merges the patch into one stored booking. Editing a parent or a
// child affects only that row; the series is never re-expanded.
func (s *BookingService) UpdateBooking(ctx context.Context, principal access.Principal, id int64, patch BookingPatch) (result UpdateBookingResult, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateBooking",
		"principal_id", principal.UserID,
		"booking_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("conflicts", len(result.Warnings)).InfoContext(ctx, "booking updated")
	}()

	existing, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		err = mapBookingRepoError("get", err)
		return
	}
	if aErr := access.Authorize(principal, access.ActionEdit, existing.target()); aErr != nil {
		err = ErrPermissionDenied
		return
	}

	merged, vErr := buildBooking(applyPatch(inputFromBooking(existing), patch))
	if vErr.HasErrors() {
		err = vErr
		return
	}
	// A teacher may not move a booking into a class they do not own.
	if aErr := access.Authorize(principal, access.ActionEdit, merged.target()); aErr != nil {
		err = ErrPermissionDenied
		return
	}

	merged.ID = existing.ID
	merged.RecurringParentID = existing.RecurringParentID
	merged.IsCompleted = existing.IsCompleted
	if patch.IsCompleted != nil {
		merged.IsCompleted = *patch.IsCompleted
	}
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = s.now().UTC()

	// The row and its conflict warnings come from one transaction, so a failed
	// lookup leaves the stored booking unchanged.
	err = s.bookings.WithinTx(ctx, func(ctx context.Context, repo BookingRepository) error {
		updated, err := repo.Update(ctx, merged)
		if err != nil {
			return mapBookingRepoError("update", err)
		}
		warnings, err := conflictsFor(ctx, repo, []Booking{updated})
		if err != nil {
			return err
		}
		result = UpdateBookingResult{Booking: updated, Warnings: warnings}
		return nil
	})
	if err != nil {
		result = UpdateBookingResult{}
		err = mapBookingRepoError("transaction", err)
		return
	}

	s.invalidateCache(ctx, logger)
	return
}

// DeleteBooking removes a single booking. Other members of its series keep
// their rows and their parent reference.
func (s *BookingService) DeleteBooking(ctx context.Context, principal access.Principal, id int64) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteBooking",
		"principal_id", principal.UserID,
		"booking_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking deleted")
	}()

	existing, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return mapBookingRepoError("get", err)
	}
	if aErr := access.Authorize(principal, access.ActionDelete, existing.target()); aErr != nil {
		return ErrPermissionDenied
	}

	if err = s.bookings.Delete(ctx, id); err != nil {
		return mapBookingRepoError("delete", err)
	}

	s.invalidateCache(ctx, logger)
	return nil
}

// SetCompletion marks one occurrence as completed or pending. Setting the
// current value again succeeds without writing.
func (s *BookingService) SetCompletion(ctx context.Context, principal access.Principal, id int64, completed bool) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetCompletion",
		"principal_id", principal.UserID,
		"booking_id", id,
		"completed", completed,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "completion update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "completion updated")
	}()

	existing, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		err = mapBookingRepoError("get", err)
		return
	}
	if aErr := access.Authorize(principal, access.ActionComplete, existing.target()); aErr != nil {
		err = ErrPermissionDenied
		return
	}
	if existing.IsCompleted == completed {
		booking = existing
		return
	}

	existing.IsCompleted = completed
	existing.UpdatedAt = s.now().UTC()
	booking, err = s.bookings.Update(ctx, existing)
	if err != nil {
		err = mapBookingRepoError("update", err)
		return
	}

	s.invalidateCache(ctx, logger)
	return
}

func seriesRule(b Booking) recurrence.Rule {
	rule := recurrence.Rule{Frequency: recurrence.FrequencyNone, Start: b.Date}
	if b.IsRecurring && b.RecurringFrequency == recurrence.FrequencyWeekly {
		rule.Frequency = recurrence.FrequencyWeekly
		rule.Until = b.RecurringEndDate
	}
	return rule
}

// seriesChild copies the parent onto another date. Children never repeat.
func seriesChild(parent Booking, date catalog.Date) Booking {
	child := parent
	child.ID = 0
	child.Date = date
	child.IsRecurring = false
	child.IsCompleted = false
	parentID := parent.ID
	child.RecurringParentID = &parentID
	if parent.RecurringEndDate != nil {
		end := *parent.RecurringEndDate
		child.RecurringEndDate = &end
	}
	return child
}

// conflictsFor reports slot conflicts between the given bookings and everything
// stored on their dates.
func conflictsFor(ctx context.Context, repo BookingRepository, bookings []Booking) ([]ConflictWarning, error) {
	if len(bookings) == 0 {
		return nil, nil
	}
	start, end := bookings[0].Date, bookings[0].Date
	for _, b := range bookings[1:] {
		if b.Date.Before(start) {
			start = b.Date
		}
		if b.Date.After(end) {
			end = b.Date
		}
	}

	stored, err := repo.FindByDateRange(ctx, start, end)
	if err != nil {
		return nil, mapBookingRepoError("find", err)
	}
	existing := make([]scheduler.Booking, 0, len(stored))
	for _, b := range stored {
		existing = append(existing, toSchedulerBooking(b))
	}

	var warnings []ConflictWarning
	for _, b := range bookings {
		for _, c := range scheduler.DetectConflicts(existing, toSchedulerBooking(b)) {
			warnings = append(warnings, ConflictWarning{
				BookingID:     b.ID,
				WithBookingID: c.WithBookingID,
				Type:          string(c.Type),
				Date:          c.Date,
				TimeSlotID:    c.TimeSlotID,
				EquipmentID:   c.EquipmentID,
			})
		}
	}
	return warnings, nil
}

func toSchedulerBooking(b Booking) scheduler.Booking {
	return scheduler.Booking{
		ID:          b.ID,
		Date:        b.Date,
		TimeSlotID:  b.TimeSlotID,
		EquipmentID: b.EquipmentID,
		GradeID:     b.GradeID,
		GradeClass:  b.GradeClass,
	}
}

func bookingSummary(b Booking, total int) string {
	name := fmt.Sprintf("equipment %d", b.EquipmentID)
	if eq, ok := catalog.EquipmentByID(b.EquipmentID); ok {
		name = eq.Name
	}
	summary := fmt.Sprintf("%s booked %s for %s on %s", b.TeacherName, name, catalog.ClassCode(b.GradeID, b.GradeClass), b.Date)
	if total > 1 {
		summary += fmt.Sprintf(", repeated for %d weeks", total)
	}
	return summary
}

func (s *BookingService) invalidateCache(ctx context.Context, logger *slog.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.WarnContext(ctx, "query cache invalidation failed", "error", err)
	}
}

func (s *BookingService) notifyAll(ctx context.Context, logger *slog.Logger, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAll(ctx, title, body); err != nil {
		logger.WarnContext(ctx, "notification failed", "error", err)
	}
}

func mapRecurrenceError(err error) error {
	switch {
	case errors.Is(err, recurrence.ErrTooManyOccurrences):
		return newValidationError("recurringEndDate", err.Error())
	case errors.Is(err, recurrence.ErrInvalidFrequency):
		return newValidationError("recurringFrequency", "must be one of: none, weekly")
	case errors.Is(err, recurrence.ErrMissingStart):
		return newValidationError("date", "is required")
	}
	return err
}

func mapBookingRepoError(op string, err error) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	var repoErr *RepositoryError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrPermissionDenied), errors.As(err, &vErr), errors.As(err, &repoErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}
