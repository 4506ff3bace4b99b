package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/catalog"
)

// GetBooking returns one booking.
func (s *BookingService) GetBooking(ctx context.Context, principal access.Principal, id int64) (Booking, error) {
	if err := s.checkView(principal); err != nil {
		return Booking{}, err
	}
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return Booking{}, mapBookingRepoError("get", err)
	}
	return booking, nil
}

// ListAll returns every booking.
func (s *BookingService) ListAll(ctx context.Context, principal access.Principal) ([]Booking, error) {
	return s.cachedList(ctx, principal, "ListAll", "all", func(ctx context.Context) ([]Booking, error) {
		return s.bookings.FindAll(ctx)
	})
}

// ListByDate returns the bookings of one day.
func (s *BookingService) ListByDate(ctx context.Context, principal access.Principal, date catalog.Date) ([]Booking, error) {
	if date.IsZero() {
		return nil, newValidationError("date", "is required")
	}
	return s.cachedList(ctx, principal, "ListByDate", "date:"+date.String(), func(ctx context.Context) ([]Booking, error) {
		return s.bookings.FindByDate(ctx, date)
	})
}

// ListByDateRange returns the bookings between start and end, both inclusive.
func (s *BookingService) ListByDateRange(ctx context.Context, principal access.Principal, start, end catalog.Date) ([]Booking, error) {
	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("startDate", "is required")
	}
	if end.IsZero() {
		vErr.add("endDate", "is required")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	if end.Before(start) {
		return []Booking{}, nil
	}
	key := fmt.Sprintf("range:%s:%s", start, end)
	return s.cachedList(ctx, principal, "ListByDateRange", key, func(ctx context.Context) ([]Booking, error) {
		return s.bookings.FindByDateRange(ctx, start, end)
	})
}

// ListByGrade returns every booking of a grade.
func (s *BookingService) ListByGrade(ctx context.Context, principal access.Principal, gradeID int) ([]Booking, error) {
	if _, ok := catalog.GradeByID(gradeID); !ok {
		return nil, newValidationError("gradeId", "unknown grade")
	}
	return s.cachedList(ctx, principal, "ListByGrade", "grade:"+strconv.Itoa(gradeID), func(ctx context.Context) ([]Booking, error) {
		return s.bookings.FindByGrade(ctx, gradeID)
	})
}

// ListUpcoming returns bookings dated today or later in the school's time zone,
// ordered by date and time slot. A non-positive limit selects DefaultUpcomingLimit.
func (s *BookingService) ListUpcoming(ctx context.Context, principal access.Principal, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	if limit > maxUpcomingLimit {
		limit = maxUpcomingLimit
	}
	today := s.Today()
	key := fmt.Sprintf("upcoming:%s:%d", today, limit)
	return s.cachedList(ctx, principal, "ListUpcoming", key, func(ctx context.Context) ([]Booking, error) {
		return s.bookings.FindUpcoming(ctx, today, limit)
	})
}

// ListWeek returns the Monday to Sunday schedule containing reference.
// A zero reference selects the current week.
func (s *BookingService) ListWeek(ctx context.Context, principal access.Principal, reference catalog.Date) (WeekSchedule, error) {
	if reference.IsZero() {
		reference = s.Today()
	}
	start, end := catalog.WeekOf(reference)
	bookings, err := s.ListByDateRange(ctx, principal, start, end)
	if err != nil {
		return WeekSchedule{}, err
	}
	return WeekSchedule{Start: start, End: end, Bookings: bookings}, nil
}

// ListSeries returns the parent of a weekly series followed by its surviving
// children. Children of a deleted parent are still returned.
func (s *BookingService) ListSeries(ctx context.Context, principal access.Principal, parentID int64) ([]Booking, error) {
	if err := s.checkView(principal); err != nil {
		return nil, err
	}

	var series []Booking
	parent, err := s.bookings.GetByID(ctx, parentID)
	switch mapped := mapBookingRepoError("get", err); {
	case err == nil:
		series = append(series, parent)
	case mapped != ErrNotFound:
		return nil, mapped
	}

	children, err := s.cachedList(ctx, principal, "ListSeries", "series:"+strconv.FormatInt(parentID, 10), func(ctx context.Context) ([]Booking, error) {
		return s.bookings.FindByParent(ctx, parentID)
	})
	if err != nil {
		return nil, err
	}
	series = append(series, children...)
	if len(series) == 0 {
		return nil, ErrNotFound
	}
	return series, nil
}

// Today is the current date in the school's time zone.
func (s *BookingService) Today() catalog.Date {
	return catalog.DateOf(s.now(), s.location)
}

func (s *BookingService) checkView(principal access.Principal) error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}
	if !access.CanAct(principal, access.ActionView, access.Target{}) {
		return ErrPermissionDenied
	}
	return nil
}

func (s *BookingService) cachedList(ctx context.Context, principal access.Principal, operation, key string, load func(context.Context) ([]Booking, error)) ([]Booking, error) {
	if err := s.checkView(principal); err != nil {
		return nil, err
	}

	// A failed lookup leaves no generation to store under, so the result is
	// served uncached.
	var lookup CacheLookup
	cacheable := false
	if s.cache != nil {
		var err error
		lookup, err = s.cache.GetBookings(ctx, key)
		switch {
		case err != nil:
			s.loggerWith(ctx, operation, "cache_key", key).WarnContext(ctx, "query cache read failed", "error", err)
		case lookup.Hit:
			return lookup.Bookings, nil
		default:
			cacheable = true
		}
	}

	bookings, err := load(ctx)
	if err != nil {
		return nil, mapBookingRepoError("find", err)
	}
	if bookings == nil {
		bookings = []Booking{}
	}

	if cacheable {
		if err := s.cache.StoreBookings(ctx, key, lookup.Generation, bookings); err != nil {
			s.loggerWith(ctx, operation, "cache_key", key).WarnContext(ctx, "query cache write failed", "error", err)
		}
	}
	return bookings, nil
}
