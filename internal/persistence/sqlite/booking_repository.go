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

const bookingColumns = `id, grade_id, grade_class, teacher_name, date, time_slot_id, equipment_id,
	content, notes, shift, is_completed, is_recurring, recurring_frequency,
	recurring_end_date, recurring_parent_id, created_at, updated_at`

type bookingRow struct {
	ID                 int64          `db:"id"`
	GradeID            int            `db:"grade_id"`
	GradeClass         string         `db:"grade_class"`
	TeacherName        string         `db:"teacher_name"`
	Date               string         `db:"date"`
	TimeSlotID         int            `db:"time_slot_id"`
	EquipmentID        int            `db:"equipment_id"`
	Content            string         `db:"content"`
	Notes              sql.NullString `db:"notes"`
	Shift              string         `db:"shift"`
	IsCompleted        bool           `db:"is_completed"`
	IsRecurring        bool           `db:"is_recurring"`
	RecurringFrequency string         `db:"recurring_frequency"`
	RecurringEndDate   sql.NullString `db:"recurring_end_date"`
	RecurringParentID  sql.NullInt64  `db:"recurring_parent_id"`
	CreatedAt          string         `db:"created_at"`
	UpdatedAt          string         `db:"updated_at"`
}

// BookingRepository implements persistence.BookingRepository using SQLite.
// A repository returned inside WithinTransaction is bound to that transaction.
type BookingRepository struct {
	pool   *ConnectionPool
	db     sqlx.ExtContext
	inTx   bool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		db:     pool.DB(),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// InsertBooking stores a booking and returns it with its generated id.
func (r *BookingRepository) InsertBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = booking.CreatedAt
	}

	const query = `
		INSERT INTO bookings (grade_id, grade_class, teacher_name, date, time_slot_id, equipment_id,
			content, notes, shift, is_completed, is_recurring, recurring_frequency,
			recurring_end_date, recurring_parent_id, created_at, updated_at)
		VALUES (:grade_id, :grade_class, :teacher_name, :date, :time_slot_id, :equipment_id,
			:content, :notes, :shift, :is_completed, :is_recurring, :recurring_frequency,
			:recurring_end_date, :recurring_parent_id, :created_at, :updated_at)
	`

	var result sql.Result
	err := r.write(ctx, func() error {
		var execErr error
		result, execErr = sqlx.NamedExecContext(ctx, r.db, query, toBookingRow(booking))
		return execErr
	})
	if err != nil {
		return persistence.Booking{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("sqlite: read booking id: %w", err)
	}
	booking.ID = id
	return booking, nil
}

// GetBooking retrieves a booking by id.
func (r *BookingRepository) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	var row bookingRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return row.toPersistence()
}

// UpdateBooking overwrites every mutable column of an existing booking.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = time.Now().UTC()
	}

	const query = `
		UPDATE bookings SET
			grade_id = :grade_id, grade_class = :grade_class, teacher_name = :teacher_name,
			date = :date, time_slot_id = :time_slot_id, equipment_id = :equipment_id,
			content = :content, notes = :notes, shift = :shift, is_completed = :is_completed,
			is_recurring = :is_recurring, recurring_frequency = :recurring_frequency,
			recurring_end_date = :recurring_end_date, recurring_parent_id = :recurring_parent_id,
			updated_at = :updated_at
		WHERE id = :id
	`

	var result sql.Result
	err := r.write(ctx, func() error {
		var execErr error
		result, execErr = sqlx.NamedExecContext(ctx, r.db, query, toBookingRow(booking))
		return execErr
	})
	if err != nil {
		return persistence.Booking{}, err
	}
	if err := requireAffected(result); err != nil {
		return persistence.Booking{}, err
	}
	return r.GetBooking(ctx, booking.ID)
}

// DeleteBooking removes a single booking row.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id int64) error {
	var result sql.Result
	err := r.write(ctx, func() error {
		var execErr error
		result, execErr = r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListBookings returns bookings matching the filter ordered by date, time slot and id.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Date != "" {
		clauses = append(clauses, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.From != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.To)
	}
	if filter.GradeID != 0 {
		clauses = append(clauses, "grade_id = ?")
		args = append(args, filter.GradeID)
	}
	if filter.ParentID != 0 {
		clauses = append(clauses, "recurring_parent_id = ?")
		args = append(args, filter.ParentID)
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + bookingColumns + ` FROM bookings`)
	if len(clauses) > 0 {
		query.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY date ASC, time_slot_id ASC, id ASC")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query.String(), args...); err != nil {
		return nil, r.mapper.MapError(err)
	}

	bookings := make([]persistence.Booking, 0, len(rows))
	for _, row := range rows {
		booking, err := row.toPersistence()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

// WithinTransaction runs fn with a repository bound to a single transaction.
// Calls on a repository that is already transactional join that transaction.
func (r *BookingRepository) WithinTransaction(ctx context.Context, fn func(repo persistence.BookingRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return fn(&BookingRepository{
			pool:   r.pool,
			db:     tx,
			inTx:   true,
			mapper: r.mapper,
			retry:  r.retry,
		})
	})
}

// write runs a single statement, retrying on a busy database unless the
// repository is inside a transaction, where the caller owns the retry.
func (r *BookingRepository) write(ctx context.Context, exec func() error) error {
	if r.inTx {
		return r.mapper.MapError(exec())
	}
	return r.retry.WithRetry(ctx, exec)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func toBookingRow(b persistence.Booking) bookingRow {
	row := bookingRow{
		ID:                 b.ID,
		GradeID:            b.GradeID,
		GradeClass:         b.GradeClass,
		TeacherName:        b.TeacherName,
		Date:               b.Date,
		TimeSlotID:         b.TimeSlotID,
		EquipmentID:        b.EquipmentID,
		Content:            b.Content,
		Shift:              b.Shift,
		IsCompleted:        b.IsCompleted,
		IsRecurring:        b.IsRecurring,
		RecurringFrequency: b.RecurringFrequency,
		CreatedAt:          b.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:          b.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if b.Notes != nil {
		row.Notes = sql.NullString{String: *b.Notes, Valid: true}
	}
	if b.RecurringEndDate != nil {
		row.RecurringEndDate = sql.NullString{String: *b.RecurringEndDate, Valid: true}
	}
	if b.RecurringParentID != nil {
		row.RecurringParentID = sql.NullInt64{Int64: *b.RecurringParentID, Valid: true}
	}
	return row
}

func (row bookingRow) toPersistence() (persistence.Booking, error) {
	booking := persistence.Booking{
		ID:                 row.ID,
		GradeID:            row.GradeID,
		GradeClass:         row.GradeClass,
		TeacherName:        row.TeacherName,
		Date:               row.Date,
		TimeSlotID:         row.TimeSlotID,
		EquipmentID:        row.EquipmentID,
		Content:            row.Content,
		Shift:              row.Shift,
		IsCompleted:        row.IsCompleted,
		IsRecurring:        row.IsRecurring,
		RecurringFrequency: row.RecurringFrequency,
	}
	if row.Notes.Valid {
		notes := row.Notes.String
		booking.Notes = &notes
	}
	if row.RecurringEndDate.Valid {
		end := row.RecurringEndDate.String
		booking.RecurringEndDate = &end
	}
	if row.RecurringParentID.Valid {
		parent := row.RecurringParentID.Int64
		booking.RecurringParentID = &parent
	}

	var err error
	if booking.CreatedAt, err = time.Parse(time.RFC3339Nano, row.CreatedAt); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if booking.UpdatedAt, err = time.Parse(time.RFC3339Nano, row.UpdatedAt); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return booking, nil
}
