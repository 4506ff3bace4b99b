package application

import (
	"time"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/catalog"
	"github.com/example/lab-scheduler/internal/recurrence"
)

// Booking is one dated reservation of equipment for a class in a time slot.
//
// A booking created from a weekly request is the parent of its series. Its
// children carry RecurringParentID and are independent rows: they never repeat
// further and editing or deleting one leaves the others untouched.
type Booking struct {
	ID                 int64
	GradeID            int
	GradeClass         string
	TeacherName        string
	Date               catalog.Date
	TimeSlotID         int
	EquipmentID        int
	Content            string
	Notes              string
	Shift              catalog.Shift
	IsCompleted        bool
	IsRecurring        bool
	RecurringFrequency recurrence.Frequency
	RecurringEndDate   *catalog.Date
	RecurringParentID  *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsSeriesChild reports whether the booking was generated from a weekly parent.
func (b Booking) IsSeriesChild() bool { return b.RecurringParentID != nil }

func (b Booking) target() access.Target {
	return access.Target{GradeID: b.GradeID, GradeClass: b.GradeClass}
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	GradeID            int    `validate:"required,min=1"`
	GradeClass         string `validate:"required,max=5"`
	TeacherName        string `validate:"required,min=3"`
	Date               string `validate:"required,datetime=2006-01-02"`
	TimeSlotID         int    `validate:"required,min=1"`
	EquipmentID        int    `validate:"required,min=1"`
	Content            string `validate:"required,min=3"`
	Notes              string
	IsRecurring        bool
	RecurringFrequency string `validate:"omitempty,oneof=none weekly"`
	RecurringEndDate   string `validate:"omitempty,datetime=2006-01-02"`
}

// BookingPatch carries the fields of a partial update. Nil fields keep their
// stored value. Recurrence fields are not editable: a series is never re-expanded.
type BookingPatch struct {
	GradeID     *int
	GradeClass  *string
	TeacherName *string
	Date        *string
	TimeSlotID  *int
	EquipmentID *int
	Content     *string
	Notes       *string
	IsCompleted *bool
}

// ConflictWarning describes another booking holding the same slot. Warnings are
// informational and never block a write.
type ConflictWarning struct {
	BookingID     int64
	WithBookingID int64
	Type          string
	Date          catalog.Date
	TimeSlotID    int
	EquipmentID   int
}

// CreateBookingResult reports what a create request persisted.
type CreateBookingResult struct {
	Parent   Booking
	Children []Booking
	Warnings []ConflictWarning
}

// TotalCreated counts the parent and every child.
func (r CreateBookingResult) TotalCreated() int {
	if r.Parent.ID == 0 {
		return 0
	}
	return 1 + len(r.Children)
}

// UpdateBookingResult reports the persisted booking and any slot conflicts.
type UpdateBookingResult struct {
	Booking  Booking
	Warnings []ConflictWarning
}

// WeekSchedule is the Monday to Sunday view used by the printable schedule.
type WeekSchedule struct {
	Start    catalog.Date
	End      catalog.Date
	Bookings []Booking
}

// User is a staff account.
type User struct {
	ID            string
	Username      string
	DisplayName   string
	Role          access.Role
	AssignedClass string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Principal returns the access principal for the user.
func (u User) Principal() access.Principal {
	return access.Principal{UserID: u.ID, Role: u.Role, AssignedClass: u.AssignedClass}
}

// UserInput captures the fields submitted when registering a user.
type UserInput struct {
	Username        string `validate:"required,min=3"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string
	DisplayName     string `validate:"required,min=3"`
	Role            string `validate:"required"`
	AssignedClass   string
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Username string
	Password string
}

// AuthenticateResult carries the signed bearer token issued on login.
type AuthenticateResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
