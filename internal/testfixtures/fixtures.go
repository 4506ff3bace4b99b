package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/persistence"
)

var (
	userCounter    uint64
	bookingCounter uint64
)

// referenceTime is a Friday afternoon in São Paulo.
var referenceTime = time.Date(2024, time.March, 1, 15, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Principals -----------------------------

// Admin returns an administrator principal.
func Admin() access.Principal {
	return access.Principal{UserID: "admin-1", Role: access.RoleAdmin}
}

// Coordinator returns a read-only coordinator principal.
func Coordinator() access.Principal {
	return access.Principal{UserID: "coordinator-1", Role: access.RoleCoordinator}
}

// Teacher returns a teacher principal assigned to classCode, such as "1A".
func Teacher(classCode string) access.Principal {
	return access.Principal{UserID: "teacher-" + classCode, Role: access.RoleTeacher, AssignedClass: classCode}
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record.
type UserFixture struct {
	ID            string
	Username      string
	DisplayName   string
	PasswordHash  string
	Role          access.Role
	AssignedClass string
	CreatedAt     time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic teacher of class 1A with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		ID:            fmt.Sprintf("user-%03d", idx),
		Username:      fmt.Sprintf("teacher%03d", idx),
		DisplayName:   fmt.Sprintf("Teacher %03d", idx),
		PasswordHash:  fmt.Sprintf("hash-%03d", idx),
		Role:          access.RoleTeacher,
		AssignedClass: "1A",
		CreatedAt:     referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUsername overrides the username.
func WithUsername(username string) UserOption {
	return func(f *UserFixture) { f.Username = username }
}

// WithRole overrides the role. Non-teachers lose their assigned class.
func WithRole(role access.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
		if role != access.RoleTeacher {
			f.AssignedClass = ""
		}
	}
}

// WithPasswordHash overrides the stored hash.
func WithPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// Principal returns the access principal of the fixture.
func (f UserFixture) Principal() access.Principal {
	return access.Principal{UserID: f.ID, Role: f.Role, AssignedClass: f.AssignedClass}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	user := persistence.User{
		ID:           f.ID,
		Username:     f.Username,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		Role:         string(f.Role),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
	if f.AssignedClass != "" {
		class := f.AssignedClass
		user.AssignedClass = &class
	}
	return user
}

// ----------------------------- Booking fixtures -----------------------------

// BookingFixture is a valid afternoon booking for class 1A unless overridden.
type BookingFixture struct {
	GradeID     int
	GradeClass  string
	TeacherName string
	Date        string
	TimeSlotID  int
	EquipmentID int
	Content     string
	Shift       string
	ParentID    *int64
	CreatedAt   time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic booking with optional overrides.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	fixture := BookingFixture{
		GradeID:     1,
		GradeClass:  "A",
		TeacherName: "Márcia Santos",
		Date:        "2024-03-04",
		TimeSlotID:  1,
		EquipmentID: 1,
		Content:     fmt.Sprintf("Digital Literacy %03d", idx),
		Shift:       "afternoon",
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithDate overrides the booking date.
func WithDate(date string) BookingOption {
	return func(f *BookingFixture) { f.Date = date }
}

// WithSlot overrides the time slot and equipment.
func WithSlot(timeSlotID, equipmentID int) BookingOption {
	return func(f *BookingFixture) {
		f.TimeSlotID = timeSlotID
		f.EquipmentID = equipmentID
	}
}

// WithClass overrides grade and class.
func WithClass(gradeID int, class string) BookingOption {
	return func(f *BookingFixture) {
		f.GradeID = gradeID
		f.GradeClass = class
	}
}

// WithParent marks the booking as a generated child of parentID.
func WithParent(parentID int64) BookingOption {
	return func(f *BookingFixture) { f.ParentID = &parentID }
}

// Persistence returns the fixture as a persistence.Booking value.
func (f BookingFixture) Persistence() persistence.Booking {
	booking := persistence.Booking{
		GradeID:            f.GradeID,
		GradeClass:         f.GradeClass,
		TeacherName:        f.TeacherName,
		Date:               f.Date,
		TimeSlotID:         f.TimeSlotID,
		EquipmentID:        f.EquipmentID,
		Content:            f.Content,
		Shift:              f.Shift,
		RecurringFrequency: "none",
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.CreatedAt,
	}
	if f.ParentID != nil {
		parent := *f.ParentID
		booking.RecurringParentID = &parent
		booking.RecurringFrequency = "weekly"
	}
	return booking
}
