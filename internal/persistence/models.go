package persistence

import "time"

// User represents a staff account as stored.
type User struct {
	ID            string
	Username      string
	DisplayName   string
	PasswordHash  string
	Role          string
	AssignedClass *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Booking represents one reserved use of equipment as stored. Dates are kept
// in their YYYY-MM-DD text form.
type Booking struct {
	ID                 int64
	GradeID            int
	GradeClass         string
	TeacherName        string
	Date               string
	TimeSlotID         int
	EquipmentID        int
	Content            string
	Notes              *string
	Shift              string
	IsCompleted        bool
	IsRecurring        bool
	RecurringFrequency string
	RecurringEndDate   *string
	RecurringParentID  *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
