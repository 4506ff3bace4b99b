package postgres

import (
	"time"

	"github.com/example/lab-scheduler/internal/persistence"
)

// userModel is the gorm mapping of the users table.
type userModel struct {
	ID            string  `gorm:"primaryKey;type:varchar(64)"`
	Username      string  `gorm:"type:varchar(120);not null"`
	DisplayName   string  `gorm:"type:varchar(200);not null"`
	PasswordHash  string  `gorm:"not null"`
	Role          string  `gorm:"type:varchar(20);not null"`
	AssignedClass *string `gorm:"type:varchar(20)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (userModel) TableName() string { return "users" }

// bookingModel is the gorm mapping of the bookings table. Dates stay in
// YYYY-MM-DD text so that range filters compare the same way on every backend.
type bookingModel struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement"`
	GradeID            int    `gorm:"not null;index:idx_bookings_grade,priority:1"`
	GradeClass         string `gorm:"type:varchar(4);not null"`
	TeacherName        string `gorm:"type:varchar(200);not null"`
	Date               string `gorm:"type:char(10);not null;index:idx_bookings_date,priority:1;index:idx_bookings_grade,priority:2"`
	TimeSlotID         int    `gorm:"not null;index:idx_bookings_date,priority:2"`
	EquipmentID        int    `gorm:"not null"`
	Content            string `gorm:"not null"`
	Notes              *string
	Shift              string  `gorm:"type:varchar(20);not null"`
	IsCompleted        bool    `gorm:"not null;default:false"`
	IsRecurring        bool    `gorm:"not null;default:false"`
	RecurringFrequency string  `gorm:"type:varchar(20);not null;default:'none'"`
	RecurringEndDate   *string `gorm:"type:char(10)"`
	RecurringParentID  *int64  `gorm:"index:idx_bookings_parent"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (bookingModel) TableName() string { return "bookings" }

func fromPersistenceUser(u persistence.User) userModel {
	return userModel{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		PasswordHash:  u.PasswordHash,
		Role:          u.Role,
		AssignedClass: u.AssignedClass,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (m userModel) toPersistence() persistence.User {
	return persistence.User{
		ID:            m.ID,
		Username:      m.Username,
		DisplayName:   m.DisplayName,
		PasswordHash:  m.PasswordHash,
		Role:          m.Role,
		AssignedClass: m.AssignedClass,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

func fromPersistenceBooking(b persistence.Booking) bookingModel {
	return bookingModel{
		ID:                 b.ID,
		GradeID:            b.GradeID,
		GradeClass:         b.GradeClass,
		TeacherName:        b.TeacherName,
		Date:               b.Date,
		TimeSlotID:         b.TimeSlotID,
		EquipmentID:        b.EquipmentID,
		Content:            b.Content,
		Notes:              b.Notes,
		Shift:              b.Shift,
		IsCompleted:        b.IsCompleted,
		IsRecurring:        b.IsRecurring,
		RecurringFrequency: b.RecurringFrequency,
		RecurringEndDate:   b.RecurringEndDate,
		RecurringParentID:  b.RecurringParentID,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func (m bookingModel) toPersistence() persistence.Booking {
	return persistence.Booking{
		ID:                 m.ID,
		GradeID:            m.GradeID,
		GradeClass:         m.GradeClass,
		TeacherName:        m.TeacherName,
		Date:               m.Date,
		TimeSlotID:         m.TimeSlotID,
		EquipmentID:        m.EquipmentID,
		Content:            m.Content,
		Notes:              m.Notes,
		Shift:              m.Shift,
		IsCompleted:        m.IsCompleted,
		IsRecurring:        m.IsRecurring,
		RecurringFrequency: m.RecurringFrequency,
		RecurringEndDate:   m.RecurringEndDate,
		RecurringParentID:  m.RecurringParentID,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}
