package model

import (
	"time"
)

// Student belongs to a school and optionally to a classroom. A nil ClassroomID
// means the student is enrolled in the school but not attending any classroom.
// CardID is unique within the school and follows the format
// <YYYYMMDD of birth date><2 random base-36 chars>.
type Student struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	FirstName      string    `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName       string    `json:"last_name" gorm:"type:varchar(100);not null"`
	CardID         string    `json:"card_id" gorm:"type:varchar(20);uniqueIndex:idx_students_school_card;not null"`
	DateOfBirth    time.Time `json:"date_of_birth" gorm:"not null"`
	Email          *string   `json:"email,omitempty" gorm:"type:varchar(100);uniqueIndex"`
	Phone          string    `json:"phone" gorm:"type:varchar(20)"`
	Address        string    `json:"address" gorm:"type:varchar(500)"`
	SchoolID       uint      `json:"school_id" gorm:"uniqueIndex:idx_students_school_card;index;not null"`
	ClassroomID    *uint     `json:"classroom_id,omitempty" gorm:"index"`
	EnrollmentDate time.Time `json:"enrollment_date"`
	GuardianName   string    `json:"guardian_name" gorm:"type:varchar(100)"`
	GuardianPhone  string    `json:"guardian_phone" gorm:"type:varchar(20)"`
	GuardianEmail  string    `json:"guardian_email" gorm:"type:varchar(100)"`
	Active         bool      `json:"active" gorm:"default:true"`
	CreatedBy      uint      `json:"created_by" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
