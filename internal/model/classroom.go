package model

import (
	"time"
)

// Classroom belongs to a school and optionally to a grade. CurrentEnrollment
// is maintained by the engine through atomic counter updates and never set
// directly by clients; the invariant 0 <= CurrentEnrollment <= Capacity holds
// after every operation.
type Classroom struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Name              string    `json:"name" gorm:"type:varchar(100);uniqueIndex:idx_classrooms_school_name;not null"`
	SchoolID          uint      `json:"school_id" gorm:"uniqueIndex:idx_classrooms_school_name;index;not null"`
	GradeID           *uint     `json:"grade_id,omitempty" gorm:"index"`
	Capacity          int       `json:"capacity" gorm:"not null"`
	CurrentEnrollment int       `json:"current_enrollment" gorm:"not null;default:0"`
	Section           string    `json:"section" gorm:"type:varchar(20)"`
	RoomNumber        string    `json:"room_number" gorm:"type:varchar(20)"`
	Active            bool      `json:"active" gorm:"default:true"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
