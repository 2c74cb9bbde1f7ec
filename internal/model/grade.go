package model

import (
	"time"
)

// Grade is a level within a school (e.g. "Grade 1"). Name is unique per school.
type Grade struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(50);uniqueIndex:idx_grades_school_name;not null"`
	SchoolID  uint      `json:"school_id" gorm:"uniqueIndex:idx_grades_school_name;index;not null"`
	SortOrder int       `json:"sort_order"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
