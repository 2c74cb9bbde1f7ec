package model

import (
	"time"
)

// School is the top-level tenant. Grades, classrooms, students and staff all
// belong to exactly one school.
type School struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"type:varchar(100);not null"`
	Address         string    `json:"address" gorm:"type:varchar(500)"`
	Phone           string    `json:"phone" gorm:"type:varchar(20)"`
	Email           string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	PrincipalName   string    `json:"principal_name" gorm:"type:varchar(100)"`
	EstablishedYear int       `json:"established_year"`
	Active          bool      `json:"active" gorm:"default:true"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
