package model

import (
	"time"
)

// Role is the access level a user holds within the system.
type Role string

const (
	RoleSuperadmin     Role = "superadmin"
	RoleSchoolAdmin    Role = "school_admin"
	RoleTeacher        Role = "teacher"
	RoleCafeteriaStaff Role = "cafeteria_staff"
	RoleSecurity       Role = "security"
	RoleHR             Role = "hr"
)

// StaffRoles are the roles a school admin can create and manage.
var StaffRoles = []Role{RoleTeacher, RoleCafeteriaStaff, RoleSecurity, RoleHR}

// IsStaff reports whether the role is one of the school staff roles.
func (r Role) IsStaff() bool {
	for _, s := range StaffRoles {
		if r == s {
			return true
		}
	}
	return false
}

// Valid reports whether the role is one the system knows about.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleSchoolAdmin, RoleTeacher, RoleCafeteriaStaff, RoleSecurity, RoleHR:
		return true
	}
	return false
}

// User represents an account stored in the database. SchoolID is required for
// every role except superadmin. SessionKey is generated once at creation and
// binds issued tokens to this account.
type User struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Username   string    `json:"username" gorm:"type:varchar(20);uniqueIndex;not null"`
	Email      string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password   string    `json:"-" gorm:"type:varchar(255);not null"`
	Role       Role      `json:"role" gorm:"type:varchar(20);not null;index"`
	SchoolID   *uint     `json:"school_id,omitempty" gorm:"index"`
	SessionKey string    `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	Active     bool      `json:"active" gorm:"default:true"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ClassroomAssignment associates a teacher with a classroom. A teacher can be
// assigned to many classrooms and a classroom can have many teachers.
type ClassroomAssignment struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_assignment_user_classroom;not null"`
	ClassroomID uint      `json:"classroom_id" gorm:"uniqueIndex:idx_assignment_user_classroom;index;not null"`
	CreatedAt   time.Time `json:"created_at"`
}
