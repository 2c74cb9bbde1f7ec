// Package store defines the repository interfaces the engine and handlers
// depend on, with a GORM/Postgres implementation for production and an
// in-memory implementation for tests. The engine receives a Store at
// construction; nothing in the core reaches for a global database handle.
package store

import (
	"context"
	"errors"

	"school-service/internal/model"
)

// ErrNotFound is returned by Get* methods when no record matches.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert or update violates a uniqueness
// constraint at the store level.
var ErrDuplicate = errors.New("duplicate record")

// Store bundles the per-entity repositories and the transaction boundary.
type Store interface {
	Users() UserRepository
	Schools() SchoolRepository
	Grades() GradeRepository
	Classrooms() ClassroomRepository
	Students() StudentRepository

	// InTransaction runs fn against a Store whose repositories share one
	// store-native transaction. Multi-step cascades run inside it so a crash
	// between steps cannot leave counters or references dangling.
	InTransaction(ctx context.Context, fn func(Store) error) error
}

// UserFilter narrows user listings.
type UserFilter struct {
	SchoolID  *uint
	Role      *model.Role
	StaffOnly bool
	Active    *bool
	Offset    int
	Limit     int
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string, excludeID uint) (bool, error)
	Update(ctx context.Context, u *model.User) error
	List(ctx context.Context, f UserFilter) ([]model.User, int64, error)
	DeleteBySchool(ctx context.Context, schoolID uint) error

	// Classroom assignments for teachers.
	Assignments(ctx context.Context, userID uint) ([]uint, error)
	ReplaceAssignments(ctx context.Context, userID uint, classroomIDs []uint) error
	RemoveClassroomAssignments(ctx context.Context, classroomID uint) error
	RemoveSchoolAssignments(ctx context.Context, schoolID uint) error
	TeachersByClassroom(ctx context.Context, classroomID uint) ([]model.User, error)
}

// SchoolFilter narrows school listings. ID pins the listing to a single
// school, which is how school admins see only their own.
type SchoolFilter struct {
	ID     *uint
	Active *bool
	Offset int
	Limit  int
}

type SchoolRepository interface {
	Create(ctx context.Context, s *model.School) error
	GetByID(ctx context.Context, id uint) (*model.School, error)
	ExistsByEmail(ctx context.Context, email string, excludeID uint) (bool, error)
	Update(ctx context.Context, s *model.School) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f SchoolFilter) ([]model.School, int64, error)
}

// GradeFilter narrows grade listings.
type GradeFilter struct {
	SchoolID uint
	Active   *bool
	Offset   int
	Limit    int
}

type GradeRepository interface {
	Create(ctx context.Context, g *model.Grade) error
	GetByID(ctx context.Context, id uint) (*model.Grade, error)
	ExistsByName(ctx context.Context, schoolID uint, name string, excludeID uint) (bool, error)
	Update(ctx context.Context, g *model.Grade) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f GradeFilter) ([]model.Grade, int64, error)
	ListBySchool(ctx context.Context, schoolID uint) ([]model.Grade, error)
	DeleteBySchool(ctx context.Context, schoolID uint) error
}

// ClassroomFilter narrows classroom listings.
type ClassroomFilter struct {
	SchoolID uint
	GradeID  *uint
	Active   *bool
	Offset   int
	Limit    int
}

type ClassroomRepository interface {
	Create(ctx context.Context, c *model.Classroom) error
	GetByID(ctx context.Context, id uint) (*model.Classroom, error)
	GetByIDs(ctx context.Context, ids []uint) ([]model.Classroom, error)
	ExistsByName(ctx context.Context, schoolID uint, name string, excludeID uint) (bool, error)
	Update(ctx context.Context, c *model.Classroom) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f ClassroomFilter) ([]model.Classroom, int64, error)
	ListBySchool(ctx context.Context, schoolID uint) ([]model.Classroom, error)
	ListByGrade(ctx context.Context, gradeID uint) ([]model.Classroom, error)

	// AdjustEnrollment applies current_enrollment += delta as a single atomic
	// counter update. Concurrent enrollments into the same classroom must not
	// lose updates, so this is never read-modify-write.
	AdjustEnrollment(ctx context.Context, id uint, delta int) error

	// ClearGrade nulls grade_id on every classroom of the grade.
	ClearGrade(ctx context.Context, gradeID uint) error
	DeleteBySchool(ctx context.Context, schoolID uint) error
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	SchoolID    uint
	ClassroomID *uint
	Active      *bool
	Offset      int
	Limit       int
}

type StudentRepository interface {
	Create(ctx context.Context, s *model.Student) error
	GetByID(ctx context.Context, id uint) (*model.Student, error)
	EmailExists(ctx context.Context, email string, excludeID uint) (bool, error)
	CardIDExists(ctx context.Context, schoolID uint, cardID string) (bool, error)
	Update(ctx context.Context, s *model.Student) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f StudentFilter) ([]model.Student, int64, error)
	ListBySchool(ctx context.Context, schoolID uint) ([]model.Student, error)
	ListByClassroom(ctx context.Context, classroomID uint) ([]model.Student, error)

	// ClearClassroom nulls classroom_id on every student of the classroom.
	ClearClassroom(ctx context.Context, classroomID uint) error
	DeleteBySchool(ctx context.Context, schoolID uint) error
}
