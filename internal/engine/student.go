package engine

import (
	"context"
	"errors"
	"time"

	"school-service/internal/apperr"
	"school-service/internal/model"
	"school-service/internal/store"
)

// CreateStudentInput carries the fields for enrolling a new student.
type CreateStudentInput struct {
	FirstName     string
	LastName      string
	SchoolID      uint
	ClassroomID   uint
	DateOfBirth   time.Time
	Email         *string
	Phone         string
	Address       string
	GuardianName  string
	GuardianPhone string
	GuardianEmail string
	CreatedBy     uint
}

// CreateStudent enrolls a student into a classroom. Preconditions: the school
// exists and is active; the classroom exists, belongs to that school, is
// active and has spare capacity; the optional email is unused. On success the
// student row and the +1 enrollment adjustment commit together.
func (e *Engine) CreateStudent(ctx context.Context, in CreateStudentInput) (*model.Student, error) {
	school, err := e.store.Schools().GetByID(ctx, in.SchoolID)
	if err != nil {
		return nil, notFoundOr(err, "School not found")
	}
	if !school.Active {
		return nil, apperr.Conflict("Cannot enroll student in inactive school")
	}

	classroom, err := e.store.Classrooms().GetByID(ctx, in.ClassroomID)
	if err != nil {
		return nil, notFoundOr(err, "Classroom not found")
	}
	if classroom.SchoolID != in.SchoolID {
		return nil, apperr.Conflict("Classroom does not belong to the specified school")
	}
	if !classroom.Active {
		return nil, apperr.Conflict("Cannot enroll student in inactive classroom")
	}
	if classroom.CurrentEnrollment >= classroom.Capacity {
		return nil, apperr.Conflict("Classroom is at full capacity")
	}

	if in.Email != nil {
		exists, err := e.store.Students().EmailExists(ctx, *in.Email, 0)
		if err != nil {
			return nil, apperr.Integrity("failed to check student email", err)
		}
		if exists {
			return nil, apperr.Conflict("Student with this email already exists")
		}
	}

	var student *model.Student
	err = e.store.InTransaction(ctx, func(st store.Store) error {
		cardID, err := e.allocateCardID(ctx, st, in.SchoolID, in.DateOfBirth)
		if err != nil {
			return err
		}
		classroomID := in.ClassroomID
		student = &model.Student{
			FirstName:      in.FirstName,
			LastName:       in.LastName,
			CardID:         cardID,
			DateOfBirth:    in.DateOfBirth,
			Email:          in.Email,
			Phone:          in.Phone,
			Address:        in.Address,
			SchoolID:       in.SchoolID,
			ClassroomID:    &classroomID,
			EnrollmentDate: time.Now(),
			GuardianName:   in.GuardianName,
			GuardianPhone:  in.GuardianPhone,
			GuardianEmail:  in.GuardianEmail,
			Active:         true,
			CreatedBy:      in.CreatedBy,
		}
		if err := st.Students().Create(ctx, student); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				// The unique index caught a race the pre-checks missed.
				return apperr.Conflict("Student with this email or card id already exists")
			}
			return apperr.Integrity("failed to create student", err)
		}
		if err := st.Classrooms().AdjustEnrollment(ctx, in.ClassroomID, +1); err != nil {
			return apperr.Integrity("failed to increment classroom enrollment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// UpdateStudentInput carries the mutable student fields; nil means unchanged.
type UpdateStudentInput struct {
	StudentID     uint
	FirstName     *string
	LastName      *string
	Email         *string
	Phone         *string
	Address       *string
	GuardianName  *string
	GuardianPhone *string
	GuardianEmail *string
	Active        *bool
}

// UpdateStudent applies partial updates. Enrollment placement is not touched
// here; moving a student is TransferStudent's job.
func (e *Engine) UpdateStudent(ctx context.Context, in UpdateStudentInput) (*model.Student, error) {
	student, err := e.store.Students().GetByID(ctx, in.StudentID)
	if err != nil {
		return nil, notFoundOr(err, "Student not found")
	}

	if in.Email != nil {
		exists, err := e.store.Students().EmailExists(ctx, *in.Email, student.ID)
		if err != nil {
			return nil, apperr.Integrity("failed to check student email", err)
		}
		if exists {
			return nil, apperr.Conflict("Student with this email already exists")
		}
		student.Email = in.Email
	}
	if in.FirstName != nil {
		student.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		student.LastName = *in.LastName
	}
	if in.Phone != nil {
		student.Phone = *in.Phone
	}
	if in.Address != nil {
		student.Address = *in.Address
	}
	if in.GuardianName != nil {
		student.GuardianName = *in.GuardianName
	}
	if in.GuardianPhone != nil {
		student.GuardianPhone = *in.GuardianPhone
	}
	if in.GuardianEmail != nil {
		student.GuardianEmail = *in.GuardianEmail
	}
	if in.Active != nil {
		student.Active = *in.Active
	}

	if err := e.store.Students().Update(ctx, student); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Student with this email already exists")
		}
		return nil, apperr.Integrity("failed to update student", err)
	}
	return student, nil
}

// GetStudent loads a single student.
func (e *Engine) GetStudent(ctx context.Context, id uint) (*model.Student, error) {
	student, err := e.store.Students().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Student not found")
	}
	return student, nil
}

// DeleteStudent removes the student and releases their classroom seat. The
// delete and the -1 adjustment commit together; an unassigned student skips
// the adjustment.
func (e *Engine) DeleteStudent(ctx context.Context, id uint) error {
	student, err := e.store.Students().GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "Student not found")
	}
	return e.store.InTransaction(ctx, func(st store.Store) error {
		if err := st.Students().Delete(ctx, student.ID); err != nil {
			return apperr.Integrity("failed to delete student", err)
		}
		if student.ClassroomID != nil {
			if err := st.Classrooms().AdjustEnrollment(ctx, *student.ClassroomID, -1); err != nil {
				return apperr.Integrity("failed to decrement classroom enrollment", err)
			}
		}
		return nil
	})
}

// TransferStudent moves a student to another classroom, optionally in another
// school. The destination must be active, belong to the target school and
// have spare capacity. The student row, the -1 on the old classroom and the
// +1 on the new one commit together. A student without a prior classroom
// skips the decrement.
func (e *Engine) TransferStudent(ctx context.Context, studentID, newClassroomID uint, newSchoolID *uint) (*model.Student, error) {
	student, err := e.store.Students().GetByID(ctx, studentID)
	if err != nil {
		return nil, notFoundOr(err, "Student not found")
	}

	newClassroom, err := e.store.Classrooms().GetByID(ctx, newClassroomID)
	if err != nil {
		return nil, notFoundOr(err, "New classroom not found")
	}

	targetSchoolID := student.SchoolID
	if newSchoolID != nil {
		targetSchoolID = *newSchoolID
	}
	if newClassroom.SchoolID != targetSchoolID {
		return nil, apperr.Conflict("New classroom does not belong to the target school")
	}
	if !newClassroom.Active {
		return nil, apperr.Conflict("Cannot transfer student to inactive classroom")
	}
	if newClassroom.CurrentEnrollment >= newClassroom.Capacity {
		return nil, apperr.Conflict("New classroom is at full capacity")
	}

	oldClassroomID := student.ClassroomID
	err = e.store.InTransaction(ctx, func(st store.Store) error {
		classroomID := newClassroomID
		student.ClassroomID = &classroomID
		student.SchoolID = targetSchoolID
		if err := st.Students().Update(ctx, student); err != nil {
			return apperr.Integrity("failed to move student", err)
		}
		if oldClassroomID != nil {
			if err := st.Classrooms().AdjustEnrollment(ctx, *oldClassroomID, -1); err != nil {
				return apperr.Integrity("failed to decrement source enrollment", err)
			}
		}
		if err := st.Classrooms().AdjustEnrollment(ctx, newClassroomID, +1); err != nil {
			return apperr.Integrity("failed to increment destination enrollment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// ListStudents pages through a school's students.
func (e *Engine) ListStudents(ctx context.Context, f store.StudentFilter) ([]model.Student, int64, error) {
	students, total, err := e.store.Students().List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Integrity("failed to list students", err)
	}
	return students, total, nil
}
