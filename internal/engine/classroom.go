package engine

import (
	"context"
	"errors"

	"school-service/internal/apperr"
	"school-service/internal/model"
	"school-service/internal/store"
)

// CreateClassroomInput carries the fields for a new classroom.
type CreateClassroomInput struct {
	Name       string
	SchoolID   uint
	GradeID    *uint
	Capacity   int
	Section    string
	RoomNumber string
}

// CreateClassroom adds a classroom to an active school. The name must be
// unique within the school and an optional grade must belong to it.
// Enrollment starts at zero.
func (e *Engine) CreateClassroom(ctx context.Context, in CreateClassroomInput) (*model.Classroom, error) {
	school, err := e.store.Schools().GetByID(ctx, in.SchoolID)
	if err != nil {
		return nil, notFoundOr(err, "School not found")
	}
	if !school.Active {
		return nil, apperr.Conflict("Cannot create classroom for inactive school")
	}

	if in.GradeID != nil {
		grade, err := e.store.Grades().GetByID(ctx, *in.GradeID)
		if err != nil {
			return nil, notFoundOr(err, "Grade not found")
		}
		if grade.SchoolID != in.SchoolID {
			return nil, apperr.Conflict("Grade does not belong to this school")
		}
	}

	exists, err := e.store.Classrooms().ExistsByName(ctx, in.SchoolID, in.Name, 0)
	if err != nil {
		return nil, apperr.Integrity("failed to check classroom name", err)
	}
	if exists {
		return nil, apperr.Conflict("Classroom with this name already exists in this school")
	}

	classroom := &model.Classroom{
		Name:       in.Name,
		SchoolID:   in.SchoolID,
		GradeID:    in.GradeID,
		Capacity:   in.Capacity,
		Section:    in.Section,
		RoomNumber: in.RoomNumber,
		Active:     true,
	}
	if err := e.store.Classrooms().Create(ctx, classroom); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Classroom with this name already exists in this school")
		}
		return nil, apperr.Integrity("failed to create classroom", err)
	}
	return classroom, nil
}

// UpdateClassroomInput carries partial classroom updates; nil means
// unchanged. A GradeID of 0 clears the grade reference.
type UpdateClassroomInput struct {
	ClassroomID uint
	Name        *string
	Capacity    *int
	GradeID     *uint
	Section     *string
	RoomNumber  *string
	Active      *bool
}

// UpdateClassroom applies partial updates. Capacity may never drop below the
// current enrollment; enrollment itself is not settable here or anywhere
// else a client can reach.
func (e *Engine) UpdateClassroom(ctx context.Context, in UpdateClassroomInput) (*model.Classroom, error) {
	classroom, err := e.store.Classrooms().GetByID(ctx, in.ClassroomID)
	if err != nil {
		return nil, notFoundOr(err, "Classroom not found")
	}

	if in.Name != nil {
		exists, err := e.store.Classrooms().ExistsByName(ctx, classroom.SchoolID, *in.Name, classroom.ID)
		if err != nil {
			return nil, apperr.Integrity("failed to check classroom name", err)
		}
		if exists {
			return nil, apperr.Conflict("Classroom with this name already exists in this school")
		}
		classroom.Name = *in.Name
	}
	if in.Capacity != nil {
		if *in.Capacity < classroom.CurrentEnrollment {
			return nil, apperr.Conflict("Capacity cannot be less than current enrollment")
		}
		classroom.Capacity = *in.Capacity
	}
	if in.GradeID != nil {
		if *in.GradeID == 0 {
			classroom.GradeID = nil
		} else {
			grade, err := e.store.Grades().GetByID(ctx, *in.GradeID)
			if err != nil {
				return nil, notFoundOr(err, "Grade not found")
			}
			if grade.SchoolID != classroom.SchoolID {
				return nil, apperr.Conflict("Grade does not belong to this school")
			}
			classroom.GradeID = in.GradeID
		}
	}
	if in.Section != nil {
		classroom.Section = *in.Section
	}
	if in.RoomNumber != nil {
		classroom.RoomNumber = *in.RoomNumber
	}
	if in.Active != nil {
		classroom.Active = *in.Active
	}

	if err := e.store.Classrooms().Update(ctx, classroom); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Classroom with this name already exists in this school")
		}
		return nil, apperr.Integrity("failed to update classroom", err)
	}
	return classroom, nil
}

// GetClassroom loads a single classroom.
func (e *Engine) GetClassroom(ctx context.Context, id uint) (*model.Classroom, error) {
	classroom, err := e.store.Classrooms().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Classroom not found")
	}
	return classroom, nil
}

// DeleteClassroom unassigns every student pointing at the classroom, removes
// it from every teacher's assignment list, then deletes it. Deletion is
// unconditional: enrolled students block nothing, they are unassigned so
// they can be transferred later. All three steps commit together.
func (e *Engine) DeleteClassroom(ctx context.Context, id uint) error {
	classroom, err := e.store.Classrooms().GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "Classroom not found")
	}
	return e.store.InTransaction(ctx, func(st store.Store) error {
		if err := st.Students().ClearClassroom(ctx, classroom.ID); err != nil {
			return apperr.Integrity("failed to unassign students", err)
		}
		if err := st.Users().RemoveClassroomAssignments(ctx, classroom.ID); err != nil {
			return apperr.Integrity("failed to unassign staff", err)
		}
		if err := st.Classrooms().Delete(ctx, classroom.ID); err != nil {
			return apperr.Integrity("failed to delete classroom", err)
		}
		return nil
	})
}

// ClassroomStudents returns the students currently attending the classroom.
func (e *Engine) ClassroomStudents(ctx context.Context, id uint) (*model.Classroom, []model.Student, error) {
	classroom, err := e.store.Classrooms().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "Classroom not found")
	}
	students, err := e.store.Students().ListByClassroom(ctx, classroom.ID)
	if err != nil {
		return nil, nil, apperr.Integrity("failed to list classroom students", err)
	}
	return classroom, students, nil
}

// ClassroomTeachers returns the teachers assigned to the classroom.
func (e *Engine) ClassroomTeachers(ctx context.Context, id uint) (*model.Classroom, []model.User, error) {
	classroom, err := e.store.Classrooms().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "Classroom not found")
	}
	teachers, err := e.store.Users().TeachersByClassroom(ctx, classroom.ID)
	if err != nil {
		return nil, nil, apperr.Integrity("failed to list classroom teachers", err)
	}
	return classroom, teachers, nil
}

// ListClassrooms pages through a school's classrooms.
func (e *Engine) ListClassrooms(ctx context.Context, f store.ClassroomFilter) ([]model.Classroom, int64, error) {
	classrooms, total, err := e.store.Classrooms().List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Integrity("failed to list classrooms", err)
	}
	return classrooms, total, nil
}
