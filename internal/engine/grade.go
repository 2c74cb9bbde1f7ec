package engine

import (
	"context"
	"errors"

	"school-service/internal/apperr"
	"school-service/internal/model"
	"school-service/internal/store"
)

// CreateGradeInput carries the fields for a new grade level.
type CreateGradeInput struct {
	Name      string
	SchoolID  uint
	SortOrder int
}

// CreateGrade adds a grade level to an active school. The name must be
// unique within the school.
func (e *Engine) CreateGrade(ctx context.Context, in CreateGradeInput) (*model.Grade, error) {
	school, err := e.store.Schools().GetByID(ctx, in.SchoolID)
	if err != nil {
		return nil, notFoundOr(err, "School not found")
	}
	if !school.Active {
		return nil, apperr.Conflict("Cannot create grade for inactive school")
	}

	exists, err := e.store.Grades().ExistsByName(ctx, in.SchoolID, in.Name, 0)
	if err != nil {
		return nil, apperr.Integrity("failed to check grade name", err)
	}
	if exists {
		return nil, apperr.Conflict("Grade with this name already exists in this school")
	}

	grade := &model.Grade{
		Name:      in.Name,
		SchoolID:  in.SchoolID,
		SortOrder: in.SortOrder,
		Active:    true,
	}
	if err := e.store.Grades().Create(ctx, grade); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Grade with this name already exists in this school")
		}
		return nil, apperr.Integrity("failed to create grade", err)
	}
	return grade, nil
}

// UpdateGradeInput carries partial grade updates; nil means unchanged.
type UpdateGradeInput struct {
	GradeID   uint
	Name      *string
	SortOrder *int
	Active    *bool
}

// UpdateGrade applies partial updates, keeping the per-school name unique.
func (e *Engine) UpdateGrade(ctx context.Context, in UpdateGradeInput) (*model.Grade, error) {
	grade, err := e.store.Grades().GetByID(ctx, in.GradeID)
	if err != nil {
		return nil, notFoundOr(err, "Grade not found")
	}

	if in.Name != nil {
		exists, err := e.store.Grades().ExistsByName(ctx, grade.SchoolID, *in.Name, grade.ID)
		if err != nil {
			return nil, apperr.Integrity("failed to check grade name", err)
		}
		if exists {
			return nil, apperr.Conflict("Grade with this name already exists in this school")
		}
		grade.Name = *in.Name
	}
	if in.SortOrder != nil {
		grade.SortOrder = *in.SortOrder
	}
	if in.Active != nil {
		grade.Active = *in.Active
	}

	if err := e.store.Grades().Update(ctx, grade); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Grade with this name already exists in this school")
		}
		return nil, apperr.Integrity("failed to update grade", err)
	}
	return grade, nil
}

// GetGrade loads a single grade.
func (e *Engine) GetGrade(ctx context.Context, id uint) (*model.Grade, error) {
	grade, err := e.store.Grades().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Grade not found")
	}
	return grade, nil
}

// DeleteGrade nulls the grade reference on every classroom of the grade and
// then deletes it. Classrooms are never deleted by this cascade. Both steps
// commit together.
func (e *Engine) DeleteGrade(ctx context.Context, id uint) error {
	grade, err := e.store.Grades().GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "Grade not found")
	}
	return e.store.InTransaction(ctx, func(st store.Store) error {
		if err := st.Classrooms().ClearGrade(ctx, grade.ID); err != nil {
			return apperr.Integrity("failed to unassign classrooms", err)
		}
		if err := st.Grades().Delete(ctx, grade.ID); err != nil {
			return apperr.Integrity("failed to delete grade", err)
		}
		return nil
	})
}

// GradeClassrooms returns the classrooms assigned to the grade.
func (e *Engine) GradeClassrooms(ctx context.Context, id uint) (*model.Grade, []model.Classroom, error) {
	grade, err := e.store.Grades().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "Grade not found")
	}
	classrooms, err := e.store.Classrooms().ListByGrade(ctx, grade.ID)
	if err != nil {
		return nil, nil, apperr.Integrity("failed to list grade classrooms", err)
	}
	return grade, classrooms, nil
}

// ListGrades pages through a school's grades in sort order.
func (e *Engine) ListGrades(ctx context.Context, f store.GradeFilter) ([]model.Grade, int64, error) {
	grades, total, err := e.store.Grades().List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Integrity("failed to list grades", err)
	}
	return grades, total, nil
}
