package engine

import (
	"context"
	"errors"

	"school-service/internal/apperr"
	"school-service/internal/model"
	"school-service/internal/store"
)

// CreateSchoolInput carries the fields for a new school.
type CreateSchoolInput struct {
	Name            string
	Address         string
	Phone           string
	Email           string
	PrincipalName   string
	EstablishedYear int
}

// CreateSchool registers a new school. The contact email is globally unique.
func (e *Engine) CreateSchool(ctx context.Context, in CreateSchoolInput) (*model.School, error) {
	exists, err := e.store.Schools().ExistsByEmail(ctx, in.Email, 0)
	if err != nil {
		return nil, apperr.Integrity("failed to check school email", err)
	}
	if exists {
		return nil, apperr.Conflict("School with this email already exists")
	}

	school := &model.School{
		Name:            in.Name,
		Address:         in.Address,
		Phone:           in.Phone,
		Email:           in.Email,
		PrincipalName:   in.PrincipalName,
		EstablishedYear: in.EstablishedYear,
		Active:          true,
	}
	if err := e.store.Schools().Create(ctx, school); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("School with this email already exists")
		}
		return nil, apperr.Integrity("failed to create school", err)
	}
	return school, nil
}

// UpdateSchoolInput carries partial school updates; nil means unchanged.
type UpdateSchoolInput struct {
	SchoolID        uint
	Name            *string
	Address         *string
	Phone           *string
	Email           *string
	PrincipalName   *string
	EstablishedYear *int
	Active          *bool
}

// UpdateSchool applies partial updates, keeping the contact email unique.
func (e *Engine) UpdateSchool(ctx context.Context, in UpdateSchoolInput) (*model.School, error) {
	school, err := e.store.Schools().GetByID(ctx, in.SchoolID)
	if err != nil {
		return nil, notFoundOr(err, "School not found")
	}

	if in.Email != nil {
		exists, err := e.store.Schools().ExistsByEmail(ctx, *in.Email, school.ID)
		if err != nil {
			return nil, apperr.Integrity("failed to check school email", err)
		}
		if exists {
			return nil, apperr.Conflict("School with this email already exists")
		}
		school.Email = *in.Email
	}
	if in.Name != nil {
		school.Name = *in.Name
	}
	if in.Address != nil {
		school.Address = *in.Address
	}
	if in.Phone != nil {
		school.Phone = *in.Phone
	}
	if in.PrincipalName != nil {
		school.PrincipalName = *in.PrincipalName
	}
	if in.EstablishedYear != nil {
		school.EstablishedYear = *in.EstablishedYear
	}
	if in.Active != nil {
		school.Active = *in.Active
	}

	if err := e.store.Schools().Update(ctx, school); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("School with this email already exists")
		}
		return nil, apperr.Integrity("failed to update school", err)
	}
	return school, nil
}

// GetSchool loads a single school.
func (e *Engine) GetSchool(ctx context.Context, id uint) (*model.School, error) {
	school, err := e.store.Schools().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "School not found")
	}
	return school, nil
}

// DeleteSchool removes the school and everything scoped to it: students,
// then classrooms, then grades, then staff accounts and their classroom
// assignments, then the school record. The whole cascade commits together.
func (e *Engine) DeleteSchool(ctx context.Context, id uint) error {
	school, err := e.store.Schools().GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "School not found")
	}
	return e.store.InTransaction(ctx, func(st store.Store) error {
		if err := st.Students().DeleteBySchool(ctx, school.ID); err != nil {
			return apperr.Integrity("failed to delete school students", err)
		}
		if err := st.Classrooms().DeleteBySchool(ctx, school.ID); err != nil {
			return apperr.Integrity("failed to delete school classrooms", err)
		}
		if err := st.Grades().DeleteBySchool(ctx, school.ID); err != nil {
			return apperr.Integrity("failed to delete school grades", err)
		}
		if err := st.Users().RemoveSchoolAssignments(ctx, school.ID); err != nil {
			return apperr.Integrity("failed to delete staff assignments", err)
		}
		if err := st.Users().DeleteBySchool(ctx, school.ID); err != nil {
			return apperr.Integrity("failed to delete school users", err)
		}
		if err := st.Schools().Delete(ctx, school.ID); err != nil {
			return apperr.Integrity("failed to delete school", err)
		}
		return nil
	})
}

// SchoolClassrooms returns a school together with all its classrooms.
func (e *Engine) SchoolClassrooms(ctx context.Context, id uint) (*model.School, []model.Classroom, error) {
	school, err := e.store.Schools().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "School not found")
	}
	classrooms, err := e.store.Classrooms().ListBySchool(ctx, school.ID)
	if err != nil {
		return nil, nil, apperr.Integrity("failed to list school classrooms", err)
	}
	return school, classrooms, nil
}

// SchoolGrades returns a school together with all its grades.
func (e *Engine) SchoolGrades(ctx context.Context, id uint) (*model.School, []model.Grade, error) {
	school, err := e.store.Schools().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "School not found")
	}
	grades, err := e.store.Grades().ListBySchool(ctx, school.ID)
	if err != nil {
		return nil, nil, apperr.Integrity("failed to list school grades", err)
	}
	return school, grades, nil
}

// SchoolStaff returns a school together with all its staff accounts.
func (e *Engine) SchoolStaff(ctx context.Context, id uint) (*model.School, []model.User, error) {
	school, err := e.store.Schools().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "School not found")
	}
	// Every school-bound account counts as staff here, school admins
	// included; superadmins carry no school and never match.
	schoolID := school.ID
	staff, _, err := e.store.Users().List(ctx, store.UserFilter{SchoolID: &schoolID, Limit: -1})
	if err != nil {
		return nil, nil, apperr.Integrity("failed to list school staff", err)
	}
	return school, staff, nil
}

// SchoolStudents returns a school together with all its students.
func (e *Engine) SchoolStudents(ctx context.Context, id uint) (*model.School, []model.Student, error) {
	school, err := e.store.Schools().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "School not found")
	}
	students, err := e.store.Students().ListBySchool(ctx, school.ID)
	if err != nil {
		return nil, nil, apperr.Integrity("failed to list school students", err)
	}
	return school, students, nil
}

// ListSchools pages through schools.
func (e *Engine) ListSchools(ctx context.Context, f store.SchoolFilter) ([]model.School, int64, error) {
	schools, total, err := e.store.Schools().List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Integrity("failed to list schools", err)
	}
	return schools, total, nil
}
