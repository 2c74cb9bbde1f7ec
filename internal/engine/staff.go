package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"school-service/internal/apperr"
	"school-service/internal/model"
	"school-service/internal/store"
)

// RegisterInput carries the fields for self-registration. PasswordHash is
// already bcrypt-hashed; the engine never sees plaintext secrets.
type RegisterInput struct {
	Username     string
	Email        string
	PasswordHash string
	SchoolID     *uint
}

// Register creates an admin account. With a school it becomes a school_admin
// bound to that school; without one it becomes a superadmin. The session key
// minted here binds every token the account will ever receive.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	exists, err := e.store.Users().ExistsByEmailOrUsername(ctx, in.Email, in.Username, 0)
	if err != nil {
		return nil, apperr.Integrity("failed to check user uniqueness", err)
	}
	if exists {
		return nil, apperr.Conflict("User with this email or username already exists")
	}

	role := model.RoleSuperadmin
	if in.SchoolID != nil {
		school, err := e.store.Schools().GetByID(ctx, *in.SchoolID)
		if err != nil {
			return nil, notFoundOr(err, "School not found")
		}
		if !school.Active {
			return nil, apperr.Conflict("Cannot register for inactive school")
		}
		role = model.RoleSchoolAdmin
	}

	user := &model.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   in.PasswordHash,
		Role:       role,
		SchoolID:   in.SchoolID,
		SessionKey: uuid.NewString(),
		Active:     true,
	}
	if err := e.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("User with this email or username already exists")
		}
		return nil, apperr.Integrity("failed to create user", err)
	}
	return user, nil
}

// CreateStaffInput carries the fields for a new staff account.
type CreateStaffInput struct {
	Username             string
	Email                string
	PasswordHash         string
	SchoolID             uint
	Role                 model.Role
	AssignedClassroomIDs []uint
}

// CreateStaff creates a staff account (teacher, cafeteria_staff, security or
// hr) in an active school. Classroom assignments are accepted for teachers
// only and every referenced classroom must belong to the same school.
func (e *Engine) CreateStaff(ctx context.Context, in CreateStaffInput) (*model.User, error) {
	if !in.Role.IsStaff() {
		return nil, apperr.Validation("Role must be one of: teacher, cafeteria_staff, security, hr")
	}

	school, err := e.store.Schools().GetByID(ctx, in.SchoolID)
	if err != nil {
		return nil, notFoundOr(err, "School not found")
	}
	if !school.Active {
		return nil, apperr.Conflict("Cannot add staff to inactive school")
	}

	exists, err := e.store.Users().ExistsByEmailOrUsername(ctx, in.Email, in.Username, 0)
	if err != nil {
		return nil, apperr.Integrity("failed to check user uniqueness", err)
	}
	if exists {
		return nil, apperr.Conflict("User with this email or username already exists")
	}

	var classroomIDs []uint
	if in.Role == model.RoleTeacher && len(in.AssignedClassroomIDs) > 0 {
		if err := e.validateAssignments(ctx, in.SchoolID, in.AssignedClassroomIDs); err != nil {
			return nil, err
		}
		classroomIDs = in.AssignedClassroomIDs
	}

	schoolID := in.SchoolID
	user := &model.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   in.PasswordHash,
		Role:       in.Role,
		SchoolID:   &schoolID,
		SessionKey: uuid.NewString(),
		Active:     true,
	}
	err = e.store.InTransaction(ctx, func(st store.Store) error {
		if err := st.Users().Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Conflict("User with this email or username already exists")
			}
			return apperr.Integrity("failed to create staff", err)
		}
		if len(classroomIDs) > 0 {
			if err := st.Users().ReplaceAssignments(ctx, user.ID, classroomIDs); err != nil {
				return apperr.Integrity("failed to assign classrooms", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateStaffInput carries partial staff updates; nil means unchanged.
type UpdateStaffInput struct {
	UserID               uint
	Role                 *model.Role
	AssignedClassroomIDs []uint
	AssignmentsProvided  bool
	Active               *bool
}

// UpdateStaff changes a staff member's role, active flag or classroom
// assignments. Moving a user off the teacher role clears their assignments.
func (e *Engine) UpdateStaff(ctx context.Context, in UpdateStaffInput) (*model.User, error) {
	user, err := e.store.Users().GetByID(ctx, in.UserID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	if !user.Role.IsStaff() {
		return nil, apperr.Conflict("User is not a staff member")
	}

	newRole := user.Role
	if in.Role != nil {
		if !in.Role.IsStaff() {
			return nil, apperr.Validation("Role must be one of: teacher, cafeteria_staff, security, hr")
		}
		newRole = *in.Role
	}

	var assignments []uint
	replaceAssignments := false
	if newRole != model.RoleTeacher {
		// Only teachers hold classroom assignments.
		replaceAssignments = true
	} else if in.AssignmentsProvided {
		if len(in.AssignedClassroomIDs) > 0 && user.SchoolID != nil {
			if err := e.validateAssignments(ctx, *user.SchoolID, in.AssignedClassroomIDs); err != nil {
				return nil, err
			}
		}
		assignments = in.AssignedClassroomIDs
		replaceAssignments = true
	}

	user.Role = newRole
	if in.Active != nil {
		user.Active = *in.Active
	}

	err = e.store.InTransaction(ctx, func(st store.Store) error {
		if err := st.Users().Update(ctx, user); err != nil {
			return apperr.Integrity("failed to update staff", err)
		}
		if replaceAssignments {
			if err := st.Users().ReplaceAssignments(ctx, user.ID, assignments); err != nil {
				return apperr.Integrity("failed to replace assignments", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetStaff loads a staff account.
func (e *Engine) GetStaff(ctx context.Context, id uint) (*model.User, error) {
	user, err := e.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	if !user.Role.IsStaff() {
		return nil, apperr.Conflict("User is not a staff member")
	}
	return user, nil
}

// StaffClassrooms returns a teacher's assigned classrooms.
func (e *Engine) StaffClassrooms(ctx context.Context, id uint) (*model.User, []model.Classroom, error) {
	user, err := e.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "User not found")
	}
	if user.Role != model.RoleTeacher {
		return nil, nil, apperr.Conflict("Only teachers have assigned classrooms")
	}
	ids, err := e.store.Users().Assignments(ctx, user.ID)
	if err != nil {
		return nil, nil, apperr.Integrity("failed to load assignments", err)
	}
	if len(ids) == 0 {
		return user, nil, nil
	}
	classrooms, err := e.store.Classrooms().GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, apperr.Integrity("failed to load assigned classrooms", err)
	}
	return user, classrooms, nil
}

// ListStaff pages through a school's staff accounts.
func (e *Engine) ListStaff(ctx context.Context, f store.UserFilter) ([]model.User, int64, error) {
	f.StaffOnly = true
	staff, total, err := e.store.Users().List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Integrity("failed to list staff", err)
	}
	return staff, total, nil
}

// Assignments returns the classroom ids currently assigned to a user.
func (e *Engine) Assignments(ctx context.Context, userID uint) ([]uint, error) {
	ids, err := e.store.Users().Assignments(ctx, userID)
	if err != nil {
		return nil, apperr.Integrity("failed to load assignments", err)
	}
	return ids, nil
}

// validateAssignments checks that every classroom id exists and belongs to
// the given school.
func (e *Engine) validateAssignments(ctx context.Context, schoolID uint, classroomIDs []uint) error {
	classrooms, err := e.store.Classrooms().GetByIDs(ctx, classroomIDs)
	if err != nil {
		return apperr.Integrity("failed to load classrooms", err)
	}
	found := make(map[uint]bool, len(classrooms))
	for _, c := range classrooms {
		if c.SchoolID == schoolID {
			found[c.ID] = true
		}
	}
	for _, id := range classroomIDs {
		if !found[id] {
			return apperr.Conflict("One or more classrooms not found or do not belong to this school")
		}
	}
	return nil
}
