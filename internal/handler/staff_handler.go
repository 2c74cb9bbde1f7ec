package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"school-service/internal/authz"
	"school-service/internal/engine"
	"school-service/internal/model"
	"school-service/internal/store"
	"school-service/pkg/logger"
	"school-service/prometheus"
)

// CreateStaff creates a staff account in a school. Teachers may carry
// classroom assignments; other staff roles may not.
func CreateStaff(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("staff", "create")

	var req struct {
		Username             string `json:"username"`
		Email                string `json:"email"`
		Password             string `json:"password"`
		SchoolID             uint   `json:"school_id"`
		Role                 string `json:"role"`
		AssignedClassroomIDs []uint `json:"assigned_classroom_ids"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse staff request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.SchoolID == 0 || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email, password, school_id and role are required"})
	}

	if !authorize(c, authz.ResourceStaff, authz.ActionCreate, &req.SchoolID) {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	user, err := eng.CreateStaff(c.Request().Context(), engine.CreateStaffInput{
		Username:             req.Username,
		Email:                req.Email,
		PasswordHash:         string(hash),
		SchoolID:             req.SchoolID,
		Role:                 model.Role(req.Role),
		AssignedClassroomIDs: req.AssignedClassroomIDs,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("Staff created",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Uint("school_id", req.SchoolID))
	return c.JSON(http.StatusCreated, echo.Map{"staff": userResponse(user)})
}

// GetStaff returns a single staff account.
func GetStaff(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid staff id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := eng.GetStaff(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceStaff, authz.ActionRead, user.SchoolID) {
		return nil
	}
	return c.JSON(http.StatusOK, echo.Map{"staff": userResponse(user)})
}

// UpdateStaff changes a staff member's role, active flag or assignments.
func UpdateStaff(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("staff", "update")

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid staff id"})
	}

	var req struct {
		Role                 *string `json:"role"`
		AssignedClassroomIDs *[]uint `json:"assigned_classroom_ids"`
		Active               *bool   `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse staff request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := eng.GetStaff(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceStaff, authz.ActionUpdate, user.SchoolID) {
		return nil
	}

	in := engine.UpdateStaffInput{UserID: id, Active: req.Active}
	if req.Role != nil {
		role := model.Role(*req.Role)
		in.Role = &role
	}
	if req.AssignedClassroomIDs != nil {
		in.AssignedClassroomIDs = *req.AssignedClassroomIDs
		in.AssignmentsProvided = true
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	user, err = eng.UpdateStaff(c.Request().Context(), in)
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("Staff updated", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	return c.JSON(http.StatusOK, echo.Map{"staff": userResponse(user)})
}

// StaffClassrooms returns a teacher's assigned classrooms.
func StaffClassrooms(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid staff id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, classrooms, err := eng.StaffClassrooms(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceStaff, authz.ActionRead, user.SchoolID) {
		return nil
	}
	return c.JSON(http.StatusOK, echo.Map{
		"staff":      userResponse(user),
		"classrooms": classrooms,
	})
}

// ListStaff pages through a school's staff accounts.
func ListStaff(c echo.Context) error {
	log := logger.FromEcho(c)

	schoolID, ok := listSchoolID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "school_id query parameter is required"})
	}
	if !authorize(c, authz.ResourceStaff, authz.ActionList, &schoolID) {
		return nil
	}

	p := parsePagination(c)
	filter := store.UserFilter{SchoolID: &schoolID, Offset: p.Offset, Limit: p.Limit}
	if raw := c.QueryParam("role"); raw != "" {
		role := model.Role(raw)
		filter.Role = &role
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	staff, total, err := eng.ListStaff(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, log, err)
	}
	users := make([]echo.Map, 0, len(staff))
	for i := range staff {
		users = append(users, userResponse(&staff[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"staff":      users,
		"pagination": pageMeta(p, total),
	})
}
