package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"school-service/internal/authz"
	"school-service/internal/engine"
	"school-service/internal/middleware"
	"school-service/internal/store"
	"school-service/pkg/logger"
	"school-service/prometheus"
)

// CreateSchool registers a new school. Only superadmins pass the policy here.
func CreateSchool(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("school", "create")

	var req struct {
		Name            string `json:"name"`
		Address         string `json:"address"`
		Phone           string `json:"phone"`
		Email           string `json:"email"`
		PrincipalName   string `json:"principal_name"`
		EstablishedYear int    `json:"established_year"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse school request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and email are required"})
	}

	if !authorize(c, authz.ResourceSchool, authz.ActionCreate, nil) {
		return nil
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	school, err := eng.CreateSchool(c.Request().Context(), engine.CreateSchoolInput{
		Name:            req.Name,
		Address:         req.Address,
		Phone:           req.Phone,
		Email:           req.Email,
		PrincipalName:   req.PrincipalName,
		EstablishedYear: req.EstablishedYear,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("School created", zap.Uint("school_id", school.ID), zap.String("name", school.Name))
	return c.JSON(http.StatusCreated, echo.Map{"school": school})
}

// GetSchool returns a single school.
func GetSchool(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid school id"})
	}
	if !authorize(c, authz.ResourceSchool, authz.ActionRead, &id) {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	school, err := eng.GetSchool(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"school": school})
}

// UpdateSchool applies partial updates to a school.
func UpdateSchool(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("school", "update")

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid school id"})
	}

	var req struct {
		Name            *string `json:"name"`
		Address         *string `json:"address"`
		Phone           *string `json:"phone"`
		Email           *string `json:"email"`
		PrincipalName   *string `json:"principal_name"`
		EstablishedYear *int    `json:"established_year"`
		Active          *bool   `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse school request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if !authorize(c, authz.ResourceSchool, authz.ActionUpdate, &id) {
		return nil
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	school, err := eng.UpdateSchool(c.Request().Context(), engine.UpdateSchoolInput{
		SchoolID:        id,
		Name:            req.Name,
		Address:         req.Address,
		Phone:           req.Phone,
		Email:           req.Email,
		PrincipalName:   req.PrincipalName,
		EstablishedYear: req.EstablishedYear,
		Active:          req.Active,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("School updated", zap.Uint("school_id", school.ID))
	return c.JSON(http.StatusOK, echo.Map{"school": school})
}

// DeleteSchool removes a school and everything scoped to it.
func DeleteSchool(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("school", "delete")

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid school id"})
	}
	if !authorize(c, authz.ResourceSchool, authz.ActionDelete, &id) {
		return nil
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := eng.DeleteSchool(c.Request().Context(), id); err != nil {
		return writeError(c, log, err)
	}

	log.Info("School deleted with full cascade", zap.Uint("school_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "School and all associated data deleted successfully"})
}

// ListSchools pages through schools. School admins only ever see their own.
func ListSchools(c echo.Context) error {
	log := logger.FromEcho(c)

	user := middleware.CurrentUser(c)
	var own *uint
	if user != nil {
		own = user.SchoolID
	}
	if !authorize(c, authz.ResourceSchool, authz.ActionList, own) {
		return nil
	}

	p := parsePagination(c)
	filter := store.SchoolFilter{Offset: p.Offset, Limit: p.Limit, ID: own}

	defer prometheus.TrackDBOperation("query")(time.Now())
	schools, total, err := eng.ListSchools(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"schools":    schools,
		"pagination": pageMeta(p, total),
	})
}

// SchoolGrades returns every grade of a school.
func SchoolGrades(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid school id"})
	}
	if !authorize(c, authz.ResourceSchool, authz.ActionRead, &id) {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	school, grades, err := eng.SchoolGrades(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"school": school, "grades": grades})
}

// SchoolClassrooms returns every classroom of a school.
func SchoolClassrooms(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid school id"})
	}
	if !authorize(c, authz.ResourceSchool, authz.ActionRead, &id) {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	school, classrooms, err := eng.SchoolClassrooms(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"school": school, "classrooms": classrooms})
}

// SchoolStaff returns every school-bound account of a school.
func SchoolStaff(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid school id"})
	}
	if !authorize(c, authz.ResourceSchool, authz.ActionRead, &id) {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	school, staff, err := eng.SchoolStaff(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	users := make([]echo.Map, 0, len(staff))
	for i := range staff {
		users = append(users, userResponse(&staff[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"school": school, "staff": users})
}

// SchoolStudents returns every student of a school.
func SchoolStudents(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid school id"})
	}
	if !authorize(c, authz.ResourceSchool, authz.ActionRead, &id) {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	school, students, err := eng.SchoolStudents(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"school": school, "students": students})
}
