package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"school-service/internal/authz"
	"school-service/internal/engine"
	"school-service/internal/store"
	"school-service/pkg/logger"
	"school-service/prometheus"
)

// CreateGrade adds a grade level to a school.
func CreateGrade(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("grade", "create")

	var req struct {
		Name      string `json:"name"`
		SchoolID  uint   `json:"school_id"`
		SortOrder int    `json:"sort_order"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse grade request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.SchoolID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and school_id are required"})
	}

	if !authorize(c, authz.ResourceGrade, authz.ActionCreate, &req.SchoolID) {
		return nil
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	grade, err := eng.CreateGrade(c.Request().Context(), engine.CreateGradeInput{
		Name:      req.Name,
		SchoolID:  req.SchoolID,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("Grade created", zap.Uint("grade_id", grade.ID), zap.Uint("school_id", grade.SchoolID))
	return c.JSON(http.StatusCreated, echo.Map{"grade": grade})
}

// GetGrade returns a single grade.
func GetGrade(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid grade id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	grade, err := eng.GetGrade(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceGrade, authz.ActionRead, &grade.SchoolID) {
		return nil
	}
	return c.JSON(http.StatusOK, echo.Map{"grade": grade})
}

// UpdateGrade applies partial updates to a grade.
func UpdateGrade(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("grade", "update")

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid grade id"})
	}

	var req struct {
		Name      *string `json:"name"`
		SortOrder *int    `json:"sort_order"`
		Active    *bool   `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse grade request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	grade, err := eng.GetGrade(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceGrade, authz.ActionUpdate, &grade.SchoolID) {
		return nil
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	grade, err = eng.UpdateGrade(c.Request().Context(), engine.UpdateGradeInput{
		GradeID:   id,
		Name:      req.Name,
		SortOrder: req.SortOrder,
		Active:    req.Active,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("Grade updated", zap.Uint("grade_id", grade.ID))
	return c.JSON(http.StatusOK, echo.Map{"grade": grade})
}

// DeleteGrade removes a grade, unassigning its classrooms first.
func DeleteGrade(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("grade", "delete")

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid grade id"})
	}

	grade, err := eng.GetGrade(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceGrade, authz.ActionDelete, &grade.SchoolID) {
		return nil
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := eng.DeleteGrade(c.Request().Context(), id); err != nil {
		return writeError(c, log, err)
	}

	log.Info("Grade deleted", zap.Uint("grade_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Grade deleted successfully"})
}

// GradeClassrooms returns the classrooms assigned to a grade.
func GradeClassrooms(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid grade id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	grade, classrooms, err := eng.GradeClassrooms(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceGrade, authz.ActionRead, &grade.SchoolID) {
		return nil
	}
	return c.JSON(http.StatusOK, echo.Map{"grade": grade, "classrooms": classrooms})
}

// ListGrades pages through a school's grades.
func ListGrades(c echo.Context) error {
	log := logger.FromEcho(c)

	schoolID, ok := listSchoolID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "school_id query parameter is required"})
	}
	if !authorize(c, authz.ResourceGrade, authz.ActionList, &schoolID) {
		return nil
	}

	p := parsePagination(c)
	defer prometheus.TrackDBOperation("query")(time.Now())
	grades, total, err := eng.ListGrades(c.Request().Context(), store.GradeFilter{
		SchoolID: schoolID,
		Offset:   p.Offset,
		Limit:    p.Limit,
	})
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"grades":     grades,
		"pagination": pageMeta(p, total),
	})
}
