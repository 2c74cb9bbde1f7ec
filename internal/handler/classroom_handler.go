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

// CreateClassroom adds a classroom to a school.
func CreateClassroom(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("classroom", "create")

	var req struct {
		Name       string `json:"name"`
		SchoolID   uint   `json:"school_id"`
		GradeID    *uint  `json:"grade_id"`
		Capacity   int    `json:"capacity"`
		Section    string `json:"section"`
		RoomNumber string `json:"room_number"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse classroom request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.SchoolID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and school_id are required"})
	}
	if req.Capacity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be at least 1"})
	}

	if !authorize(c, authz.ResourceClassroom, authz.ActionCreate, &req.SchoolID) {
		return nil
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	classroom, err := eng.CreateClassroom(c.Request().Context(), engine.CreateClassroomInput{
		Name:       req.Name,
		SchoolID:   req.SchoolID,
		GradeID:    req.GradeID,
		Capacity:   req.Capacity,
		Section:    req.Section,
		RoomNumber: req.RoomNumber,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("Classroom created", zap.Uint("classroom_id", classroom.ID), zap.Uint("school_id", classroom.SchoolID))
	return c.JSON(http.StatusCreated, echo.Map{"classroom": classroom})
}

// GetClassroom returns a single classroom.
func GetClassroom(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid classroom id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	classroom, err := eng.GetClassroom(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceClassroom, authz.ActionRead, &classroom.SchoolID) {
		return nil
	}
	return c.JSON(http.StatusOK, echo.Map{"classroom": classroom})
}

// UpdateClassroom applies partial updates to a classroom. Enrollment is not
// accepted here; only the engine moves that counter.
func UpdateClassroom(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("classroom", "update")

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid classroom id"})
	}

	var req struct {
		Name       *string `json:"name"`
		Capacity   *int    `json:"capacity"`
		GradeID    *uint   `json:"grade_id"`
		Section    *string `json:"section"`
		RoomNumber *string `json:"room_number"`
		Active     *bool   `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse classroom request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	classroom, err := eng.GetClassroom(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceClassroom, authz.ActionUpdate, &classroom.SchoolID) {
		return nil
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	classroom, err = eng.UpdateClassroom(c.Request().Context(), engine.UpdateClassroomInput{
		ClassroomID: id,
		Name:        req.Name,
		Capacity:    req.Capacity,
		GradeID:     req.GradeID,
		Section:     req.Section,
		RoomNumber:  req.RoomNumber,
		Active:      req.Active,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("Classroom updated", zap.Uint("classroom_id", classroom.ID))
	return c.JSON(http.StatusOK, echo.Map{"classroom": classroom})
}

// DeleteClassroom removes a classroom, unassigning its students and teachers
// first.
func DeleteClassroom(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("classroom", "delete")

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid classroom id"})
	}

	classroom, err := eng.GetClassroom(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceClassroom, authz.ActionDelete, &classroom.SchoolID) {
		return nil
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := eng.DeleteClassroom(c.Request().Context(), id); err != nil {
		return writeError(c, log, err)
	}

	log.Info("Classroom deleted", zap.Uint("classroom_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Classroom deleted successfully"})
}

// ClassroomStudents returns the students attending a classroom.
func ClassroomStudents(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid classroom id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	classroom, students, err := eng.ClassroomStudents(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceClassroom, authz.ActionRead, &classroom.SchoolID) {
		return nil
	}
	return c.JSON(http.StatusOK, echo.Map{"classroom": classroom, "students": students})
}

// ClassroomTeachers returns the teachers assigned to a classroom.
func ClassroomTeachers(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid classroom id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	classroom, teachers, err := eng.ClassroomTeachers(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceClassroom, authz.ActionRead, &classroom.SchoolID) {
		return nil
	}
	users := make([]echo.Map, 0, len(teachers))
	for i := range teachers {
		users = append(users, userResponse(&teachers[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"classroom": classroom, "teachers": users})
}

// ListClassrooms pages through a school's classrooms.
func ListClassrooms(c echo.Context) error {
	log := logger.FromEcho(c)

	schoolID, ok := listSchoolID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "school_id query parameter is required"})
	}
	if !authorize(c, authz.ResourceClassroom, authz.ActionList, &schoolID) {
		return nil
	}

	p := parsePagination(c)
	defer prometheus.TrackDBOperation("query")(time.Now())
	classrooms, total, err := eng.ListClassrooms(c.Request().Context(), store.ClassroomFilter{
		SchoolID: schoolID,
		Offset:   p.Offset,
		Limit:    p.Limit,
	})
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"classrooms": classrooms,
		"pagination": pageMeta(p, total),
	})
}
