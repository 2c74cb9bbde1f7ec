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

const dateLayout = "2006-01-02"

// CreateStudent enrolls a student into a classroom. The card id is allocated
// by the engine from the date of birth.
func CreateStudent(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("student", "create")

	var req struct {
		FirstName     string  `json:"first_name"`
		LastName      string  `json:"last_name"`
		SchoolID      uint    `json:"school_id"`
		ClassroomID   uint    `json:"classroom_id"`
		DateOfBirth   string  `json:"date_of_birth"`
		Email         *string `json:"email"`
		Phone         string  `json:"phone"`
		Address       string  `json:"address"`
		GuardianName  string  `json:"guardian_name"`
		GuardianPhone string  `json:"guardian_phone"`
		GuardianEmail string  `json:"guardian_email"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse student request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.FirstName == "" || req.LastName == "" || req.SchoolID == 0 || req.ClassroomID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name, last_name, school_id and classroom_id are required"})
	}
	dob, err := time.Parse(dateLayout, req.DateOfBirth)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_of_birth must be in YYYY-MM-DD format"})
	}

	if !authorize(c, authz.ResourceStudent, authz.ActionCreate, &req.SchoolID) {
		return nil
	}
	user := middleware.CurrentUser(c)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	student, err := eng.CreateStudent(c.Request().Context(), engine.CreateStudentInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		SchoolID:      req.SchoolID,
		ClassroomID:   req.ClassroomID,
		DateOfBirth:   dob,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		GuardianEmail: req.GuardianEmail,
		CreatedBy:     user.ID,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("Student enrolled",
		zap.Uint("student_id", student.ID),
		zap.String("card_id", student.CardID),
		zap.Uint("school_id", student.SchoolID))
	return c.JSON(http.StatusCreated, echo.Map{"student": student})
}

// GetStudent returns a single student.
func GetStudent(c echo.Context) error {
	log := logger.FromEcho(c)

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid student id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	student, err := eng.GetStudent(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceStudent, authz.ActionRead, &student.SchoolID) {
		return nil
	}
	return c.JSON(http.StatusOK, echo.Map{"student": student})
}

// UpdateStudent applies partial updates to a student's contact details.
func UpdateStudent(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("student", "update")

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid student id"})
	}

	var req struct {
		FirstName     *string `json:"first_name"`
		LastName      *string `json:"last_name"`
		Email         *string `json:"email"`
		Phone         *string `json:"phone"`
		Address       *string `json:"address"`
		GuardianName  *string `json:"guardian_name"`
		GuardianPhone *string `json:"guardian_phone"`
		GuardianEmail *string `json:"guardian_email"`
		Active        *bool   `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse student request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	student, err := eng.GetStudent(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceStudent, authz.ActionUpdate, &student.SchoolID) {
		return nil
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	student, err = eng.UpdateStudent(c.Request().Context(), engine.UpdateStudentInput{
		StudentID:     id,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		GuardianEmail: req.GuardianEmail,
		Active:        req.Active,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("Student updated", zap.Uint("student_id", student.ID))
	return c.JSON(http.StatusOK, echo.Map{"student": student})
}

// DeleteStudent removes a student and releases their classroom seat.
func DeleteStudent(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("student", "delete")

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid student id"})
	}

	student, err := eng.GetStudent(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if !authorize(c, authz.ResourceStudent, authz.ActionDelete, &student.SchoolID) {
		return nil
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := eng.DeleteStudent(c.Request().Context(), id); err != nil {
		return writeError(c, log, err)
	}

	log.Info("Student deleted", zap.Uint("student_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Student deleted successfully"})
}

// TransferStudent moves a student to another classroom, optionally across
// schools. Both the source and the destination school must be within the
// caller's scope.
func TransferStudent(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordDomainOperation("student", "transfer")

	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid student id"})
	}

	var req struct {
		NewClassroomID uint  `json:"new_classroom_id"`
		NewSchoolID    *uint `json:"new_school_id"`
	}
	if err := c.Bind(&req); err != nil || req.NewClassroomID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_classroom_id is required"})
	}

	student, err := eng.GetStudent(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	// The source school must be in scope...
	if !authorize(c, authz.ResourceStudent, authz.ActionUpdate, &student.SchoolID) {
		return nil
	}
	// ...and so must the destination, or a school admin could push students
	// into schools they do not run.
	targetSchoolID := student.SchoolID
	if req.NewSchoolID != nil {
		targetSchoolID = *req.NewSchoolID
	}
	if !authorize(c, authz.ResourceStudent, authz.ActionUpdate, &targetSchoolID) {
		return nil
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	student, err = eng.TransferStudent(c.Request().Context(), id, req.NewClassroomID, req.NewSchoolID)
	if err != nil {
		return writeError(c, log, err)
	}

	log.Info("Student transferred",
		zap.Uint("student_id", student.ID),
		zap.Uint("classroom_id", req.NewClassroomID))
	return c.JSON(http.StatusOK, echo.Map{"student": student})
}

// ListStudents pages through a school's students.
func ListStudents(c echo.Context) error {
	log := logger.FromEcho(c)

	schoolID, ok := listSchoolID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "school_id query parameter is required"})
	}
	if !authorize(c, authz.ResourceStudent, authz.ActionList, &schoolID) {
		return nil
	}

	p := parsePagination(c)
	defer prometheus.TrackDBOperation("query")(time.Now())
	students, total, err := eng.ListStudents(c.Request().Context(), store.StudentFilter{
		SchoolID: schoolID,
		Offset:   p.Offset,
		Limit:    p.Limit,
	})
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"students":   students,
		"pagination": pageMeta(p, total),
	})
}
