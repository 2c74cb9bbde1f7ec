package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"school-service/internal/apperr"
	"school-service/internal/model"
	"school-service/internal/store"
)

var seedSeq int

func nextSeq() int {
	seedSeq++
	return seedSeq
}

func newTestEngine() (*Engine, *store.Memory) {
	st := store.NewMemory()
	return New(st, nil), st
}

func seedSchool(t *testing.T, st store.Store, active bool) uint {
	t.Helper()
	n := nextSeq()
	school := &model.School{
		Name:   fmt.Sprintf("School %d", n),
		Email:  fmt.Sprintf("school%d@example.com", n),
		Active: active,
	}
	if err := st.Schools().Create(context.Background(), school); err != nil {
		t.Fatalf("seed school: %v", err)
	}
	return school.ID
}

func seedGrade(t *testing.T, st store.Store, schoolID uint) uint {
	t.Helper()
	grade := &model.Grade{
		Name:     fmt.Sprintf("Grade %d", nextSeq()),
		SchoolID: schoolID,
		Active:   true,
	}
	if err := st.Grades().Create(context.Background(), grade); err != nil {
		t.Fatalf("seed grade: %v", err)
	}
	return grade.ID
}

func seedClassroom(t *testing.T, st store.Store, schoolID uint, gradeID *uint, capacity int) uint {
	t.Helper()
	classroom := &model.Classroom{
		Name:     fmt.Sprintf("Room %d", nextSeq()),
		SchoolID: schoolID,
		GradeID:  gradeID,
		Capacity: capacity,
		Active:   true,
	}
	if err := st.Classrooms().Create(context.Background(), classroom); err != nil {
		t.Fatalf("seed classroom: %v", err)
	}
	return classroom.ID
}

func seedStudent(t *testing.T, st store.Store, schoolID uint, cardID string) uint {
	t.Helper()
	n := nextSeq()
	student := &model.Student{
		FirstName:   "Seed",
		LastName:    fmt.Sprintf("Student %d", n),
		CardID:      cardID,
		SchoolID:    schoolID,
		DateOfBirth: time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC),
		Active:      true,
	}
	if err := st.Students().Create(context.Background(), student); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return student.ID
}

func enrollStudent(t *testing.T, e *Engine, schoolID, classroomID uint) *model.Student {
	t.Helper()
	n := nextSeq()
	student, err := e.CreateStudent(context.Background(), CreateStudentInput{
		FirstName:   "Test",
		LastName:    fmt.Sprintf("Student %d", n),
		SchoolID:    schoolID,
		ClassroomID: classroomID,
		DateOfBirth: time.Date(2011, 3, 4, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("enroll student: %v", err)
	}
	return student
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !apperr.Is(err, kind) {
		t.Fatalf("error kind = %v (%v), want %v", apperr.KindOf(err), err, kind)
	}
}

func classroomEnrollment(t *testing.T, st store.Store, id uint) int {
	t.Helper()
	c, err := st.Classrooms().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load classroom: %v", err)
	}
	return c.CurrentEnrollment
}

// --- students and the occupancy invariant ---

func TestCreateStudent_IncrementsEnrollment(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	classroomID := seedClassroom(t, st, schoolID, nil, 30)

	student := enrollStudent(t, e, schoolID, classroomID)

	if student.ClassroomID == nil || *student.ClassroomID != classroomID {
		t.Errorf("student classroom = %v, want %d", student.ClassroomID, classroomID)
	}
	if student.CardID == "" {
		t.Error("student card id is empty")
	}
	if got := classroomEnrollment(t, st, classroomID); got != 1 {
		t.Errorf("enrollment = %d, want 1", got)
	}
}

func TestCreateStudent_CapacityFull(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	classroomID := seedClassroom(t, st, schoolID, nil, 1)

	enrollStudent(t, e, schoolID, classroomID)

	_, err := e.CreateStudent(context.Background(), CreateStudentInput{
		FirstName:   "Over",
		LastName:    "Capacity",
		SchoolID:    schoolID,
		ClassroomID: classroomID,
		DateOfBirth: time.Date(2011, 3, 4, 0, 0, 0, 0, time.UTC),
	})
	wantKind(t, err, apperr.KindConflict)
	if got := classroomEnrollment(t, st, classroomID); got != 1 {
		t.Errorf("enrollment = %d, want 1 after rejected enrollment", got)
	}
}

func TestCreateStudent_InactiveSchool(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, false)
	classroomID := seedClassroom(t, st, schoolID, nil, 30)

	_, err := e.CreateStudent(context.Background(), CreateStudentInput{
		FirstName:   "A",
		LastName:    "B",
		SchoolID:    schoolID,
		ClassroomID: classroomID,
		DateOfBirth: time.Date(2011, 3, 4, 0, 0, 0, 0, time.UTC),
	})
	wantKind(t, err, apperr.KindConflict)
}

func TestCreateStudent_ClassroomFromOtherSchool(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	otherID := seedSchool(t, st, true)
	classroomID := seedClassroom(t, st, otherID, nil, 30)

	_, err := e.CreateStudent(context.Background(), CreateStudentInput{
		FirstName:   "A",
		LastName:    "B",
		SchoolID:    schoolID,
		ClassroomID: classroomID,
		DateOfBirth: time.Date(2011, 3, 4, 0, 0, 0, 0, time.UTC),
	})
	wantKind(t, err, apperr.KindConflict)
}

func TestCreateStudent_DuplicateEmail(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	classroomID := seedClassroom(t, st, schoolID, nil, 30)

	email := "same@example.com"
	_, err := e.CreateStudent(context.Background(), CreateStudentInput{
		FirstName:   "First",
		LastName:    "Holder",
		SchoolID:    schoolID,
		ClassroomID: classroomID,
		DateOfBirth: time.Date(2011, 3, 4, 0, 0, 0, 0, time.UTC),
		Email:       &email,
	})
	if err != nil {
		t.Fatalf("first enrollment: %v", err)
	}

	_, err = e.CreateStudent(context.Background(), CreateStudentInput{
		FirstName:   "Second",
		LastName:    "Claimant",
		SchoolID:    schoolID,
		ClassroomID: classroomID,
		DateOfBirth: time.Date(2011, 5, 6, 0, 0, 0, 0, time.UTC),
		Email:       &email,
	})
	wantKind(t, err, apperr.KindConflict)
}

func TestDeleteStudent_ReleasesSeat(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	classroomID := seedClassroom(t, st, schoolID, nil, 30)
	student := enrollStudent(t, e, schoolID, classroomID)

	if err := e.DeleteStudent(context.Background(), student.ID); err != nil {
		t.Fatalf("DeleteStudent() error = %v", err)
	}
	if got := classroomEnrollment(t, st, classroomID); got != 0 {
		t.Errorf("enrollment = %d, want 0", got)
	}
}

func TestTransferStudent_MovesCounters(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	fromID := seedClassroom(t, st, schoolID, nil, 30)
	toID := seedClassroom(t, st, schoolID, nil, 30)
	student := enrollStudent(t, e, schoolID, fromID)

	moved, err := e.TransferStudent(context.Background(), student.ID, toID, nil)
	if err != nil {
		t.Fatalf("TransferStudent() error = %v", err)
	}
	if moved.ClassroomID == nil || *moved.ClassroomID != toID {
		t.Errorf("student classroom = %v, want %d", moved.ClassroomID, toID)
	}
	if got := classroomEnrollment(t, st, fromID); got != 0 {
		t.Errorf("source enrollment = %d, want 0", got)
	}
	if got := classroomEnrollment(t, st, toID); got != 1 {
		t.Errorf("destination enrollment = %d, want 1", got)
	}
}

func TestTransferStudent_CrossSchool(t *testing.T) {
	e, st := newTestEngine()
	fromSchool := seedSchool(t, st, true)
	toSchool := seedSchool(t, st, true)
	fromID := seedClassroom(t, st, fromSchool, nil, 30)
	toID := seedClassroom(t, st, toSchool, nil, 30)
	student := enrollStudent(t, e, fromSchool, fromID)

	moved, err := e.TransferStudent(context.Background(), student.ID, toID, &toSchool)
	if err != nil {
		t.Fatalf("TransferStudent() error = %v", err)
	}
	if moved.SchoolID != toSchool {
		t.Errorf("student school = %d, want %d", moved.SchoolID, toSchool)
	}
}

func TestTransferStudent_DestinationWrongSchool(t *testing.T) {
	e, st := newTestEngine()
	fromSchool := seedSchool(t, st, true)
	otherSchool := seedSchool(t, st, true)
	fromID := seedClassroom(t, st, fromSchool, nil, 30)
	toID := seedClassroom(t, st, otherSchool, nil, 30)
	student := enrollStudent(t, e, fromSchool, fromID)

	// Destination classroom belongs to another school and no target school
	// override was given.
	_, err := e.TransferStudent(context.Background(), student.ID, toID, nil)
	wantKind(t, err, apperr.KindConflict)
	if got := classroomEnrollment(t, st, fromID); got != 1 {
		t.Errorf("source enrollment = %d, want 1 after rejected transfer", got)
	}
}

func TestTransferStudent_DestinationFull(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	fromID := seedClassroom(t, st, schoolID, nil, 30)
	toID := seedClassroom(t, st, schoolID, nil, 1)
	enrollStudent(t, e, schoolID, toID)
	student := enrollStudent(t, e, schoolID, fromID)

	_, err := e.TransferStudent(context.Background(), student.ID, toID, nil)
	wantKind(t, err, apperr.KindConflict)
}

// --- classrooms ---

func TestUpdateClassroom_CapacityBelowEnrollment(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	classroomID := seedClassroom(t, st, schoolID, nil, 5)
	enrollStudent(t, e, schoolID, classroomID)
	enrollStudent(t, e, schoolID, classroomID)

	capacity := 1
	_, err := e.UpdateClassroom(context.Background(), UpdateClassroomInput{
		ClassroomID: classroomID,
		Capacity:    &capacity,
	})
	wantKind(t, err, apperr.KindConflict)

	capacity = 2
	if _, err := e.UpdateClassroom(context.Background(), UpdateClassroomInput{
		ClassroomID: classroomID,
		Capacity:    &capacity,
	}); err != nil {
		t.Fatalf("UpdateClassroom() with capacity == enrollment: %v", err)
	}
}

func TestDeleteClassroom_UnassignsStudentsAndTeachers(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	classroomID := seedClassroom(t, st, schoolID, nil, 30)
	keptID := seedClassroom(t, st, schoolID, nil, 30)
	student := enrollStudent(t, e, schoolID, classroomID)

	teacher, err := e.CreateStaff(context.Background(), CreateStaffInput{
		Username:             fmt.Sprintf("teacher%d", nextSeq()),
		Email:                fmt.Sprintf("teacher%d@example.com", nextSeq()),
		PasswordHash:         "hash",
		SchoolID:             schoolID,
		Role:                 model.RoleTeacher,
		AssignedClassroomIDs: []uint{classroomID, keptID},
	})
	if err != nil {
		t.Fatalf("CreateStaff() error = %v", err)
	}

	if err := e.DeleteClassroom(context.Background(), classroomID); err != nil {
		t.Fatalf("DeleteClassroom() error = %v", err)
	}

	got, err := st.Students().GetByID(context.Background(), student.ID)
	if err != nil {
		t.Fatalf("student gone after classroom delete: %v", err)
	}
	if got.ClassroomID != nil {
		t.Errorf("student classroom = %v, want nil", *got.ClassroomID)
	}

	ids, err := st.Users().Assignments(context.Background(), teacher.ID)
	if err != nil {
		t.Fatalf("load assignments: %v", err)
	}
	if len(ids) != 1 || ids[0] != keptID {
		t.Errorf("teacher assignments = %v, want [%d]", ids, keptID)
	}
}

// --- grades ---

func TestDeleteGrade_KeepsClassrooms(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	gradeID := seedGrade(t, st, schoolID)
	classroomID := seedClassroom(t, st, schoolID, &gradeID, 30)

	if err := e.DeleteGrade(context.Background(), gradeID); err != nil {
		t.Fatalf("DeleteGrade() error = %v", err)
	}

	classroom, err := st.Classrooms().GetByID(context.Background(), classroomID)
	if err != nil {
		t.Fatalf("classroom gone after grade delete: %v", err)
	}
	if classroom.GradeID != nil {
		t.Errorf("classroom grade = %v, want nil", *classroom.GradeID)
	}
}

func TestCreateGrade_DuplicateNamePerSchool(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	otherID := seedSchool(t, st, true)

	if _, err := e.CreateGrade(context.Background(), CreateGradeInput{Name: "Grade 1", SchoolID: schoolID}); err != nil {
		t.Fatalf("CreateGrade() error = %v", err)
	}
	_, err := e.CreateGrade(context.Background(), CreateGradeInput{Name: "Grade 1", SchoolID: schoolID})
	wantKind(t, err, apperr.KindConflict)

	// Same name in a different school is fine.
	if _, err := e.CreateGrade(context.Background(), CreateGradeInput{Name: "Grade 1", SchoolID: otherID}); err != nil {
		t.Fatalf("CreateGrade() in other school: %v", err)
	}
}

// --- schools ---

func TestDeleteSchool_FullCascade(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	gradeID := seedGrade(t, st, schoolID)
	classroomID := seedClassroom(t, st, schoolID, &gradeID, 30)
	student := enrollStudent(t, e, schoolID, classroomID)

	staff, err := e.CreateStaff(context.Background(), CreateStaffInput{
		Username:             fmt.Sprintf("teacher%d", nextSeq()),
		Email:                fmt.Sprintf("teacher%d@example.com", nextSeq()),
		PasswordHash:         "hash",
		SchoolID:             schoolID,
		Role:                 model.RoleTeacher,
		AssignedClassroomIDs: []uint{classroomID},
	})
	if err != nil {
		t.Fatalf("CreateStaff() error = %v", err)
	}

	if err := e.DeleteSchool(context.Background(), schoolID); err != nil {
		t.Fatalf("DeleteSchool() error = %v", err)
	}

	ctx := context.Background()
	if _, err := st.Schools().GetByID(ctx, schoolID); err == nil {
		t.Error("school survived its own deletion")
	}
	if _, err := st.Grades().GetByID(ctx, gradeID); err == nil {
		t.Error("grade survived school deletion")
	}
	if _, err := st.Classrooms().GetByID(ctx, classroomID); err == nil {
		t.Error("classroom survived school deletion")
	}
	if _, err := st.Students().GetByID(ctx, student.ID); err == nil {
		t.Error("student survived school deletion")
	}
	if _, err := st.Users().GetByID(ctx, staff.ID); err == nil {
		t.Error("staff account survived school deletion")
	}
}

// --- accounts ---

func TestRegister_RoleFromSchoolPresence(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)

	admin, err := e.Register(context.Background(), RegisterInput{
		Username:     "rootadmin",
		Email:        "root@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if admin.Role != model.RoleSuperadmin {
		t.Errorf("role = %s, want superadmin", admin.Role)
	}
	if admin.SessionKey == "" {
		t.Error("session key is empty")
	}

	scoped, err := e.Register(context.Background(), RegisterInput{
		Username:     "schooladmin",
		Email:        "school-admin@example.com",
		PasswordHash: "hash",
		SchoolID:     &schoolID,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if scoped.Role != model.RoleSchoolAdmin {
		t.Errorf("role = %s, want school_admin", scoped.Role)
	}
	if scoped.SchoolID == nil || *scoped.SchoolID != schoolID {
		t.Errorf("school = %v, want %d", scoped.SchoolID, schoolID)
	}
}

func TestRegister_DuplicateIdentity(t *testing.T) {
	e, _ := newTestEngine()

	if _, err := e.Register(context.Background(), RegisterInput{
		Username:     "dupe",
		Email:        "dupe@example.com",
		PasswordHash: "hash",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, err := e.Register(context.Background(), RegisterInput{
		Username:     "dupe2",
		Email:        "dupe@example.com",
		PasswordHash: "hash",
	})
	wantKind(t, err, apperr.KindConflict)
}

func TestCreateStaff_RejectsAdminRoles(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)

	for _, role := range []model.Role{model.RoleSuperadmin, model.RoleSchoolAdmin, model.Role("janitor")} {
		_, err := e.CreateStaff(context.Background(), CreateStaffInput{
			Username:     fmt.Sprintf("user%d", nextSeq()),
			Email:        fmt.Sprintf("user%d@example.com", nextSeq()),
			PasswordHash: "hash",
			SchoolID:     schoolID,
			Role:         role,
		})
		wantKind(t, err, apperr.KindValidation)
	}
}

func TestCreateStaff_AssignmentsMustBeOwnSchool(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	otherID := seedSchool(t, st, true)
	foreignClassroom := seedClassroom(t, st, otherID, nil, 30)

	_, err := e.CreateStaff(context.Background(), CreateStaffInput{
		Username:             fmt.Sprintf("teacher%d", nextSeq()),
		Email:                fmt.Sprintf("teacher%d@example.com", nextSeq()),
		PasswordHash:         "hash",
		SchoolID:             schoolID,
		Role:                 model.RoleTeacher,
		AssignedClassroomIDs: []uint{foreignClassroom},
	})
	wantKind(t, err, apperr.KindConflict)
}

func TestUpdateStaff_LeavingTeacherRoleClearsAssignments(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)
	classroomID := seedClassroom(t, st, schoolID, nil, 30)

	teacher, err := e.CreateStaff(context.Background(), CreateStaffInput{
		Username:             fmt.Sprintf("teacher%d", nextSeq()),
		Email:                fmt.Sprintf("teacher%d@example.com", nextSeq()),
		PasswordHash:         "hash",
		SchoolID:             schoolID,
		Role:                 model.RoleTeacher,
		AssignedClassroomIDs: []uint{classroomID},
	})
	if err != nil {
		t.Fatalf("CreateStaff() error = %v", err)
	}

	role := model.RoleHR
	if _, err := e.UpdateStaff(context.Background(), UpdateStaffInput{
		UserID: teacher.ID,
		Role:   &role,
	}); err != nil {
		t.Fatalf("UpdateStaff() error = %v", err)
	}

	ids, err := st.Users().Assignments(context.Background(), teacher.ID)
	if err != nil {
		t.Fatalf("load assignments: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("assignments = %v, want none after leaving teacher role", ids)
	}
}

func TestStaffClassrooms_NonTeacher(t *testing.T) {
	e, st := newTestEngine()
	schoolID := seedSchool(t, st, true)

	hr, err := e.CreateStaff(context.Background(), CreateStaffInput{
		Username:     fmt.Sprintf("hr%d", nextSeq()),
		Email:        fmt.Sprintf("hr%d@example.com", nextSeq()),
		PasswordHash: "hash",
		SchoolID:     schoolID,
		Role:         model.RoleHR,
	})
	if err != nil {
		t.Fatalf("CreateStaff() error = %v", err)
	}

	_, _, err = e.StaffClassrooms(context.Background(), hr.ID)
	wantKind(t, err, apperr.KindConflict)
}
