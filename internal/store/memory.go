package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"school-service/internal/model"
)

// Memory is an in-memory Store used by tests. It enforces the same uniqueness
// rules as the Postgres schema so engine tests exercise the conflict paths.
// InTransaction runs the callback against the same state without rollback;
// tests that need crash semantics do not exist, the transaction boundary is
// covered by the GORM implementation.
type Memory struct {
	mu sync.Mutex

	nextID      uint
	users       map[uint]model.User
	schools     map[uint]model.School
	grades      map[uint]model.Grade
	classrooms  map[uint]model.Classroom
	students    map[uint]model.Student
	assignments map[uint][]uint // userID -> classroomIDs
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextID:      1,
		users:       make(map[uint]model.User),
		schools:     make(map[uint]model.School),
		grades:      make(map[uint]model.Grade),
		classrooms:  make(map[uint]model.Classroom),
		students:    make(map[uint]model.Student),
		assignments: make(map[uint][]uint),
	}
}

func (m *Memory) Users() UserRepository           { return &memUsers{m} }
func (m *Memory) Schools() SchoolRepository       { return &memSchools{m} }
func (m *Memory) Grades() GradeRepository         { return &memGrades{m} }
func (m *Memory) Classrooms() ClassroomRepository { return &memClassrooms{m} }
func (m *Memory) Students() StudentRepository     { return &memStudents{m} }

func (m *Memory) InTransaction(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *Memory) allocID() uint {
	id := m.nextID
	m.nextID++
	return id
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// --- users ---

type memUsers struct{ m *Memory }

func (r *memUsers) Create(ctx context.Context, u *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return ErrDuplicate
		}
	}
	u.ID = r.m.allocID()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.m.users[u.ID] = *u
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, id uint) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memUsers) ExistsByEmailOrUsername(ctx context.Context, email, username string, excludeID uint) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.ID == excludeID {
			continue
		}
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUsers) Update(ctx context.Context, u *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[u.ID]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now()
	r.m.users[u.ID] = *u
	return nil
}

func (r *memUsers) List(ctx context.Context, f UserFilter) ([]model.User, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.User
	for _, u := range r.m.users {
		if f.SchoolID != nil && (u.SchoolID == nil || *u.SchoolID != *f.SchoolID) {
			continue
		}
		if f.StaffOnly && !u.Role.IsStaff() {
			continue
		}
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.Active != nil && u.Active != *f.Active {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	return paginate(out, f.Offset, f.Limit), total, nil
}

func (r *memUsers) DeleteBySchool(ctx context.Context, schoolID uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, u := range r.m.users {
		if u.SchoolID != nil && *u.SchoolID == schoolID {
			delete(r.m.users, id)
			delete(r.m.assignments, id)
		}
	}
	return nil
}

func (r *memUsers) Assignments(ctx context.Context, userID uint) ([]uint, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ids := append([]uint(nil), r.m.assignments[userID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *memUsers) ReplaceAssignments(ctx context.Context, userID uint, classroomIDs []uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.assignments[userID] = append([]uint(nil), classroomIDs...)
	return nil
}

func (r *memUsers) RemoveClassroomAssignments(ctx context.Context, classroomID uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for userID, ids := range r.m.assignments {
		var kept []uint
		for _, id := range ids {
			if id != classroomID {
				kept = append(kept, id)
			}
		}
		r.m.assignments[userID] = kept
	}
	return nil
}

func (r *memUsers) RemoveSchoolAssignments(ctx context.Context, schoolID uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for userID := range r.m.assignments {
		u, ok := r.m.users[userID]
		if ok && u.SchoolID != nil && *u.SchoolID == schoolID {
			delete(r.m.assignments, userID)
		}
	}
	return nil
}

func (r *memUsers) TeachersByClassroom(ctx context.Context, classroomID uint) ([]model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.User
	for userID, ids := range r.m.assignments {
		for _, id := range ids {
			if id != classroomID {
				continue
			}
			if u, ok := r.m.users[userID]; ok && u.Role == model.RoleTeacher {
				out = append(out, u)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// --- schools ---

type memSchools struct{ m *Memory }

func (r *memSchools) Create(ctx context.Context, s *model.School) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.schools {
		if existing.Email == s.Email {
			return ErrDuplicate
		}
	}
	s.ID = r.m.allocID()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	r.m.schools[s.ID] = *s
	return nil
}

func (r *memSchools) GetByID(ctx context.Context, id uint) (*model.School, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.schools[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memSchools) ExistsByEmail(ctx context.Context, email string, excludeID uint) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.schools {
		if s.ID != excludeID && s.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSchools) Update(ctx context.Context, s *model.School) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.schools[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now()
	r.m.schools[s.ID] = *s
	return nil
}

func (r *memSchools) Delete(ctx context.Context, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.schools, id)
	return nil
}

func (r *memSchools) List(ctx context.Context, f SchoolFilter) ([]model.School, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.School
	for _, s := range r.m.schools {
		if f.ID != nil && s.ID != *f.ID {
			continue
		}
		if f.Active != nil && s.Active != *f.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	return paginate(out, f.Offset, f.Limit), total, nil
}

// --- grades ---

type memGrades struct{ m *Memory }

func (r *memGrades) Create(ctx context.Context, g *model.Grade) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.grades {
		if existing.SchoolID == g.SchoolID && existing.Name == g.Name {
			return ErrDuplicate
		}
	}
	g.ID = r.m.allocID()
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	r.m.grades[g.ID] = *g
	return nil
}

func (r *memGrades) GetByID(ctx context.Context, id uint) (*model.Grade, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	g, ok := r.m.grades[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (r *memGrades) ExistsByName(ctx context.Context, schoolID uint, name string, excludeID uint) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, g := range r.m.grades {
		if g.ID != excludeID && g.SchoolID == schoolID && g.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *memGrades) Update(ctx context.Context, g *model.Grade) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.grades[g.ID]; !ok {
		return ErrNotFound
	}
	g.UpdatedAt = time.Now()
	r.m.grades[g.ID] = *g
	return nil
}

func (r *memGrades) Delete(ctx context.Context, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.grades, id)
	return nil
}

func (r *memGrades) List(ctx context.Context, f GradeFilter) ([]model.Grade, int64, error) {
	grades, err := r.ListBySchool(ctx, f.SchoolID)
	if err != nil {
		return nil, 0, err
	}
	if f.Active != nil {
		var kept []model.Grade
		for _, g := range grades {
			if g.Active == *f.Active {
				kept = append(kept, g)
			}
		}
		grades = kept
	}
	total := int64(len(grades))
	return paginate(grades, f.Offset, f.Limit), total, nil
}

func (r *memGrades) ListBySchool(ctx context.Context, schoolID uint) ([]model.Grade, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Grade
	for _, g := range r.m.grades {
		if g.SchoolID == schoolID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memGrades) DeleteBySchool(ctx context.Context, schoolID uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, g := range r.m.grades {
		if g.SchoolID == schoolID {
			delete(r.m.grades, id)
		}
	}
	return nil
}

// --- classrooms ---

type memClassrooms struct{ m *Memory }

func (r *memClassrooms) Create(ctx context.Context, c *model.Classroom) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.classrooms {
		if existing.SchoolID == c.SchoolID && existing.Name == c.Name {
			return ErrDuplicate
		}
	}
	c.ID = r.m.allocID()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.m.classrooms[c.ID] = *c
	return nil
}

func (r *memClassrooms) GetByID(ctx context.Context, id uint) (*model.Classroom, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.classrooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *memClassrooms) GetByIDs(ctx context.Context, ids []uint) ([]model.Classroom, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Classroom
	for _, id := range ids {
		if c, ok := r.m.classrooms[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memClassrooms) ExistsByName(ctx context.Context, schoolID uint, name string, excludeID uint) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.classrooms {
		if c.ID != excludeID && c.SchoolID == schoolID && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *memClassrooms) Update(ctx context.Context, c *model.Classroom) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	existing, ok := r.m.classrooms[c.ID]
	if !ok {
		return ErrNotFound
	}
	// Enrollment is only ever moved through AdjustEnrollment.
	c.CurrentEnrollment = existing.CurrentEnrollment
	c.UpdatedAt = time.Now()
	r.m.classrooms[c.ID] = *c
	return nil
}

func (r *memClassrooms) Delete(ctx context.Context, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.classrooms, id)
	return nil
}

func (r *memClassrooms) List(ctx context.Context, f ClassroomFilter) ([]model.Classroom, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Classroom
	for _, c := range r.m.classrooms {
		if c.SchoolID != f.SchoolID {
			continue
		}
		if f.GradeID != nil && (c.GradeID == nil || *c.GradeID != *f.GradeID) {
			continue
		}
		if f.Active != nil && c.Active != *f.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	return paginate(out, f.Offset, f.Limit), total, nil
}

func (r *memClassrooms) ListBySchool(ctx context.Context, schoolID uint) ([]model.Classroom, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Classroom
	for _, c := range r.m.classrooms {
		if c.SchoolID == schoolID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memClassrooms) ListByGrade(ctx context.Context, gradeID uint) ([]model.Classroom, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Classroom
	for _, c := range r.m.classrooms {
		if c.GradeID != nil && *c.GradeID == gradeID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memClassrooms) AdjustEnrollment(ctx context.Context, id uint, delta int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.classrooms[id]
	if !ok {
		return ErrNotFound
	}
	c.CurrentEnrollment += delta
	c.UpdatedAt = time.Now()
	r.m.classrooms[id] = c
	return nil
}

func (r *memClassrooms) ClearGrade(ctx context.Context, gradeID uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, c := range r.m.classrooms {
		if c.GradeID != nil && *c.GradeID == gradeID {
			c.GradeID = nil
			r.m.classrooms[id] = c
		}
	}
	return nil
}

func (r *memClassrooms) DeleteBySchool(ctx context.Context, schoolID uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, c := range r.m.classrooms {
		if c.SchoolID == schoolID {
			delete(r.m.classrooms, id)
		}
	}
	return nil
}

// --- students ---

type memStudents struct{ m *Memory }

func (r *memStudents) Create(ctx context.Context, s *model.Student) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.students {
		if existing.SchoolID == s.SchoolID && existing.CardID == s.CardID {
			return ErrDuplicate
		}
		if s.Email != nil && existing.Email != nil && *existing.Email == *s.Email {
			return ErrDuplicate
		}
	}
	s.ID = r.m.allocID()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	r.m.students[s.ID] = *s
	return nil
}

func (r *memStudents) GetByID(ctx context.Context, id uint) (*model.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memStudents) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.students {
		if s.ID != excludeID && s.Email != nil && *s.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memStudents) CardIDExists(ctx context.Context, schoolID uint, cardID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.students {
		if s.SchoolID == schoolID && s.CardID == cardID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memStudents) Update(ctx context.Context, s *model.Student) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.students[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now()
	r.m.students[s.ID] = *s
	return nil
}

func (r *memStudents) Delete(ctx context.Context, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.students, id)
	return nil
}

func (r *memStudents) List(ctx context.Context, f StudentFilter) ([]model.Student, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Student
	for _, s := range r.m.students {
		if s.SchoolID != f.SchoolID {
			continue
		}
		if f.ClassroomID != nil && (s.ClassroomID == nil || *s.ClassroomID != *f.ClassroomID) {
			continue
		}
		if f.Active != nil && s.Active != *f.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	return paginate(out, f.Offset, f.Limit), total, nil
}

func (r *memStudents) ListBySchool(ctx context.Context, schoolID uint) ([]model.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Student
	for _, s := range r.m.students {
		if s.SchoolID == schoolID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memStudents) ListByClassroom(ctx context.Context, classroomID uint) ([]model.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Student
	for _, s := range r.m.students {
		if s.ClassroomID != nil && *s.ClassroomID == classroomID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memStudents) ClearClassroom(ctx context.Context, classroomID uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, s := range r.m.students {
		if s.ClassroomID != nil && *s.ClassroomID == classroomID {
			s.ClassroomID = nil
			r.m.students[id] = s
		}
	}
	return nil
}

func (r *memStudents) DeleteBySchool(ctx context.Context, schoolID uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, s := range r.m.students {
		if s.SchoolID == schoolID {
			delete(r.m.students, id)
		}
	}
	return nil
}
