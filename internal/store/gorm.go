package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"school-service/internal/model"
)

// GormStore implements Store on top of a *gorm.DB (Postgres in production).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db in a Store. The db should be opened with
// TranslateError enabled so uniqueness violations surface as ErrDuplicate.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository           { return &gormUsers{db: s.db} }
func (s *GormStore) Schools() SchoolRepository       { return &gormSchools{db: s.db} }
func (s *GormStore) Grades() GradeRepository         { return &gormGrades{db: s.db} }
func (s *GormStore) Classrooms() ClassroomRepository { return &gormClassrooms{db: s.db} }
func (s *GormStore) Students() StudentRepository     { return &gormStudents{db: s.db} }

func (s *GormStore) InTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// --- users ---

type gormUsers struct{ db *gorm.DB }

func (r *gormUsers) Create(ctx context.Context, u *model.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *gormUsers) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *gormUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *gormUsers) ExistsByEmailOrUsername(ctx context.Context, email, username string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ? OR username = ?", email, username)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormUsers) Update(ctx context.Context, u *model.User) error {
	return translate(r.db.WithContext(ctx).Save(u).Error)
}

func (r *gormUsers) List(ctx context.Context, f UserFilter) ([]model.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if f.SchoolID != nil {
		q = q.Where("school_id = ?", *f.SchoolID)
	}
	if f.StaffOnly {
		q = q.Where("role IN ?", model.StaffRoles)
	}
	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []model.User
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *gormUsers) DeleteBySchool(ctx context.Context, schoolID uint) error {
	return r.db.WithContext(ctx).Where("school_id = ?", schoolID).Delete(&model.User{}).Error
}

func (r *gormUsers) Assignments(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.ClassroomAssignment{}).
		Where("user_id = ?", userID).
		Order("classroom_id").
		Pluck("classroom_id", &ids).Error
	return ids, err
}

func (r *gormUsers) ReplaceAssignments(ctx context.Context, userID uint, classroomIDs []uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.ClassroomAssignment{}).Error; err != nil {
		return err
	}
	if len(classroomIDs) == 0 {
		return nil
	}
	rows := make([]model.ClassroomAssignment, 0, len(classroomIDs))
	for _, id := range classroomIDs {
		rows = append(rows, model.ClassroomAssignment{UserID: userID, ClassroomID: id})
	}
	return translate(r.db.WithContext(ctx).Create(&rows).Error)
}

func (r *gormUsers) RemoveClassroomAssignments(ctx context.Context, classroomID uint) error {
	return r.db.WithContext(ctx).Where("classroom_id = ?", classroomID).Delete(&model.ClassroomAssignment{}).Error
}

func (r *gormUsers) RemoveSchoolAssignments(ctx context.Context, schoolID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id IN (?)", r.db.Model(&model.User{}).Select("id").Where("school_id = ?", schoolID)).
		Delete(&model.ClassroomAssignment{}).Error
}

func (r *gormUsers) TeachersByClassroom(ctx context.Context, classroomID uint) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role = ?", model.RoleTeacher).
		Where("id IN (?)", r.db.Model(&model.ClassroomAssignment{}).Select("user_id").Where("classroom_id = ?", classroomID)).
		Order("username").
		Find(&users).Error
	return users, err
}

// --- schools ---

type gormSchools struct{ db *gorm.DB }

func (r *gormSchools) Create(ctx context.Context, s *model.School) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *gormSchools) GetByID(ctx context.Context, id uint) (*model.School, error) {
	var s model.School
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *gormSchools) ExistsByEmail(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.School{}).Where("email = ?", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormSchools) Update(ctx context.Context, s *model.School) error {
	return translate(r.db.WithContext(ctx).Save(s).Error)
}

func (r *gormSchools) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.School{}, id).Error
}

func (r *gormSchools) List(ctx context.Context, f SchoolFilter) ([]model.School, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.School{})
	if f.ID != nil {
		q = q.Where("id = ?", *f.ID)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var schools []model.School
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&schools).Error; err != nil {
		return nil, 0, err
	}
	return schools, total, nil
}

// --- grades ---

type gormGrades struct{ db *gorm.DB }

func (r *gormGrades) Create(ctx context.Context, g *model.Grade) error {
	return translate(r.db.WithContext(ctx).Create(g).Error)
}

func (r *gormGrades) GetByID(ctx context.Context, id uint) (*model.Grade, error) {
	var g model.Grade
	if err := r.db.WithContext(ctx).First(&g, id).Error; err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (r *gormGrades) ExistsByName(ctx context.Context, schoolID uint, name string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Grade{}).
		Where("school_id = ? AND name = ?", schoolID, name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormGrades) Update(ctx context.Context, g *model.Grade) error {
	return translate(r.db.WithContext(ctx).Save(g).Error)
}

func (r *gormGrades) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Grade{}, id).Error
}

func (r *gormGrades) List(ctx context.Context, f GradeFilter) ([]model.Grade, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Grade{}).Where("school_id = ?", f.SchoolID)
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var grades []model.Grade
	if err := q.Order("sort_order, created_at").Offset(f.Offset).Limit(f.Limit).Find(&grades).Error; err != nil {
		return nil, 0, err
	}
	return grades, total, nil
}

func (r *gormGrades) ListBySchool(ctx context.Context, schoolID uint) ([]model.Grade, error) {
	var grades []model.Grade
	err := r.db.WithContext(ctx).Where("school_id = ?", schoolID).
		Order("sort_order, created_at").Find(&grades).Error
	return grades, err
}

func (r *gormGrades) DeleteBySchool(ctx context.Context, schoolID uint) error {
	return r.db.WithContext(ctx).Where("school_id = ?", schoolID).Delete(&model.Grade{}).Error
}

// --- classrooms ---

type gormClassrooms struct{ db *gorm.DB }

func (r *gormClassrooms) Create(ctx context.Context, c *model.Classroom) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *gormClassrooms) GetByID(ctx context.Context, id uint) (*model.Classroom, error) {
	var c model.Classroom
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *gormClassrooms) GetByIDs(ctx context.Context, ids []uint) ([]model.Classroom, error) {
	var rooms []model.Classroom
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rooms).Error
	return rooms, err
}

func (r *gormClassrooms) ExistsByName(ctx context.Context, schoolID uint, name string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Classroom{}).
		Where("school_id = ? AND name = ?", schoolID, name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update persists everything except current_enrollment, which only moves
// through AdjustEnrollment. Writing the loaded counter back here would race
// with concurrent enrollments.
func (r *gormClassrooms) Update(ctx context.Context, c *model.Classroom) error {
	return translate(r.db.WithContext(ctx).Model(&model.Classroom{ID: c.ID}).
		Select("name", "grade_id", "capacity", "section", "room_number", "active").
		Updates(c).Error)
}

func (r *gormClassrooms) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Classroom{}, id).Error
}

func (r *gormClassrooms) List(ctx context.Context, f ClassroomFilter) ([]model.Classroom, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Classroom{}).Where("school_id = ?", f.SchoolID)
	if f.GradeID != nil {
		q = q.Where("grade_id = ?", *f.GradeID)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rooms []model.Classroom
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&rooms).Error; err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

func (r *gormClassrooms) ListBySchool(ctx context.Context, schoolID uint) ([]model.Classroom, error) {
	var rooms []model.Classroom
	err := r.db.WithContext(ctx).Where("school_id = ?", schoolID).Order("created_at").Find(&rooms).Error
	return rooms, err
}

func (r *gormClassrooms) ListByGrade(ctx context.Context, gradeID uint) ([]model.Classroom, error) {
	var rooms []model.Classroom
	err := r.db.WithContext(ctx).Where("grade_id = ?", gradeID).Order("created_at").Find(&rooms).Error
	return rooms, err
}

func (r *gormClassrooms) AdjustEnrollment(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Classroom{}).
		Where("id = ?", id).
		UpdateColumn("current_enrollment", gorm.Expr("current_enrollment + ?", delta)).Error
}

func (r *gormClassrooms) ClearGrade(ctx context.Context, gradeID uint) error {
	return r.db.WithContext(ctx).Model(&model.Classroom{}).
		Where("grade_id = ?", gradeID).
		Update("grade_id", nil).Error
}

func (r *gormClassrooms) DeleteBySchool(ctx context.Context, schoolID uint) error {
	return r.db.WithContext(ctx).Where("school_id = ?", schoolID).Delete(&model.Classroom{}).Error
}

// --- students ---

type gormStudents struct{ db *gorm.DB }

func (r *gormStudents) Create(ctx context.Context, s *model.Student) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *gormStudents) GetByID(ctx context.Context, id uint) (*model.Student, error) {
	var s model.Student
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *gormStudents) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Student{}).Where("email = ?", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormStudents) CardIDExists(ctx context.Context, schoolID uint, cardID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Student{}).
		Where("school_id = ? AND card_id = ?", schoolID, cardID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormStudents) Update(ctx context.Context, s *model.Student) error {
	return translate(r.db.WithContext(ctx).Save(s).Error)
}

func (r *gormStudents) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Student{}, id).Error
}

func (r *gormStudents) List(ctx context.Context, f StudentFilter) ([]model.Student, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Student{}).Where("school_id = ?", f.SchoolID)
	if f.ClassroomID != nil {
		q = q.Where("classroom_id = ?", *f.ClassroomID)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var students []model.Student
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&students).Error; err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

func (r *gormStudents) ListBySchool(ctx context.Context, schoolID uint) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).Where("school_id = ?", schoolID).Order("created_at").Find(&students).Error
	return students, err
}

func (r *gormStudents) ListByClassroom(ctx context.Context, classroomID uint) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).Where("classroom_id = ?", classroomID).Order("created_at").Find(&students).Error
	return students, err
}

func (r *gormStudents) ClearClassroom(ctx context.Context, classroomID uint) error {
	return r.db.WithContext(ctx).Model(&model.Student{}).
		Where("classroom_id = ?", classroomID).
		Update("classroom_id", nil).Error
}

func (r *gormStudents) DeleteBySchool(ctx context.Context, schoolID uint) error {
	return r.db.WithContext(ctx).Where("school_id = ?", schoolID).Delete(&model.Student{}).Error
}
