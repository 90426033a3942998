package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campuskit/classroom-service/internal/cache"
	"github.com/campuskit/classroom-service/internal/models"
	"github.com/campuskit/classroom-service/internal/repositories"
)

type ClassroomPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewClassroomPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ClassroomRepository {
	return &ClassroomPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (r *ClassroomPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create persists a new classroom. Uniqueness of the class code is enforced by
// the storage layer; callers retry generation on IsDuplicateKeyError.
func (r *ClassroomPostgreSQL) Create(ctx context.Context, tx *gorm.DB, classroom *models.ClassRoom) error {
	if err := r.getDB(tx).WithContext(ctx).Create(classroom).Error; err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create classroom: %w", repositories.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create classroom: %w", err)
	}
	cache.InvalidateClassroomCache(ctx, r.cacheManager, classroom.ID, classroom.ClassCode)

	return nil
}

// GetByID retrieves a classroom with its teacher and student set, cached.
func (r *ClassroomPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ClassRoom, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var classroom models.ClassRoom

	err := r.cacheManager.Classroom.CacheOrExecute(ctx, cacheKey, &classroom, cache.ClassroomCacheConfig.TTL, func() (interface{}, error) {
		var dbClassroom models.ClassRoom
		err := r.getDB(tx).WithContext(ctx).
			Preload("Teacher").
			Preload("Students").
			First(&dbClassroom, id).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get classroom: %w", err)
		}
		dbClassroom.StudentCount = len(dbClassroom.Students)
		return &dbClassroom, nil
	})

	if err != nil {
		return nil, err
	}

	return &classroom, nil
}

// GetByCode looks up a classroom by exact join-code match. The code sits on
// the hot path of every join request, so the code-to-id indirection is cached
// and the record itself comes through the cached GetByID.
func (r *ClassroomPostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.ClassRoom, error) {
	var id uint
	err := r.cacheManager.Code.CacheOrExecute(ctx, code, &id, cache.CodeCacheConfig.TTL, func() (interface{}, error) {
		var classroom models.ClassRoom
		err := r.getDB(tx).WithContext(ctx).
			Select("id").
			Where("class_code = ?", code).
			First(&classroom).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get classroom by code: %w", err)
		}
		return classroom.ID, nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, tx, id)
}

// GetByTeacher fetches a single classroom scoped by (teacher, id).
func (r *ClassroomPostgreSQL) GetByTeacher(ctx context.Context, tx *gorm.DB, id, teacherID uint) (*models.ClassRoom, error) {
	var classroom models.ClassRoom
	err := r.getDB(tx).WithContext(ctx).
		Preload("Students").
		Where("id = ? AND teacher_id = ?", id, teacherID).
		First(&classroom).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get classroom for teacher: %w", err)
	}
	classroom.StudentCount = len(classroom.Students)
	return &classroom, nil
}

// GetByStudent fetches a single classroom scoped by (member, id).
func (r *ClassroomPostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, id, studentID uint) (*models.ClassRoom, error) {
	var classroom models.ClassRoom
	err := r.getDB(tx).WithContext(ctx).
		Preload("Teacher").
		Joins("JOIN classroom_students cs ON cs.class_room_id = classrooms.id").
		Where("classrooms.id = ? AND cs.user_id = ?", id, studentID).
		First(&classroom).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get classroom for student: %w", err)
	}
	return &classroom, nil
}

// ListByTeacher returns all classrooms owned by the teacher.
func (r *ClassroomPostgreSQL) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID uint) ([]*models.ClassRoom, error) {
	var classrooms []*models.ClassRoom
	err := r.getDB(tx).WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&classrooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list classrooms by teacher: %w", err)
	}
	return classrooms, nil
}

// ListByStudent returns all classrooms the user has joined.
func (r *ClassroomPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint) ([]*models.ClassRoom, error) {
	var classrooms []*models.ClassRoom
	err := r.getDB(tx).WithContext(ctx).
		Preload("Teacher").
		Joins("JOIN classroom_students cs ON cs.class_room_id = classrooms.id").
		Where("cs.user_id = ?", studentID).
		Order("classrooms.created_at DESC").
		Find(&classrooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list classrooms by student: %w", err)
	}
	return classrooms, nil
}

// AddStudent appends the user to the classroom's student set. The association
// append is idempotent: adding an existing member is a no-op.
func (r *ClassroomPostgreSQL) AddStudent(ctx context.Context, tx *gorm.DB, classroomID uint, student *models.User) error {
	classroom := models.ClassRoom{ID: classroomID}
	err := r.getDB(tx).WithContext(ctx).
		Model(&classroom).
		Association("Students").
		Append(student)
	if err != nil {
		return fmt.Errorf("failed to add student to classroom: %w", err)
	}
	cache.InvalidateClassroomCache(ctx, r.cacheManager, classroomID, nil)
	return nil
}

// IsStudent reports whether the user is in the classroom's student set.
func (r *ClassroomPostgreSQL) IsStudent(ctx context.Context, tx *gorm.DB, classroomID, studentID uint) (bool, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Table("classroom_students").
		Where("class_room_id = ? AND user_id = ?", classroomID, studentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check classroom membership: %w", err)
	}
	return count > 0, nil
}

// ListStudents returns the classroom's enrolled students.
func (r *ClassroomPostgreSQL) ListStudents(ctx context.Context, tx *gorm.DB, classroomID uint) ([]*models.User, error) {
	var students []*models.User
	err := r.getDB(tx).WithContext(ctx).
		Joins("JOIN classroom_students cs ON cs.user_id = users.id").
		Where("cs.class_room_id = ?", classroomID).
		Order("users.username ASC").
		Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list classroom students: %w", err)
	}
	return students, nil
}
