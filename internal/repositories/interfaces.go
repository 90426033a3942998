package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/campuskit/classroom-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ClassroomFilters struct {
	TeacherID *uint  `json:"teacher_id"`
	StudentID *uint  `json:"student_id"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	SortBy    string `json:"sort_by"`    // "created_at", "name", "section"
	SortOrder string `json:"sort_order"` // "asc", "desc"
}

type MaterialFilters struct {
	ClassRoomID *uint  `json:"classroom_id"`
	UploaderID  *uint  `json:"uploader_id"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
	SortBy      string `json:"sort_by"`
	SortOrder   string `json:"sort_order"`
}

// ===== REPOSITORY INTERFACES =====

// UserRepository manages account records.
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error)
}

// ClassroomRepository manages classrooms and their membership sets.
type ClassroomRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, classroom *models.ClassRoom) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ClassRoom, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.ClassRoom, error)

	// Scoped lookups; NotFound when the (owner, id) pair does not match
	GetByTeacher(ctx context.Context, tx *gorm.DB, id, teacherID uint) (*models.ClassRoom, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, id, studentID uint) (*models.ClassRoom, error)

	// Query operations
	ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID uint) ([]*models.ClassRoom, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint) ([]*models.ClassRoom, error)

	// Membership operations
	AddStudent(ctx context.Context, tx *gorm.DB, classroomID uint, student *models.User) error
	IsStudent(ctx context.Context, tx *gorm.DB, classroomID, studentID uint) (bool, error)
	ListStudents(ctx context.Context, tx *gorm.DB, classroomID uint) ([]*models.User, error)
}

// MaterialRepository manages reading-material records. File contents live in
// the storage layer; only metadata is persisted here.
type MaterialRepository interface {
	Create(ctx context.Context, tx *gorm.DB, material *models.ReadingMaterial) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ReadingMaterial, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	ListByUploader(ctx context.Context, tx *gorm.DB, classroomID, uploaderID uint) ([]*models.ReadingMaterial, error)
	ListByClassroom(ctx context.Context, tx *gorm.DB, classroomID uint) ([]*models.ReadingMaterial, error)
}

// ReadingInfoRepository manages per-material engagement maps.
type ReadingInfoRepository interface {
	GetByMaterial(ctx context.Context, tx *gorm.DB, materialID uint) (*models.ReadingInfo, error)
	// GetByMaterialForUpdate locks the record for the duration of the
	// surrounding transaction so read-modify-write cycles do not lose updates.
	GetByMaterialForUpdate(ctx context.Context, tx *gorm.DB, materialID uint) (*models.ReadingInfo, error)
	Upsert(ctx context.Context, tx *gorm.DB, info *models.ReadingInfo) error
}

// Repository aggregates all repository interfaces.
type Repository interface {
	User() UserRepository
	Classroom() ClassroomRepository
	Material() MaterialRepository
	ReadingInfo() ReadingInfoRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
