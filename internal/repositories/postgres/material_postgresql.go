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

type MaterialPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewMaterialPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.MaterialRepository {
	return &MaterialPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *MaterialPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create persists a reading-material record and invalidates the classroom's
// material listings.
func (r *MaterialPostgreSQL) Create(ctx context.Context, tx *gorm.DB, material *models.ReadingMaterial) error {
	if err := r.getDB(tx).WithContext(ctx).Create(material).Error; err != nil {
		return fmt.Errorf("failed to create reading material: %w", err)
	}
	cache.InvalidateMaterialCache(ctx, r.cacheManager, material.ClassRoomID)
	return nil
}

// GetByID retrieves a material with its classroom and uploader.
func (r *MaterialPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ReadingMaterial, error) {
	var material models.ReadingMaterial
	err := r.getDB(tx).WithContext(ctx).
		Preload("ClassRoom").
		Preload("Uploader").
		First(&material, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get reading material: %w", err)
	}
	return &material, nil
}

// Delete removes the material record. The stored file must already be gone:
// the service deletes the file before calling this.
func (r *MaterialPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	var material models.ReadingMaterial
	if err := r.getDB(tx).WithContext(ctx).First(&material, id).Error; err != nil {
		return fmt.Errorf("failed to get reading material for delete: %w", err)
	}

	if err := r.getDB(tx).WithContext(ctx).Delete(&models.ReadingMaterial{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete reading material: %w", err)
	}
	cache.InvalidateMaterialCache(ctx, r.cacheManager, material.ClassRoomID)
	return nil
}

// ListByUploader returns materials for a classroom uploaded by the given user.
func (r *MaterialPostgreSQL) ListByUploader(ctx context.Context, tx *gorm.DB, classroomID, uploaderID uint) ([]*models.ReadingMaterial, error) {
	var materials []*models.ReadingMaterial
	err := r.getDB(tx).WithContext(ctx).
		Where("class_room_id = ? AND uploader_id = ?", classroomID, uploaderID).
		Order("created_at DESC").
		Find(&materials).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list materials by uploader: %w", err)
	}
	return materials, nil
}

// ListByClassroom returns all materials of a classroom, cached.
func (r *MaterialPostgreSQL) ListByClassroom(ctx context.Context, tx *gorm.DB, classroomID uint) ([]*models.ReadingMaterial, error) {
	cacheKey := fmt.Sprintf("classroom:%d:all", classroomID)
	var materials []*models.ReadingMaterial

	err := r.cacheManager.Material.CacheOrExecute(ctx, cacheKey, &materials, cache.MaterialCacheConfig.TTL, func() (interface{}, error) {
		var dbMaterials []*models.ReadingMaterial
		err := r.getDB(tx).WithContext(ctx).
			Where("class_room_id = ?", classroomID).
			Order("created_at DESC").
			Find(&dbMaterials).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list materials by classroom: %w", err)
		}
		return dbMaterials, nil
	})

	if err != nil {
		return nil, err
	}

	return materials, nil
}
