package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campuskit/classroom-service/internal/models"
	"github.com/campuskit/classroom-service/internal/repositories"
)

type ReadingInfoPostgreSQL struct {
	db *gorm.DB
}

func NewReadingInfoPostgreSQL(db *gorm.DB) repositories.ReadingInfoRepository {
	return &ReadingInfoPostgreSQL{db: db}
}

func (r *ReadingInfoPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// GetByMaterial returns the engagement record of a material. material_id is
// unique, so at most one record exists.
func (r *ReadingInfoPostgreSQL) GetByMaterial(ctx context.Context, tx *gorm.DB, materialID uint) (*models.ReadingInfo, error) {
	var info models.ReadingInfo
	err := r.getDB(tx).WithContext(ctx).
		Where("material_id = ?", materialID).
		First(&info).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get reading info: %w", err)
	}
	return &info, nil
}

// GetByMaterialForUpdate takes a FOR UPDATE row lock so concurrent
// accumulations into the JSON map serialize instead of overwriting each other.
// Only meaningful inside a transaction.
func (r *ReadingInfoPostgreSQL) GetByMaterialForUpdate(ctx context.Context, tx *gorm.DB, materialID uint) (*models.ReadingInfo, error) {
	var info models.ReadingInfo
	err := r.getDB(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("material_id = ?", materialID).
		First(&info).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get reading info: %w", err)
	}
	return &info, nil
}

// Upsert creates the record on first write, updates the JSON map afterwards.
func (r *ReadingInfoPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, info *models.ReadingInfo) error {
	db := r.getDB(tx).WithContext(ctx)
	if info.ID == 0 {
		if err := db.Create(info).Error; err != nil {
			return fmt.Errorf("failed to create reading info: %w", err)
		}
		return nil
	}
	if err := db.Model(info).Update("material_info", info.MaterialInfo).Error; err != nil {
		return fmt.Errorf("failed to update reading info: %w", err)
	}
	return nil
}
