package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReadingMaterial struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;size:100"`

	ClassRoomID uint      `json:"classroom_id" gorm:"not null;index"`
	ClassRoom   ClassRoom `json:"classroom" gorm:"foreignKey:ClassRoomID;constraint:OnDelete:CASCADE"`

	// FileName is the stored (server-generated) name; OriginalName is what the
	// teacher uploaded. The stored file is removed before the record on delete.
	FileName     string `json:"file_name" gorm:"not null;size:255"`
	OriginalName string `json:"original_name" gorm:"size:255"`
	SizeBytes    int64  `json:"size_bytes"`

	UploaderID uint `json:"uploader_id" gorm:"not null;index"`
	Uploader   User `json:"uploader" gorm:"foreignKey:UploaderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (ReadingMaterial) TableName() string {
	return "reading_materials"
}

// ReadingInfo keeps per-material engagement: a map from student username to
// accumulated seconds spent on the material.
type ReadingInfo struct {
	ID uint `json:"id" gorm:"primaryKey"`

	MaterialID uint            `json:"material_id" gorm:"not null;uniqueIndex"`
	Material   ReadingMaterial `json:"-" gorm:"foreignKey:MaterialID;constraint:OnDelete:CASCADE"`

	MaterialInfo datatypes.JSONMap `json:"material_info"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ReadingInfo) TableName() string {
	return "reading_infos"
}
