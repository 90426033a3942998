package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Username     string `json:"username" gorm:"uniqueIndex;not null;size:150"`
	PasswordHash string `json:"-" gorm:"not null;size:255"`
	FullName     string `json:"full_name" gorm:"size:100"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Teaching []ClassRoom `json:"-" gorm:"foreignKey:TeacherID"`
	Joined   []ClassRoom `json:"-" gorm:"many2many:classroom_students"`
}

func (User) TableName() string {
	return "users"
}
