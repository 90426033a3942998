package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ClassCodeLength is the length of the generated join code.
const ClassCodeLength = 6

type ClassRoom struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Name    string `json:"name" gorm:"not null;size:100"`
	Section int    `json:"section" gorm:"not null"`

	// ClassCode stays null until assigned; unique across all classrooms when present.
	ClassCode *string `json:"class_code" gorm:"uniqueIndex;size:6"`

	TeacherID uint `json:"teacher_id" gorm:"not null;index"`
	Teacher   User `json:"teacher" gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE"`

	Students []User `json:"students,omitempty" gorm:"many2many:classroom_students"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Computed fields (not stored)
	StudentCount int `json:"student_count" gorm:"-"`
}

func (ClassRoom) TableName() string {
	return "classrooms"
}

func (c *ClassRoom) String() string {
	return fmt.Sprintf("%s.%d ID:%d", c.Name, c.Section, c.ID)
}
