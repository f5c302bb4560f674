package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Chapter struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	ChapterNumber int            `gorm:"column:chapter_number;not null;default:0" json:"chapter_number"`
	Title         string         `gorm:"column:title" json:"title,omitempty"`
	Status        string         `gorm:"column:status;not null;index:idx_chapter_status_created,priority:1" json:"status"`
	Layout        datatypes.JSON `gorm:"column:layout" json:"layout,omitempty"`
	Content       string         `gorm:"column:content;type:text" json:"content,omitempty"`
	ClaimID       *uuid.UUID     `gorm:"type:uuid;column:claim_id" json:"-"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_chapter_status_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Chapter) TableName() string { return "chapter" }

func (c *Chapter) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ChapterStatusPending
	}
	return nil
}
