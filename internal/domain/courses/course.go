package courses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course is the top-level generation job. Layout is written by the layout stage
// worker and read by the chapter-creation stage worker; the job runtime never
// touches it.
type Course struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Difficulty  string         `gorm:"column:difficulty" json:"difficulty,omitempty"`
	Status      string         `gorm:"column:status;not null;index:idx_course_status_created,priority:1" json:"status"`
	Layout      datatypes.JSON `gorm:"column:layout" json:"layout,omitempty"`
	ClaimID     *uuid.UUID     `gorm:"type:uuid;column:claim_id" json:"-"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_course_status_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	return nil
}

func (c *Course) HasLayout() bool {
	return len(c.Layout) > 0 && string(c.Layout) != "null"
}
