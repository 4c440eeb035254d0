package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskApproved  TaskStatus = "approved"
)

func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskCompleted || s == TaskApproved
}

type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

func (p TaskPriority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	LectureID   *uuid.UUID `gorm:"type:uuid;index" json:"lecture_id,omitempty"`
	Lecture     *Lecture   `gorm:"foreignKey:LectureID;constraint:OnDelete:CASCADE" json:"lecture,omitempty"`

	AssignedToID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to_id,omitempty"`
	AssignedTo   *User      `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL" json:"assigned_to,omitempty"`

	Status        TaskStatus   `gorm:"size:20;default:pending" json:"status"`
	Priority      TaskPriority `gorm:"size:20;default:medium" json:"priority"`
	DueDate       *time.Time   `json:"due_date,omitempty"`
	IsAIGenerated bool         `gorm:"default:false" json:"is_ai_generated"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
