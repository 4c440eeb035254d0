package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTaskAssigned    NotificationType = "task_assigned"
	NotificationTaskDue         NotificationType = "task_due"
	NotificationLectureUploaded NotificationType = "lecture_uploaded"
	NotificationTaskApproved    NotificationType = "task_approved"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTaskAssigned, NotificationTaskDue, NotificationLectureUploaded, NotificationTaskApproved:
		return true
	}
	return false
}

type Notification struct {
	ID      uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	User    *User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Type    NotificationType `gorm:"size:50;not null" json:"type"`
	Title   string           `gorm:"size:200;not null" json:"title"`
	Message string           `gorm:"type:text;not null" json:"message"`

	// Additional payload for the client (lecture_id, task_id, ...)
	Data map[string]any `gorm:"type:jsonb;serializer:json" json:"data,omitempty"`

	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
