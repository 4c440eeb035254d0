package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

func (r UserRole) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Role         UserRole  `gorm:"size:20;not null" json:"role"`

	// Student fields
	StudentID *string `gorm:"size:20" json:"student_id,omitempty"`
	Major     *string `gorm:"size:100" json:"major,omitempty"`
	Year      *string `gorm:"size:20" json:"year,omitempty"`

	// Teacher fields
	Department *string `gorm:"size:100" json:"department,omitempty"`

	Bio       *string `gorm:"type:text" json:"bio,omitempty"`
	Phone     *string `gorm:"size:20" json:"phone,omitempty"`
	AvatarURL *string `gorm:"size:500" json:"avatar_url,omitempty"`

	NotificationsEnabled bool `gorm:"default:true" json:"notifications_enabled"`
	EmailNotifications   bool `gorm:"default:true" json:"email_notifications"`
	DarkMode             bool `gorm:"default:false" json:"dark_mode"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Lectures      []Lecture      `gorm:"foreignKey:TeacherID" json:"-"`
	Tasks         []Task         `gorm:"foreignKey:AssignedToID" json:"-"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
