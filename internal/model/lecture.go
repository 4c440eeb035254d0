package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Lecture struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Subject   string    `gorm:"size:100;not null" json:"subject"`
	TeacherID uuid.UUID `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Teacher   *User     `gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE" json:"teacher,omitempty"`

	AudioURL      *string `gorm:"size:500" json:"audio_url,omitempty"`
	AudioDuration *int    `json:"audio_duration,omitempty"` // seconds

	Transcript  *string  `gorm:"type:text" json:"transcript,omitempty"`
	Summary     *string  `gorm:"type:text" json:"summary,omitempty"`
	KeyPoints   []string `gorm:"type:jsonb;serializer:json" json:"key_points,omitempty"`
	Tags        []string `gorm:"type:jsonb;serializer:json" json:"tags,omitempty"`
	IsProcessed bool     `gorm:"default:false;index" json:"is_processed"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Tasks []Task `gorm:"foreignKey:LectureID" json:"-"`
}

func (l *Lecture) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
