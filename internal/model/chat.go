package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRoom is a private conversation between one teacher and one student.
// The (teacher, student) pair is unique.
type ChatRoom struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TeacherID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_room_pair" json:"teacher_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_room_pair" json:"student_id"`
	Teacher   *User     `gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE" json:"teacher,omitempty"`
	Student   *User     `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"student,omitempty"`

	LastMessage        *string    `gorm:"size:100" json:"last_message,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	UnreadCountTeacher int        `gorm:"default:0" json:"unread_count_teacher"`
	UnreadCountStudent int        `gorm:"default:0" json:"unread_count_student"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Messages []ChatMessage `gorm:"foreignKey:ChatRoomID" json:"-"`
}

func (r *ChatRoom) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// HasMember reports whether the user participates in this room.
func (r *ChatRoom) HasMember(userID uuid.UUID) bool {
	return r.TeacherID == userID || r.StudentID == userID
}

type ChatMessage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChatRoomID uuid.UUID `gorm:"type:uuid;not null;index" json:"chat_room_id"`
	Room       *ChatRoom `gorm:"foreignKey:ChatRoomID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID   uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Sender     *User     `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`

	Message string `gorm:"type:text;not null" json:"message"`

	// Optional document attachment stored under documents/{room_id}/ in the bucket
	DocumentURL  *string `gorm:"size:500" json:"document_url,omitempty"`
	DocumentName *string `gorm:"size:255" json:"document_name,omitempty"`
	DocumentSize *int64  `json:"document_size,omitempty"`
	DocumentType *string `gorm:"size:100" json:"document_type,omitempty"`

	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
