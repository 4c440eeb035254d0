package repository

import (
	"context"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatRepository interface {
	CreateRoom(ctx context.Context, room *model.ChatRoom) error
	FindRoomByID(ctx context.Context, id uuid.UUID) (*model.ChatRoom, error)
	FindRoomByPair(ctx context.Context, teacherID, studentID uuid.UUID) (*model.ChatRoom, error)
	FindRoomsByUser(ctx context.Context, userID uuid.UUID) ([]model.ChatRoom, error)
	UpdateRoom(ctx context.Context, room *model.ChatRoom) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error

	CreateMessage(ctx context.Context, message *model.ChatMessage) error
	FindMessageByID(ctx context.Context, id uuid.UUID) (*model.ChatMessage, error)
	FindMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]model.ChatMessage, int64, error)
	DeleteMessage(ctx context.Context, id uuid.UUID) error
	// MarkMessagesRead flags every message in the room not sent by readerID as
	// read and returns how many rows changed.
	MarkMessagesRead(ctx context.Context, roomID, readerID uuid.UUID) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateRoom(ctx context.Context, room *model.ChatRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *chatRepository) FindRoomByID(ctx context.Context, id uuid.UUID) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Student").
		First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *chatRepository) FindRoomByPair(ctx context.Context, teacherID, studentID uuid.UUID) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := r.db.WithContext(ctx).
		Where("teacher_id = ? AND student_id = ?", teacherID, studentID).
		First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *chatRepository) FindRoomsByUser(ctx context.Context, userID uuid.UUID) ([]model.ChatRoom, error) {
	var rooms []model.ChatRoom
	err := r.db.WithContext(ctx).
		Where("teacher_id = ? OR student_id = ?", userID, userID).
		Preload("Teacher").
		Preload("Student").
		Order("last_message_at desc NULLS LAST").
		Find(&rooms).Error
	return rooms, err
}

func (r *chatRepository) UpdateRoom(ctx context.Context, room *model.ChatRoom) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *chatRepository) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_room_id = ?", id).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ChatRoom{}, "id = ?", id).Error
	})
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *model.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *chatRepository) FindMessageByID(ctx context.Context, id uuid.UUID) (*model.ChatMessage, error) {
	var message model.ChatMessage
	if err := r.db.WithContext(ctx).First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *chatRepository) FindMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]model.ChatMessage, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("chat_room_id = ?", roomID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []model.ChatMessage
	err := query.
		Preload("Sender").
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	return messages, total, err
}

func (r *chatRepository) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ChatMessage{}, "id = ?", id).Error
}

func (r *chatRepository) MarkMessagesRead(ctx context.Context, roomID, readerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("chat_room_id = ? AND sender_id <> ? AND is_read = ?", roomID, readerID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}
