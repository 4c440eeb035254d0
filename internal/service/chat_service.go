package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const lastMessagePreviewLen = 100

// ChatRoomChannel is the redis pub/sub channel carrying a room's live
// messages.
func ChatRoomChannel(roomID uuid.UUID) string {
	return fmt.Sprintf("chat_room:%s", roomID.String())
}

type CreateRoomInput struct {
	TeacherID uuid.UUID `json:"teacher_id" binding:"required"`
	StudentID uuid.UUID `json:"student_id" binding:"required"`
}

type SendMessageInput struct {
	Message string `json:"message" binding:"required,max=5000"`
}

// DocumentFile is a file attached to a chat message.
type DocumentFile struct {
	Reader   io.Reader
	FileName string
	Size     int64
}

type ChatService interface {
	CreateRoom(ctx context.Context, actor *model.User, input CreateRoomInput) (*model.ChatRoom, error)
	GetRoom(ctx context.Context, roomID, userID uuid.UUID) (*model.ChatRoom, error)
	ListRooms(ctx context.Context, userID uuid.UUID) ([]model.ChatRoom, error)
	DeleteRoom(ctx context.Context, roomID, userID uuid.UUID) error
	SendMessage(ctx context.Context, roomID uuid.UUID, sender *model.User, input SendMessageInput) (*model.ChatMessage, error)
	SendDocument(ctx context.Context, roomID uuid.UUID, sender *model.User, message string, doc DocumentFile) (*model.ChatMessage, error)
	ListMessages(ctx context.Context, roomID, userID uuid.UUID, limit, offset int) ([]model.ChatMessage, int64, error)
	MarkMessagesRead(ctx context.Context, roomID, userID uuid.UUID) (int64, error)
	DeleteMessage(ctx context.Context, messageID, userID uuid.UUID) error
}

type chatService struct {
	repo        repository.ChatRepository
	userRepo    repository.UserRepository
	blobStorage storage.BlobStorage
	redisClient *redis.Client
	sanitizer   *bluemonday.Policy
	rateLimit   time.Duration
}

func NewChatService(
	repo repository.ChatRepository,
	userRepo repository.UserRepository,
	blobStorage storage.BlobStorage,
	redisClient *redis.Client,
	rateLimit time.Duration,
) ChatService {
	if rateLimit <= 0 {
		rateLimit = time.Second
	}
	return &chatService{
		repo:        repo,
		userRepo:    userRepo,
		blobStorage: blobStorage,
		redisClient: redisClient,
		sanitizer:   bluemonday.StrictPolicy(),
		rateLimit:   rateLimit,
	}
}

func (s *chatService) CreateRoom(ctx context.Context, actor *model.User, input CreateRoomInput) (*model.ChatRoom, error) {
	if actor.ID != input.TeacherID && actor.ID != input.StudentID {
		return nil, fmt.Errorf("%w: you must be a member of the room", apperror.ErrForbidden)
	}

	teacher, err := s.userRepo.FindByID(ctx, input.TeacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: teacher not found", apperror.ErrNotFound)
		}
		return nil, err
	}
	if teacher.Role != model.RoleTeacher {
		return nil, fmt.Errorf("%w: teacher_id must reference a teacher", apperror.ErrInvalidInput)
	}

	student, err := s.userRepo.FindByID(ctx, input.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: student not found", apperror.ErrNotFound)
		}
		return nil, err
	}
	if student.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: student_id must reference a student", apperror.ErrInvalidInput)
	}

	// One room per teacher/student pair. Creating again returns the
	// existing room.
	if existing, err := s.repo.FindRoomByPair(ctx, input.TeacherID, input.StudentID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	room := &model.ChatRoom{
		TeacherID: input.TeacherID,
		StudentID: input.StudentID,
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return s.repo.FindRoomByID(ctx, room.ID)
}

func (s *chatService) GetRoom(ctx context.Context, roomID, userID uuid.UUID) (*model.ChatRoom, error) {
	room, err := s.findMemberRoom(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (s *chatService) ListRooms(ctx context.Context, userID uuid.UUID) ([]model.ChatRoom, error) {
	return s.repo.FindRoomsByUser(ctx, userID)
}

func (s *chatService) DeleteRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	if _, err := s.findMemberRoom(ctx, roomID, userID); err != nil {
		return err
	}
	return s.repo.DeleteRoom(ctx, roomID)
}

func (s *chatService) SendMessage(ctx context.Context, roomID uuid.UUID, sender *model.User, input SendMessageInput) (*model.ChatMessage, error) {
	room, err := s.findMemberRoom(ctx, roomID, sender.ID)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(s.sanitizer.Sanitize(input.Message))
	if text == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", apperror.ErrInvalidInput)
	}

	if err := s.checkSendRateLimit(ctx, sender.ID); err != nil {
		return nil, err
	}

	message := &model.ChatMessage{
		ChatRoomID: roomID,
		SenderID:   sender.ID,
		Message:    text,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	s.afterSend(ctx, room, sender, message, text)
	return message, nil
}

func (s *chatService) SendDocument(ctx context.Context, roomID uuid.UUID, sender *model.User, message string, doc DocumentFile) (*model.ChatMessage, error) {
	if s.blobStorage == nil || !s.blobStorage.Available(ctx) {
		return nil, fmt.Errorf("%w: storage service not available", apperror.ErrServiceUnavailable)
	}

	room, err := s.findMemberRoom(ctx, roomID, sender.ID)
	if err != nil {
		return nil, err
	}

	if err := s.checkSendRateLimit(ctx, sender.ID); err != nil {
		return nil, err
	}

	key := storage.DocumentKey(roomID, doc.FileName)
	contentType := storage.ContentTypeFor(doc.FileName)
	url, err := s.blobStorage.Upload(ctx, doc.Reader, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	text := strings.TrimSpace(s.sanitizer.Sanitize(message))
	if text == "" {
		text = fmt.Sprintf("Shared a document: %s", doc.FileName)
	}

	msg := &model.ChatMessage{
		ChatRoomID:   roomID,
		SenderID:     sender.ID,
		Message:      text,
		DocumentURL:  &url,
		DocumentName: &doc.FileName,
		DocumentSize: &doc.Size,
		DocumentType: &contentType,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.afterSend(ctx, room, sender, msg, text)
	return msg, nil
}

func (s *chatService) ListMessages(ctx context.Context, roomID, userID uuid.UUID, limit, offset int) ([]model.ChatMessage, int64, error) {
	if _, err := s.findMemberRoom(ctx, roomID, userID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, total, err := s.repo.FindMessages(ctx, roomID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	// Pages are fetched newest first; callers render oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	// Fetching a page counts as reading it.
	if _, err := s.MarkMessagesRead(ctx, roomID, userID); err != nil {
		log.Printf("failed to mark messages read in room %s: %v", roomID, err)
	}
	return messages, total, nil
}

func (s *chatService) MarkMessagesRead(ctx context.Context, roomID, userID uuid.UUID) (int64, error) {
	room, err := s.findMemberRoom(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}

	count, err := s.repo.MarkMessagesRead(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}

	if userID == room.TeacherID {
		room.UnreadCountTeacher = 0
	} else {
		room.UnreadCountStudent = 0
	}
	if err := s.repo.UpdateRoom(ctx, room); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *chatService) DeleteMessage(ctx context.Context, messageID, userID uuid.UUID) error {
	message, err := s.repo.FindMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	if message.SenderID != userID {
		return fmt.Errorf("%w: you can only delete your own messages", apperror.ErrForbidden)
	}

	if message.DocumentURL != nil && s.blobStorage != nil {
		if err := s.blobStorage.Delete(ctx, *message.DocumentURL); err != nil {
			log.Printf("failed to delete chat document from storage: %v", err)
		}
	}

	return s.repo.DeleteMessage(ctx, messageID)
}

func (s *chatService) findMemberRoom(ctx context.Context, roomID, userID uuid.UUID) (*model.ChatRoom, error) {
	room, err := s.repo.FindRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, fmt.Errorf("%w: you are not a member of this room", apperror.ErrForbidden)
	}
	return room, nil
}

func (s *chatService) checkSendRateLimit(ctx context.Context, userID uuid.UUID) error {
	if s.redisClient == nil {
		return nil
	}
	allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, userID, "send_message", s.rateLimit)
	if err != nil {
		log.Printf("rate limit check failed, allowing message: %v", err)
		return nil
	}
	if !allowed {
		return fmt.Errorf("%w: you are sending messages too quickly", apperror.ErrRateLimitExceeded)
	}
	return nil
}

// afterSend updates the room preview and unread counters and fans the
// message out to websocket subscribers.
func (s *chatService) afterSend(ctx context.Context, room *model.ChatRoom, sender *model.User, message *model.ChatMessage, text string) {
	preview := text
	if runes := []rune(preview); len(runes) > lastMessagePreviewLen {
		preview = string(runes[:lastMessagePreviewLen])
	}
	now := message.CreatedAt
	room.LastMessage = &preview
	room.LastMessageAt = &now

	if sender.ID == room.TeacherID {
		room.UnreadCountStudent++
	} else {
		room.UnreadCountTeacher++
	}

	if err := s.repo.UpdateRoom(ctx, room); err != nil {
		log.Printf("failed to update chat room after message: %v", err)
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(message)
		if err == nil {
			s.redisClient.Publish(ctx, ChatRoomChannel(room.ID), payload)
		}
	}
}
