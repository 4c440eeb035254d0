package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var allowedAudioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

type CreateLectureInput struct {
	Title   string   `json:"title" binding:"required,max=200"`
	Subject string   `json:"subject" binding:"required,max=100"`
	Tags    []string `json:"tags"`
}

type UpdateLectureInput struct {
	Title       *string   `json:"title"`
	Subject     *string   `json:"subject"`
	Tags        *[]string `json:"tags"`
	Summary     *string   `json:"summary"`
	IsProcessed *bool     `json:"is_processed"`
}

// AudioFile is an uploaded lecture recording.
type AudioFile struct {
	Reader   io.Reader
	FileName string
	Duration *int
}

type LectureService interface {
	CreateLecture(ctx context.Context, teacherID uuid.UUID, input CreateLectureInput) (*model.Lecture, error)
	GetLecture(ctx context.Context, id uuid.UUID) (*model.Lecture, error)
	ListLectures(ctx context.Context, filter repository.LectureFilter) ([]model.Lecture, int64, error)
	UpdateLecture(ctx context.Context, id, userID uuid.UUID, input UpdateLectureInput) (*model.Lecture, error)
	DeleteLecture(ctx context.Context, id, userID uuid.UUID) error
	UploadAudio(ctx context.Context, id, userID uuid.UUID, audio AudioFile) (*model.Lecture, error)
	SearchLectures(ctx context.Context, query string, limit int) ([]LectureDoc, error)
}

type lectureService struct {
	repo            repository.LectureRepository
	userRepo        repository.UserRepository
	notificationSvc NotificationService
	searchSvc       SearchService
	blobStorage     storage.BlobStorage
}

func NewLectureService(
	repo repository.LectureRepository,
	userRepo repository.UserRepository,
	notificationSvc NotificationService,
	searchSvc SearchService,
	blobStorage storage.BlobStorage,
) LectureService {
	return &lectureService{
		repo:            repo,
		userRepo:        userRepo,
		notificationSvc: notificationSvc,
		searchSvc:       searchSvc,
		blobStorage:     blobStorage,
	}
}

func (s *lectureService) CreateLecture(ctx context.Context, teacherID uuid.UUID, input CreateLectureInput) (*model.Lecture, error) {
	teacher, err := s.userRepo.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if teacher.Role != model.RoleTeacher {
		return nil, fmt.Errorf("%w: only teachers can create lectures", apperror.ErrForbidden)
	}

	lecture := &model.Lecture{
		Title:     strings.TrimSpace(input.Title),
		Subject:   strings.TrimSpace(input.Subject),
		TeacherID: teacherID,
		Tags:      input.Tags,
	}

	if err := s.repo.Create(ctx, lecture); err != nil {
		return nil, err
	}

	s.syncSearchIndex(ctx, lecture)
	return lecture, nil
}

func (s *lectureService) GetLecture(ctx context.Context, id uuid.UUID) (*model.Lecture, error) {
	lecture, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return lecture, nil
}

func (s *lectureService) ListLectures(ctx context.Context, filter repository.LectureFilter) ([]model.Lecture, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.Find(ctx, filter)
}

func (s *lectureService) UpdateLecture(ctx context.Context, id, userID uuid.UUID, input UpdateLectureInput) (*model.Lecture, error) {
	lecture, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if lecture.TeacherID != userID {
		return nil, fmt.Errorf("%w: you do not own this lecture", apperror.ErrForbidden)
	}

	if input.Title != nil && *input.Title != "" {
		lecture.Title = strings.TrimSpace(*input.Title)
	}
	if input.Subject != nil && *input.Subject != "" {
		lecture.Subject = strings.TrimSpace(*input.Subject)
	}
	if input.Tags != nil {
		lecture.Tags = *input.Tags
	}
	if input.Summary != nil {
		lecture.Summary = input.Summary
	}
	if input.IsProcessed != nil {
		lecture.IsProcessed = *input.IsProcessed
	}

	if err := s.repo.Update(ctx, lecture); err != nil {
		return nil, err
	}

	s.syncSearchIndex(ctx, lecture)
	return lecture, nil
}

func (s *lectureService) DeleteLecture(ctx context.Context, id, userID uuid.UUID) error {
	lecture, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}
	if lecture.TeacherID != userID {
		return fmt.Errorf("%w: you do not own this lecture", apperror.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if lecture.AudioURL != nil && s.blobStorage != nil {
		if err := s.blobStorage.Delete(ctx, *lecture.AudioURL); err != nil {
			log.Printf("failed to delete lecture audio from storage: %v", err)
		}
	}

	if s.searchSvc != nil {
		if err := s.searchSvc.DeleteLecture(ctx, id); err != nil {
			log.Printf("failed to remove lecture from search index: %v", err)
		}
	}
	return nil
}

func (s *lectureService) UploadAudio(ctx context.Context, id, userID uuid.UUID, audio AudioFile) (*model.Lecture, error) {
	if s.blobStorage == nil || !s.blobStorage.Available(ctx) {
		return nil, fmt.Errorf("%w: storage service not available", apperror.ErrServiceUnavailable)
	}

	ext := strings.ToLower(filepath.Ext(audio.FileName))
	if !allowedAudioExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported audio format, allowed: mp3, wav, m4a, flac, ogg", apperror.ErrInvalidInput)
	}

	lecture, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if lecture.TeacherID != userID {
		return nil, fmt.Errorf("%w: you do not own this lecture", apperror.ErrForbidden)
	}

	key := storage.AudioKey(id, audio.FileName)
	url, err := s.blobStorage.Upload(ctx, audio.Reader, key, storage.ContentTypeFor(audio.FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio: %w", err)
	}

	if lecture.AudioURL != nil {
		if err := s.blobStorage.Delete(ctx, *lecture.AudioURL); err != nil {
			log.Printf("failed to delete previous audio: %v", err)
		}
	}

	lecture.AudioURL = &url
	lecture.AudioDuration = audio.Duration
	// A fresh recording has to go through the pipeline again.
	lecture.IsProcessed = false

	if err := s.repo.Update(ctx, lecture); err != nil {
		return nil, err
	}

	s.notifyStudents(ctx, lecture)
	return lecture, nil
}

func (s *lectureService) SearchLectures(ctx context.Context, query string, limit int) ([]LectureDoc, error) {
	if s.searchSvc == nil {
		return nil, fmt.Errorf("%w: search service not available", apperror.ErrServiceUnavailable)
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.searchSvc.SearchLectures(ctx, query, limit)
}

func (s *lectureService) syncSearchIndex(ctx context.Context, lecture *model.Lecture) {
	if s.searchSvc == nil {
		return
	}
	if err := s.searchSvc.IndexLecture(ctx, lecture); err != nil {
		log.Printf("failed to index lecture %s: %v", lecture.ID, err)
	}
}

func (s *lectureService) notifyStudents(ctx context.Context, lecture *model.Lecture) {
	if s.notificationSvc == nil {
		return
	}

	students, err := s.userRepo.FindByRole(ctx, model.RoleStudent)
	if err != nil {
		log.Printf("failed to list students for lecture notification: %v", err)
		return
	}

	for _, student := range students {
		if !student.NotificationsEnabled {
			continue
		}
		err := s.notificationSvc.Create(ctx, &model.Notification{
			UserID:  student.ID,
			Type:    model.NotificationLectureUploaded,
			Title:   "New lecture available",
			Message: fmt.Sprintf("A new recording was uploaded for %q", lecture.Title),
			Data: map[string]any{
				"lecture_id": lecture.ID.String(),
				"subject":    lecture.Subject,
			},
		})
		if err != nil {
			log.Printf("failed to notify student %s: %v", student.ID, err)
		}
	}
}
