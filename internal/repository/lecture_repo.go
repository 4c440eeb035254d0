package repository

import (
	"context"
	"time"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LectureFilter narrows lecture listings.
type LectureFilter struct {
	TeacherID *uuid.UUID
	Subject   string
	Limit     int
	Offset    int
}

// ProcessingCounts summarizes how far the background processor has gotten.
type ProcessingCounts struct {
	Total       int64 `json:"total_lectures"`
	Processed   int64 `json:"processed_lectures"`
	Unprocessed int64 `json:"unprocessed_lectures"`
}

type LectureRepository interface {
	Create(ctx context.Context, lecture *model.Lecture) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Lecture, error)
	Find(ctx context.Context, filter LectureFilter) ([]model.Lecture, int64, error)
	Update(ctx context.Context, lecture *model.Lecture) error
	Delete(ctx context.Context, id uuid.UUID) error

	// FindUnprocessed returns lectures with audio that the processor has not
	// handled yet, oldest first.
	FindUnprocessed(ctx context.Context, limit int) ([]model.Lecture, error)
	// FindStaleUnprocessed returns unprocessed lectures untouched since cutoff.
	FindStaleUnprocessed(ctx context.Context, cutoff time.Time) ([]model.Lecture, error)
	Counts(ctx context.Context) (ProcessingCounts, error)
}

type lectureRepository struct {
	db *gorm.DB
}

func NewLectureRepository(db *gorm.DB) LectureRepository {
	return &lectureRepository{db: db}
}

func (r *lectureRepository) Create(ctx context.Context, lecture *model.Lecture) error {
	return r.db.WithContext(ctx).Create(lecture).Error
}

func (r *lectureRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Lecture, error) {
	var lecture model.Lecture
	if err := r.db.WithContext(ctx).
		Preload("Teacher").
		First(&lecture, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lecture, nil
}

func (r *lectureRepository) Find(ctx context.Context, filter LectureFilter) ([]model.Lecture, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Lecture{})

	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}
	if filter.Subject != "" {
		query = query.Where("subject ILIKE ?", "%"+filter.Subject+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var lectures []model.Lecture
	err := query.
		Preload("Teacher").
		Order("created_at desc").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&lectures).Error
	return lectures, total, err
}

func (r *lectureRepository) Update(ctx context.Context, lecture *model.Lecture) error {
	return r.db.WithContext(ctx).Save(lecture).Error
}

func (r *lectureRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lecture_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Lecture{}, "id = ?", id).Error
	})
}

func (r *lectureRepository) FindUnprocessed(ctx context.Context, limit int) ([]model.Lecture, error) {
	var lectures []model.Lecture
	err := r.db.WithContext(ctx).
		Where("audio_url IS NOT NULL AND is_processed = ?", false).
		Order("created_at asc").
		Limit(limit).
		Find(&lectures).Error
	return lectures, err
}

func (r *lectureRepository) FindStaleUnprocessed(ctx context.Context, cutoff time.Time) ([]model.Lecture, error) {
	var lectures []model.Lecture
	err := r.db.WithContext(ctx).
		Where("audio_url IS NOT NULL AND is_processed = ? AND updated_at < ?", false, cutoff).
		Order("created_at asc").
		Find(&lectures).Error
	return lectures, err
}

func (r *lectureRepository) Counts(ctx context.Context) (ProcessingCounts, error) {
	var counts ProcessingCounts
	db := r.db.WithContext(ctx).Model(&model.Lecture{})

	if err := db.Count(&counts.Total).Error; err != nil {
		return counts, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Lecture{}).
		Where("is_processed = ?", true).
		Count(&counts.Processed).Error; err != nil {
		return counts, err
	}
	err := r.db.WithContext(ctx).Model(&model.Lecture{}).
		Where("audio_url IS NOT NULL AND is_processed = ?", false).
		Count(&counts.Unprocessed).Error
	return counts, err
}
