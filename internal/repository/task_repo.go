package repository

import (
	"context"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskFilter narrows task listings. TeacherID restricts to tasks belonging to
// that teacher's lectures.
type TaskFilter struct {
	AssignedToID *uuid.UUID
	TeacherID    *uuid.UUID
	LectureID    *uuid.UUID
	Status       model.TaskStatus
	Priority     model.TaskPriority
	Limit        int
	Offset       int
}

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	CreateBatch(ctx context.Context, tasks []model.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Find(ctx context.Context, filter TaskFilter) ([]model.Task, int64, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) CreateBatch(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tasks).Error
}

func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).
		Preload("Lecture").
		Preload("AssignedTo").
		First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Find(ctx context.Context, filter TaskFilter) ([]model.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{})

	if filter.AssignedToID != nil {
		query = query.Where("assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.TeacherID != nil {
		query = query.Where(
			"lecture_id IN (?)",
			r.db.Model(&model.Lecture{}).Select("id").Where("teacher_id = ?", *filter.TeacherID),
		)
	}
	if filter.LectureID != nil {
		query = query.Where("lecture_id = ?", *filter.LectureID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []model.Task
	err := query.
		Preload("Lecture").
		Preload("AssignedTo").
		Order("created_at desc").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&tasks).Error
	return tasks, total, err
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id).Error
}
