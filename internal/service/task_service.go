package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateTaskInput struct {
	Title        string     `json:"title" binding:"required,max=200"`
	Description  string     `json:"description"`
	LectureID    *uuid.UUID `json:"lecture_id"`
	AssignedToID *uuid.UUID `json:"assigned_to_id"`
	Priority     string     `json:"priority" binding:"omitempty,oneof=high medium low"`
	DueDate      *time.Time `json:"due_date"`
}

type UpdateTaskInput struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Priority     *string    `json:"priority"`
	DueDate      *time.Time `json:"due_date"`
	Status       *string    `json:"status"`
	AssignedToID *uuid.UUID `json:"assigned_to_id"`
}

type TaskService interface {
	CreateTask(ctx context.Context, creator *model.User, input CreateTaskInput) (*model.Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error)
	ListTasks(ctx context.Context, filter repository.TaskFilter) ([]model.Task, int64, error)
	UpdateTask(ctx context.Context, id uuid.UUID, actor *model.User, input UpdateTaskInput) (*model.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID, actor *model.User) error
}

type taskService struct {
	repo            repository.TaskRepository
	lectureRepo     repository.LectureRepository
	userRepo        repository.UserRepository
	notificationSvc NotificationService
}

func NewTaskService(
	repo repository.TaskRepository,
	lectureRepo repository.LectureRepository,
	userRepo repository.UserRepository,
	notificationSvc NotificationService,
) TaskService {
	return &taskService{
		repo:            repo,
		lectureRepo:     lectureRepo,
		userRepo:        userRepo,
		notificationSvc: notificationSvc,
	}
}

func (s *taskService) CreateTask(ctx context.Context, creator *model.User, input CreateTaskInput) (*model.Task, error) {
	if creator.Role != model.RoleTeacher {
		return nil, fmt.Errorf("%w: only teachers can create tasks", apperror.ErrForbidden)
	}

	if input.LectureID != nil {
		lecture, err := s.lectureRepo.FindByID(ctx, *input.LectureID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: lecture not found", apperror.ErrNotFound)
			}
			return nil, err
		}
		if lecture.TeacherID != creator.ID {
			return nil, fmt.Errorf("%w: you do not own this lecture", apperror.ErrForbidden)
		}
	}

	if input.AssignedToID != nil {
		assignee, err := s.userRepo.FindByID(ctx, *input.AssignedToID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: assignee not found", apperror.ErrNotFound)
			}
			return nil, err
		}
		if assignee.Role != model.RoleStudent {
			return nil, fmt.Errorf("%w: tasks can only be assigned to students", apperror.ErrInvalidInput)
		}
	}

	priority := model.PriorityMedium
	if input.Priority != "" {
		priority = model.TaskPriority(input.Priority)
		if !priority.Valid() {
			return nil, fmt.Errorf("%w: priority must be high, medium or low", apperror.ErrInvalidInput)
		}
	}

	task := &model.Task{
		Title:        input.Title,
		Description:  input.Description,
		LectureID:    input.LectureID,
		AssignedToID: input.AssignedToID,
		Status:       model.TaskPending,
		Priority:     priority,
		DueDate:      input.DueDate,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	if input.AssignedToID != nil {
		s.notify(ctx, *input.AssignedToID, model.NotificationTaskAssigned,
			"New task assigned",
			fmt.Sprintf("You have been assigned: %s", task.Title),
			map[string]any{"task_id": task.ID.String()})
	}

	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *taskService) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]model.Task, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.Find(ctx, filter)
}

func (s *taskService) UpdateTask(ctx context.Context, id uuid.UUID, actor *model.User, input UpdateTaskInput) (*model.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if !s.canModify(task, actor) {
		return nil, fmt.Errorf("%w: you cannot modify this task", apperror.ErrForbidden)
	}

	if input.Status != nil {
		newStatus := model.TaskStatus(*input.Status)
		if !newStatus.Valid() {
			return nil, fmt.Errorf("%w: status must be pending, completed or approved", apperror.ErrInvalidInput)
		}
		if err := s.applyStatusTransition(ctx, task, actor, newStatus); err != nil {
			return nil, err
		}
	}

	if actor.Role == model.RoleTeacher {
		if input.Title != nil && *input.Title != "" {
			task.Title = *input.Title
		}
		if input.Description != nil {
			task.Description = *input.Description
		}
		if input.Priority != nil {
			priority := model.TaskPriority(*input.Priority)
			if !priority.Valid() {
				return nil, fmt.Errorf("%w: priority must be high, medium or low", apperror.ErrInvalidInput)
			}
			task.Priority = priority
		}
		if input.DueDate != nil {
			task.DueDate = input.DueDate
		}
		if input.AssignedToID != nil {
			assignee, err := s.userRepo.FindByID(ctx, *input.AssignedToID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, fmt.Errorf("%w: assignee not found", apperror.ErrNotFound)
				}
				return nil, err
			}
			if assignee.Role != model.RoleStudent {
				return nil, fmt.Errorf("%w: tasks can only be assigned to students", apperror.ErrInvalidInput)
			}
			task.AssignedToID = input.AssignedToID
		}
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) DeleteTask(ctx context.Context, id uuid.UUID, actor *model.User) error {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	if actor.Role != model.RoleTeacher {
		return fmt.Errorf("%w: only teachers can delete tasks", apperror.ErrForbidden)
	}
	if task.LectureID != nil {
		lecture, err := s.lectureRepo.FindByID(ctx, *task.LectureID)
		if err == nil && lecture.TeacherID != actor.ID {
			return fmt.Errorf("%w: you do not own this task", apperror.ErrForbidden)
		}
	}

	return s.repo.Delete(ctx, id)
}

// applyStatusTransition enforces who may move a task between states. Students
// mark their own tasks completed, teachers approve completed tasks or push a
// task back to pending.
func (s *taskService) applyStatusTransition(ctx context.Context, task *model.Task, actor *model.User, newStatus model.TaskStatus) error {
	if task.Status == newStatus {
		return nil
	}

	switch newStatus {
	case model.TaskCompleted:
		if actor.Role == model.RoleStudent {
			if task.AssignedToID == nil || *task.AssignedToID != actor.ID {
				return fmt.Errorf("%w: task is not assigned to you", apperror.ErrForbidden)
			}
		}
	case model.TaskApproved:
		if actor.Role != model.RoleTeacher {
			return fmt.Errorf("%w: only teachers can approve tasks", apperror.ErrForbidden)
		}
		if task.Status != model.TaskCompleted {
			return fmt.Errorf("%w: only completed tasks can be approved", apperror.ErrInvalidInput)
		}
	case model.TaskPending:
		if actor.Role != model.RoleTeacher {
			return fmt.Errorf("%w: only teachers can reopen tasks", apperror.ErrForbidden)
		}
	}

	task.Status = newStatus

	if newStatus == model.TaskApproved && task.AssignedToID != nil {
		s.notify(ctx, *task.AssignedToID, model.NotificationTaskApproved,
			"Task approved",
			fmt.Sprintf("Your task %q was approved", task.Title),
			map[string]any{"task_id": task.ID.String()})
	}
	return nil
}

func (s *taskService) canModify(task *model.Task, actor *model.User) bool {
	if actor.Role == model.RoleTeacher {
		return true
	}
	return task.AssignedToID != nil && *task.AssignedToID == actor.ID
}

func (s *taskService) notify(ctx context.Context, userID uuid.UUID, typ model.NotificationType, title, message string, data map[string]any) {
	if s.notificationSvc == nil {
		return
	}
	err := s.notificationSvc.Create(ctx, &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Data:    data,
	})
	if err != nil {
		log.Printf("failed to create %s notification: %v", typ, err)
	}
}
