package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService interface {
	ListUsers(ctx context.Context, role string) ([]model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) ListUsers(ctx context.Context, role string) ([]model.User, error) {
	var (
		users []model.User
		err   error
	)

	if role != "" {
		if !model.UserRole(role).Valid() {
			return nil, fmt.Errorf("%w: role must be teacher or student", apperror.ErrInvalidInput)
		}
		users, err = s.repo.FindByRole(ctx, model.UserRole(role))
	} else {
		users, err = s.repo.FindAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}
