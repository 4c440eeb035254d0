package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required,min=8"`
	Name       string  `json:"name" binding:"required,max=100"`
	Role       string  `json:"role" binding:"required,oneof=teacher student"`
	StudentID  *string `json:"student_id"`
	Major      *string `json:"major"`
	Year       *string `json:"year"`
	Department *string `json:"department"`
	Bio        *string `json:"bio"`
	Phone      *string `json:"phone"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileInput struct {
	Name                 *string `json:"name"`
	StudentID            *string `json:"student_id"`
	Major                *string `json:"major"`
	Year                 *string `json:"year"`
	Department           *string `json:"department"`
	Bio                  *string `json:"bio"`
	Phone                *string `json:"phone"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	EmailNotifications   *bool   `json:"email_notifications"`
	DarkMode             *bool   `json:"dark_mode"`
}

// AvatarFile is an uploaded profile image.
type AvatarFile struct {
	Reader   io.Reader
	FileName string
}

type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *model.User `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResponse, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*model.User, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, avatar AvatarFile) (*model.User, error)
}

type authService struct {
	repo        repository.UserRepository
	blobStorage storage.BlobStorage
	secret      string
	tokenTTL    time.Duration
}

func NewAuthService(repo repository.UserRepository, blobStorage storage.BlobStorage) AuthService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-key-change-in-production"
	}

	ttl := time.Hour
	if ttlStr := os.Getenv("JWT_TTL_MINUTES"); ttlStr != "" {
		if minutes, err := strconv.Atoi(ttlStr); err == nil {
			ttl = time.Duration(minutes) * time.Minute
		}
	}

	return &authService{
		repo:        repo,
		blobStorage: blobStorage,
		secret:      secret,
		tokenTTL:    ttl,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	role := model.UserRole(input.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be teacher or student", apperror.ErrInvalidInput)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email is already registered", apperror.ErrBadRequest)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         input.Name,
		Role:         role,
		StudentID:    normalizeOptional(input.StudentID),
		Major:        normalizeOptional(input.Major),
		Year:         normalizeOptional(input.Year),
		Department:   normalizeOptional(input.Department),
		Bio:          normalizeOptional(input.Bio),
		Phone:        normalizeOptional(input.Phone),

		NotificationsEnabled: true,
		EmailNotifications:   true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperror.ErrUnauthorized)
	}

	return s.buildAuthResponse(user)
}

func (s *authService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if input.Name != nil && *input.Name != "" {
		user.Name = *input.Name
	}
	if input.StudentID != nil {
		user.StudentID = normalizeOptional(input.StudentID)
	}
	if input.Major != nil {
		user.Major = normalizeOptional(input.Major)
	}
	if input.Year != nil {
		user.Year = normalizeOptional(input.Year)
	}
	if input.Department != nil {
		user.Department = normalizeOptional(input.Department)
	}
	if input.Bio != nil {
		user.Bio = normalizeOptional(input.Bio)
	}
	if input.Phone != nil {
		user.Phone = normalizeOptional(input.Phone)
	}
	if input.NotificationsEnabled != nil {
		user.NotificationsEnabled = *input.NotificationsEnabled
	}
	if input.EmailNotifications != nil {
		user.EmailNotifications = *input.EmailNotifications
	}
	if input.DarkMode != nil {
		user.DarkMode = *input.DarkMode
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) UploadAvatar(ctx context.Context, userID uuid.UUID, avatar AvatarFile) (*model.User, error) {
	if s.blobStorage == nil {
		return nil, fmt.Errorf("%w: storage service not available", apperror.ErrServiceUnavailable)
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	key := storage.ProfileImageKey(userID, avatar.FileName)
	url, err := s.blobStorage.Upload(ctx, avatar.Reader, key, storage.ContentTypeFor(avatar.FileName))
	if err != nil {
		return nil, err
	}

	if user.AvatarURL != nil {
		// Best effort cleanup of the previous avatar.
		if err := s.blobStorage.Delete(ctx, *user.AvatarURL); err != nil {
			log.Printf("failed to delete old avatar: %v", err)
		}
	}

	user.AvatarURL = &url
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) buildAuthResponse(user *model.User) (*AuthResponse, error) {
	token, expiresIn, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""

	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		User:        user,
	}, nil
}

func (s *authService) generateToken(user *model.User) (string, int64, error) {
	expiresAt := time.Now().Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, int64(s.tokenTTL.Seconds()), nil
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
