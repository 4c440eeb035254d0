package middleware

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequireAuth validates the JWT and loads the current user into the context.
// The token comes from the Authorization header, or from a ?token= query
// parameter for websocket upgrades where custom headers are unavailable.
func RequireAuth(userRepo repository.UserRepository) gin.HandlerFunc {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-key-change-in-production"
	}

	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.ResponseError(c, fmt.Errorf("%w: missing authorization token", apperror.ErrUnauthorized))
			c.Abort()
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.ResponseError(c, fmt.Errorf("%w: invalid or expired token", apperror.ErrUnauthorized))
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			response.ResponseError(c, fmt.Errorf("%w: invalid token subject", apperror.ErrUnauthorized))
			c.Abort()
			return
		}

		user, err := userRepo.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.ResponseError(c, fmt.Errorf("%w: user no longer exists", apperror.ErrUnauthorized))
			} else {
				response.ResponseError(c, err)
			}
			c.Abort()
			return
		}

		c.Set("user_id", user.ID.String())
		c.Set("current_user", user)
		c.Next()
	}
}

// RequireRole gates a route to users with the given role. Must run after
// RequireAuth.
func RequireRole(role model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.ResponseError(c, apperror.ErrUnauthorized)
			c.Abort()
			return
		}
		if user.Role != role {
			response.ResponseError(c, fmt.Errorf("%w: insufficient permissions", apperror.ErrForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by RequireAuth, or nil.
func CurrentUser(c *gin.Context) *model.User {
	value, exists := c.Get("current_user")
	if !exists {
		return nil
	}
	user, ok := value.(*model.User)
	if !ok {
		return nil
	}
	return user
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
