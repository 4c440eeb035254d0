package handler

import (
	"fmt"
	"net/http"

	"github.com/classmate/classroom-assistant/internal/service"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/response"
	"github.com/classmate/classroom-assistant/pkg/validator"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service service.AuthService
}

func NewAuthHandler(service service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input service.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	result, err := h.service.Register(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusCreated, gin.H{"data": result})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input service.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	result, err := h.service.Login(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": result})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	user, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": user})
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input service.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": user})
}

func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: avatar file is required", apperror.ErrInvalidInput))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: failed to open uploaded file", apperror.ErrInvalidInput))
		return
	}
	defer file.Close()

	user, err := h.service.UploadAvatar(c.Request.Context(), userID, service.AvatarFile{
		Reader:   file,
		FileName: fileHeader.Filename,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": user})
}
