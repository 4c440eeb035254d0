package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/classmate/classroom-assistant/internal/middleware"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/internal/service"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/response"
	"github.com/classmate/classroom-assistant/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LectureHandler struct {
	service service.LectureService
}

func NewLectureHandler(service service.LectureService) *LectureHandler {
	return &LectureHandler{service: service}
}

func (h *LectureHandler) CreateLecture(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input service.CreateLectureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	lecture, err := h.service.CreateLecture(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusCreated, gin.H{"data": lecture})
}

func (h *LectureHandler) GetLecture(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid lecture id", apperror.ErrInvalidInput))
		return
	}

	lecture, err := h.service.GetLecture(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": lecture})
}

func (h *LectureHandler) ListLectures(c *gin.Context) {
	filter := repository.LectureFilter{
		Subject: c.Query("subject"),
		Limit:   queryInt(c, "limit", 20),
		Offset:  queryInt(c, "offset", 0),
	}

	if teacherIDStr := c.Query("teacher_id"); teacherIDStr != "" {
		teacherID, err := uuid.Parse(teacherIDStr)
		if err != nil {
			response.ResponseError(c, fmt.Errorf("%w: invalid teacher_id", apperror.ErrInvalidInput))
			return
		}
		filter.TeacherID = &teacherID
	}

	lectures, total, err := h.service.ListLectures(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": lectures, "total": total})
}

func (h *LectureHandler) UpdateLecture(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid lecture id", apperror.ErrInvalidInput))
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input service.UpdateLectureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	lecture, err := h.service.UpdateLecture(c.Request.Context(), id, userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": lecture})
}

func (h *LectureHandler) DeleteLecture(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid lecture id", apperror.ErrInvalidInput))
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteLecture(c.Request.Context(), id, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"message": "lecture deleted"})
}

func (h *LectureHandler) UploadAudio(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid lecture id", apperror.ErrInvalidInput))
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: audio_file is required", apperror.ErrInvalidInput))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: failed to open uploaded file", apperror.ErrInvalidInput))
		return
	}
	defer file.Close()

	audio := service.AudioFile{
		Reader:   file,
		FileName: fileHeader.Filename,
	}
	if durationStr := c.PostForm("duration"); durationStr != "" {
		if duration, err := strconv.Atoi(durationStr); err == nil && duration > 0 {
			audio.Duration = &duration
		}
	}

	lecture, err := h.service.UploadAudio(c.Request.Context(), id, user.ID, audio)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": lecture})
}

func (h *LectureHandler) SearchLectures(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.ResponseError(c, fmt.Errorf("%w: query parameter q is required", apperror.ErrInvalidInput))
		return
	}

	results, err := h.service.SearchLectures(c.Request.Context(), query, queryInt(c, "limit", 20))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": results, "count": len(results)})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
