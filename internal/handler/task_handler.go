package handler

import (
	"fmt"
	"net/http"

	"github.com/classmate/classroom-assistant/internal/middleware"
	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/internal/service"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/response"
	"github.com/classmate/classroom-assistant/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskHandler struct {
	service service.TaskService
}

func NewTaskHandler(service service.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var input service.CreateTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), user, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusCreated, gin.H{"data": task})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid task id", apperror.ErrInvalidInput))
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": task})
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	filter := repository.TaskFilter{
		Status:   model.TaskStatus(c.Query("status")),
		Priority: model.TaskPriority(c.Query("priority")),
		Limit:    queryInt(c, "limit", 20),
		Offset:   queryInt(c, "offset", 0),
	}

	// Students see their own tasks, teachers see tasks on their lectures.
	if user.Role == model.RoleStudent {
		filter.AssignedToID = &user.ID
	} else {
		filter.TeacherID = &user.ID
	}

	if lectureIDStr := c.Query("lecture_id"); lectureIDStr != "" {
		lectureID, err := uuid.Parse(lectureIDStr)
		if err != nil {
			response.ResponseError(c, fmt.Errorf("%w: invalid lecture_id", apperror.ErrInvalidInput))
			return
		}
		filter.LectureID = &lectureID
	}

	tasks, total, err := h.service.ListTasks(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": tasks, "total": total})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid task id", apperror.ErrInvalidInput))
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var input service.UpdateTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), id, user, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": task})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid task id", apperror.ErrInvalidInput))
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), id, user); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"message": "task deleted"})
}
