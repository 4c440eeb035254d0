package handler

import (
	"fmt"
	"net/http"

	"github.com/classmate/classroom-assistant/internal/processor"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProcessingHandler controls the background lecture pipeline.
type ProcessingHandler struct {
	processor   *processor.Processor
	lectureRepo repository.LectureRepository
}

func NewProcessingHandler(p *processor.Processor, lectureRepo repository.LectureRepository) *ProcessingHandler {
	return &ProcessingHandler{processor: p, lectureRepo: lectureRepo}
}

func (h *ProcessingHandler) GetStatus(c *gin.Context) {
	status, err := h.processor.GetStatus(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": status})
}

func (h *ProcessingHandler) Start(c *gin.Context) {
	if err := h.processor.Start(); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"message": "processing started"})
}

func (h *ProcessingHandler) Stop(c *gin.Context) {
	h.processor.Stop()
	response.ResponseOK(c, http.StatusOK, gin.H{"message": "processing stopped"})
}

func (h *ProcessingHandler) ProcessLecture(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid lecture id", apperror.ErrInvalidInput))
		return
	}

	lecture, err := h.processor.ProcessLectureByID(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": lecture})
}

func (h *ProcessingHandler) ListUnprocessed(c *gin.Context) {
	lectures, err := h.lectureRepo.FindUnprocessed(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": lectures, "count": len(lectures)})
}

func (h *ProcessingHandler) RetryFailed(c *gin.Context) {
	retried, err := h.processor.RetryFailed(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"retried": retried})
}
