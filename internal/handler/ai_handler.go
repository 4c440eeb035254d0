package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/classmate/classroom-assistant/internal/ai"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/response"
	"github.com/classmate/classroom-assistant/pkg/validator"
	"github.com/gin-gonic/gin"
)

// AIHandler exposes the transcription and language model features directly,
// outside the background pipeline.
type AIHandler struct {
	speech *ai.SpeechClient
	llm    *ai.LLMClient
}

func NewAIHandler(speech *ai.SpeechClient, llm *ai.LLMClient) *AIHandler {
	return &AIHandler{speech: speech, llm: llm}
}

type transcribeRequest struct {
	AudioURL string `json:"audio_url" binding:"required,url"`
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

type quizRequest struct {
	Text         string `json:"text" binding:"required"`
	NumQuestions int    `json:"num_questions" binding:"omitempty,min=1,max=20"`
}

func (h *AIHandler) Transcribe(c *gin.Context) {
	if h.speech == nil || !h.speech.Available() {
		response.ResponseError(c, fmt.Errorf("%w: transcription service not available", apperror.ErrServiceUnavailable))
		return
	}

	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	transcript, err := h.speech.Transcribe(c.Request.Context(), req.AudioURL)
	if err != nil {
		log.Printf("transcription request failed: %v", err)
		response.ResponseError(c, fmt.Errorf("%w: failed to transcribe audio", apperror.ErrInternal))
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"transcript": transcript})
}

func (h *AIHandler) Summarize(c *gin.Context) {
	if !h.llmReady(c) {
		return
	}

	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	summary, err := h.llm.GenerateSummary(c.Request.Context(), req.Text)
	if err != nil {
		log.Printf("summary request failed: %v", err)
		response.ResponseError(c, fmt.Errorf("%w: failed to generate summary", apperror.ErrInternal))
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"summary": summary})
}

func (h *AIHandler) KeyPoints(c *gin.Context) {
	if !h.llmReady(c) {
		return
	}

	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	keyPoints, err := h.llm.ExtractKeyPoints(c.Request.Context(), req.Text)
	if err != nil {
		log.Printf("key point request failed: %v", err)
		response.ResponseError(c, fmt.Errorf("%w: failed to extract key points", apperror.ErrInternal))
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"key_points": keyPoints})
}

func (h *AIHandler) ExtractTasks(c *gin.Context) {
	if !h.llmReady(c) {
		return
	}

	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	tasks, err := h.llm.ExtractTasks(c.Request.Context(), req.Text)
	if err != nil {
		log.Printf("task extraction request failed: %v", err)
		response.ResponseError(c, fmt.Errorf("%w: failed to extract tasks", apperror.ErrInternal))
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"tasks": tasks})
}

func (h *AIHandler) GenerateQuiz(c *gin.Context) {
	if !h.llmReady(c) {
		return
	}

	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}
	if req.NumQuestions == 0 {
		req.NumQuestions = 5
	}

	questions, err := h.llm.GenerateQuiz(c.Request.Context(), req.Text, req.NumQuestions)
	if err != nil {
		log.Printf("quiz request failed: %v", err)
		response.ResponseError(c, fmt.Errorf("%w: failed to generate quiz", apperror.ErrInternal))
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"questions": questions})
}

func (h *AIHandler) llmReady(c *gin.Context) bool {
	if h.llm == nil || !h.llm.Available() {
		response.ResponseError(c, fmt.Errorf("%w: language model service not available", apperror.ErrServiceUnavailable))
		return false
	}
	return true
}
