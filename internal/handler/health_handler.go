package handler

import (
	"net/http"

	"github.com/classmate/classroom-assistant/internal/ai"
	"github.com/classmate/classroom-assistant/pkg/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db          *gorm.DB
	blobStorage storage.BlobStorage
	speech      *ai.SpeechClient
	llm         *ai.LLMClient
}

func NewHealthHandler(db *gorm.DB, blobStorage storage.BlobStorage, speech *ai.SpeechClient, llm *ai.LLMClient) *HealthHandler {
	return &HealthHandler{db: db, blobStorage: blobStorage, speech: speech, llm: llm}
}

// Check reports the health of the database and each external service. The
// endpoint answers 200 as long as the process is up; individual services
// report their own state.
func (h *HealthHandler) Check(c *gin.Context) {
	services := gin.H{
		"database":      h.databaseHealthy(),
		"storage":       h.blobStorage != nil && h.blobStorage.Available(c.Request.Context()),
		"transcription": h.speech != nil && h.speech.Available(),
		"llm":           h.llm != nil && h.llm.Available(),
	}

	status := "healthy"
	if !services["database"].(bool) {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"services": services,
	})
}

func (h *HealthHandler) databaseHealthy() bool {
	if h.db == nil {
		return false
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}
