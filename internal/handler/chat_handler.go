package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/classmate/classroom-assistant/internal/middleware"
	"github.com/classmate/classroom-assistant/internal/service"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/response"
	"github.com/classmate/classroom-assistant/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

type ChatHandler struct {
	service     service.ChatService
	redisClient *redis.Client
	upgrader    websocket.Upgrader
}

func NewChatHandler(service service.ChatService, redisClient *redis.Client) *ChatHandler {
	return &ChatHandler{
		service:     service,
		redisClient: redisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *ChatHandler) CreateRoom(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var input service.CreateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	room, err := h.service.CreateRoom(c.Request.Context(), user, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusCreated, gin.H{"data": room})
}

func (h *ChatHandler) ListRooms(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	rooms, err := h.service.ListRooms(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": rooms, "count": len(rooms)})
}

func (h *ChatHandler) GetRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid room id", apperror.ErrInvalidInput))
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	room, err := h.service.GetRoom(c.Request.Context(), roomID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": room})
}

func (h *ChatHandler) DeleteRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid room id", apperror.ErrInvalidInput))
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteRoom(c.Request.Context(), roomID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"message": "room deleted"})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid room id", apperror.ErrInvalidInput))
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var input service.SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	message, err := h.service.SendMessage(c.Request.Context(), roomID, user, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusCreated, gin.H{"data": message})
}

func (h *ChatHandler) SendDocument(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid room id", apperror.ErrInvalidInput))
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: document file is required", apperror.ErrInvalidInput))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: failed to open uploaded file", apperror.ErrInvalidInput))
		return
	}
	defer file.Close()

	message, err := h.service.SendDocument(c.Request.Context(), roomID, user, c.PostForm("message"), service.DocumentFile{
		Reader:   file,
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusCreated, gin.H{"data": message})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid room id", apperror.ErrInvalidInput))
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	messages, total, err := h.service.ListMessages(c.Request.Context(), roomID, userID,
		queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": messages, "total": total})
}

func (h *ChatHandler) MarkMessagesRead(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid room id", apperror.ErrInvalidInput))
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	count, err := h.service.MarkMessagesRead(c.Request.Context(), roomID, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"marked": count})
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid message id", apperror.ErrInvalidInput))
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), messageID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"message": "message deleted"})
}

// HandleWebSocket streams a room's messages to a connected member.
func (h *ChatHandler) HandleWebSocket(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid room id", apperror.ErrInvalidInput))
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	// Membership check before upgrading.
	if _, err := h.service.GetRoom(c.Request.Context(), roomID, userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	if h.redisClient == nil {
		response.ResponseError(c, fmt.Errorf("%w: live chat not available", apperror.ErrServiceUnavailable))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	pumpChannel(c, conn, h.redisClient, service.ChatRoomChannel(roomID))
}
