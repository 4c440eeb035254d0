package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/classmate/classroom-assistant/internal/model"
	"github.com/classmate/classroom-assistant/internal/repository"
	"github.com/classmate/classroom-assistant/internal/service"
	"github.com/classmate/classroom-assistant/pkg/apperror"
	"github.com/classmate/classroom-assistant/pkg/response"
	"github.com/classmate/classroom-assistant/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

type NotificationHandler struct {
	service     service.NotificationService
	redisClient *redis.Client
	upgrader    websocket.Upgrader
}

func NewNotificationHandler(service service.NotificationService, redisClient *redis.Client) *NotificationHandler {
	return &NotificationHandler{
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

type createNotificationRequest struct {
	UserID  uuid.UUID      `json:"user_id" binding:"required"`
	Type    string         `json:"type" binding:"required"`
	Title   string         `json:"title" binding:"required,max=200"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, validator.FormatValidationError(err)))
		return
	}

	notification := &model.Notification{
		UserID:  req.UserID,
		Type:    model.NotificationType(req.Type),
		Title:   req.Title,
		Message: req.Message,
		Data:    req.Data,
	}
	if err := h.service.Create(c.Request.Context(), notification); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusCreated, gin.H{"data": notification})
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	filter := repository.NotificationFilter{
		UserID: userID,
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	if unread := c.Query("unread"); unread == "true" {
		isRead := false
		filter.IsRead = &isRead
	}
	if typ := c.Query("type"); typ != "" {
		filter.Type = model.NotificationType(typ)
	}

	notifications, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"data": notifications, "total": total})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid notification id", apperror.ErrInvalidInput))
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"message": "notification marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"message": "all notifications marked as read"})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%w: invalid notification id", apperror.ErrInvalidInput))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.ResponseOK(c, http.StatusOK, gin.H{"message": "notification deleted"})
}

// HandleWebSocket upgrades the connection and forwards the user's redis
// notification channel to it until either side disconnects.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if h.redisClient == nil {
		response.ResponseError(c, fmt.Errorf("%w: live notifications not available", apperror.ErrServiceUnavailable))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	pumpChannel(c, conn, h.redisClient, service.NotificationChannel(userID))
}

// pumpChannel subscribes to a redis channel and forwards each payload to the
// websocket until the client disconnects or the request context ends.
func pumpChannel(c *gin.Context, conn *websocket.Conn, redisClient *redis.Client, channel string) {
	ctx := c.Request.Context()

	pubsub := redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("failed to subscribe to %s: %v", channel, err)
		return
	}

	messages := pubsub.Channel()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
