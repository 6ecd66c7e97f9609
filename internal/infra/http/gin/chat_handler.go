package ginserver

import (
	"context"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/KhadijaXD/lostly/internal/app/dto"
	chatsvc "github.com/KhadijaXD/lostly/internal/app/services/chat"
)

// ChatHTTP exposes chat endpoints.
type ChatHTTP interface {
	ListMine(c *gin.Context)
	Open(c *gin.Context)
	Get(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkRead(c *gin.Context)
}

// Broadcaster pushes REST-posted messages to the room's live connections.
type Broadcaster interface {
	BroadcastMessage(ctx context.Context, msg *chatsvc.MessageView)
}

type ChatHandler struct {
	Service     *chatsvc.Service
	Broadcaster Broadcaster
	Logger      *slog.Logger
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// ListMine returns the active rooms the caller participates in, most recent first.
func (h ChatHandler) ListMine(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	rooms, err := h.Service.ListRooms(c.Request.Context(), p.UserID())
	if err != nil {
		respondChatError(c, h.Logger, err, "list chats", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": dto.MapChatSummaries(rooms)})
}

// Open returns the room of an approved claim, creating it on first access.
func (h ChatHandler) Open(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	itemID, claimID := c.Param("itemId"), c.Param("claimId")
	room, err := h.Service.GetOrCreateRoom(c.Request.Context(), itemID, claimID, p.UserID())
	if err != nil {
		respondChatError(c, h.Logger, err, "open chat", "item_id", itemID, "claim_id", claimID, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": dto.MapChatRoom(room)})
}

func (h ChatHandler) Get(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	chatID := c.Param("chatId")
	room, err := h.Service.GetRoom(c.Request.Context(), chatID, p.UserID())
	if err != nil {
		respondChatError(c, h.Logger, err, "load chat", "chat_id", chatID, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": dto.MapChatRoom(room)})
}

func (h ChatHandler) SendMessage(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	chatID := c.Param("chatId")
	msg, err := h.Service.PostMessage(c.Request.Context(), chatsvc.PostMessageParams{
		RoomID:  chatID,
		Sender:  p.UserID(),
		Content: req.Content,
	})
	if err != nil {
		respondChatError(c, h.Logger, err, "send message", "chat_id", chatID, "user_id", p.ID)
		return
	}
	if h.Broadcaster != nil {
		h.Broadcaster.BroadcastMessage(c.Request.Context(), msg)
	}
	c.JSON(http.StatusCreated, gin.H{"message": dto.MapChatMessage(*msg)})
}

// MarkRead flips the counterpart's messages to read. It does not notify live connections.
func (h ChatHandler) MarkRead(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	chatID := c.Param("chatId")
	updated, err := h.Service.MarkRead(c.Request.Context(), chatID, p.UserID())
	if err != nil {
		respondChatError(c, h.Logger, err, "mark read", "chat_id", chatID, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

func respondChatError(c *gin.Context, logger *slog.Logger, err error, op string, attrs ...any) {
	status := http.StatusInternalServerError
	switch chatsvc.KindOf(err) {
	case chatsvc.KindNotFound:
		status = http.StatusNotFound
	case chatsvc.KindForbidden:
		status = http.StatusForbidden
	case chatsvc.KindInvalidArgument:
		status = http.StatusBadRequest
	case chatsvc.KindConflict:
		status = http.StatusConflict
	}
	if logger != nil {
		args := append([]any{"op", op, "error", err}, attrs...)
		if status == http.StatusInternalServerError {
			logger.Error("chat operation failed", args...)
		} else {
			logger.Debug("chat operation rejected", args...)
		}
	}
	c.JSON(status, gin.H{"error": chatsvc.PublicMessage(err)})
}
