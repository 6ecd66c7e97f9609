package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/KhadijaXD/lostly/internal/app/dto"
	authsvc "github.com/KhadijaXD/lostly/internal/app/services/auth"
	chatsvc "github.com/KhadijaXD/lostly/internal/app/services/chat"
	itemsvc "github.com/KhadijaXD/lostly/internal/app/services/items"
)

type AdminHTTP interface {
	ListItems(c *gin.Context)
	DeleteItem(c *gin.Context)
	ListUsers(c *gin.Context)
	AssignRole(c *gin.Context)
	DecideClaim(c *gin.Context)
	DeactivateChat(c *gin.Context)
}

type AdminHandler struct {
	Items  *itemsvc.Service
	Users  *authsvc.Service
	Chats  *chatsvc.Service
	Logger *slog.Logger
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h AdminHandler) ListItems(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	items, err := h.Items.List(c.Request.Context(), itemsvc.ListParams{
		Type:            c.Query("type"),
		Category:        c.Query("category"),
		Status:          c.Query("status"),
		IncludeResolved: true,
	})
	if err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapItems(items))
}

func (h AdminHandler) DeleteItem(c *gin.Context) {
	p, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	if err := h.Items.Delete(c.Request.Context(), p.actor(), c.Param("id")); err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}

func (h AdminHandler) ListUsers(c *gin.Context) {
	if _, ok := requireRole(c, "admin"); !ok {
		return
	}
	users, err := h.Users.ListUsers(c.Request.Context())
	if err != nil {
		respondUserError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfiles(users))
}

func (h AdminHandler) AssignRole(c *gin.Context) {
	p, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	user, err := h.Users.AssignRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		respondUserError(c, h.Logger, err)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("admin changed role", "admin_id", p.ID, "user_id", user.ID, "role", user.Role)
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(user))
}

func (h AdminHandler) DecideClaim(c *gin.Context) {
	decideClaim(c, h.Items, h.Logger, true)
}

// DeactivateChat closes a room without granting the admin access to its messages.
func (h AdminHandler) DeactivateChat(c *gin.Context) {
	p, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	changed, err := h.Chats.Deactivate(c.Request.Context(), c.Param("chatId"))
	if err != nil {
		respondChatError(c, h.Logger, err, "deactivate chat", "chat_id", c.Param("chatId"), "admin_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "changed": changed})
}
