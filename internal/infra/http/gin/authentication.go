package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	authsvc "github.com/KhadijaXD/lostly/internal/app/services/auth"
	itemsvc "github.com/KhadijaXD/lostly/internal/app/services/items"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

const principalContextKey = "lostly.principal"

type principal struct {
	ID            string
	Email         string
	Name          string
	Role          string
	Department    string
	ContactNumber string
	CreatedAt     time.Time
}

func (p principal) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	return role != "" && strings.EqualFold(p.Role, role)
}

func (p principal) UserID() domainuser.ID {
	return domainuser.ID(p.ID)
}

func (p principal) actor() itemsvc.Actor {
	return itemsvc.Actor{ID: domainuser.ID(p.ID), Role: domainuser.Role(p.Role)}
}

func (p principal) user() *domainuser.User {
	return &domainuser.User{
		ID:            domainuser.ID(p.ID),
		Email:         p.Email,
		Name:          p.Name,
		Role:          domainuser.Role(p.Role),
		Department:    p.Department,
		ContactNumber: p.ContactNumber,
		CreatedAt:     p.CreatedAt,
	}
}

func newPrincipal(user *domainuser.User) principal {
	return principal{
		ID:            string(user.ID),
		Email:         user.Email,
		Name:          user.Name,
		Role:          string(user.Role),
		Department:    user.Department,
		ContactNumber: user.ContactNumber,
		CreatedAt:     user.CreatedAt,
	}
}

// AuthMiddleware resolves the bearer token to the user's current record. Requests
// without a valid token continue anonymously; handlers decide whether that is allowed.
type AuthMiddleware struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	user, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, authsvc.ErrUnauthenticated) && m.Logger != nil {
			m.Logger.Warn("token resolution failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, newPrincipal(user))
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
	c.Set("user_id", p.ID)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireRole(c *gin.Context, role string) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please authenticate"})
		return principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
