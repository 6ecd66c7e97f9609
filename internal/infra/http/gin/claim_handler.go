package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/KhadijaXD/lostly/internal/app/dto"
	itemsvc "github.com/KhadijaXD/lostly/internal/app/services/items"
)

type ClaimHTTP interface {
	MyClaims(c *gin.Context)
	MyItemsClaims(c *gin.Context)
	Decide(c *gin.Context)
}

type ClaimHandler struct {
	Service *itemsvc.Service
	Logger  *slog.Logger
}

func (h ClaimHandler) MyClaims(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	entries, err := h.Service.MyClaims(c.Request.Context(), p.actor())
	if err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapClaimEntries(entries))
}

func (h ClaimHandler) MyItemsClaims(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	items, err := h.Service.MyItemsClaims(c.Request.Context(), p.actor())
	if err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapItems(items))
}

func (h ClaimHandler) Decide(c *gin.Context) {
	decideClaim(c, h.Service, h.Logger, false)
}
