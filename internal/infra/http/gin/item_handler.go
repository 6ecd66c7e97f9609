package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/KhadijaXD/lostly/internal/app/dto"
	itemsvc "github.com/KhadijaXD/lostly/internal/app/services/items"
	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
)

type ItemHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	Claim(c *gin.Context)
	ReportFound(c *gin.Context)
	DecideClaim(c *gin.Context)
	Resolve(c *gin.Context)
}

type ItemHandler struct {
	Service *itemsvc.Service
	Logger  *slog.Logger
}

type itemRequest struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Image       string `json:"image"`
}

type claimRequest struct {
	Message          string `json:"message"`
	ContactNumber    string `json:"contactNumber"`
	Email            string `json:"email"`
	ProofDescription string `json:"proofDescription"`
	PurchaseLocation string `json:"purchaseLocation"`
	PurchaseDate     string `json:"purchaseDate"`
	UniqueFeatures   string `json:"uniqueFeatures"`
	AdditionalProof  string `json:"additionalProof"`
}

type reportFoundRequest struct {
	Message           string `json:"message"`
	ContactNumber     string `json:"contactNumber"`
	Email             string `json:"email"`
	LocationFound     string `json:"locationFound"`
	DateFound         string `json:"dateFound"`
	AdditionalDetails string `json:"additionalDetails"`
}

type decisionRequest struct {
	Status string `json:"status"`
}

var errInvalidDate = errors.New("invalid date")

func (h ItemHandler) List(c *gin.Context) {
	items, err := h.Service.List(c.Request.Context(), itemsvc.ListParams{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
		PostedBy: c.Query("postedBy"),
	})
	if err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapItems(items))
}

func (h ItemHandler) Get(c *gin.Context) {
	item, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapItem(item))
}

func (h ItemHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD or RFC 3339"})
		return
	}
	item, err := h.Service.Create(c.Request.Context(), p.actor(), itemsvc.CreateParams{
		Type:        req.Type,
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Location:    req.Location,
		Date:        date,
		Image:       req.Image,
	})
	if err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapItem(item))
}

func (h ItemHandler) Update(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD or RFC 3339"})
		return
	}
	item, err := h.Service.Update(c.Request.Context(), p.actor(), c.Param("id"), itemsvc.UpdateParams{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Location:    req.Location,
		Date:        date,
		Image:       req.Image,
	})
	if err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapItem(item))
}

func (h ItemHandler) Delete(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), p.actor(), c.Param("id")); err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}

func (h ItemHandler) Claim(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	purchased, err := parseDate(req.PurchaseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "purchaseDate must be YYYY-MM-DD or RFC 3339"})
		return
	}
	item, _, err := h.Service.FileClaim(c.Request.Context(), p.actor(), c.Param("id"), itemsvc.ClaimParams{
		Message: req.Message,
		Info: domainitems.ClaimantInfo{
			ContactNumber:    req.ContactNumber,
			Email:            req.Email,
			ProofDescription: req.ProofDescription,
			PurchaseLocation: req.PurchaseLocation,
			PurchaseDate:     purchased,
			UniqueFeatures:   req.UniqueFeatures,
			AdditionalProof:  req.AdditionalProof,
		},
	})
	if err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapItem(item))
}

func (h ItemHandler) ReportFound(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req reportFoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	found, err := parseDate(req.DateFound)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dateFound must be YYYY-MM-DD or RFC 3339"})
		return
	}
	item, err := h.Service.ReportFound(c.Request.Context(), p.actor(), c.Param("id"), itemsvc.ReportFoundParams{
		Message: req.Message,
		Info: domainitems.FinderInfo{
			ContactNumber:     req.ContactNumber,
			Email:             req.Email,
			LocationFound:     req.LocationFound,
			DateFound:         found,
			AdditionalDetails: req.AdditionalDetails,
		},
	})
	if err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapItem(item))
}

func (h ItemHandler) DecideClaim(c *gin.Context) {
	decideClaim(c, h.Service, h.Logger, false)
}

func (h ItemHandler) Resolve(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	item, err := h.Service.Resolve(c.Request.Context(), p.actor(), c.Param("id"))
	if err != nil {
		respondItemError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapItem(item))
}

// decideClaim serves the owner and admin decision routes, which differ only in surface.
func decideClaim(c *gin.Context, svc *itemsvc.Service, logger *slog.Logger, adminSurface bool) {
	role := ""
	if adminSurface {
		role = "admin"
	}
	p, ok := requireRole(c, role)
	if !ok {
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	item, err := svc.Decide(c.Request.Context(), p.actor(), c.Param("id"), c.Param("claimId"), req.Status, adminSurface)
	if err != nil {
		respondItemError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapItem(item))
}

func respondItemError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domainitems.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
	case errors.Is(err, domainitems.ErrClaimNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Claim not found"})
	case errors.Is(err, itemsvc.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
	case errors.Is(err, itemsvc.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
	case errors.Is(err, domainitems.ErrInvalidType),
		errors.Is(err, domainitems.ErrInvalidCategory),
		errors.Is(err, domainitems.ErrInvalidStatus),
		errors.Is(err, domainitems.ErrNameRequired),
		errors.Is(err, domainitems.ErrDescriptionRequired),
		errors.Is(err, domainitems.ErrLocationRequired),
		errors.Is(err, domainitems.ErrDateRequired),
		errors.Is(err, domainitems.ErrOwnClaim),
		errors.Is(err, domainitems.ErrInvalidDecision),
		errors.Is(err, domainitems.ErrItemClosed),
		errors.Is(err, domainitems.ErrNotReportable):
		c.JSON(http.StatusBadRequest, gin.H{"error": publicText(err)})
	case errors.Is(err, domainitems.ErrDuplicateClaim),
		errors.Is(err, domainitems.ErrClaimDecided),
		errors.Is(err, domainitems.ErrAlreadyClaimed),
		errors.Is(err, domainitems.ErrStatusRegression),
		errors.Is(err, domainitems.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": publicText(err)})
	default:
		if logger != nil {
			logger.Error("item operation failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// publicText strips the package prefix from a domain sentinel.
func publicText(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// parseDate accepts calendar dates and RFC 3339 timestamps. Empty input yields the zero time.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errInvalidDate
}
