package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"github.com/KhadijaXD/lostly/internal/infra/config"
	"github.com/KhadijaXD/lostly/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Items          ItemHTTP
	Claims         ClaimHTTP
	Admin          AdminHTTP
	Chat           ChatHTTP
	Realtime       gin.HandlerFunc
	Metrics        http.Handler
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine; NewServer wraps it for the process.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}
	if h.Realtime != nil {
		router.GET("/ws", h.Realtime)
	}

	api := router.Group("/api")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Items != nil {
		items := api.Group("/items")
		items.GET("", h.Items.List)
		items.POST("", h.Items.Create)
		items.GET("/:id", h.Items.Get)
		items.PATCH("/:id", h.Items.Update)
		items.DELETE("/:id", h.Items.Delete)
		items.POST("/:id/claim", h.Items.Claim)
		items.PATCH("/:id/report-found", h.Items.ReportFound)
		items.PATCH("/:id/claims/:claimId", h.Items.DecideClaim)
		items.PATCH("/:id/resolve", h.Items.Resolve)
	}
	if h.Claims != nil {
		claims := api.Group("/claims")
		claims.GET("/my-claims", h.Claims.MyClaims)
		claims.GET("/my-items-claims", h.Claims.MyItemsClaims)
		claims.PATCH("/:id/claims/:claimId", h.Claims.Decide)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.GET("/items", h.Admin.ListItems)
		admin.DELETE("/items/:id", h.Admin.DeleteItem)
		admin.GET("/users", h.Admin.ListUsers)
		admin.PATCH("/users/:id/role", h.Admin.AssignRole)
		admin.PATCH("/claims/:id/:claimId", h.Admin.DecideClaim)
		admin.PATCH("/chats/:chatId/deactivate", h.Admin.DeactivateChat)
	}
	if h.Chat != nil {
		chat := api.Group("/chat")
		chat.GET("/user", h.Chat.ListMine)
		chat.GET("/item/:itemId/claim/:claimId", h.Chat.Open)
		chat.GET("/:chatId", h.Chat.Get)
		chat.POST("/:chatId/messages", h.Chat.SendMessage)
		chat.PATCH("/:chatId/read", h.Chat.MarkRead)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || containsString(origins, "*") {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
