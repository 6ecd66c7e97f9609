package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/KhadijaXD/lostly/internal/app/realtime"
	authsvc "github.com/KhadijaXD/lostly/internal/app/services/auth"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

const (
	defaultPingInterval    = 25 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultMaxMessageBytes = 16 << 10
	sendBuffer             = 64
)

var errSlowConsumer = errors.New("ws: send buffer full")

// RealtimeHandler upgrades authenticated requests to WebSocket sessions driven by the
// coordinator. The token comes from the token query parameter or the bearer header.
type RealtimeHandler struct {
	Auth            *authsvc.Service
	Coordinator     *realtime.Coordinator
	AllowedOrigins  []string
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
	Logger          *slog.Logger
}

func (h RealtimeHandler) Serve(c *gin.Context) {
	if h.Auth == nil || h.Coordinator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime unavailable"})
		return
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = extractBearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		return
	}
	user, err := h.Auth.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, authsvc.ErrUnauthenticated) {
			h.logger().Error("realtime token resolution failed", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		return
	}
	c.Set("user_id", string(user.ID))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already replied
		h.logger().Debug("websocket upgrade failed", "error", err)
		return
	}

	s := newWSSession(conn, user)
	h.Coordinator.Connect(s)
	ctx := c.Request.Context()
	go h.writePump(s)
	h.readPump(ctx, s)
	s.close()
	h.Coordinator.Disconnect(context.WithoutCancel(ctx), s)
}

func (h RealtimeHandler) readPump(ctx context.Context, s *wsSession) {
	limit := h.MaxMessageBytes
	if limit <= 0 {
		limit = defaultMaxMessageBytes
	}
	wait := h.pingInterval() * 2
	s.conn.SetReadLimit(limit)
	_ = s.conn.SetReadDeadline(time.Now().Add(wait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		kind, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger().Debug("websocket read failed", "session_id", s.id, "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(wait))
		h.Coordinator.Handle(ctx, s, payload)
	}
}

func (h RealtimeHandler) writePump(s *wsSession) {
	ticker := time.NewTicker(h.pingInterval())
	defer ticker.Stop()
	defer s.conn.Close()
	timeout := h.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	for {
		select {
		case payload := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(timeout))
			return
		}
	}
}

func (h RealtimeHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.AllowedOrigins) == 0 || containsString(h.AllowedOrigins, "*") {
		return true
	}
	if containsString(h.AllowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

func (h RealtimeHandler) pingInterval() time.Duration {
	if h.PingInterval > 0 {
		return h.PingInterval
	}
	return defaultPingInterval
}

func (h RealtimeHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// wsSession queues outbound frames for the write pump. A session whose queue fills up
// is closed rather than allowed to stall room broadcasts.
type wsSession struct {
	id     string
	userID domainuser.ID
	name   string
	conn   *websocket.Conn
	out    chan []byte
	done   chan struct{}
	once   sync.Once
}

func newWSSession(conn *websocket.Conn, user *domainuser.User) *wsSession {
	return &wsSession{
		id:     uuid.NewString(),
		userID: user.ID,
		name:   user.Name,
		conn:   conn,
		out:    make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (s *wsSession) ID() string            { return s.id }
func (s *wsSession) UserID() domainuser.ID { return s.userID }
func (s *wsSession) UserName() string      { return s.name }

func (s *wsSession) Send(payload []byte) error {
	select {
	case <-s.done:
		return realtime.ErrSessionClosed
	default:
	}
	select {
	case s.out <- payload:
		return nil
	case <-s.done:
		return realtime.ErrSessionClosed
	default:
		s.close()
		return errSlowConsumer
	}
}

func (s *wsSession) close() {
	s.once.Do(func() {
		close(s.done)
		// unblock the reader when the writer gives up first
		_ = s.conn.SetReadDeadline(time.Now())
	})
}
