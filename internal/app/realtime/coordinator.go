package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	chatsvc "github.com/KhadijaXD/lostly/internal/app/services/chat"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

var (
	ErrSessionClosed = errors.New("realtime: session closed")
	errNotJoined     = errors.New("realtime: join the chat first")
	errBadFrame      = errors.New("realtime: malformed frame")
	errUnknownEvent  = errors.New("realtime: unknown event")
)

// Session is one authenticated connection. Send must not block.
type Session interface {
	ID() string
	UserID() domainuser.ID
	UserName() string
	Send(payload []byte) error
}

// ChatService is the subset of the chat service the coordinator drives.
type ChatService interface {
	Join(ctx context.Context, roomID string, principal domainuser.ID) (*chatsvc.JoinResult, error)
	PostMessage(ctx context.Context, params chatsvc.PostMessageParams) (*chatsvc.MessageView, error)
	MarkRead(ctx context.Context, roomID string, reader domainuser.ID) (int, error)
}

//go:generate mockgen -destination=mock/fanout.go -package=mock . Fanout

// Fanout relays room broadcasts and presence to other instances.
type Fanout interface {
	Publish(ctx context.Context, b Broadcast) error
	MarkOnline(ctx context.Context, roomID, userID string) error
	MarkOffline(ctx context.Context, roomID, userID string) error
	Online(ctx context.Context, roomID string) ([]string, error)
}

// Recorder receives connection and event counts.
type Recorder interface {
	ConnectionOpened()
	ConnectionClosed()
	EventHandled(event string, ok bool)
	MessagePosted(path string)
}

// Coordinator owns the room groups of this instance. Each session's frames are handled
// in order by the caller's read loop; different sessions run concurrently.
type Coordinator struct {
	Chats   ChatService
	Fanout  Fanout
	Metrics Recorder
	Logger  *slog.Logger

	rooms    *registry
	validate *validator.Validate
}

func NewCoordinator(chats ChatService, fanout Fanout, metrics Recorder, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		Chats:    chats,
		Fanout:   fanout,
		Metrics:  metrics,
		Logger:   logger,
		rooms:    newRegistry(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (c *Coordinator) Connect(s Session) {
	c.rooms.connect(s)
	if c.Metrics != nil {
		c.Metrics.ConnectionOpened()
	}
	c.Logger.Debug("realtime session connected", "session_id", s.ID(), "user_id", s.UserID())
}

// Disconnect drops the session from every room without notifying anyone.
func (c *Coordinator) Disconnect(ctx context.Context, s Session) {
	rooms := c.rooms.disconnect(s.ID())
	for _, roomID := range rooms {
		c.markOffline(ctx, roomID, s)
	}
	if c.Metrics != nil {
		c.Metrics.ConnectionClosed()
	}
	c.Logger.Debug("realtime session disconnected", "session_id", s.ID(), "rooms", len(rooms))
}

// Handle processes one inbound frame. Failures are reported to the sender only.
func (c *Coordinator) Handle(ctx context.Context, s Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		c.fail(s, "", errBadFrame)
		return
	}
	var err error
	switch env.Event {
	case EventJoin:
		err = c.join(ctx, s, env.Data)
	case EventLeave:
		err = c.leave(ctx, s, env.Data)
	case EventSendMessage:
		err = c.send(ctx, s, env.Data)
	case EventTypingStart:
		err = c.typing(ctx, s, env.Data, EventUserTyping)
	case EventTypingStop:
		err = c.typing(ctx, s, env.Data, EventStoppedTyping)
	case EventMarkRead:
		err = c.markRead(ctx, s, env.Data)
	default:
		err = errUnknownEvent
	}
	if err != nil {
		c.fail(s, env.Event, err)
	}
	if c.Metrics != nil {
		c.Metrics.EventHandled(env.Event, err == nil)
	}
}

func (c *Coordinator) join(ctx context.Context, s Session, data json.RawMessage) error {
	var req roomRequest
	if err := c.decode(data, &req); err != nil {
		return err
	}
	res, err := c.Chats.Join(ctx, req.ChatID, s.UserID())
	if err != nil {
		return err
	}
	added, connected := c.rooms.add(req.ChatID, s)
	if !connected {
		return ErrSessionClosed
	}
	if added && c.Fanout != nil {
		if err := c.Fanout.MarkOnline(ctx, req.ChatID, string(s.UserID())); err != nil {
			c.Logger.Warn("realtime presence update failed", "chat_id", req.ChatID, "error", err)
		}
	}
	if err := c.reply(s, outbound{Event: EventJoined, Data: joinedPayload{ChatID: req.ChatID, Online: c.online(ctx, req.ChatID)}}); err != nil {
		return err
	}
	if added {
		c.broadcast(ctx, req.ChatID, s.ID(), outbound{Event: EventUserOnline, Data: c.userPayload(req.ChatID, s)})
	}
	c.Logger.Info("realtime chat joined", "chat_id", req.ChatID, "user_id", s.UserID(), "marked_read", res.Marked)
	return nil
}

func (c *Coordinator) leave(ctx context.Context, s Session, data json.RawMessage) error {
	var req roomRequest
	if err := c.decode(data, &req); err != nil {
		return err
	}
	if !c.rooms.remove(req.ChatID, s.ID()) {
		return nil
	}
	c.markOffline(ctx, req.ChatID, s)
	c.broadcast(ctx, req.ChatID, s.ID(), outbound{Event: EventUserOffline, Data: c.userPayload(req.ChatID, s)})
	return nil
}

func (c *Coordinator) send(ctx context.Context, s Session, data json.RawMessage) error {
	var req sendRequest
	if err := c.decode(data, &req); err != nil {
		return err
	}
	msg, err := c.Chats.PostMessage(ctx, chatsvc.PostMessageParams{
		RoomID:  req.ChatID,
		Sender:  s.UserID(),
		Content: req.Content,
	})
	if err != nil {
		return err
	}
	if c.Metrics != nil {
		c.Metrics.MessagePosted("realtime")
	}
	frame := newMessageFrame(msg)
	// the sender may not have joined the room, so it is answered directly
	if err := c.reply(s, frame); err != nil {
		c.Logger.Debug("realtime echo failed", "session_id", s.ID(), "error", err)
	}
	c.broadcast(ctx, req.ChatID, s.ID(), frame)
	return nil
}

func (c *Coordinator) typing(ctx context.Context, s Session, data json.RawMessage, event string) error {
	var req roomRequest
	if err := c.decode(data, &req); err != nil {
		return err
	}
	if !c.rooms.isMember(req.ChatID, s.ID()) {
		return errNotJoined
	}
	c.broadcast(ctx, req.ChatID, s.ID(), outbound{Event: event, Data: c.userPayload(req.ChatID, s)})
	return nil
}

func (c *Coordinator) markRead(ctx context.Context, s Session, data json.RawMessage) error {
	var req roomRequest
	if err := c.decode(data, &req); err != nil {
		return err
	}
	if _, err := c.Chats.MarkRead(ctx, req.ChatID, s.UserID()); err != nil {
		return err
	}
	c.broadcast(ctx, req.ChatID, s.ID(), outbound{Event: EventMessagesRead, Data: c.userPayload(req.ChatID, s)})
	return nil
}

// BroadcastMessage pushes a message posted outside the socket path to the room.
func (c *Coordinator) BroadcastMessage(ctx context.Context, msg *chatsvc.MessageView) {
	if msg == nil {
		return
	}
	if c.Metrics != nil {
		c.Metrics.MessagePosted("rest")
	}
	c.broadcast(ctx, msg.RoomID, "", newMessageFrame(msg))
}

// Deliver hands a broadcast to the local members of its room.
func (c *Coordinator) Deliver(b Broadcast) {
	for _, member := range c.rooms.members(b.RoomID, b.ExcludeSession) {
		if err := member.Send(b.Payload); err != nil {
			c.Logger.Debug("realtime delivery failed", "session_id", member.ID(), "error", err)
		}
	}
}

// Members reports how many local sessions are joined to a room.
func (c *Coordinator) Members(roomID string) int {
	return len(c.rooms.members(roomID, ""))
}

// Connected reports how many sessions are attached to this instance.
func (c *Coordinator) Connected() int {
	return c.rooms.connected()
}

func (c *Coordinator) broadcast(ctx context.Context, roomID, exclude string, frame outbound) {
	payload, err := json.Marshal(frame)
	if err != nil {
		c.Logger.Error("realtime encode failed", "event", frame.Event, "error", err)
		return
	}
	b := Broadcast{RoomID: roomID, ExcludeSession: exclude, Payload: payload}
	c.Deliver(b)
	if c.Fanout == nil {
		return
	}
	if err := c.Fanout.Publish(ctx, b); err != nil {
		c.Logger.Warn("realtime fanout publish failed", "chat_id", roomID, "event", frame.Event, "error", err)
	}
}

func (c *Coordinator) reply(s Session, frame outbound) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.Send(payload)
}

func (c *Coordinator) fail(s Session, event string, err error) {
	msg := errorMessage(err)
	level := slog.LevelDebug
	if chatsvc.KindOf(err) == chatsvc.KindInternal && !isProtocolError(err) {
		level = slog.LevelError
	}
	c.Logger.Log(context.Background(), level, "realtime event failed", "event", event, "session_id", s.ID(), "error", err)
	if sendErr := c.reply(s, outbound{Event: EventError, Data: errorPayload{Message: msg}}); sendErr != nil {
		c.Logger.Debug("realtime error reply failed", "session_id", s.ID(), "error", sendErr)
	}
}

func (c *Coordinator) decode(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return errBadFrame
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errBadFrame
	}
	if err := c.validate.Struct(dst); err != nil {
		return chatsvc.ErrInvalidID
	}
	return nil
}

func (c *Coordinator) online(ctx context.Context, roomID string) []string {
	if c.Fanout != nil {
		users, err := c.Fanout.Online(ctx, roomID)
		if err == nil {
			return users
		}
		c.Logger.Warn("realtime presence lookup failed", "chat_id", roomID, "error", err)
	}
	return c.rooms.onlineUsers(roomID)
}

func (c *Coordinator) markOffline(ctx context.Context, roomID string, s Session) {
	if c.Fanout == nil {
		return
	}
	if err := c.Fanout.MarkOffline(ctx, roomID, string(s.UserID())); err != nil {
		c.Logger.Warn("realtime presence update failed", "chat_id", roomID, "error", err)
	}
}

func (c *Coordinator) userPayload(roomID string, s Session) userPayload {
	return userPayload{ChatID: roomID, UserID: string(s.UserID()), UserName: s.UserName()}
}

func isProtocolError(err error) bool {
	return errors.Is(err, errBadFrame) || errors.Is(err, errUnknownEvent) ||
		errors.Is(err, errNotJoined) || errors.Is(err, ErrSessionClosed)
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, errBadFrame):
		return "Malformed message"
	case errors.Is(err, errUnknownEvent):
		return "Unknown event"
	case errors.Is(err, errNotJoined):
		return "Join the chat first"
	case errors.Is(err, ErrSessionClosed):
		return "Connection closed"
	default:
		return chatsvc.PublicMessage(err)
	}
}
