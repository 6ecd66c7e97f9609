package realtime

import (
	"encoding/json"
	"time"

	chatsvc "github.com/KhadijaXD/lostly/internal/app/services/chat"
)

// Inbound events.
const (
	EventJoin        = "join_chat"
	EventLeave       = "leave_chat"
	EventSendMessage = "send_message"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
	EventMarkRead    = "mark_as_read"
)

// Outbound events.
const (
	EventJoined        = "joined_chat"
	EventUserOnline    = "user_online"
	EventUserOffline   = "user_offline"
	EventNewMessage    = "new_message"
	EventUserTyping    = "user_typing"
	EventStoppedTyping = "user_stopped_typing"
	EventMessagesRead  = "messages_read"
	EventError         = "error"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type roomRequest struct {
	ChatID string `json:"chatId" validate:"required,uuid"`
}

type sendRequest struct {
	ChatID  string `json:"chatId" validate:"required,uuid"`
	Content string `json:"content"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	ChatID string   `json:"chatId"`
	Online []string `json:"online"`
}

type userPayload struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type senderPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type messagePayload struct {
	ID        string        `json:"id"`
	Sender    senderPayload `json:"sender"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Read      bool          `json:"read"`
}

type newMessagePayload struct {
	ChatID  string         `json:"chatId"`
	Message messagePayload `json:"message"`
}

func newMessageFrame(msg *chatsvc.MessageView) outbound {
	return outbound{
		Event: EventNewMessage,
		Data: newMessagePayload{
			ChatID: msg.RoomID,
			Message: messagePayload{
				ID:        msg.ID,
				Sender:    senderPayload{ID: msg.SenderID, Name: msg.SenderName},
				Content:   msg.Content,
				Timestamp: msg.Timestamp,
				Read:      msg.Read,
			},
		},
	}
}

// Broadcast is a frame addressed to every session joined to a room except one.
type Broadcast struct {
	RoomID         string          `json:"room_id"`
	ExcludeSession string          `json:"exclude_session,omitempty"`
	Payload        json.RawMessage `json:"payload"`
}
