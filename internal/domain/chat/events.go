package chat

import "github.com/KhadijaXD/lostly/internal/domain/shared/events"

const (
	EventRoomOpened      = "chat.room_opened"
	EventMessagePosted   = "chat.message_posted"
	EventMessagesRead    = "chat.messages_read"
	EventRoomDeactivated = "chat.room_deactivated"
)

type RoomOpened struct {
	events.Base
	ItemID   string `json:"item_id"`
	ClaimID  string `json:"claim_id"`
	Owner    string `json:"owner"`
	Claimant string `json:"claimant"`
}

type MessagePosted struct {
	events.Base
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
}

type MessagesRead struct {
	events.Base
	Reader string `json:"reader"`
	Count  int    `json:"count"`
}

type RoomDeactivated struct {
	events.Base
}
