package dto

import (
	"time"

	chatsvc "github.com/KhadijaXD/lostly/internal/app/services/chat"
)

type Sender struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatMessage is a stored message with its sender's display name.
type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

type ChatParticipant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type ChatRoom struct {
	ID           string            `json:"id"`
	ItemID       string            `json:"itemId"`
	ClaimID      string            `json:"claimId"`
	Participants []ChatParticipant `json:"participants"`
	Messages     []ChatMessage     `json:"messages"`
	IsActive     bool              `json:"isActive"`
	LastActivity time.Time         `json:"lastActivity"`
}

type ChatSummary struct {
	ID           string            `json:"id"`
	ItemID       string            `json:"itemId"`
	ItemName     string            `json:"itemName,omitempty"`
	ItemType     string            `json:"itemType,omitempty"`
	ClaimID      string            `json:"claimId"`
	Participants []ChatParticipant `json:"participants"`
	LastMessage  *ChatMessage      `json:"lastMessage,omitempty"`
	UnreadCount  int               `json:"unreadCount"`
	LastActivity time.Time         `json:"lastActivity"`
}

func MapChatMessage(m chatsvc.MessageView) ChatMessage {
	return ChatMessage{
		ID:        m.ID,
		Sender:    Sender{ID: m.SenderID, Name: m.SenderName},
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Read:      m.Read,
	}
}

func MapChatRoom(room *chatsvc.RoomView) ChatRoom {
	if room == nil {
		return ChatRoom{}
	}
	out := ChatRoom{
		ID:           room.ID,
		ItemID:       room.ItemID,
		ClaimID:      room.ClaimID,
		Participants: mapParticipants(room.Participants),
		Messages:     make([]ChatMessage, 0, len(room.Messages)),
		IsActive:     room.Active,
		LastActivity: room.LastActivity,
	}
	for _, m := range room.Messages {
		out.Messages = append(out.Messages, MapChatMessage(m))
	}
	return out
}

func MapChatSummaries(rooms []chatsvc.RoomSummary) []ChatSummary {
	out := make([]ChatSummary, 0, len(rooms))
	for _, r := range rooms {
		s := ChatSummary{
			ID:           r.ID,
			ItemID:       r.ItemID,
			ItemName:     r.ItemName,
			ItemType:     r.ItemType,
			ClaimID:      r.ClaimID,
			Participants: mapParticipants(r.Participants),
			UnreadCount:  r.Unread,
			LastActivity: r.LastActivity,
		}
		if r.LastMessage != nil {
			last := MapChatMessage(*r.LastMessage)
			s.LastMessage = &last
		}
		out = append(out, s)
	}
	return out
}

func mapParticipants(ps []chatsvc.Participant) []ChatParticipant {
	out := make([]ChatParticipant, 0, len(ps))
	for _, p := range ps {
		out = append(out, ChatParticipant{ID: p.ID, Name: p.Name, Email: p.Email})
	}
	return out
}
