package chat

import (
	"context"
	"time"

	domainchat "github.com/KhadijaXD/lostly/internal/domain/chat"
	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

const unknownUserName = "Unknown user"

type Participant struct {
	ID    string
	Name  string
	Email string
}

// MessageView is a stored message enriched with its sender's display name.
type MessageView struct {
	ID         string
	RoomID     string
	SenderID   string
	SenderName string
	Content    string
	Timestamp  time.Time
	Read       bool
}

type RoomView struct {
	ID           string
	ItemID       string
	ClaimID      string
	Participants []Participant
	Messages     []MessageView
	Active       bool
	LastActivity time.Time
}

// RoomSummary is one entry of the "my chats" listing.
type RoomSummary struct {
	ID           string
	ItemID       string
	ItemName     string
	ItemType     string
	ClaimID      string
	Participants []Participant
	LastMessage  *MessageView
	Unread       int
	LastActivity time.Time
}

type profileSet map[domainuser.ID]domainuser.Profile

func (s *Service) profiles(ctx context.Context, rooms ...*domainchat.Room) profileSet {
	seen := make(map[domainuser.ID]struct{})
	var ids []domainuser.ID
	for _, room := range rooms {
		for _, id := range room.Participants {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if s.Users == nil || len(ids) == 0 {
		return profileSet{}
	}
	out, err := s.Users.Profiles(ctx, ids)
	if err != nil {
		// enrichment failures degrade to unknown names
		s.logger().Warn("chat profile lookup failed", "error", err)
		return profileSet{}
	}
	return out
}

func (p profileSet) name(id domainuser.ID) string {
	if prof, ok := p[id]; ok && prof.Name != "" {
		return prof.Name
	}
	return unknownUserName
}

func (p profileSet) participants(room *domainchat.Room) []Participant {
	out := make([]Participant, 0, len(room.Participants))
	for _, id := range room.Participants {
		prof := p[id]
		out = append(out, Participant{ID: string(id), Name: p.name(id), Email: prof.Email})
	}
	return out
}

func (p profileSet) message(roomID domainchat.RoomID, m domainchat.Message) MessageView {
	return MessageView{
		ID:         string(m.ID),
		RoomID:     string(roomID),
		SenderID:   string(m.Sender),
		SenderName: p.name(m.Sender),
		Content:    m.Content,
		Timestamp:  m.Timestamp,
		Read:       m.Read,
	}
}

func (p profileSet) room(room *domainchat.Room) *RoomView {
	view := &RoomView{
		ID:           string(room.ID),
		ItemID:       string(room.ItemID),
		ClaimID:      string(room.ClaimID),
		Participants: p.participants(room),
		Messages:     make([]MessageView, 0, len(room.Messages)),
		Active:       room.Active,
		LastActivity: room.LastActivity,
	}
	for _, m := range room.Messages {
		view.Messages = append(view.Messages, p.message(room.ID, m))
	}
	return view
}

func (p profileSet) summary(room *domainchat.Room, item *domainitems.Item, viewer domainuser.ID) RoomSummary {
	out := RoomSummary{
		ID:           string(room.ID),
		ItemID:       string(room.ItemID),
		ClaimID:      string(room.ClaimID),
		Participants: p.participants(room),
		Unread:       room.UnreadFor(viewer),
		LastActivity: room.LastActivity,
	}
	if item != nil {
		out.ItemName = item.Name
		out.ItemType = string(item.Type)
	}
	if last, ok := room.LastMessage(); ok {
		view := p.message(room.ID, last)
		out.LastMessage = &view
	}
	return out
}
