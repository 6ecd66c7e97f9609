package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/KhadijaXD/lostly/internal/domain/items"
	"github.com/KhadijaXD/lostly/internal/domain/shared/events"
	"github.com/KhadijaXD/lostly/internal/domain/user"
)

// MaxContentLength is counted in characters after trimming.
const MaxContentLength = 1000

var (
	ErrRoomIDRequired       = errors.New("chat: room id is required")
	ErrMessageIDRequired    = errors.New("chat: message id is required")
	ErrInvalidParticipants  = errors.New("chat: a room needs two distinct participants")
	ErrRoomNotFound         = errors.New("chat: room not found")
	ErrNotParticipant       = errors.New("chat: unauthorized access to this chat")
	ErrClaimNotApproved     = errors.New("chat: claim is not approved")
	ErrContentRequired      = errors.New("chat: content required")
	ErrContentTooLong       = errors.New("chat: content too long")
	ErrRoomInactive         = errors.New("chat: chat no longer active")
	ErrDuplicateRoom        = errors.New("chat: room already exists for item and claim")
	ErrConcurrentUpdate     = errors.New("chat: concurrent update")
	ErrParticipantsMismatch = errors.New("chat: participants do not match item and claim")
)

type RoomID string

type MessageID string

type Message struct {
	ID        MessageID
	Sender    user.ID
	Content   string
	Timestamp time.Time
	Read      bool
}

// Room is the conversation between an item owner and the claimant of one approved claim.
type Room struct {
	ID           RoomID
	ItemID       items.ID
	ClaimID      items.ClaimID
	Participants [2]user.ID
	Messages     []Message
	Active       bool
	LastActivity time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64

	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id RoomID) (*Room, error)
	ByItemClaim(ctx context.Context, itemID items.ID, claimID items.ClaimID) (*Room, error)
	// Create fails with ErrDuplicateRoom when the (item, claim) pair already has a room.
	Create(ctx context.Context, room *Room) error
	// Save fails with ErrConcurrentUpdate when the stored version moved on.
	Save(ctx context.Context, room *Room) error
	// ListActiveByParticipant returns rooms ordered by LastActivity, newest first.
	ListActiveByParticipant(ctx context.Context, participant user.ID) ([]*Room, error)
	ListByItem(ctx context.Context, itemID items.ID) ([]*Room, error)
}

type CreateParams struct {
	ID       RoomID
	ItemID   items.ID
	ClaimID  items.ClaimID
	Owner    user.ID
	Claimant user.ID
	Now      time.Time
}

// NewRoom opens a room with participants ordered owner first, claimant second.
func NewRoom(params CreateParams) (*Room, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrRoomIDRequired
	}
	if params.Owner == "" || params.Claimant == "" || params.Owner == params.Claimant {
		return nil, ErrInvalidParticipants
	}
	now := normalizeNow(params.Now)
	room := &Room{
		ID:           params.ID,
		ItemID:       params.ItemID,
		ClaimID:      params.ClaimID,
		Participants: [2]user.ID{params.Owner, params.Claimant},
		Active:       true,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	room.Record(RoomOpened{
		Base:     events.NewBase(EventRoomOpened, string(room.ID), now),
		ItemID:   string(room.ItemID),
		ClaimID:  string(room.ClaimID),
		Owner:    string(params.Owner),
		Claimant: string(params.Claimant),
	})
	return room, nil
}

// AuthorizeOpen checks that principal may hold a conversation about the claim on item
// and returns the approved claim.
func AuthorizeOpen(item *items.Item, claimID items.ClaimID, principal user.ID) (*items.Claim, error) {
	if item == nil {
		return nil, items.ErrItemNotFound
	}
	claim, ok := item.Claim(claimID)
	if !ok {
		return nil, items.ErrClaimNotFound
	}
	if principal == "" || (principal != item.PostedBy && principal != claim.User) {
		return nil, ErrNotParticipant
	}
	if !claim.IsApproved() {
		return nil, ErrClaimNotApproved
	}
	return claim, nil
}

// IsAuthorized reports whether id is one of the two participants.
func (r *Room) IsAuthorized(id user.ID) bool {
	if r == nil || id == "" {
		return false
	}
	return r.Participants[0] == id || r.Participants[1] == id
}

// Counterpart returns the participant that is not id.
func (r *Room) Counterpart(id user.ID) user.ID {
	if r.Participants[0] == id {
		return r.Participants[1]
	}
	return r.Participants[0]
}

// MatchesSource reports whether the room still agrees with its item and claim.
func (r *Room) MatchesSource(item *items.Item, claim *items.Claim) bool {
	if item == nil || claim == nil {
		return false
	}
	return r.ItemID == item.ID && r.ClaimID == claim.ID &&
		r.Participants[0] == item.PostedBy && r.Participants[1] == claim.User
}

type PostParams struct {
	ID      MessageID
	Sender  user.ID
	Content string
	Now     time.Time
}

// NormalizeContent trims raw message content and enforces the length bounds.
func NormalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", ErrContentRequired
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", ErrContentTooLong
	}
	return content, nil
}

// PostMessage validates content before authorization and activity, in that order.
func (r *Room) PostMessage(params PostParams) (Message, error) {
	content, err := NormalizeContent(params.Content)
	if err != nil {
		return Message{}, err
	}
	if !r.IsAuthorized(params.Sender) {
		return Message{}, ErrNotParticipant
	}
	if !r.Active {
		return Message{}, ErrRoomInactive
	}
	if strings.TrimSpace(string(params.ID)) == "" {
		return Message{}, ErrMessageIDRequired
	}
	now := normalizeNow(params.Now)
	if n := len(r.Messages); n > 0 && now.Before(r.Messages[n-1].Timestamp) {
		now = r.Messages[n-1].Timestamp
	}
	msg := Message{
		ID:        params.ID,
		Sender:    params.Sender,
		Content:   content,
		Timestamp: now,
	}
	r.Messages = append(r.Messages, msg)
	r.LastActivity = now
	r.UpdatedAt = now
	r.Record(MessagePosted{
		Base:      events.NewBase(EventMessagePosted, string(r.ID), now),
		MessageID: string(msg.ID),
		Sender:    string(msg.Sender),
	})
	return msg, nil
}

// MarkRead flags every message not sent by reader as read and returns how many changed.
func (r *Room) MarkRead(reader user.ID, now time.Time) (int, error) {
	if !r.IsAuthorized(reader) {
		return 0, ErrNotParticipant
	}
	changed := 0
	for i := range r.Messages {
		if r.Messages[i].Sender != reader && !r.Messages[i].Read {
			r.Messages[i].Read = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	now = normalizeNow(now)
	r.UpdatedAt = now
	r.Record(MessagesRead{
		Base:   events.NewBase(EventMessagesRead, string(r.ID), now),
		Reader: string(reader),
		Count:  changed,
	})
	return changed, nil
}

// Deactivate closes the room for new messages. It reports false when already inactive.
func (r *Room) Deactivate(now time.Time) bool {
	if !r.Active {
		return false
	}
	now = normalizeNow(now)
	r.Active = false
	r.UpdatedAt = now
	r.Record(RoomDeactivated{Base: events.NewBase(EventRoomDeactivated, string(r.ID), now)})
	return true
}

func (r *Room) UnreadFor(reader user.ID) int {
	n := 0
	for _, m := range r.Messages {
		if m.Sender != reader && !m.Read {
			n++
		}
	}
	return n
}

func (r *Room) LastMessage() (Message, bool) {
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

// Clone returns a deep copy without pending events.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	cp := &Room{
		ID:           r.ID,
		ItemID:       r.ItemID,
		ClaimID:      r.ClaimID,
		Participants: r.Participants,
		Active:       r.Active,
		LastActivity: r.LastActivity,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Version:      r.Version,
	}
	if len(r.Messages) > 0 {
		cp.Messages = make([]Message, len(r.Messages))
		copy(cp.Messages, r.Messages)
	}
	return cp
}

func normalizeNow(now time.Time) time.Time {
	if now.IsZero() {
		now = time.Now()
	}
	return now.UTC()
}
