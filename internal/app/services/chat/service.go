package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "github.com/KhadijaXD/lostly/internal/app/outbox"
	domainchat "github.com/KhadijaXD/lostly/internal/domain/chat"
	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

const defaultMaxAttempts = 8

// Service owns room lookup, creation and every room mutation. Writes to one room are
// serialized in-process and guarded by the repository version across processes.
type Service struct {
	Items       domainitems.Repository
	Rooms       domainchat.Repository
	Users       domainuser.Directory
	Outbox      appoutbox.Outbox
	Encoder     appoutbox.EventEncoder
	Now         func() time.Time
	NewID       func() string
	MaxAttempts int
	Logger      *slog.Logger

	roomLocks keyedMutex
	pairLocks keyedMutex
}

type PostMessageParams struct {
	RoomID  string
	Sender  domainuser.ID
	Content string
}

// JoinResult is what a realtime join needs: the room as the reader now sees it and
// how many messages flipped to read.
type JoinResult struct {
	Room        *RoomView
	Counterpart domainuser.ID
	Marked      int
}

// GetOrCreateRoom returns the room for an approved claim, creating it on first access.
func (s *Service) GetOrCreateRoom(ctx context.Context, itemID, claimID string, principal domainuser.ID) (*RoomView, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validateIDs(itemID, claimID); err != nil {
		return nil, err
	}
	item, err := s.Items.ByID(ctx, domainitems.ID(itemID))
	if err != nil {
		return nil, err
	}
	claim, err := domainchat.AuthorizeOpen(item, domainitems.ClaimID(claimID), principal)
	if err != nil {
		return nil, err
	}

	room, err := s.Rooms.ByItemClaim(ctx, item.ID, claim.ID)
	switch {
	case err == nil:
	case errors.Is(err, domainchat.ErrRoomNotFound):
		room, err = s.createRoom(ctx, item, claim)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if !room.IsAuthorized(principal) {
		return nil, domainchat.ErrNotParticipant
	}
	return s.profiles(ctx, room).room(room), nil
}

func (s *Service) createRoom(ctx context.Context, item *domainitems.Item, claim *domainitems.Claim) (*domainchat.Room, error) {
	unlock := s.pairLocks.Lock(string(item.ID) + "/" + string(claim.ID))
	defer unlock()

	if existing, err := s.Rooms.ByItemClaim(ctx, item.ID, claim.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domainchat.ErrRoomNotFound) {
		return nil, err
	}
	room, err := domainchat.NewRoom(domainchat.CreateParams{
		ID:       domainchat.RoomID(s.newID()),
		ItemID:   item.ID,
		ClaimID:  claim.ID,
		Owner:    item.PostedBy,
		Claimant: claim.User,
		Now:      s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Rooms.Create(ctx, room); err != nil {
		if errors.Is(err, domainchat.ErrDuplicateRoom) {
			// another instance won the race
			return s.Rooms.ByItemClaim(ctx, item.ID, claim.ID)
		}
		return nil, err
	}
	s.publish(ctx, room)
	s.logger().Info("chat room opened", "chat_id", room.ID, "item_id", item.ID, "claim_id", claim.ID)
	return room, nil
}

// LoadRoom returns a room the principal participates in after re-checking that its
// item and approved claim still exist.
func (s *Service) LoadRoom(ctx context.Context, roomID string, principal domainuser.ID) (*domainchat.Room, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validateIDs(roomID); err != nil {
		return nil, err
	}
	room, err := s.Rooms.ByID(ctx, domainchat.RoomID(roomID))
	if err != nil {
		return nil, err
	}
	if !room.IsAuthorized(principal) {
		return nil, domainchat.ErrNotParticipant
	}
	item, err := s.Items.ByID(ctx, room.ItemID)
	if err != nil {
		return nil, err
	}
	claim, ok := item.Claim(room.ClaimID)
	if !ok {
		return nil, domainitems.ErrClaimNotFound
	}
	if !claim.IsApproved() {
		return nil, domainchat.ErrClaimNotApproved
	}
	if !room.MatchesSource(item, claim) {
		return nil, domainchat.ErrParticipantsMismatch
	}
	return room, nil
}

func (s *Service) GetRoom(ctx context.Context, roomID string, principal domainuser.ID) (*RoomView, error) {
	room, err := s.LoadRoom(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}
	return s.profiles(ctx, room).room(room), nil
}

// Join validates a realtime subscription and marks the reader's unread messages.
func (s *Service) Join(ctx context.Context, roomID string, principal domainuser.ID) (*JoinResult, error) {
	room, err := s.LoadRoom(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}
	changed := 0
	room, err = s.mutate(ctx, room.ID, func(r *domainchat.Room) (bool, error) {
		n, err := r.MarkRead(principal, s.now())
		changed = n
		return n > 0, err
	})
	if err != nil {
		return nil, err
	}
	return &JoinResult{
		Room:        s.profiles(ctx, room).room(room),
		Counterpart: room.Counterpart(principal),
		Marked:      changed,
	}, nil
}

// PostMessage appends a message and returns it enriched with the sender's name.
func (s *Service) PostMessage(ctx context.Context, params PostMessageParams) (*MessageView, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if _, err := domainchat.NormalizeContent(params.Content); err != nil {
		return nil, err
	}
	if err := validateIDs(params.RoomID); err != nil {
		return nil, err
	}
	msgID := domainchat.MessageID(s.newID())
	var posted domainchat.Message
	room, err := s.mutate(ctx, domainchat.RoomID(params.RoomID), func(r *domainchat.Room) (bool, error) {
		msg, err := r.PostMessage(domainchat.PostParams{
			ID:      msgID,
			Sender:  params.Sender,
			Content: params.Content,
			Now:     s.now(),
		})
		posted = msg
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	view := s.profiles(ctx, room).message(room.ID, posted)
	s.logger().Debug("chat message posted", "chat_id", room.ID, "message_id", posted.ID, "sender", posted.Sender)
	return &view, nil
}

// MarkRead flags the counterpart's messages as read. It returns how many changed.
func (s *Service) MarkRead(ctx context.Context, roomID string, reader domainuser.ID) (int, error) {
	if err := s.ensureDependencies(); err != nil {
		return 0, err
	}
	if err := validateIDs(roomID); err != nil {
		return 0, err
	}
	changed := 0
	_, err := s.mutate(ctx, domainchat.RoomID(roomID), func(r *domainchat.Room) (bool, error) {
		n, err := r.MarkRead(reader, s.now())
		changed = n
		return n > 0, err
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// ListRooms returns the principal's active rooms, most recent activity first.
func (s *Service) ListRooms(ctx context.Context, principal domainuser.ID) ([]RoomSummary, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	rooms, err := s.Rooms.ListActiveByParticipant(ctx, principal)
	if err != nil {
		return nil, err
	}
	profiles := s.profiles(ctx, rooms...)
	itemCache := make(map[domainitems.ID]*domainitems.Item)
	out := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		item, ok := itemCache[room.ItemID]
		if !ok {
			item, err = s.Items.ByID(ctx, room.ItemID)
			if err != nil && !errors.Is(err, domainitems.ErrItemNotFound) {
				return nil, err
			}
			itemCache[room.ItemID] = item
		}
		out = append(out, profiles.summary(room, item, principal))
	}
	return out, nil
}

// Deactivate closes a room for new messages. It reports whether the room changed.
func (s *Service) Deactivate(ctx context.Context, roomID string) (bool, error) {
	if err := s.ensureDependencies(); err != nil {
		return false, err
	}
	if err := validateIDs(roomID); err != nil {
		return false, err
	}
	changed := false
	_, err := s.mutate(ctx, domainchat.RoomID(roomID), func(r *domainchat.Room) (bool, error) {
		changed = r.Deactivate(s.now())
		return changed, nil
	})
	if err != nil {
		return false, err
	}
	if changed {
		s.logger().Info("chat room deactivated", "chat_id", roomID)
	}
	return changed, nil
}

// DeactivateForItem closes every room attached to an item.
func (s *Service) DeactivateForItem(ctx context.Context, itemID domainitems.ID) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	rooms, err := s.Rooms.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		if _, err := s.Deactivate(ctx, string(room.ID)); err != nil {
			return fmt.Errorf("deactivate room %s: %w", room.ID, err)
		}
	}
	return nil
}

// mutate applies fn to the latest stored room and persists it, retrying on version
// conflicts. fn reports whether the room changed; unchanged rooms are not written.
func (s *Service) mutate(ctx context.Context, id domainchat.RoomID, fn func(*domainchat.Room) (bool, error)) (*domainchat.Room, error) {
	unlock := s.roomLocks.Lock(string(id))
	defer unlock()

	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		room, err := s.Rooms.ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		changed, err := fn(room)
		if err != nil {
			return nil, err
		}
		if !changed {
			return room, nil
		}
		err = s.Rooms.Save(ctx, room)
		if err == nil {
			s.publish(ctx, room)
			return room, nil
		}
		if !errors.Is(err, domainchat.ErrConcurrentUpdate) || attempt >= attempts {
			return nil, err
		}
		s.logger().Debug("chat room version conflict, retrying", "chat_id", id, "attempt", attempt)
	}
}

// publish moves recorded events to the outbox. The room state is already durable, so
// outbox failures are logged rather than surfaced.
func (s *Service) publish(ctx context.Context, room *domainchat.Room) {
	if err := appoutbox.Drain(ctx, s.Outbox, s.Encoder, room); err != nil {
		s.logger().Error("chat outbox write failed", "chat_id", room.ID, "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Items == nil:
		return errors.New("chat: item repository required")
	case s.Rooms == nil:
		return errors.New("chat: room repository required")
	default:
		return nil
	}
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if err := uuid.Validate(id); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}
