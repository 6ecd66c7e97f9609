package memory

import (
	"context"
	"sort"
	"sync"

	domainchat "github.com/KhadijaXD/lostly/internal/domain/chat"
	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

type roomKey struct {
	item  domainitems.ID
	claim domainitems.ClaimID
}

// ChatRepository stores rooms in memory. The (item, claim) index is unique.
type ChatRepository struct {
	mu     sync.RWMutex
	rooms  map[domainchat.RoomID]*domainchat.Room
	byPair map[roomKey]domainchat.RoomID
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		rooms:  make(map[domainchat.RoomID]*domainchat.Room),
		byPair: make(map[roomKey]domainchat.RoomID),
	}
}

func (r *ChatRepository) ByID(ctx context.Context, id domainchat.RoomID) (*domainchat.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, domainchat.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (r *ChatRepository) ByItemClaim(ctx context.Context, itemID domainitems.ID, claimID domainitems.ClaimID) (*domainchat.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPair[roomKey{item: itemID, claim: claimID}]
	if !ok {
		return nil, domainchat.ErrRoomNotFound
	}
	return r.rooms[id].Clone(), nil
}

func (r *ChatRepository) Create(ctx context.Context, room *domainchat.Room) error {
	if room == nil || room.ID == "" {
		return domainchat.ErrRoomIDRequired
	}
	key := roomKey{item: room.ItemID, claim: room.ClaimID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPair[key]; ok {
		return domainchat.ErrDuplicateRoom
	}
	if _, ok := r.rooms[room.ID]; ok {
		return domainchat.ErrDuplicateRoom
	}
	stored := room.Clone()
	stored.Version = 1
	r.rooms[room.ID] = stored
	r.byPair[key] = room.ID
	room.Version = stored.Version
	return nil
}

func (r *ChatRepository) Save(ctx context.Context, room *domainchat.Room) error {
	if room == nil || room.ID == "" {
		return domainchat.ErrRoomIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.rooms[room.ID]
	if !ok || current.Version != room.Version {
		return domainchat.ErrConcurrentUpdate
	}
	stored := room.Clone()
	stored.Version = room.Version + 1
	r.rooms[room.ID] = stored
	room.Version = stored.Version
	return nil
}

func (r *ChatRepository) ListActiveByParticipant(ctx context.Context, participant domainuser.ID) ([]*domainchat.Room, error) {
	r.mu.RLock()
	var out []*domainchat.Room
	for _, room := range r.rooms {
		if room.Active && room.IsAuthorized(participant) {
			out = append(out, room.Clone())
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (r *ChatRepository) ListByItem(ctx context.Context, itemID domainitems.ID) ([]*domainchat.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainchat.Room
	for _, room := range r.rooms {
		if room.ItemID == itemID {
			out = append(out, room.Clone())
		}
	}
	return out, nil
}

var _ domainchat.Repository = (*ChatRepository)(nil)
