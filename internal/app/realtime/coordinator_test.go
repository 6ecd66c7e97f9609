package realtime_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"github.com/KhadijaXD/lostly/internal/app/realtime"
	"github.com/KhadijaXD/lostly/internal/app/realtime/mock"
	chatsvc "github.com/KhadijaXD/lostly/internal/app/services/chat"
	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
	"github.com/KhadijaXD/lostly/internal/infra/storage/memory"
)

type fakeSession struct {
	id     string
	userID domainuser.ID
	name   string

	mu     sync.Mutex
	frames []frame
	closed bool
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newSession(userID domainuser.ID, name string) *fakeSession {
	return &fakeSession{id: uuid.NewString(), userID: userID, name: name}
}

func (s *fakeSession) ID() string            { return s.id }
func (s *fakeSession) UserID() domainuser.ID { return s.userID }
func (s *fakeSession) UserName() string      { return s.name }
func (s *fakeSession) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return realtime.ErrSessionClosed
	}
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return err
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *fakeSession) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Event
	}
	return out
}

func (s *fakeSession) last() frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return frame{}
	}
	return s.frames[len(s.frames)-1]
}

func (s *fakeSession) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}

type fixture struct {
	chats    *chatsvc.Service
	roomID   string
	owner    domainuser.ID
	claimant domainuser.ID
	outsider domainuser.ID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	users := memory.NewUserRepository()
	itemsRepo := memory.NewItemRepository()

	f := fixture{
		owner:    domainuser.ID(uuid.NewString()),
		claimant: domainuser.ID(uuid.NewString()),
		outsider: domainuser.ID(uuid.NewString()),
	}
	for id, name := range map[domainuser.ID]string{f.owner: "Olivia", f.claimant: "Carl", f.outsider: "Mallory"} {
		u, err := domainuser.NewUser(domainuser.CreateParams{
			ID:            id,
			Email:         string(id) + "@campus.edu",
			Name:          name,
			PasswordHash:  "hash",
			Department:    "CS",
			ContactNumber: "555",
		})
		if err != nil {
			t.Fatalf("NewUser: %v", err)
		}
		if err := users.Save(ctx, u); err != nil {
			t.Fatalf("Save user: %v", err)
		}
	}

	item, err := domainitems.NewItem(domainitems.CreateParams{
		ID:          domainitems.ID(uuid.NewString()),
		Type:        domainitems.TypeLost,
		Name:        "Wallet",
		Category:    domainitems.CategoryAccessories,
		Description: "Brown leather",
		Location:    "Library",
		Date:        time.Now(),
		PostedBy:    f.owner,
	})
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	claimID := domainitems.ClaimID(uuid.NewString())
	if _, err := item.FileClaim(domainitems.FileClaimParams{ID: claimID, Claimant: f.claimant}); err != nil {
		t.Fatalf("FileClaim: %v", err)
	}
	if _, err := item.DecideClaim(domainitems.DecideParams{ClaimID: claimID, Decision: domainitems.ClaimApproved}); err != nil {
		t.Fatalf("DecideClaim: %v", err)
	}
	if err := itemsRepo.Save(ctx, item); err != nil {
		t.Fatalf("Save item: %v", err)
	}

	f.chats = &chatsvc.Service{
		Items: itemsRepo,
		Rooms: memory.NewChatRepository(),
		Users: users,
	}
	room, err := f.chats.GetOrCreateRoom(ctx, string(item.ID), string(claimID), f.owner)
	if err != nil {
		t.Fatalf("GetOrCreateRoom: %v", err)
	}
	f.roomID = room.ID
	return f
}

func send(t *testing.T, c *realtime.Coordinator, s *fakeSession, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	c.Handle(context.Background(), s, raw)
}

func errorText(t *testing.T, f frame) string {
	t.Helper()
	if f.Event != realtime.EventError {
		t.Fatalf("expected error frame, got %q", f.Event)
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return payload.Message
}

func TestJoinAcknowledgesAndAnnouncesPresence(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	claimant := newSession(f.claimant, "Carl")
	c.Connect(owner)
	c.Connect(claimant)

	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	send(t, c, claimant, realtime.EventJoin, map[string]string{"chatId": f.roomID})

	if got := claimant.last().Event; got != realtime.EventJoined {
		t.Fatalf("expected joined_chat for claimant, got %q", got)
	}
	if got := owner.last().Event; got != realtime.EventUserOnline {
		t.Fatalf("expected user_online for owner, got %q", got)
	}
	for _, ev := range claimant.events() {
		if ev == realtime.EventUserOnline {
			t.Fatal("joiner must not receive its own presence notice")
		}
	}
	if c.Members(f.roomID) != 2 {
		t.Fatalf("expected 2 members, got %d", c.Members(f.roomID))
	}
}

func TestRepeatedJoinAnnouncesOnce(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	claimant := newSession(f.claimant, "Carl")
	c.Connect(owner)
	c.Connect(claimant)
	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	owner.reset()

	send(t, c, claimant, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	send(t, c, claimant, realtime.EventJoin, map[string]string{"chatId": f.roomID})

	online := 0
	for _, ev := range owner.events() {
		if ev == realtime.EventUserOnline {
			online++
		}
	}
	if online != 1 {
		t.Fatalf("expected one user_online notice, got %d", online)
	}
	joined := 0
	for _, ev := range claimant.events() {
		if ev == realtime.EventJoined {
			joined++
		}
	}
	if joined != 2 {
		t.Fatalf("every join must be acknowledged, got %d acks", joined)
	}
	if c.Members(f.roomID) != 2 {
		t.Fatalf("expected 2 members, got %d", c.Members(f.roomID))
	}
}

func TestJoinRejectsOutsider(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	outsider := newSession(f.outsider, "Mallory")
	c.Connect(outsider)

	send(t, c, outsider, realtime.EventJoin, map[string]string{"chatId": f.roomID})

	if msg := errorText(t, outsider.last()); msg != "Unauthorized access to this chat" {
		t.Fatalf("unexpected error message %q", msg)
	}
	if c.Members(f.roomID) != 0 {
		t.Fatalf("expected outsider not to be registered")
	}
}

func TestJoinRejectsMalformedChatID(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	c.Connect(owner)

	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": "not-a-uuid"})
	if msg := errorText(t, owner.last()); msg != "Invalid id" {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestSendMessageDeliversOncePerSession(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	claimant := newSession(f.claimant, "Carl")
	c.Connect(owner)
	c.Connect(claimant)
	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	send(t, c, claimant, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	owner.reset()
	claimant.reset()

	send(t, c, claimant, realtime.EventSendMessage, map[string]string{"chatId": f.roomID, "content": "  is this mine?  "})

	for name, s := range map[string]*fakeSession{"owner": owner, "claimant": claimant} {
		evs := s.events()
		if len(evs) != 1 || evs[0] != realtime.EventNewMessage {
			t.Fatalf("%s: expected one new_message, got %v", name, evs)
		}
	}
	var payload struct {
		ChatID  string `json:"chatId"`
		Message struct {
			Sender struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"sender"`
			Content string `json:"content"`
			Read    bool   `json:"read"`
		} `json:"message"`
	}
	if err := json.Unmarshal(owner.last().Data, &payload); err != nil {
		t.Fatalf("decode new_message: %v", err)
	}
	if payload.ChatID != f.roomID || payload.Message.Content != "is this mine?" {
		t.Errorf("unexpected payload %+v", payload)
	}
	if payload.Message.Sender.Name != "Carl" || payload.Message.Sender.ID != string(f.claimant) {
		t.Errorf("expected sender Carl, got %+v", payload.Message.Sender)
	}
	if payload.Message.Read {
		t.Error("expected new message to be unread")
	}
}

func TestSendMessageErrorsStayWithCaller(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	claimant := newSession(f.claimant, "Carl")
	c.Connect(owner)
	c.Connect(claimant)
	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	send(t, c, claimant, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	owner.reset()
	claimant.reset()

	send(t, c, claimant, realtime.EventSendMessage, map[string]string{"chatId": f.roomID, "content": "   "})

	if msg := errorText(t, claimant.last()); msg != "Message content is required" {
		t.Fatalf("unexpected error %q", msg)
	}
	if evs := owner.events(); len(evs) != 0 {
		t.Fatalf("expected owner to receive nothing, got %v", evs)
	}
	if c.Members(f.roomID) != 2 {
		t.Fatal("errors must not drop the session from the room")
	}
}

func TestTypingRequiresJoin(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	claimant := newSession(f.claimant, "Carl")
	c.Connect(owner)
	c.Connect(claimant)
	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	owner.reset()

	send(t, c, claimant, realtime.EventTypingStart, map[string]string{"chatId": f.roomID})
	if msg := errorText(t, claimant.last()); msg != "Join the chat first" {
		t.Fatalf("unexpected error %q", msg)
	}
	if evs := owner.events(); len(evs) != 0 {
		t.Fatalf("expected no typing notice, got %v", evs)
	}

	send(t, c, claimant, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	owner.reset()
	send(t, c, claimant, realtime.EventTypingStart, map[string]string{"chatId": f.roomID})
	send(t, c, claimant, realtime.EventTypingStop, map[string]string{"chatId": f.roomID})
	got := owner.events()
	if len(got) != 2 || got[0] != realtime.EventUserTyping || got[1] != realtime.EventStoppedTyping {
		t.Fatalf("expected typing start/stop, got %v", got)
	}
}

func TestLeaveNotifiesAndDisconnectIsSilent(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	claimant := newSession(f.claimant, "Carl")
	c.Connect(owner)
	c.Connect(claimant)
	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	send(t, c, claimant, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	owner.reset()

	send(t, c, claimant, realtime.EventLeave, map[string]string{"chatId": f.roomID})
	if got := owner.last().Event; got != realtime.EventUserOffline {
		t.Fatalf("expected user_offline, got %q", got)
	}

	send(t, c, claimant, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	owner.reset()
	c.Disconnect(context.Background(), claimant)
	if evs := owner.events(); len(evs) != 0 {
		t.Fatalf("expected silent disconnect, got %v", evs)
	}
	if c.Members(f.roomID) != 1 {
		t.Fatalf("expected 1 member after disconnect, got %d", c.Members(f.roomID))
	}
}

func TestJoinAfterDisconnectIsNotRegistered(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	c.Connect(owner)
	c.Disconnect(context.Background(), owner)

	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	if c.Members(f.roomID) != 0 {
		t.Fatalf("closed session must not stay registered")
	}
}

func TestMarkReadNotifiesCounterpart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	claimant := newSession(f.claimant, "Carl")
	c.Connect(owner)
	c.Connect(claimant)
	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})

	if _, err := f.chats.PostMessage(ctx, chatsvc.PostMessageParams{RoomID: f.roomID, Sender: f.owner, Content: "hello"}); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	owner.reset()
	send(t, c, claimant, realtime.EventMarkRead, map[string]string{"chatId": f.roomID})
	if got := owner.last().Event; got != realtime.EventMessagesRead {
		t.Fatalf("expected messages_read, got %q", got)
	}
	room, err := f.chats.GetRoom(ctx, f.roomID, f.claimant)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if !room.Messages[0].Read {
		t.Fatal("expected message to be marked read")
	}
}

func TestUnknownEvent(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	c.Connect(owner)

	c.Handle(context.Background(), owner, []byte(`{"event":"dance"}`))
	if msg := errorText(t, owner.last()); msg != "Unknown event" {
		t.Fatalf("unexpected error %q", msg)
	}
	c.Handle(context.Background(), owner, []byte(`not json`))
	if msg := errorText(t, owner.last()); msg != "Malformed message" {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestFanoutReceivesBroadcastsAndPresence(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	fanout := mock.NewMockFanout(ctrl)

	fanout.EXPECT().MarkOnline(gomock.Any(), f.roomID, string(f.owner)).Return(nil)
	fanout.EXPECT().Online(gomock.Any(), f.roomID).Return([]string{string(f.owner), string(f.claimant)}, nil)
	fanout.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b realtime.Broadcast) error {
		if b.RoomID != f.roomID {
			return fmt.Errorf("unexpected room %s", b.RoomID)
		}
		return nil
	}).Times(2)
	fanout.EXPECT().MarkOffline(gomock.Any(), f.roomID, string(f.owner)).Return(nil)

	c := realtime.NewCoordinator(f.chats, fanout, nil, nil)
	owner := newSession(f.owner, "Olivia")
	c.Connect(owner)
	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})

	var joined struct {
		Online []string `json:"online"`
	}
	if err := json.Unmarshal(owner.last().Data, &joined); err != nil {
		t.Fatalf("decode joined: %v", err)
	}
	if len(joined.Online) != 2 {
		t.Fatalf("expected presence from fanout, got %v", joined.Online)
	}

	send(t, c, owner, realtime.EventSendMessage, map[string]string{"chatId": f.roomID, "content": "ping"})
	c.Disconnect(context.Background(), owner)
}

func TestRemoteBroadcastDeliveredLocally(t *testing.T) {
	f := newFixture(t)
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	c.Connect(owner)
	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	owner.reset()

	c.Deliver(realtime.Broadcast{RoomID: f.roomID, Payload: json.RawMessage(`{"event":"user_typing","data":{}}`)})
	if got := owner.last().Event; got != realtime.EventUserTyping {
		t.Fatalf("expected forwarded frame, got %q", got)
	}
}

func TestBroadcastMessageFromREST(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := realtime.NewCoordinator(f.chats, nil, nil, nil)
	owner := newSession(f.owner, "Olivia")
	claimant := newSession(f.claimant, "Carl")
	c.Connect(owner)
	c.Connect(claimant)
	send(t, c, owner, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	send(t, c, claimant, realtime.EventJoin, map[string]string{"chatId": f.roomID})
	owner.reset()
	claimant.reset()

	msg, err := f.chats.PostMessage(ctx, chatsvc.PostMessageParams{RoomID: f.roomID, Sender: f.owner, Content: "posted over http"})
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	c.BroadcastMessage(ctx, msg)

	for name, s := range map[string]*fakeSession{"owner": owner, "claimant": claimant} {
		if got := s.last().Event; got != realtime.EventNewMessage {
			t.Errorf("%s: expected new_message, got %q", name, got)
		}
	}
}
