package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/KhadijaXD/lostly/internal/app/realtime"
)

type channelDeliverer chan realtime.Broadcast

func (c channelDeliverer) Deliver(b realtime.Broadcast) { c <- b }

func newClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPresenceCountsSessions(t *testing.T) {
	ctx := context.Background()
	f := NewFanout(newClient(t), "test", "node-a")

	for _, user := range []string{"u1", "u1", "u2"} {
		if err := f.MarkOnline(ctx, "room-1", user); err != nil {
			t.Fatalf("MarkOnline: %v", err)
		}
	}
	online, err := f.Online(ctx, "room-1")
	if err != nil {
		t.Fatalf("Online: %v", err)
	}
	if len(online) != 2 || online[0] != "u1" || online[1] != "u2" {
		t.Fatalf("unexpected presence %v", online)
	}

	if err := f.MarkOffline(ctx, "room-1", "u1"); err != nil {
		t.Fatalf("MarkOffline: %v", err)
	}
	if online, _ = f.Online(ctx, "room-1"); len(online) != 2 {
		t.Fatalf("u1 still has a session, got %v", online)
	}
	if err := f.MarkOffline(ctx, "room-1", "u1"); err != nil {
		t.Fatalf("MarkOffline: %v", err)
	}
	if online, _ = f.Online(ctx, "room-1"); len(online) != 1 || online[0] != "u2" {
		t.Fatalf("expected only u2 online, got %v", online)
	}
}

func TestPresenceSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)
	nodeA := NewFanout(client, "test", "node-a")
	nodeB := NewFanout(client, "test", "node-b")
	key := nodeA.presenceKey("room-2")

	if err := nodeA.MarkOnline(ctx, "room-2", "u1"); err != nil {
		t.Fatalf("MarkOnline: %v", err)
	}
	if err := nodeA.MarkOffline(ctx, "room-2", "u1"); err != nil {
		t.Fatalf("MarkOffline: %v", err)
	}
	if exists, _ := client.HExists(ctx, key, "u1").Result(); exists {
		t.Fatal("count at zero must be removed")
	}
	if err := nodeB.MarkOnline(ctx, "room-2", "u1"); err != nil {
		t.Fatalf("MarkOnline: %v", err)
	}
	if online, _ := nodeA.Online(ctx, "room-2"); len(online) != 1 || online[0] != "u1" {
		t.Fatalf("session on node-b must keep u1 online, got %v", online)
	}

	if err := nodeA.MarkOffline(ctx, "room-2", "u2"); err != nil {
		t.Fatalf("MarkOffline unknown user: %v", err)
	}
	if exists, _ := client.HExists(ctx, key, "u2").Result(); exists {
		t.Fatal("unmatched offline must not leave a negative count")
	}
	if n, _ := client.HGet(ctx, key, "u1").Int(); n != 1 {
		t.Fatalf("expected u1 count 1, got %d", n)
	}
}

func TestBroadcastReachesOtherInstancesOnly(t *testing.T) {
	client := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA := NewFanout(client, "test", "node-a")
	nodeB := NewFanout(client, "test", "node-b")
	gotA := make(channelDeliverer, 4)
	gotB := make(channelDeliverer, 4)
	go func() { _ = nodeA.Run(ctx, gotA) }()
	go func() { _ = nodeB.Run(ctx, gotB) }()
	for _, f := range []*Fanout{nodeA, nodeB} {
		select {
		case <-f.Ready():
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber did not start")
		}
	}

	frame := json.RawMessage(`{"event":"new_message","data":{}}`)
	if err := nodeA.Publish(ctx, realtime.Broadcast{RoomID: "room-9", ExcludeSession: "s1", Payload: frame}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case b := <-gotB:
		if b.RoomID != "room-9" || b.ExcludeSession != "s1" || string(b.Payload) != string(frame) {
			t.Fatalf("unexpected broadcast %+v", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("node-b did not receive the broadcast")
	}
	select {
	case b := <-gotA:
		t.Fatalf("origin must not redeliver its own broadcast, got %+v", b)
	case <-time.After(100 * time.Millisecond):
	}
}
