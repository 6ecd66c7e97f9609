package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KhadijaXD/lostly/internal/app/realtime"
)

const defaultPresenceTTL = 24 * time.Hour

// markOffline decrements a user's session count and drops the field at zero in one step.
var markOffline = redis.NewScript(`
local n = redis.call("HINCRBY", KEYS[1], ARGV[1], -1)
if n <= 0 then
	redis.call("HDEL", KEYS[1], ARGV[1])
end
return n
`)

// Deliverer hands a broadcast received from another instance to local sessions.
type Deliverer interface {
	Deliver(b realtime.Broadcast)
}

// Fanout relays room broadcasts between instances over pub/sub and keeps per-room
// presence counters in hashes so a user with several tabs stays online until the last
// one leaves.
type Fanout struct {
	client      *redis.Client
	prefix      string
	instance    string
	PresenceTTL time.Duration
	Logger      *slog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

type envelope struct {
	Origin    string             `json:"origin"`
	Broadcast realtime.Broadcast `json:"broadcast"`
}

func NewFanout(client *redis.Client, prefix, instanceID string) *Fanout {
	if prefix == "" {
		prefix = "lostly"
	}
	return &Fanout{client: client, prefix: prefix, instance: instanceID, ready: make(chan struct{})}
}

func (f *Fanout) roomChannel(roomID string) string {
	return fmt.Sprintf("%s:room:%s", f.prefix, roomID)
}

func (f *Fanout) presenceKey(roomID string) string {
	return fmt.Sprintf("%s:presence:%s", f.prefix, roomID)
}

func (f *Fanout) Publish(ctx context.Context, b realtime.Broadcast) error {
	payload, err := json.Marshal(envelope{Origin: f.instance, Broadcast: b})
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.roomChannel(b.RoomID), payload).Err()
}

func (f *Fanout) MarkOnline(ctx context.Context, roomID, userID string) error {
	key := f.presenceKey(roomID)
	pipe := f.client.TxPipeline()
	pipe.HIncrBy(ctx, key, userID, 1)
	pipe.Expire(ctx, key, f.presenceTTL())
	_, err := pipe.Exec(ctx)
	return err
}

func (f *Fanout) MarkOffline(ctx context.Context, roomID, userID string) error {
	return markOffline.Run(ctx, f.client, []string{f.presenceKey(roomID)}, userID).Err()
}

// Online returns the ids of users with at least one joined session, sorted.
func (f *Fanout) Online(ctx context.Context, roomID string) ([]string, error) {
	counts, err := f.client.HGetAll(ctx, f.presenceKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(counts))
	for userID, raw := range counts {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			out = append(out, userID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Ready is closed once the subscriber is listening.
func (f *Fanout) Ready() <-chan struct{} {
	return f.ready
}

// Run delivers broadcasts published by other instances until ctx is done.
func (f *Fanout) Run(ctx context.Context, local Deliverer) error {
	ps := f.client.PSubscribe(ctx, f.roomChannel("*"))
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}
	f.readyOnce.Do(func() { close(f.ready) })
	f.logger().Info("realtime fanout subscribed", "pattern", f.roomChannel("*"), "instance", f.instance)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			f.handle(msg, local)
		}
	}
}

func (f *Fanout) handle(msg *redis.Message, local Deliverer) {
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		f.logger().Warn("realtime fanout dropped malformed payload", "channel", msg.Channel, "error", err)
		return
	}
	if env.Origin == f.instance {
		return
	}
	if env.Broadcast.RoomID == "" {
		env.Broadcast.RoomID = strings.TrimPrefix(msg.Channel, f.prefix+":room:")
	}
	local.Deliver(env.Broadcast)
}

func (f *Fanout) presenceTTL() time.Duration {
	if f.PresenceTTL > 0 {
		return f.PresenceTTL
	}
	return defaultPresenceTTL
}

func (f *Fanout) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

var _ realtime.Fanout = (*Fanout)(nil)
