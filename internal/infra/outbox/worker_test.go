package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	appoutbox "github.com/KhadijaXD/lostly/internal/app/outbox"
	"github.com/KhadijaXD/lostly/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type recordingProducer struct {
	sent []published
	err  error
}

func (p *recordingProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func addRecord(t *testing.T, box *memory.Outbox, name string) {
	t.Helper()
	err := box.Add(context.Background(), appoutbox.EventRecord{
		ID:         "evt-" + name,
		Name:       name,
		Payload:    []byte(`{"aggregate_id":"room-1"}`),
		OccurredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Aggregate:  "room-1",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestWorkerPublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	addRecord(t, box, "chat.message_posted")
	addRecord(t, box, "items.claim_decided")
	producer := &recordingProducer{}
	w := &Worker{Queue: box, Producer: producer, TopicPrefix: "lostly."}

	if err := w.drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(producer.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(producer.sent))
	}
	first := producer.sent[0]
	if first.topic != "lostly.chat.events.v1" || first.key != "room-1" {
		t.Fatalf("unexpected routing %s/%s", first.topic, first.key)
	}
	if producer.sent[1].topic != "lostly.items.events.v1" {
		t.Fatalf("unexpected topic %s", producer.sent[1].topic)
	}
	var evt struct {
		SpecVersion string         `json:"specversion"`
		Type        string         `json:"type"`
		Source      string         `json:"source"`
		Data        map[string]any `json:"data"`
	}
	if err := json.Unmarshal(first.payload, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.SpecVersion != "1.0" || evt.Type != "chat.message_posted.v1" || evt.Source != "app://lostly" {
		t.Fatalf("unexpected envelope %+v", evt)
	}
	if first.headers["content-type"] != "application/cloudevents+json" {
		t.Fatalf("unexpected headers %v", first.headers)
	}
	if box.Len() != 0 {
		t.Fatalf("expected outbox to be drained, %d left", box.Len())
	}
}

func TestWorkerBacksOffOnFailure(t *testing.T) {
	box := memory.NewOutbox()
	addRecord(t, box, "chat.room_opened")
	producer := &recordingProducer{err: errors.New("broker unavailable")}
	w := &Worker{Queue: box, Producer: producer, Backoff: []time.Duration{time.Hour}}

	done, err := w.ProcessOnce(context.Background())
	if err != nil || done {
		t.Fatalf("expected a failed attempt to be recorded, got done=%v err=%v", done, err)
	}
	done, err = w.ProcessOnce(context.Background())
	if err != nil || !done {
		t.Fatalf("expected record to wait for its backoff, got done=%v err=%v", done, err)
	}
	if box.Len() != 1 {
		t.Fatalf("expected record to stay queued, got %d", box.Len())
	}
}

func TestWorkerRequiresDependencies(t *testing.T) {
	if err := (&Worker{}).Run(context.Background()); !errors.Is(err, ErrWorkerNotConfigured) {
		t.Fatalf("expected ErrWorkerNotConfigured, got %v", err)
	}
}
