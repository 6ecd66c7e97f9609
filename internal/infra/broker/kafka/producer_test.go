package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestPublishSendsKeyedMessage(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewConfig("test"))
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"ok":true}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})
	p := NewProducerFrom(sp)
	defer p.Close()

	err := p.Publish(context.Background(), "chat.events.v1", "room-1", []byte(`{"ok":true}`), map[string]string{"content-type": "application/cloudevents+json"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestPublishSurfacesBrokerError(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewConfig("test"))
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := NewProducerFrom(sp)
	defer p.Close()

	if err := p.Publish(context.Background(), "items.events.v1", "item-1", []byte(`{}`), nil); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(nil, nil); !errors.Is(err, ErrNoBrokers) {
		t.Fatalf("expected ErrNoBrokers, got %v", err)
	}
}
