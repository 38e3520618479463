package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	kafkaGo "github.com/segmentio/kafka-go"

	"marketplace/internal/messaging"
)

// NewBroker returns a kafka-backed Publisher. Writers are created per
// topic on first use and reused.
func NewBroker(brokers []string) *Broker {
	return &Broker{brokers: brokers, writers: make(map[string]*kafkaGo.Writer)}
}

type Broker struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafkaGo.Writer
}

var _ messaging.Publisher = (*Broker)(nil)

func (b *Broker) writer(topic string) *kafkaGo.Writer {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.writers[topic]
	if !ok {
		w = &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(b.brokers...),
			Topic:                  topic,
			Balancer:               &kafkaGo.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
		b.writers[topic] = w
	}
	return w
}

func (b *Broker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}
	return b.writer(topic).WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(key),
		Value: payload,
	})
}

// Close closes all topic writers.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for _, w := range b.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.writers = make(map[string]*kafkaGo.Writer)
	return firstErr
}
