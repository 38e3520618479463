package messaging

import "context"

// Publisher publishes keyed JSON events to a message broker topic.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}
