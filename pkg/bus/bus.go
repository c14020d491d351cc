package bus

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

// Message is the wire envelope carried over a pub/sub channel.
type Message struct {
	EventID     string          `json:"event_id"`
	EventType   enums.EventType `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

// Publisher is the fan-out surface used by the outbox publisher.
type Publisher interface {
	Publish(ctx context.Context, topic enums.EventTopic, msg Message) (int64, error)
}

// Bus is a Redis-backed publish/subscribe fan-out. Delivery is best effort:
// a publish with zero subscribers succeeds and the message is gone.
type Bus struct {
	client *goredis.Client
	logg   *logger.Logger
}

func New(client *goredis.Client, logg *logger.Logger) (*Bus, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Bus{client: client, logg: logg}, nil
}

// Publish serializes msg and fans it out on the topic channel. The returned
// count is the number of subscribers that received the message.
func (b *Bus) Publish(ctx context.Context, topic enums.EventTopic, msg Message) (int64, error) {
	if !topic.IsValid() {
		return 0, errors.New("unknown event topic")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}
	count, err := b.client.Publish(ctx, topic.String(), raw).Result()
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Subscribe listens on the given topics and delivers decoded messages until
// ctx is canceled. Malformed payloads are logged and skipped. The returned
// channel is closed when the subscription ends.
func (b *Bus) Subscribe(ctx context.Context, topics ...enums.EventTopic) (<-chan Message, error) {
	if len(topics) == 0 {
		return nil, errors.New("at least one topic is required")
	}
	channels := make([]string, 0, len(topics))
	for _, topic := range topics {
		if !topic.IsValid() {
			return nil, errors.New("unknown event topic")
		}
		channels = append(channels, topic.String())
	}

	sub := b.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					logCtx := b.logg.WithField(ctx, "channel", raw.Channel)
					b.logg.Error(logCtx, "dropping malformed bus message", err)
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- msg:
				}
			}
		}
	}()
	return out, nil
}
