// Package redis fans chat turn events out over Redis pub/sub so any replica
// can relay them to WebSocket observers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	chatChannelPrefix = "chat:"
	// subscriberBuffer holds events while an observer's socket write is slow.
	subscriberBuffer = 64
	// A subscriber that falls further behind than this loses events.
	subscriberSendTimeout = 5 * time.Second
)

// PubSub publishes and subscribes to conversation event channels.
type PubSub struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

// Ping reports whether Redis is reachable.
func (ps *PubSub) Ping(ctx context.Context) error {
	if err := ps.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Ping: %w", err)
	}
	return nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish(%q): %w", channel, err)
	}
	return nil
}

// PublishJSON encodes ev as JSON and publishes it on channel.
func (ps *PubSub) PublishJSON(ctx context.Context, channel string, ev any) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis.PubSub.PublishJSON(%q): marshal: %w", channel, err)
	}
	return ps.Publish(ctx, channel, payload)
}

// Subscribe returns the payloads published on channel after the subscription
// is confirmed. The channel closes when ctx is done or Redis ends the
// subscription. cleanup releases the subscription and must always be called.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)

	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe(%q): %w", channel, err)
	}

	messages := sub.Channel(
		redis.WithChannelSize(subscriberBuffer),
		redis.WithChannelSendTimeout(subscriberSendTimeout),
	)
	out := make(chan []byte)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, func() { _ = sub.Close() }, nil
}

// ChatChannel returns the channel carrying a conversation's turn events.
func ChatChannel(conversationID string) string {
	return chatChannelPrefix + conversationID
}
