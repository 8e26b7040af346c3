package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventBus publishes settlement events on a Redis pub/sub channel so that
// every API instance can notify the owners connected to it.
type EventBus struct {
	client  *goredis.Client
	channel string
	log     zerolog.Logger
}

// NewEventBus creates an EventBus on channel.
func NewEventBus(client *goredis.Client, channel string, log zerolog.Logger) *EventBus {
	return &EventBus{
		client:  client,
		channel: channel,
		log:     logger.Component(log, "redis_event_bus").With().Str("channel", channel).Logger(),
	}
}

// Publish implements ports.EventPublisher.
func (b *EventBus) Publish(ctx context.Context, event domain.TransactionSettled) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal settlement event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish settlement event: %w", err)
	}
	return nil
}

// Subscribe registers handler and returns once the subscription is
// confirmed. Messages are consumed until ctx is cancelled.
func (b *EventBus) Subscribe(ctx context.Context, handler ports.EventHandler) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	b.log.Info().Msg("Subscribed to settlement events")
	go b.listen(ctx, pubsub, handler)
	return nil
}

func (b *EventBus) listen(ctx context.Context, pubsub *goredis.PubSub, handler ports.EventHandler) {
	defer pubsub.Close()
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("Stopping settlement event subscriber")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event domain.TransactionSettled
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn().Err(err).Msg("Dropping malformed settlement event")
				continue
			}
			if err := event.Validate(); err != nil {
				b.log.Warn().Err(err).Str("tx_id", event.TransactionID.String()).Msg("Dropping invalid settlement event")
				continue
			}
			handler(ctx, event)
		}
	}
}
