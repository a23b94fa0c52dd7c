package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/betting-pool/pkg/contracts/events"
)

// RedisBroadcaster publica a visão da rodada no canal Pub/Sub.
// A visão corrente vem sempre do Manager; o Redis só transporta atualizações.
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

// Notify implementa pool.Notifier; eventos sem snapshot são ignorados
func (b *RedisBroadcaster) Notify(ctx context.Context, ev events.Envelope) error {
	if ev.Round == nil {
		return nil
	}
	payload, err := json.Marshal(RoundUpdate{Type: ev.Type, Round: *ev.Round})
	if err != nil {
		return err
	}
	if err := b.r.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis broadcast: %w", err)
	}
	return nil
}

// RoundUpdate é o payload padrão enviado aos clientes WS
type RoundUpdate struct {
	Type  string               `json:"type"`
	Round events.RoundSnapshot `json:"round"`
}
