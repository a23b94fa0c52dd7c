package ws

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartRedisSubscriber escuta o canal Pub/Sub da rodada e repassa cada
// mensagem para os clientes do Hub. Encerra quando ctx é cancelado.
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Warn("ws subscriber channel closed", zap.String("channel", channel))
					return
				}
				hub.Broadcast([]byte(msg.Payload))
			}
		}
	}()
}
