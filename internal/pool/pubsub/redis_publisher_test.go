package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/betting-pool/pkg/contracts/events"
)

func newBroadcaster(t *testing.T) (*RedisBroadcaster, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisBroadcaster(rdb, "pool_round_broadcast"), rdb, mr
}

func subscribe(t *testing.T, rdb *redis.Client) *redis.PubSub {
	t.Helper()
	sub := rdb.Subscribe(context.Background(), "pool_round_broadcast")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background()) // confirmação da inscrição
	require.NoError(t, err)
	return sub
}

func receive(t *testing.T, sub *redis.PubSub) RoundUpdate {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		var upd RoundUpdate
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &upd))
		return upd
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
		return RoundUpdate{}
	}
}

func TestNotifyPublishes(t *testing.T) {
	ctx := context.Background()
	b, rdb, mr := newBroadcaster(t)
	sub := subscribe(t, rdb)

	snap := events.RoundSnapshot{RoundID: "r1", State: 1, StateName: "BETTING", RequiredCount: 2, StakeCents: 100}
	require.NoError(t, b.Notify(ctx, events.Envelope{Type: events.TypeRoundOpened, RoundID: "r1", Round: &snap}))

	upd := receive(t, sub)
	assert.Equal(t, events.TypeRoundOpened, upd.Type)
	assert.Equal(t, "r1", upd.Round.RoundID)
	assert.Equal(t, int64(100), upd.Round.StakeCents)

	// só transporte: nada fica gravado no Redis
	assert.Empty(t, mr.Keys())
}

func TestNotifyWithoutSnapshotIsNoop(t *testing.T) {
	ctx := context.Background()
	b, rdb, _ := newBroadcaster(t)
	sub := subscribe(t, rdb)

	require.NoError(t, b.Notify(ctx, events.Envelope{Type: events.TypeFeesWithdrawn}))

	snap := events.RoundSnapshot{RoundID: "r2"}
	require.NoError(t, b.Notify(ctx, events.Envelope{Type: events.TypeRoundCancelled, RoundID: "r2", Round: &snap}))

	// a primeira mensagem recebida é a do evento com snapshot
	upd := receive(t, sub)
	assert.Equal(t, events.TypeRoundCancelled, upd.Type)
	assert.Equal(t, "r2", upd.Round.RoundID)
}

func TestNotifyReportsRedisFailure(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	b := NewRedisBroadcaster(rdb, "pool_round_broadcast")

	snap := events.RoundSnapshot{RoundID: "r1"}
	err := b.Notify(context.Background(), events.Envelope{Type: events.TypeRoundOpened, Round: &snap})
	assert.ErrorContains(t, err, "redis broadcast")
}
