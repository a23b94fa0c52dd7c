package topics

const (
	// Pool
	PoolEvents = "pool_events"

	// Redis Pub/Sub
	RoundBroadcast = "pool_round_broadcast"
)
