package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics agrupa os coletores Prometheus do pool
type Metrics struct {
	RoundsOpened    prometheus.Counter
	Deposits        prometheus.Counter
	RoundsResolved  prometheus.Counter
	RoundsCancelled prometheus.Counter
	PayoutCents     prometheus.Counter
	FeeCents        prometheus.Counter
	Errors          *prometheus.CounterVec
	Escrow          prometheus.Gauge
}

// NewMetrics registra os coletores no registerer informado
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RoundsOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "pool_rounds_opened_total",
			Help: "Rounds opened by the administrator.",
		}),
		Deposits: f.NewCounter(prometheus.CounterOpts{
			Name: "pool_deposits_total",
			Help: "Accepted participant deposits.",
		}),
		RoundsResolved: f.NewCounter(prometheus.CounterOpts{
			Name: "pool_rounds_resolved_total",
			Help: "Rounds resolved with a winner payout.",
		}),
		RoundsCancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "pool_rounds_cancelled_total",
			Help: "Rounds cancelled and refunded.",
		}),
		PayoutCents: f.NewCounter(prometheus.CounterOpts{
			Name: "pool_payout_cents_total",
			Help: "Amount paid to winners.",
		}),
		FeeCents: f.NewCounter(prometheus.CounterOpts{
			Name: "pool_fee_cents_total",
			Help: "Fees retained by the pool.",
		}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_operation_errors_total",
			Help: "Rejected or failed pool operations.",
		}, []string{"op", "kind"}),
		Escrow: f.NewGauge(prometheus.GaugeOpts{
			Name: "pool_escrow_cents",
			Help: "Funds currently held in escrow for the open round.",
		}),
	}
}
