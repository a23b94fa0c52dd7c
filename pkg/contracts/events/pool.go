package events

import "time"

// Tipos de evento publicados no tópico "pool_events"
const (
	TypeRoundOpened     = "ROUND_OPENED"
	TypeDepositAccepted = "DEPOSIT_ACCEPTED"
	TypeRoundResolved   = "ROUND_RESOLVED"
	TypeRoundCancelled  = "ROUND_CANCELLED"
	TypeFeesWithdrawn   = "FEES_WITHDRAWN"
)

// Envelope comum a todos os eventos do pool
type Envelope struct {
	Type    string         `json:"type"`
	RoundID string         `json:"round_id,omitempty"`
	Ts      time.Time      `json:"ts"`
	Payload any            `json:"payload"`
	Round   *RoundSnapshot `json:"round,omitempty"` // estado após o evento
}

type RoundOpened struct {
	RoundID       string `json:"round_id"`
	RequiredCount int    `json:"required_count"`
	StakeCents    int64  `json:"stake_cents"`
	Commitment    string `json:"commitment"` // keccak256(secret) em hex
}

type DepositAccepted struct {
	RoundID     string `json:"round_id"`
	Participant string `json:"participant"`
	Position    int    `json:"position"` // índice na lista de participantes
}

type RoundResolved struct {
	RoundID      string   `json:"round_id"`
	Participants []string `json:"participants"`
	Winner       string   `json:"winner"`
	WinnerIndex  int      `json:"winner_index"`
	PayoutCents  int64    `json:"payout_cents"`
	FeeCents     int64    `json:"fee_cents"`
	Secret       string   `json:"secret"` // revelado p/ verificação do sorteio
}

type Refund struct {
	Participant string `json:"participant"`
	AmountCents int64  `json:"amount_cents"`
}

type RoundCancelled struct {
	RoundID string   `json:"round_id"`
	Refunds []Refund `json:"refunds"`
}

type FeesWithdrawn struct {
	Admin       string `json:"admin"`
	AmountCents int64  `json:"amount_cents"`
}

// RoundSnapshot é a visão pública da rodada após o commit
type RoundSnapshot struct {
	RoundID       string    `json:"round_id"`
	State         int       `json:"state"` // 0 = IDLE, 1 = BETTING
	StateName     string    `json:"state_name"`
	RequiredCount int       `json:"required_count"`
	StakeCents    int64     `json:"stake_cents"`
	Participants  []string  `json:"participants"`
	Commitment    string    `json:"commitment,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
