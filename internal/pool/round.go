package pool

import (
	"encoding/hex"
	"time"

	"github.com/radieske/betting-pool/pkg/contracts/events"
)

// State é o estado da rodada
type State int

const (
	StateIdle    State = 0
	StateBetting State = 1
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateBetting:
		return "BETTING"
	default:
		return "UNKNOWN"
	}
}

// Round é a rodada corrente. Em Idle, RequiredCount/Stake guardam os valores
// da última rodada e Participants fica vazio.
type Round struct {
	ID            string
	State         State
	RequiredCount int
	Stake         int64
	Participants  []string
	Secret        []byte // semente do sorteio; nunca sai do processo antes da resolução
	UpdatedAt     time.Time
}

func (r Round) clone() Round {
	c := r
	c.Participants = append([]string(nil), r.Participants...)
	c.Secret = append([]byte(nil), r.Secret...)
	return c
}

// Escrow é o valor que o pool deve custodiar para esta rodada
func (r Round) Escrow() int64 {
	if r.State != StateBetting {
		return 0
	}
	return int64(len(r.Participants)) * r.Stake
}

// Commitment é o hash publicado da semente (hex); vazio fora de Betting
func (r Round) Commitment() string {
	if r.State != StateBetting || len(r.Secret) == 0 {
		return ""
	}
	return hex.EncodeToString(commitment(r.Secret))
}

// Snapshot monta a visão pública da rodada
func (r Round) Snapshot() events.RoundSnapshot {
	return events.RoundSnapshot{
		RoundID:       r.ID,
		State:         int(r.State),
		StateName:     r.State.String(),
		RequiredCount: r.RequiredCount,
		StakeCents:    r.Stake,
		Participants:  append([]string{}, r.Participants...),
		Commitment:    r.Commitment(),
		UpdatedAt:     r.UpdatedAt,
	}
}

// Resolution descreve o pagamento feito quando o depósito completa a rodada
type Resolution struct {
	RoundID     string
	Winner      string
	WinnerIndex int
	TotalPool   int64
	Fee         int64
	Payout      int64
}

// Receipt descreve um depósito commitado: a rodada em que entrou e a posição do caller
type Receipt struct {
	RoundID    string
	Position   int
	Resolution *Resolution // nil enquanto a rodada não completa
}

// splitPool calcula pote, taxa (arredondada para baixo) e prêmio
func splitPool(requiredCount int, stake, feeRate int64) (total, fee, payout int64) {
	total = int64(requiredCount) * stake
	fee = total * feeRate / 100
	return total, fee, total - fee
}
