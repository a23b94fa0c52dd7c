package pool

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/betting-pool/pkg/contracts/events"
)

// MaxParticipants limita o tamanho da rodada (o cancelamento reembolsa todos numa única transação)
const MaxParticipants = 10_000

const (
	opOpen     = "open_round"
	opDeposit  = "deposit"
	opCancel   = "cancel"
	opWithdraw = "withdraw_fees"
)

// ManagerConfig é fixado na construção e não muda
type ManagerConfig struct {
	Admin   string
	FeeRate int64 // percentual inteiro em [0,100]
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option { return func(m *Manager) { m.log = l } }

func WithNotifier(n Notifier) Option { return func(m *Manager) { m.notifier = n } }

func WithMetrics(mt *Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// WithEntropy troca a fonte das sementes (default crypto/rand)
func WithEntropy(r io.Reader) Option { return func(m *Manager) { m.entropy = r } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// Manager é o gerenciador do pool: uma rodada por vez, fundos custodiados no Store.
type Manager struct {
	admin   string
	feeRate int64
	store   Store

	log      *zap.Logger
	notifier Notifier
	metrics  *Metrics
	entropy  io.Reader
	now      func() time.Time

	opMu  sync.Mutex   // serializa operações mutáveis
	mu    sync.RWMutex // protege round
	round Round        // último estado commitado
}

// NewManager valida a configuração e retoma a rodada salva no store, se houver
func NewManager(ctx context.Context, cfg ManagerConfig, store Store, opts ...Option) (*Manager, error) {
	if cfg.Admin == "" {
		return nil, fmt.Errorf("%w: admin required", ErrInvalidParameters)
	}
	if IsPoolAccount(cfg.Admin) {
		return nil, fmt.Errorf("%w: admin cannot be pool account %s", ErrInvalidParameters, cfg.Admin)
	}
	if cfg.FeeRate < 0 || cfg.FeeRate > 100 {
		return nil, fmt.Errorf("%w: fee rate %d", ErrInvalidParameters, cfg.FeeRate)
	}

	m := &Manager{
		admin:    cfg.Admin,
		feeRate:  cfg.FeeRate,
		store:    store,
		log:      zap.NewNop(),
		notifier: nopNotifier{},
		entropy:  rand.Reader,
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(prometheus.NewRegistry())
	}

	saved, ok, err := store.LoadRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}
	if ok {
		m.round = saved
		m.metrics.Escrow.Set(float64(saved.Escrow()))
		if saved.State == StateBetting {
			m.log.Info("resuming round",
				zap.String("roundId", saved.ID),
				zap.Int("participants", len(saved.Participants)),
				zap.Int("requiredCount", saved.RequiredCount),
			)
		}
	}

	return m, nil
}

func (m *Manager) Admin() string  { return m.admin }
func (m *Manager) FeeRate() int64 { return m.feeRate }

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.State
}

func (m *Manager) RequiredCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.RequiredCount
}

func (m *Manager) Stake() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.Stake
}

// Snapshot retorna a visão pública da última rodada commitada
func (m *Manager) Snapshot() events.RoundSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.Snapshot()
}

func (m *Manager) current() Round {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.clone()
}

// OpenRound abre uma rodada (somente admin, somente em Idle)
func (m *Manager) OpenRound(ctx context.Context, caller string, requiredCount int, stake int64) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cur := m.current()
	if caller != m.admin {
		return m.reject(opOpen, caller, ErrUnauthorized)
	}
	if cur.State != StateIdle {
		return m.reject(opOpen, caller, ErrInvalidState)
	}
	if requiredCount < 2 || requiredCount > MaxParticipants || stake <= 0 ||
		stake > math.MaxInt64/(int64(requiredCount)*100) {
		return m.reject(opOpen, caller, fmt.Errorf("%w: requiredCount=%d stake=%d", ErrInvalidParameters, requiredCount, stake))
	}

	secret := make([]byte, secretSize)
	if _, err := io.ReadFull(m.entropy, secret); err != nil {
		return m.reject(opOpen, caller, fmt.Errorf("draw secret: %w", err))
	}

	next := Round{
		ID:            uuid.NewString(),
		State:         StateBetting,
		RequiredCount: requiredCount,
		Stake:         stake,
		Secret:        secret,
		UpdatedAt:     m.now(),
	}
	if err := m.commit(ctx, next, nil); err != nil {
		return m.reject(opOpen, caller, err)
	}

	m.metrics.RoundsOpened.Inc()
	m.log.Info("round opened",
		zap.String("roundId", next.ID),
		zap.Int("requiredCount", requiredCount),
		zap.Int64("stake", stake),
	)
	m.notify(ctx, next, events.TypeRoundOpened, events.RoundOpened{
		RoundID:       next.ID,
		RequiredCount: requiredCount,
		StakeCents:    stake,
		Commitment:    next.Commitment(),
	})
	return nil
}

// Deposit inscreve o caller na rodada. Se o depósito completa a rodada,
// o vencedor é pago na mesma transação e o Receipt traz a Resolution.
func (m *Manager) Deposit(ctx context.Context, caller string, amount int64) (Receipt, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cur := m.current()
	if cur.State != StateBetting {
		return Receipt{}, m.reject(opDeposit, caller, ErrInvalidState)
	}
	if amount != cur.Stake {
		return Receipt{}, m.reject(opDeposit, caller, fmt.Errorf("%w: got %d, stake %d", ErrIncorrectAmount, amount, cur.Stake))
	}
	if caller == "" {
		return Receipt{}, m.reject(opDeposit, caller, fmt.Errorf("%w: caller required", ErrInvalidParameters))
	}
	if IsPoolAccount(caller) {
		return Receipt{}, m.reject(opDeposit, caller, fmt.Errorf("%w: pool account %s cannot deposit", ErrInvalidParameters, caller))
	}

	next := cur.clone()
	next.Participants = append(next.Participants, caller)
	next.UpdatedAt = m.now()
	position := len(next.Participants) - 1

	var res *Resolution
	if len(next.Participants) == next.RequiredCount {
		total, fee, payout := splitPool(next.RequiredCount, next.Stake, m.feeRate)
		idx := winnerIndex(cur.Secret, cur.ID, next.Participants)
		res = &Resolution{
			RoundID:     cur.ID,
			Winner:      next.Participants[idx],
			WinnerIndex: idx,
			TotalPool:   total,
			Fee:         fee,
			Payout:      payout,
		}
	}

	final := next
	if res != nil {
		final = Round{
			ID:            cur.ID,
			State:         StateIdle,
			RequiredCount: cur.RequiredCount,
			Stake:         cur.Stake,
			UpdatedAt:     next.UpdatedAt,
		}
	}

	err := m.commit(ctx, final, func(tx Tx) error {
		if err := tx.Transfer(ctx, caller, EscrowAccount, amount, "deposit:"+cur.ID); err != nil {
			return fmt.Errorf("%w: deposit from %s: %w", ErrTransferFailure, caller, err)
		}
		if res == nil {
			return nil
		}
		if err := tx.Transfer(ctx, EscrowAccount, res.Winner, res.Payout, "payout:"+cur.ID); err != nil {
			return fmt.Errorf("%w: payout to %s: %w", ErrTransferFailure, res.Winner, err)
		}
		if res.Fee > 0 {
			if err := tx.Transfer(ctx, EscrowAccount, FeeAccount, res.Fee, "fee:"+cur.ID); err != nil {
				return fmt.Errorf("%w: fee: %w", ErrTransferFailure, err)
			}
		}
		return nil
	})
	if err != nil {
		return Receipt{}, m.reject(opDeposit, caller, err)
	}

	m.metrics.Deposits.Inc()
	m.log.Info("deposit accepted",
		zap.String("roundId", cur.ID),
		zap.String("caller", caller),
		zap.Int("position", position),
	)
	m.notify(ctx, next, events.TypeDepositAccepted, events.DepositAccepted{
		RoundID:     cur.ID,
		Participant: caller,
		Position:    position,
	})

	if res != nil {
		m.metrics.RoundsResolved.Inc()
		m.metrics.PayoutCents.Add(float64(res.Payout))
		m.metrics.FeeCents.Add(float64(res.Fee))
		m.log.Info("round resolved",
			zap.String("roundId", res.RoundID),
			zap.String("winner", res.Winner),
			zap.Int64("payout", res.Payout),
			zap.Int64("fee", res.Fee),
		)
		m.notify(ctx, final, events.TypeRoundResolved, events.RoundResolved{
			RoundID:      res.RoundID,
			Participants: next.Participants,
			Winner:       res.Winner,
			WinnerIndex:  res.WinnerIndex,
			PayoutCents:  res.Payout,
			FeeCents:     res.Fee,
			Secret:       hex.EncodeToString(cur.Secret),
		})
	}
	return Receipt{RoundID: cur.ID, Position: position, Resolution: res}, nil
}

// Cancel reembolsa cada participante e volta para Idle (somente admin)
func (m *Manager) Cancel(ctx context.Context, caller string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cur := m.current()
	if caller != m.admin {
		return m.reject(opCancel, caller, ErrUnauthorized)
	}
	if cur.State != StateBetting {
		return m.reject(opCancel, caller, ErrInvalidState)
	}

	next := Round{
		ID:            cur.ID,
		State:         StateIdle,
		RequiredCount: cur.RequiredCount,
		Stake:         cur.Stake,
		UpdatedAt:     m.now(),
	}

	refunds := make([]events.Refund, 0, len(cur.Participants))
	err := m.commit(ctx, next, func(tx Tx) error {
		for i, p := range cur.Participants {
			ref := fmt.Sprintf("refund:%s:%d", cur.ID, i)
			if err := tx.Transfer(ctx, EscrowAccount, p, cur.Stake, ref); err != nil {
				return fmt.Errorf("%w: refund to %s: %w", ErrTransferFailure, p, err)
			}
			refunds = append(refunds, events.Refund{Participant: p, AmountCents: cur.Stake})
		}
		return nil
	})
	if err != nil {
		return m.reject(opCancel, caller, err)
	}

	m.metrics.RoundsCancelled.Inc()
	m.log.Info("round cancelled",
		zap.String("roundId", cur.ID),
		zap.Int("refunds", len(refunds)),
	)
	m.notify(ctx, next, events.TypeRoundCancelled, events.RoundCancelled{
		RoundID: cur.ID,
		Refunds: refunds,
	})
	return nil
}

// WithdrawFees transfere toda a taxa acumulada para a carteira do admin.
// Não mexe no escrow, então vale em qualquer estado.
func (m *Manager) WithdrawFees(ctx context.Context, caller string) (int64, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if caller != m.admin {
		return 0, m.reject(opWithdraw, caller, ErrUnauthorized)
	}

	cur := m.current()
	var amount int64
	err := m.commit(ctx, cur, func(tx Tx) error {
		bal, err := tx.Balance(ctx, FeeAccount)
		if err != nil {
			return fmt.Errorf("fee balance: %w", err)
		}
		if bal == 0 {
			return nil
		}
		if err := tx.Transfer(ctx, FeeAccount, m.admin, bal, "withdraw:fees"); err != nil {
			return fmt.Errorf("%w: withdraw to %s: %w", ErrTransferFailure, m.admin, err)
		}
		amount = bal
		return nil
	})
	if err != nil {
		return 0, m.reject(opWithdraw, caller, err)
	}
	if amount == 0 {
		return 0, nil
	}

	m.log.Info("fees withdrawn", zap.Int64("amount", amount))
	m.notify(ctx, cur, events.TypeFeesWithdrawn, events.FeesWithdrawn{
		Admin:       m.admin,
		AmountCents: amount,
	})
	return amount, nil
}

// commit roda fn e grava next numa única transação; só troca o estado em memória depois do commit
func (m *Manager) commit(ctx context.Context, next Round, fn func(Tx) error) error {
	tx, err := m.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if fn != nil {
		if err := fn(tx); err != nil {
			return err
		}
	}
	if err := tx.SaveRound(ctx, next); err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	m.mu.Lock()
	m.round = next
	m.mu.Unlock()
	m.metrics.Escrow.Set(float64(next.Escrow()))
	return nil
}

func (m *Manager) reject(op, caller string, err error) error {
	kind := Kind(err)
	m.metrics.Errors.WithLabelValues(op, kind).Inc()
	if kind == "internal" || kind == "transfer_failure" {
		m.log.Warn("operation failed", zap.String("op", op), zap.String("caller", caller), zap.Error(err))
	} else {
		m.log.Debug("operation rejected", zap.String("op", op), zap.String("caller", caller), zap.Error(err))
	}
	return err
}

func (m *Manager) notify(ctx context.Context, r Round, typ string, payload any) {
	snap := r.Snapshot()
	ev := events.Envelope{
		Type:    typ,
		RoundID: r.ID,
		Ts:      m.now(),
		Payload: payload,
		Round:   &snap,
	}
	if err := m.notifier.Notify(ctx, ev); err != nil {
		m.log.Warn("notify", zap.String("type", typ), zap.Error(err))
	}
}
