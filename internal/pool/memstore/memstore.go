// Package memstore é um Store em memória com semântica transacional,
// usado nos testes e no ambiente local.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/radieske/betting-pool/internal/pool"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRejected          = errors.New("account cannot receive funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrTxDone            = errors.New("transaction already finished")
	ErrReservedAccount   = errors.New("pool account cannot be funded")
	ErrSelfTransfer      = errors.New("source and destination are the same account")
)

// Entry é uma linha do ledger em memória
type Entry struct {
	Account string
	Delta   int64
	Ref     string
}

// Store guarda saldos, ledger e a rodada corrente.
// Transações são serializadas: Begin segura o lock de escrita até Commit/Rollback.
type Store struct {
	txMu sync.Mutex // uma transação (ou aporte) por vez

	mu        sync.RWMutex
	balances  map[string]int64
	ledger    []Entry
	rejecting map[string]bool
	round     pool.Round
	hasRound  bool
}

func New() *Store {
	return &Store{
		balances:  make(map[string]int64),
		rejecting: make(map[string]bool),
	}
}

// Reject faz a conta recusar créditos (simula destinatário que não aceita fundos)
func (s *Store) Reject(account string, reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reject {
		s.rejecting[account] = true
	} else {
		delete(s.rejecting, account)
	}
}

// Fund credita a conta fora do pool (aporte de operador)
func (s *Store) Fund(_ context.Context, account string, amount int64, ref string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if pool.IsPoolAccount(account) {
		return 0, fmt.Errorf("%s: %w", account, ErrReservedAccount)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[account] += amount
	s.ledger = append(s.ledger, Entry{Account: account, Delta: amount, Ref: "fund:" + ref})
	return s.balances[account], nil
}

func (s *Store) Balance(_ context.Context, account string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[account], nil
}

// Ledger devolve uma cópia das movimentações commitadas
func (s *Store) Ledger() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.ledger...)
}

func (s *Store) LoadRound(_ context.Context) (pool.Round, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round, s.hasRound, nil
}

func (s *Store) Begin(ctx context.Context) (pool.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.txMu.Lock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	bal := make(map[string]int64, len(s.balances))
	for k, v := range s.balances {
		bal[k] = v
	}
	return &tx{s: s, balances: bal, round: s.round, hasRound: s.hasRound}, nil
}

type tx struct {
	s        *Store
	balances map[string]int64
	entries  []Entry
	round    pool.Round
	hasRound bool
	done     bool
}

func (t *tx) Transfer(_ context.Context, from, to string, amount int64, ref string) error {
	if t.done {
		return ErrTxDone
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return fmt.Errorf("%s: %w", from, ErrSelfTransfer)
	}
	if t.balances[from] < amount {
		return fmt.Errorf("%s: %w", from, ErrInsufficientFunds)
	}
	t.s.mu.RLock()
	rejected := t.s.rejecting[to]
	t.s.mu.RUnlock()
	if rejected {
		return fmt.Errorf("%s: %w", to, ErrRejected)
	}

	t.balances[from] -= amount
	t.balances[to] += amount
	t.entries = append(t.entries,
		Entry{Account: from, Delta: -amount, Ref: ref},
		Entry{Account: to, Delta: amount, Ref: ref},
	)
	return nil
}

func (t *tx) Balance(_ context.Context, account string) (int64, error) {
	if t.done {
		return 0, ErrTxDone
	}
	return t.balances[account], nil
}

func (t *tx) SaveRound(_ context.Context, r pool.Round) error {
	if t.done {
		return ErrTxDone
	}
	t.round = r
	t.hasRound = true
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.balances = t.balances
	t.s.ledger = append(t.s.ledger, t.entries...)
	t.s.round = t.round
	t.s.hasRound = t.hasRound
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.txMu.Unlock()
	return nil
}
