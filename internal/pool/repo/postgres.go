package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/betting-pool/internal/pool"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("wallet not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrReservedAccount   = errors.New("pool account cannot be funded")
	ErrSelfTransfer      = errors.New("source and destination are the same account")
)

var poolAccounts = []string{pool.EscrowAccount, pool.FeeAccount}

// Postgres implementa o Store do pool e as operações de carteira em banco
type Postgres struct {
	db    *sql.DB
	newID func() string
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db, newID: uuid.NewString} }

// Fund credita a carteira do usuário (criando se não existir) e registra no ledger
func (p *Postgres) Fund(ctx context.Context, userID string, amount int64, externalRef string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if pool.IsPoolAccount(userID) {
		return 0, fmt.Errorf("%s: %w", userID, ErrReservedAccount)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var walletID string
	var newBalance int64
	if err = tx.QueryRowContext(ctx, `
		INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,$3,1)
		ON CONFLICT (user_id) DO UPDATE
		SET balance_cents = wallets.balance_cents + EXCLUDED.balance_cents, version = wallets.version + 1
		RETURNING id, balance_cents`,
		p.newID(), userID, amount).Scan(&walletID, &newBalance); err != nil {
		return 0, fmt.Errorf("fund wallet: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description) VALUES($1,'DEPOSIT',$2,$3)`,
		walletID, amount, "fund:"+externalRef); err != nil {
		return 0, fmt.Errorf("fund ledger: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Balance retorna o saldo; carteira inexistente tem saldo zero
func (p *Postgres) Balance(ctx context.Context, userID string) (int64, error) {
	return balance(ctx, p.db, userID, false)
}

// LoadRound lê a rodada corrente (linha única)
func (p *Postgres) LoadRound(ctx context.Context) (pool.Round, bool, error) {
	var (
		r     pool.Round
		state int
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT round_id, state, required_count, stake_cents, participants, secret, updated_at
		FROM pool_round WHERE id=1`).
		Scan(&r.ID, &state, &r.RequiredCount, &r.Stake, pq.Array(&r.Participants), &r.Secret, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pool.Round{}, false, nil
	}
	if err != nil {
		return pool.Round{}, false, fmt.Errorf("load round: %w", err)
	}
	r.State = pool.State(state)
	return r, true, nil
}

// Begin abre a transação usada por uma operação do pool
func (p *Postgres) Begin(ctx context.Context) (pool.Tx, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func balance(ctx context.Context, q queryer, userID string, lock bool) (int64, error) {
	query := `SELECT balance_cents FROM wallets WHERE user_id=$1`
	if lock {
		query += ` FOR UPDATE`
	}
	var bal int64
	err := q.QueryRowContext(ctx, query, userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return bal, err
}

type pgTx struct{ tx *sql.Tx }

// Transfer move saldo entre carteiras com lock pessimista nas duas linhas.
// Locks sempre em ordem de user_id para evitar deadlock entre transações.
func (t *pgTx) Transfer(ctx context.Context, from, to string, amount int64, ref string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return fmt.Errorf("%s: %w", from, ErrSelfTransfer)
	}

	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, user_id, balance_cents FROM wallets
		WHERE user_id = ANY($1) ORDER BY user_id FOR UPDATE`, pq.Array([]string{from, to}))
	if err != nil {
		return fmt.Errorf("lock wallets: %w", err)
	}
	ids := make(map[string]string, 2)
	balances := make(map[string]int64, 2)
	for rows.Next() {
		var id, user string
		var bal int64
		if err := rows.Scan(&id, &user, &bal); err != nil {
			rows.Close()
			return err
		}
		ids[user] = id
		balances[user] = bal
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	fromID, ok := ids[from]
	if !ok {
		return fmt.Errorf("%s: %w", from, ErrNotFound)
	}
	toID, ok := ids[to]
	if !ok {
		return fmt.Errorf("%s: %w", to, ErrNotFound)
	}
	if balances[from] < amount {
		return fmt.Errorf("%s: %w", from, ErrInsufficientFunds)
	}

	if _, err := t.tx.ExecContext(ctx, `UPDATE wallets SET balance_cents = balance_cents - $1, version = version + 1 WHERE id=$2`, amount, fromID); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2`, amount, toID); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description) VALUES($1,'DEBIT',$2,$3),($4,'CREDIT',$2,$3)`,
		fromID, amount, ref, toID); err != nil {
		return err
	}
	return nil
}

func (t *pgTx) Balance(ctx context.Context, account string) (int64, error) {
	return balance(ctx, t.tx, account, true)
}

func (t *pgTx) SaveRound(ctx context.Context, r pool.Round) error {
	participants := r.Participants
	if participants == nil {
		participants = []string{}
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO pool_round (id, round_id, state, required_count, stake_cents, participants, secret, updated_at)
		VALUES (1,$1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			round_id = EXCLUDED.round_id,
			state = EXCLUDED.state,
			required_count = EXCLUDED.required_count,
			stake_cents = EXCLUDED.stake_cents,
			participants = EXCLUDED.participants,
			secret = EXCLUDED.secret,
			updated_at = EXCLUDED.updated_at`,
		r.ID, int(r.State), r.RequiredCount, r.Stake, pq.Array(participants), r.Secret, r.UpdatedAt)
	return err
}

func (t *pgTx) Commit() error { return t.tx.Commit() }

// Rollback ignora sql.ErrTxDone para permitir defer depois do Commit
func (t *pgTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
