package pool

import "context"

// Contas do próprio pool no ledger
const (
	EscrowAccount = "pool:escrow"
	FeeAccount    = "pool:fees"
)

// IsPoolAccount diz se id é uma conta do próprio pool.
// Essas contas não podem depositar, administrar nem receber aportes.
func IsPoolAccount(id string) bool {
	return id == EscrowAccount || id == FeeAccount
}

// Store persiste saldos e a rodada corrente.
// Tudo que uma operação do pool altera passa por uma única Tx.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	LoadRound(ctx context.Context) (Round, bool, error)
}

// Tx agrupa movimentações e a gravação da rodada; ou tudo é aplicado ou nada.
// Rollback depois de Commit não faz nada.
type Tx interface {
	// Transfer falha se from não tem saldo ou se to não pode receber
	Transfer(ctx context.Context, from, to string, amount int64, ref string) error
	Balance(ctx context.Context, account string) (int64, error)
	SaveRound(ctx context.Context, r Round) error
	Commit() error
	Rollback() error
}

// Wallets são as operações de carteira expostas a operadores (aporte e consulta)
type Wallets interface {
	Fund(ctx context.Context, account string, amount int64, ref string) (int64, error)
	Balance(ctx context.Context, account string) (int64, error)
}
