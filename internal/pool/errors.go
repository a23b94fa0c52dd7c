package pool

import "errors"

// Tipos de erro do pool. Toda operação rejeitada deixa a rodada intacta.
var (
	ErrUnauthorized      = errors.New("only admin")
	ErrInvalidState      = errors.New("current state does not allow this")
	ErrIncorrectAmount   = errors.New("can only deposit exactly the stake")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrTransferFailure   = errors.New("transfer failure")
)

// Kind devolve um rótulo curto para o erro (usado em métricas e logs)
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrIncorrectAmount):
		return "incorrect_amount"
	case errors.Is(err, ErrInvalidParameters):
		return "invalid_parameters"
	case errors.Is(err, ErrTransferFailure):
		return "transfer_failure"
	default:
		return "internal"
	}
}
