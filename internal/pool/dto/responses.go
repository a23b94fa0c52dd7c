package dto

type DepositResponse struct {
	RoundID     string `json:"roundId"`
	Position    int    `json:"position"`
	Resolved    bool   `json:"resolved"`
	Winner      string `json:"winner,omitempty"`
	PayoutCents int64  `json:"payout_cents,omitempty"`
	FeeCents    int64  `json:"fee_cents,omitempty"`
}

type WithdrawResponse struct {
	AmountCents int64 `json:"amount_cents"`
}

type WalletResponse struct {
	UserID       string `json:"userId"`
	BalanceCents int64  `json:"balance_cents"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
