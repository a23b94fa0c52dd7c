package dto

type OpenRoundRequest struct {
	UserID        string `json:"userId"`
	RequiredCount int    `json:"requiredCount"`
	StakeCents    int64  `json:"stake_cents"`
}

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
}

// AdminRequest serve para cancel e withdraw de taxas
type AdminRequest struct {
	UserID string `json:"userId"`
}

type FundRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"` // opcional, vai pro ledger
}
