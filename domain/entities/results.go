package entities

// SettlementTotals aggregates the outcome of a resolve or void operation.
type SettlementTotals struct {
	SettledBets int    `json:"settledBets"`
	Winners     int    `json:"winners"`
	Refunded    int    `json:"refunded"`
	TotalPayout Points `json:"totalPayout"`
}

// SettlementResult is returned by resolve and void.
type SettlementResult struct {
	Market *Market
	Totals SettlementTotals
}

// PlaceBetResult is returned by bet placement.
type PlaceBetResult struct {
	Bet    *Bet
	Wallet *UserBalance
	Detail *MarketDetail
}

// AdjustmentResult is returned by a manual balance adjustment.
type AdjustmentResult struct {
	Balance *UserBalance
	Action  *AuditAction
}
