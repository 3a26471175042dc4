package models

type Wallet struct {
	UserID        string `json:"user_id"`
	Balance       int64  `json:"balance"`
	LockedBalance int64  `json:"locked_balance"`
}

// Available is the spendable part of the balance.
func (w *Wallet) Available() int64 {
	return w.Balance - w.LockedBalance
}

type BalanceResponse struct {
	Balance       int64 `json:"balance"`
	LockedBalance int64 `json:"locked_balance"`
	Available     int64 `json:"available"` // Balance - LockedBalance
}
