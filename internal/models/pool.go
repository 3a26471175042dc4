package models

import "time"

// Pool is the shared house liquidity for one game type.
type Pool struct {
	GameType     string  `json:"game_type"`
	TotalPool    int64   `json:"total_pool"`
	HouseEdge    float64 `json:"house_edge"`
	MinBet       int64   `json:"min_bet"`
	MaxBet       int64   `json:"max_bet"` // derived on every read
	GamesPlayed  int64   `json:"games_played"`
	TotalWagered int64   `json:"total_wagered"`
	TotalPaidOut int64   `json:"total_paid_out"`

	// Exposure is the worst-case net payout reserved for open sessions.
	Exposure int64 `json:"exposure"`
	Version  int64 `json:"version"`
}

// Available is the liquidity not already reserved by open sessions.
func (p *Pool) Available() int64 {
	return p.TotalPool - p.Exposure
}

// LedgerEntry is an append-only audit record of one pool mutation.
type LedgerEntry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	Wager      int64     `json:"wager"`
	Payout     int64     `json:"payout"`
	Result     Outcome   `json:"result"`
	PoolBefore int64     `json:"pool_before"`
	PoolAfter  int64     `json:"pool_after"`
	Abandoned  bool      `json:"abandoned,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
