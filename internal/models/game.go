package models

import "time"

type GameState string

const (
	StateBetting    GameState = "betting"
	StatePlaying    GameState = "playing"
	StateDealerTurn GameState = "dealer_turn"
	StateFinished   GameState = "finished"
)

type Outcome string

const (
	OutcomeBlackjack Outcome = "blackjack"
	OutcomeWin       Outcome = "win"
	OutcomePush      Outcome = "push"
	OutcomeLose      Outcome = "lose"
	OutcomeBust      Outcome = "bust"
)

// Session is the authoritative record of one blackjack round. It is the
// stored form; callers only ever see a SessionView.
type Session struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	GameType  string `json:"game_type"`
	BetAmount int64  `json:"bet_amount"`

	// Provably Fair seeds
	ClientSeed     string `json:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	ServerSeed     string `json:"server_seed"`
	Decks          int    `json:"decks"`
	ShoeCursor     int    `json:"shoe_cursor"`

	PlayerCards []Card    `json:"player_cards"`
	DealerCards []Card    `json:"dealer_cards"`
	State       GameState `json:"state"`
	Result      Outcome   `json:"result,omitempty"`
	Payout      int64     `json:"payout"`
	Abandoned   bool      `json:"abandoned,omitempty"`

	Version int64 `json:"version"`

	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

func (s *Session) IsFinished() bool {
	return s.State == StateFinished
}

// SessionView is the caller-facing projection of a Session.
type SessionView struct {
	SessionID      string    `json:"session_id"`
	GameState      GameState `json:"game_state"`
	BetAmount      int64     `json:"bet_amount"`
	PlayerCards    []Card    `json:"player_cards"`
	DealerCards    []Card    `json:"dealer_cards"`
	PlayerScore    int       `json:"player_score"`
	DealerScore    int       `json:"dealer_score"`
	Result         Outcome   `json:"result,omitempty"`
	Payout         int64     `json:"payout"`
	ClientSeed     string    `json:"client_seed"`
	ServerSeedHash string    `json:"server_seed_hash"`
	Version        int64     `json:"version"`
	MaxBet         int64     `json:"max_bet,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Reveal is the post-settlement disclosure that lets anyone recompute the
// shoe and check every card the session dealt.
type Reveal struct {
	SessionID      string  `json:"session_id"`
	ServerSeed     string  `json:"server_seed"`
	ServerSeedHash string  `json:"server_seed_hash"`
	ClientSeed     string  `json:"client_seed"`
	Decks          int     `json:"decks"`
	PlayerCards    []Card  `json:"player_cards"`
	DealerCards    []Card  `json:"dealer_cards"`
	Result         Outcome `json:"result"`
	BetAmount      int64   `json:"bet_amount"`
	Payout         int64   `json:"payout"`

	DealerHitsSoft17 bool `json:"dealer_hits_soft_17"`
	// Abandoned rounds are settled as a loss without playing out.
	Abandoned bool `json:"abandoned,omitempty"`
}
