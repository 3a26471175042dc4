package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"blackjack-pool-backend/internal/blackjack"
	"blackjack-pool-backend/internal/config"
	"blackjack-pool-backend/internal/models"
)

// PoolLedger holds the table constants the pool maths needs.
type PoolLedger struct {
	riskFraction   decimal.Decimal
	absoluteMaxBet int64
}

func NewPoolLedger(table config.TableRules) PoolLedger {
	return PoolLedger{
		riskFraction:   decimal.NewFromFloat(table.RiskFraction),
		absoluteMaxBet: table.AbsoluteMaxBet,
	}
}

// CurrentMaxBet is clamp(totalPool × riskFraction, minBet, absoluteMaxBet).
func (l PoolLedger) CurrentMaxBet(pool models.Pool) int64 {
	limit := decimal.NewFromInt(pool.TotalPool).Mul(l.riskFraction).Floor().IntPart()
	if limit > l.absoluteMaxBet {
		limit = l.absoluteMaxBet
	}
	if limit < pool.MinBet {
		limit = pool.MinBet
	}
	return limit
}

// Refresh returns the pool with MaxBet recomputed from its current balance.
func (l PoolLedger) Refresh(pool models.Pool) models.Pool {
	pool.MaxBet = l.CurrentMaxBet(pool)
	return pool
}

// ValidateBet checks a wager against a refreshed pool.
func ValidateBet(pool models.Pool, amount int64) error {
	if amount < pool.MinBet {
		return fmt.Errorf("%w: %d < %d", ErrBetTooSmall, amount, pool.MinBet)
	}
	if amount > pool.MaxBet {
		return fmt.Errorf("%w: %d > %d", ErrBetTooLarge, amount, pool.MaxBet)
	}
	return nil
}

// WorstCaseNet is the most a round with this wager can take from the pool.
func WorstCaseNet(wager int64) int64 {
	return blackjack.MaxPayout(wager) - wager
}

// OpenExposure is what an open (past the deal) session can still take:
// naturals are settled at deal time so only a 1:1 win remains.
func OpenExposure(wager int64) int64 {
	return blackjack.Payout(models.OutcomeWin, wager) - wager
}

// Reserve admits a new round against the pool's unreserved liquidity.
func Reserve(pool models.Pool, wager int64) (models.Pool, error) {
	if pool.Available() < WorstCaseNet(wager) {
		return pool, fmt.Errorf("%w: available %d, worst case %d", ErrInsufficientLiquidity, pool.Available(), WorstCaseNet(wager))
	}
	pool.Exposure += OpenExposure(wager)
	return pool, nil
}

// ReleaseReserve drops an open session's reservation.
func ReleaseReserve(pool models.Pool, wager int64) models.Pool {
	pool.Exposure -= OpenExposure(wager)
	if pool.Exposure < 0 {
		pool.Exposure = 0
	}
	return pool
}

// ApplyOutcome is the only place the pool balance and its counters move.
func ApplyOutcome(pool models.Pool, wager, payout int64) (models.Pool, error) {
	if wager <= 0 || payout < 0 {
		return pool, fmt.Errorf("%w: wager %d payout %d", ErrEngineInvariant, wager, payout)
	}
	after := pool.TotalPool + wager - payout
	if after < 0 {
		return pool, fmt.Errorf("%w: settlement would leave pool at %d", ErrInsufficientLiquidity, after)
	}

	pool.TotalPool = after
	pool.TotalWagered += wager
	pool.TotalPaidOut += payout
	pool.GamesPlayed++
	pool.Version++
	return pool, nil
}
