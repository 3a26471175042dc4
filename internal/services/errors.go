package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBet          = errors.New("invalid bet")
	ErrBetTooSmall         = fmt.Errorf("%w: below table minimum", ErrInvalidBet)
	ErrBetTooLarge         = fmt.Errorf("%w: above current maximum", ErrInvalidBet)
	ErrInsufficientBalance = fmt.Errorf("%w: exceeds spendable balance", ErrInvalidBet)

	ErrSessionConflict  = errors.New("session conflict")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session not active")

	ErrRateLimited = errors.New("rate limit exceeded")

	// Fatal: the round is aborted without any write.
	ErrFairnessViolation     = errors.New("fairness commitment violation")
	ErrInsufficientLiquidity = errors.New("pool has insufficient liquidity")
	ErrEngineInvariant       = errors.New("engine invariant violation")
)

// IsFatal reports errors that must halt settlement for manual review.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFairnessViolation) || errors.Is(err, ErrEngineInvariant)
}
