package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/google/uuid"
)

const MaxClientSeedLength = 64

type DealRequest struct {
	// float64 and not required so a zero or fractional amount reaches
	// Validate instead of failing JSON binding.
	BetAmount  float64 `json:"bet_amount"`
	ClientSeed string  `json:"client_seed"`
}

type ActionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Version   *int64 `json:"version"`
}

func GenerateSessionID() string {
	return uuid.NewString()
}

func GenerateLedgerEntryID() string {
	return fmt.Sprintf("le_%s", uuid.NewString())
}

func GenerateClientSeed() (string, error) {
	bytes := make([]byte, 16) // 128 bits of entropy
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate client seed: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Validate checks the shape of a deal request. Limits that depend on the
// pool are checked by the game engine.
func (r *DealRequest) Validate() error {
	if r.BetAmount <= 0 {
		return fmt.Errorf("bet amount must be positive")
	}
	if r.BetAmount != math.Trunc(r.BetAmount) {
		return fmt.Errorf("bet amount must be a whole number of credits")
	}
	if r.BetAmount > math.MaxInt32 {
		return fmt.Errorf("bet amount out of range")
	}
	if len(r.ClientSeed) > MaxClientSeedLength {
		return fmt.Errorf("client seed longer than %d characters", MaxClientSeedLength)
	}
	return nil
}

func (r *DealRequest) Amount() int64 {
	return int64(r.BetAmount)
}
