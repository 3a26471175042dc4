// Package blackjack holds the pure blackjack rules: hand valuation, dealer
// drawing policy, outcome classification and the payout table. Nothing here
// touches storage or randomness.
package blackjack

import (
	"github.com/shopspring/decimal"

	"blackjack-pool-backend/internal/models"
)

const (
	Blackjack = 21

	// DealerStandValue is the total at which the dealer stops drawing.
	DealerStandValue = 17
)

// Rules are the fixed table rules a GameEngine is started with.
type Rules struct {
	// DealerHitsSoft17 switches the table from S17 (dealer stands on every
	// 17) to H17 (dealer draws on a soft 17).
	DealerHitsSoft17 bool `json:"dealer_hits_soft_17"`
}

// HandValue sums the hand counting every Ace as 11, then counts Aces down
// to 1 one at a time while the total is over 21.
func HandValue(cards []models.Card) int {
	total, _ := handValue(cards)
	return total
}

// IsSoft reports whether the hand's best value still counts an Ace as 11.
func IsSoft(cards []models.Card) bool {
	_, softAces := handValue(cards)
	return softAces > 0
}

func handValue(cards []models.Card) (total, softAces int) {
	for _, c := range cards {
		total += c.Value()
		if c.IsAce() {
			softAces++
		}
	}
	for total > Blackjack && softAces > 0 {
		total -= 10
		softAces--
	}
	return total, softAces
}

func IsBust(cards []models.Card) bool {
	return HandValue(cards) > Blackjack
}

// IsBlackjack reports a natural: exactly two cards worth 21. Callers only
// ask this of the initial deal.
func IsBlackjack(cards []models.Card) bool {
	return len(cards) == 2 && HandValue(cards) == Blackjack
}

// DealerShouldDraw applies the table's dealer policy to the dealer's hand.
func (r Rules) DealerShouldDraw(dealer []models.Card) bool {
	value := HandValue(dealer)
	if value < DealerStandValue {
		return true
	}
	return r.DealerHitsSoft17 && value == DealerStandValue && IsSoft(dealer)
}

// ClassifyNaturals resolves an initial deal where either side holds a
// natural. ok is false when play must continue.
func ClassifyNaturals(player, dealer []models.Card) (outcome models.Outcome, ok bool) {
	playerBJ, dealerBJ := IsBlackjack(player), IsBlackjack(dealer)
	switch {
	case playerBJ && dealerBJ:
		return models.OutcomePush, true
	case playerBJ:
		return models.OutcomeBlackjack, true
	case dealerBJ:
		return models.OutcomeLose, true
	}
	return "", false
}

// Classify compares two final hands after the dealer has played out.
func Classify(player, dealer []models.Card) models.Outcome {
	playerValue := HandValue(player)
	if playerValue > Blackjack {
		return models.OutcomeBust
	}

	dealerValue := HandValue(dealer)
	switch {
	case dealerValue > Blackjack:
		return models.OutcomeWin
	case playerValue > dealerValue:
		return models.OutcomeWin
	case playerValue == dealerValue:
		return models.OutcomePush
	default:
		return models.OutcomeLose
	}
}

// Payout multipliers are returned amounts, stake included. Every
// non-natural win pays 1:1 however the 21 was reached.
var payoutMultipliers = map[models.Outcome]decimal.Decimal{
	models.OutcomeBlackjack: decimal.NewFromFloat(2.5),
	models.OutcomeWin:       decimal.NewFromInt(2),
	models.OutcomePush:      decimal.NewFromInt(1),
	models.OutcomeLose:      decimal.Zero,
	models.OutcomeBust:      decimal.Zero,
}

// Payout returns the credits handed back for a wager, floored to whole
// credits.
func Payout(outcome models.Outcome, wager int64) int64 {
	multiplier, ok := payoutMultipliers[outcome]
	if !ok {
		return 0
	}
	return decimal.NewFromInt(wager).Mul(multiplier).Floor().IntPart()
}

// MaxPayout is the largest amount any outcome can return for a wager.
func MaxPayout(wager int64) int64 {
	return Payout(models.OutcomeBlackjack, wager)
}
