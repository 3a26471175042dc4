package fairness

import (
	"fmt"

	"blackjack-pool-backend/internal/blackjack"
	"blackjack-pool-backend/internal/models"
)

// DrawOrder flattens two final hands into the order the cards left the
// shoe: player, dealer, player, dealer, then player hits, then dealer draws.
func DrawOrder(player, dealer []models.Card) []models.Card {
	order := make([]models.Card, 0, len(player)+len(dealer))
	for i := 0; i < 2; i++ {
		if i < len(player) {
			order = append(order, player[i])
		}
		if i < len(dealer) {
			order = append(order, dealer[i])
		}
	}
	if len(player) > 2 {
		order = append(order, player[2:]...)
	}
	if len(dealer) > 2 {
		order = append(order, dealer[2:]...)
	}
	return order
}

// Verify recomputes the shoe from a reveal and checks the commitment and
// every dealt card. A reveal that carries a result must also have that
// result, and its payout, follow from the cards under the table rule.
func Verify(reveal models.Reveal) error {
	if err := VerifyCommitment(reveal.ServerSeed, reveal.ServerSeedHash); err != nil {
		return err
	}

	decks := reveal.Decks
	if decks == 0 {
		decks = DefaultDecks
	}
	shoe, err := NewShoe(reveal.ServerSeed, reveal.ClientSeed, reveal.SessionID, decks)
	if err != nil {
		return err
	}

	cursor := 0
	for i, dealt := range DrawOrder(reveal.PlayerCards, reveal.DealerCards) {
		var want models.Card
		want, cursor, err = shoe.Draw(cursor)
		if err != nil {
			return err
		}
		if want.Suit != dealt.Suit || want.Rank != dealt.Rank {
			return fmt.Errorf("%w: draw %d dealt %s, shoe has %s", ErrCardMismatch, i, dealt, want)
		}
	}

	if reveal.Result == "" {
		return nil
	}
	return verifyOutcome(reveal)
}

func verifyOutcome(reveal models.Reveal) error {
	want := models.OutcomeLose
	if !reveal.Abandoned {
		rules := blackjack.Rules{DealerHitsSoft17: reveal.DealerHitsSoft17}
		var err error
		if want, err = ExpectedOutcome(reveal.PlayerCards, reveal.DealerCards, rules); err != nil {
			return err
		}
	}
	if reveal.Result != want {
		return fmt.Errorf("%w: reported %s, cards give %s", ErrOutcomeMismatch, reveal.Result, want)
	}
	if reveal.BetAmount > 0 {
		if payout := blackjack.Payout(want, reveal.BetAmount); payout != reveal.Payout {
			return fmt.Errorf("%w: payout %d on %s of %d, want %d", ErrOutcomeMismatch, reveal.Payout, want, reveal.BetAmount, payout)
		}
	}
	return nil
}

// ExpectedOutcome replays how a round must have ended from its final hands:
// a natural on the opening deal, a player bust or hit to 21 with the dealer
// untouched, or a stand after the dealer drew exactly as the rules demand.
func ExpectedOutcome(player, dealer []models.Card, rules blackjack.Rules) (models.Outcome, error) {
	if len(player) < 2 || len(dealer) < 2 {
		return "", fmt.Errorf("%w: hands shorter than the opening deal", ErrOutcomeMismatch)
	}

	if outcome, ok := blackjack.ClassifyNaturals(player[:2], dealer[:2]); ok {
		if len(player) != 2 || len(dealer) != 2 {
			return "", fmt.Errorf("%w: cards drawn after a natural", ErrOutcomeMismatch)
		}
		return outcome, nil
	}

	value := blackjack.HandValue(player)
	if value >= blackjack.Blackjack {
		if len(dealer) != 2 {
			return "", fmt.Errorf("%w: dealer drew after the player finished on %d", ErrOutcomeMismatch, value)
		}
		if value > blackjack.Blackjack {
			return models.OutcomeBust, nil
		}
		return models.OutcomeWin, nil
	}

	drawn := 2
	for rules.DealerShouldDraw(dealer[:drawn]) {
		if drawn == len(dealer) {
			return "", fmt.Errorf("%w: dealer stopped on %d", ErrOutcomeMismatch, blackjack.HandValue(dealer))
		}
		drawn++
	}
	if drawn != len(dealer) {
		return "", fmt.Errorf("%w: dealer drew past %d", ErrOutcomeMismatch, blackjack.HandValue(dealer[:drawn]))
	}
	return blackjack.Classify(player, dealer), nil
}
