package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"blackjack-pool-backend/internal/blackjack"
	"blackjack-pool-backend/internal/fairness"
	"blackjack-pool-backend/internal/models"
	"blackjack-pool-backend/internal/services"
)

func TestGetPoolDerivesMaxBet(t *testing.T) {
	env := newTestEnv(t, testInitialPool)

	pool, err := env.engine.GetPool(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(testInitialPool), pool.TotalPool)
	assert.Equal(t, int64(100_000), pool.MaxBet)
	assert.Equal(t, int64(10), pool.MinBet)
	assert.Zero(t, pool.Exposure)
}

func TestInitPoolKeepsExistingBalance(t *testing.T) {
	env := newTestEnv(t, testInitialPool)

	pool, err := env.engine.InitPool(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(testInitialPool), pool.TotalPool)
}

func TestDealPlayerBlackjack(t *testing.T) {
	round := findRound(t, "natural-session", func(shoe []models.Card) bool {
		player, dealer := opening(shoe)
		return blackjack.IsBlackjack(player) && !blackjack.IsBlackjack(dealer)
	})
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	view, err := env.engine.Deal(ctx, "alice", deal(100))
	require.NoError(t, err)

	assert.Equal(t, models.StateFinished, view.GameState)
	assert.Equal(t, models.OutcomeBlackjack, view.Result)
	assert.Equal(t, int64(250), view.Payout)
	assert.Equal(t, 21, view.PlayerScore)
	assert.False(t, view.DealerCards[1].Hidden)

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(testInitialPool-150), pool.TotalPool)
	assert.Equal(t, int64(1), pool.GamesPlayed)
	assert.Zero(t, pool.Exposure)

	balance, err := env.engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(testStartingBalance+150), balance.Balance)
	assert.Zero(t, balance.LockedBalance)

	_, err = env.engine.ActiveSession(ctx, "alice")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
}

func TestDealHidesHoleCard(t *testing.T) {
	round := findRound(t, "hidden-session", noNaturals)
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	view, err := env.engine.Deal(ctx, "alice", deal(50))
	require.NoError(t, err)

	assert.Equal(t, models.StatePlaying, view.GameState)
	require.Len(t, view.DealerCards, 2)
	assert.True(t, view.DealerCards[1].Hidden)
	assert.Empty(t, view.DealerCards[1].Rank)
	assert.Equal(t, round.shoe[1].Value(), view.DealerScore)
	assert.Equal(t, round.commitment.ServerSeedHash, view.ServerSeedHash)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), round.commitment.ServerSeed)

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), pool.Exposure, "open session reserves a 1:1 win")
	assert.Equal(t, int64(testInitialPool), pool.TotalPool)

	active, err := env.engine.ActiveSession(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, view.SessionID, active.SessionID)
	assert.True(t, active.DealerCards[1].Hidden)
}

func TestDealRejectsInvalidBets(t *testing.T) {
	env := newTestEnv(t, testInitialPool)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.DealRequest
		want error
	}{
		{"below minimum", deal(5), services.ErrBetTooSmall},
		{"above cap", deal(100_001), services.ErrBetTooLarge},
		{"fractional", models.DealRequest{BetAmount: 10.5}, services.ErrInvalidBet},
		{"negative", models.DealRequest{BetAmount: -10}, services.ErrInvalidBet},
		{"more than balance", deal(testStartingBalance + 1), services.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.Deal(ctx, "alice", tt.req)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, services.ErrInvalidBet)
		})
	}

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	assert.Zero(t, pool.GamesPlayed)
	assert.Zero(t, pool.Exposure)

	balance, err := env.engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, balance.LockedBalance)
}

func TestDealInsufficientLiquidity(t *testing.T) {
	// max bet clamps up to the minimum of 10 but the worst case needs 15
	env := newTestEnv(t, 12)
	ctx := context.Background()

	_, err := env.engine.Deal(ctx, "alice", deal(10))
	require.ErrorIs(t, err, services.ErrInsufficientLiquidity)

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), pool.TotalPool)
	assert.Zero(t, pool.Exposure)

	balance, err := env.engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(testStartingBalance), balance.Balance)
	assert.Zero(t, balance.LockedBalance)
}

func TestDealRejectsSecondOpenSession(t *testing.T) {
	round := findRound(t, "first-session", noNaturals)
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	_, err := env.engine.Deal(ctx, "alice", deal(10))
	require.NoError(t, err)

	_, err = env.engine.Deal(ctx, "alice", deal(10))
	require.ErrorIs(t, err, services.ErrSessionConflict)

	balance, err := env.engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance.LockedBalance)
}

func TestDealRejectsReusedServerSeed(t *testing.T) {
	commitment := fairness.Commitment{ServerSeed: "same-seed", ServerSeedHash: fairness.HashSeed("same-seed")}
	var n atomic.Int64
	env := newTestEnv(t, testInitialPool,
		services.WithSeedSource(func() (fairness.Commitment, error) { return commitment, nil }),
		services.WithSessionIDs(func() string { return fmt.Sprintf("session-%d", n.Add(1)) }),
	)
	ctx := context.Background()

	_, err := env.engine.Deal(ctx, "alice", deal(10))
	require.NoError(t, err)

	_, err = env.engine.Deal(ctx, "bob", deal(10))
	require.ErrorIs(t, err, services.ErrFairnessViolation)
	assert.True(t, services.IsFatal(err))

	balance, err := env.engine.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(testStartingBalance), balance.Balance)
	assert.Zero(t, balance.LockedBalance)
}

func TestHitToBust(t *testing.T) {
	round := findRound(t, "bust-session", func(shoe []models.Card) bool {
		if !noNaturals(shoe) {
			return false
		}
		player, _ := opening(shoe)
		return blackjack.HandValue(player) >= 12 &&
			blackjack.IsBust(append(player, shoe[4]))
	})
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	dealt, err := env.engine.Deal(ctx, "alice", deal(200))
	require.NoError(t, err)

	view, err := env.engine.Hit(ctx, "alice", dealt.SessionID, ptr(dealt.Version))
	require.NoError(t, err)
	assert.Equal(t, models.StateFinished, view.GameState)
	assert.Equal(t, models.OutcomeBust, view.Result)
	assert.Zero(t, view.Payout)
	assert.Len(t, view.PlayerCards, 3)
	assert.Equal(t, round.shoe[4], view.PlayerCards[2])
	assert.False(t, view.DealerCards[1].Hidden, "hole card is revealed at settlement")

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(testInitialPool+200), pool.TotalPool)
	assert.Zero(t, pool.Exposure)

	balance, err := env.engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(testStartingBalance-200), balance.Balance)
	assert.Zero(t, balance.LockedBalance)

	_, err = env.engine.Stand(ctx, "alice", dealt.SessionID, nil)
	assert.ErrorIs(t, err, services.ErrSessionNotActive)
}

func TestStandDealerBusts(t *testing.T) {
	rules := blackjack.Rules{}
	round := findRound(t, "dealer-bust-session", func(shoe []models.Card) bool {
		if !noNaturals(shoe) {
			return false
		}
		player, dealer := opening(shoe)
		if blackjack.HandValue(player) != 18 || blackjack.HandValue(dealer) >= 17 {
			return false
		}
		next := 4
		for rules.DealerShouldDraw(dealer) {
			dealer = append(dealer, shoe[next])
			next++
		}
		return blackjack.IsBust(dealer)
	})
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	dealt, err := env.engine.Deal(ctx, "alice", deal(100))
	require.NoError(t, err)

	view, err := env.engine.Stand(ctx, "alice", dealt.SessionID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StateFinished, view.GameState)
	assert.Equal(t, models.OutcomeWin, view.Result)
	assert.Equal(t, int64(200), view.Payout)
	assert.Greater(t, len(view.DealerCards), 2)
	assert.Greater(t, view.DealerScore, 21)

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(testInitialPool-100), pool.TotalPool)

	entries, err := env.engine.Ledger(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(testInitialPool), entries[0].PoolBefore)
	assert.Equal(t, int64(testInitialPool-100), entries[0].PoolAfter)
	assert.Equal(t, models.OutcomeWin, entries[0].Result)
}

func TestActionsRejectWrongCallerAndStaleVersion(t *testing.T) {
	round := findRound(t, "owned-session", func(shoe []models.Card) bool {
		player, _ := opening(shoe)
		// a hit from 9 or less can neither bust nor reach 21
		return noNaturals(shoe) && blackjack.HandValue(player) <= 9
	})
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	dealt, err := env.engine.Deal(ctx, "alice", deal(10))
	require.NoError(t, err)

	_, err = env.engine.Hit(ctx, "mallory", dealt.SessionID, nil)
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	_, err = env.engine.Hit(ctx, "alice", "no-such-session", nil)
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	hit, err := env.engine.Hit(ctx, "alice", dealt.SessionID, ptr(dealt.Version))
	require.NoError(t, err)
	assert.Equal(t, models.StatePlaying, hit.GameState)
	assert.Equal(t, dealt.Version+1, hit.Version)

	// replay of the same request
	_, err = env.engine.Hit(ctx, "alice", dealt.SessionID, ptr(dealt.Version))
	assert.ErrorIs(t, err, services.ErrSessionConflict)

	view, err := env.engine.Stand(ctx, "alice", dealt.SessionID, ptr(hit.Version))
	require.NoError(t, err)
	assert.Equal(t, models.StateFinished, view.GameState)
}

func TestConcurrentDealsSameUser(t *testing.T) {
	env := newTestEnv(t, testInitialPool)
	ctx := context.Background()

	views := make([]*models.SessionView, 8)
	var g errgroup.Group
	for i := range views {
		g.Go(func() error {
			view, err := env.engine.Deal(ctx, "alice", deal(10))
			if err != nil {
				if assert.ErrorIs(t, err, services.ErrSessionConflict) {
					return nil
				}
				return err
			}
			views[i] = view
			return nil
		})
	}
	require.NoError(t, g.Wait())

	open := 0
	for _, v := range views {
		if v != nil && v.GameState == models.StatePlaying {
			open++
		}
	}
	assert.LessOrEqual(t, open, 1)

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(open*10), pool.Exposure)

	balance, err := env.engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(open*10), balance.LockedBalance)
}

func TestConcurrentActionsOnOneSession(t *testing.T) {
	round := findRound(t, "raced-session", noNaturals)
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	dealt, err := env.engine.Deal(ctx, "alice", deal(10))
	require.NoError(t, err)

	var ok atomic.Int64
	var g errgroup.Group
	for i := 0; i < 6; i++ {
		g.Go(func() error {
			_, err := env.engine.Stand(ctx, "alice", dealt.SessionID, nil)
			if err == nil {
				ok.Add(1)
				return nil
			}
			assert.True(t, errors.Is(err, services.ErrSessionNotActive) || errors.Is(err, services.ErrSessionConflict), err)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(1), ok.Load())

	length, err := env.store.LedgerLen(ctx, env.table.GameType)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

// TestPoolConservation plays many rounds for several users at once and
// checks the pool against the ledger and the wallets.
func TestPoolConservation(t *testing.T) {
	env := newTestEnv(t, 100_000)
	ctx := context.Background()

	users := []string{"u1", "u2", "u3", "u4"}
	var g errgroup.Group
	for _, user := range users {
		g.Go(func() error {
			for round := 0; round < 15; round++ {
				view, err := env.engine.Deal(ctx, user, deal(int64(10+round)))
				if err != nil {
					return fmt.Errorf("deal: %w", err)
				}
				for view.GameState == models.StatePlaying {
					if view.PlayerScore < 15 {
						view, err = env.engine.Hit(ctx, user, view.SessionID, ptr(view.Version))
					} else {
						view, err = env.engine.Stand(ctx, user, view.SessionID, ptr(view.Version))
					}
					if err != nil {
						return fmt.Errorf("play: %w", err)
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	entries, err := env.store.GetLedger(ctx, env.table.GameType, 100)
	require.NoError(t, err)
	require.Len(t, entries, len(users)*15)

	net := map[string]int64{}
	var wagered, paid int64
	for _, e := range entries {
		wagered += e.Wager
		paid += e.Payout
		net[e.UserID] += e.Payout - e.Wager
		assert.Equal(t, e.PoolBefore+e.Wager-e.Payout, e.PoolAfter)
		assert.Equal(t, blackjack.Payout(e.Result, e.Wager), e.Payout)
	}

	assert.Equal(t, int64(100_000)+wagered-paid, pool.TotalPool)
	assert.Equal(t, wagered, pool.TotalWagered)
	assert.Equal(t, paid, pool.TotalPaidOut)
	assert.Equal(t, int64(len(entries)), pool.GamesPlayed)
	assert.Zero(t, pool.Exposure)
	assert.GreaterOrEqual(t, pool.TotalPool, int64(0))

	for _, user := range users {
		balance, err := env.engine.Balance(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, testStartingBalance+net[user], balance.Balance, user)
		assert.Zero(t, balance.LockedBalance, user)
	}
}

func TestRevealReplaysRound(t *testing.T) {
	env := newTestEnv(t, testInitialPool)
	ctx := context.Background()

	view, err := env.engine.Deal(ctx, "alice", deal(10))
	require.NoError(t, err)

	if view.GameState == models.StatePlaying {
		_, err = env.engine.Reveal(ctx, view.SessionID)
		require.ErrorIs(t, err, services.ErrSessionNotActive)

		view, err = env.engine.Stand(ctx, "alice", view.SessionID, nil)
		require.NoError(t, err)
	}

	reveal, err := env.engine.Reveal(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, view.ServerSeedHash, fairness.HashSeed(reveal.ServerSeed))
	assert.Equal(t, view.Result, reveal.Result)
	require.NoError(t, fairness.Verify(*reveal))
}

func TestRevealFlagsTamperedSession(t *testing.T) {
	round := findRound(t, "tampered-session", noNaturals)
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	dealt, err := env.engine.Deal(ctx, "alice", deal(10))
	require.NoError(t, err)
	_, err = env.engine.Stand(ctx, "alice", dealt.SessionID, nil)
	require.NoError(t, err)

	session, err := env.store.GetSession(ctx, dealt.SessionID)
	require.NoError(t, err)
	session.PlayerCards[0], session.PlayerCards[1] = session.PlayerCards[1], session.PlayerCards[0]
	if session.PlayerCards[0] == session.PlayerCards[1] {
		session.PlayerCards[0].Suit = models.Clubs
		session.PlayerCards[1].Suit = models.Hearts
	}
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	require.NoError(t, env.client.Set(ctx, fmt.Sprintf(services.KeySession, session.ID), raw, 0).Err())

	_, err = env.engine.Reveal(ctx, dealt.SessionID)
	require.ErrorIs(t, err, services.ErrFairnessViolation)

	flagged, err := env.store.FlaggedSessions(ctx)
	require.NoError(t, err)
	assert.Contains(t, flagged, dealt.SessionID)
}

func TestHistoryNewestFirst(t *testing.T) {
	env := newTestEnv(t, testInitialPool)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		view, err := env.engine.Deal(ctx, "alice", deal(10))
		require.NoError(t, err)
		if view.GameState == models.StatePlaying {
			view, err = env.engine.Stand(ctx, "alice", view.SessionID, nil)
			require.NoError(t, err)
		}
		ids = append(ids, view.SessionID)
		env.clock.Advance(time.Second)
	}

	history, err := env.engine.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ids[2], history[0].SessionID)
	assert.Equal(t, ids[0], history[2].SessionID)
	for _, h := range history {
		assert.Equal(t, models.StateFinished, h.GameState)
	}
}

func TestDealDealerBlackjack(t *testing.T) {
	round := findRound(t, "dealer-natural-session", func(shoe []models.Card) bool {
		player, dealer := opening(shoe)
		return !blackjack.IsBlackjack(player) && blackjack.IsBlackjack(dealer)
	})
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	view, err := env.engine.Deal(ctx, "alice", deal(100))
	require.NoError(t, err)
	assert.Equal(t, models.StateFinished, view.GameState)
	assert.Equal(t, models.OutcomeLose, view.Result)
	assert.Zero(t, view.Payout)
	assert.Equal(t, 21, view.DealerScore)
	assert.False(t, view.DealerCards[1].Hidden)

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(testInitialPool+100), pool.TotalPool)
	assert.Zero(t, pool.Exposure)

	balance, err := env.engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(testStartingBalance-100), balance.Balance)
	assert.Zero(t, balance.LockedBalance)

	reveal, err := env.engine.Reveal(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeLose, reveal.Result)
}

func TestDealBothBlackjackPushes(t *testing.T) {
	round := findRound(t, "double-natural-session", func(shoe []models.Card) bool {
		player, dealer := opening(shoe)
		return blackjack.IsBlackjack(player) && blackjack.IsBlackjack(dealer)
	})
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	view, err := env.engine.Deal(ctx, "alice", deal(100))
	require.NoError(t, err)
	assert.Equal(t, models.StateFinished, view.GameState)
	assert.Equal(t, models.OutcomePush, view.Result)
	assert.Equal(t, int64(100), view.Payout)

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(testInitialPool), pool.TotalPool)
	assert.Zero(t, pool.Exposure)
	assert.Equal(t, int64(1), pool.GamesPlayed)

	balance, err := env.engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(testStartingBalance), balance.Balance)
	assert.Zero(t, balance.LockedBalance)

	entries, err := env.engine.Ledger(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entries[0].PoolBefore, entries[0].PoolAfter)
}

func TestHitToTwentyOneWins(t *testing.T) {
	round := findRound(t, "hit-21-session", func(shoe []models.Card) bool {
		if !noNaturals(shoe) {
			return false
		}
		player, _ := opening(shoe)
		return blackjack.HandValue(append(player, shoe[4])) == blackjack.Blackjack
	})
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()

	dealt, err := env.engine.Deal(ctx, "alice", deal(100))
	require.NoError(t, err)
	require.Equal(t, models.StatePlaying, dealt.GameState)

	view, err := env.engine.Hit(ctx, "alice", dealt.SessionID, ptr(dealt.Version))
	require.NoError(t, err)
	assert.Equal(t, models.StateFinished, view.GameState)
	assert.Equal(t, models.OutcomeWin, view.Result)
	assert.Equal(t, int64(200), view.Payout, "a drawn 21 pays 1:1")
	assert.Equal(t, 21, view.PlayerScore)
	assert.Len(t, view.DealerCards, 2, "dealer does not draw")

	pool, err := env.engine.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(testInitialPool-100), pool.TotalPool)
	assert.Zero(t, pool.Exposure)

	balance, err := env.engine.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(testStartingBalance+100), balance.Balance)
	assert.Zero(t, balance.LockedBalance)

	reveal, err := env.engine.Reveal(ctx, view.SessionID)
	require.NoError(t, err)
	require.NoError(t, fairness.Verify(*reveal))
}

func TestFinishedSessionStaysRevealable(t *testing.T) {
	round := findRound(t, "kept-session", noNaturals)
	env := newTestEnv(t, testInitialPool, round.options()...)
	ctx := context.Background()
	key := fmt.Sprintf(services.KeySession, round.sessionID)

	dealt, err := env.engine.Deal(ctx, "alice", deal(10))
	require.NoError(t, err)
	assert.Equal(t, services.TTLSession, env.mr.TTL(key), "open sessions expire")

	_, err = env.engine.Stand(ctx, "alice", dealt.SessionID, nil)
	require.NoError(t, err)
	assert.Zero(t, env.mr.TTL(key))

	env.mr.FastForward(services.TTLSession + 24*time.Hour)

	reveal, err := env.engine.Reveal(ctx, dealt.SessionID)
	require.NoError(t, err)
	assert.Equal(t, round.commitment.ServerSeed, reveal.ServerSeed)

	entries, err := env.engine.Ledger(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, dealt.SessionID, entries[0].SessionID)
}
