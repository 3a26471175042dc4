package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"blackjack-pool-backend/internal/blackjack"
	"blackjack-pool-backend/internal/config"
	"blackjack-pool-backend/internal/fairness"
	"blackjack-pool-backend/internal/models"
	"blackjack-pool-backend/internal/services"
)

const (
	testStartingBalance = 10_000
	testInitialPool     = 10_000_000
)

type testEnv struct {
	mr     *miniredis.Miniredis
	client *redis.Client
	store  *services.RedisService
	wallet *services.RedisWallet
	clock  *quartz.Mock
	engine *services.GameEngine
	table  config.TableRules
}

func newTestEnv(t *testing.T, initialPool int64, opts ...services.Option) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env := &testEnv{
		mr:     mr,
		client: client,
		store:  services.NewRedisServiceFromClient(client, zerolog.Nop()),
		wallet: services.NewRedisWallet(client, testStartingBalance),
		clock:  quartz.NewMock(t),
		table:  config.DefaultTableRules(),
	}
	env.engine = env.newEngine(t, env.wallet, opts...)

	_, err := env.engine.InitPool(context.Background(), initialPool)
	require.NoError(t, err)
	return env
}

func (env *testEnv) newEngine(t *testing.T, wallet services.Wallet, opts ...services.Option) *services.GameEngine {
	t.Helper()
	all := append([]services.Option{services.WithClock(env.clock)}, opts...)
	return services.NewGameEngine(env.store, wallet, env.table, all...)
}

func deal(amount int64) models.DealRequest {
	return models.DealRequest{BetAmount: float64(amount), ClientSeed: "client-seed"}
}

// fixedRound pins both the server seed and the session ID so the opening
// cards are known in advance.
type fixedRound struct {
	commitment fairness.Commitment
	sessionID  string
	shoe       []models.Card
}

func (r fixedRound) options() []services.Option {
	return []services.Option{
		services.WithSeedSource(func() (fairness.Commitment, error) { return r.commitment, nil }),
		services.WithSessionIDs(func() string { return r.sessionID }),
	}
}

// findRound searches server seeds until the shoe for client-seed and
// sessionID satisfies match.
func findRound(t *testing.T, sessionID string, match func(shoe []models.Card) bool) fixedRound {
	t.Helper()
	for i := 0; i < 200_000; i++ {
		seed := fmt.Sprintf("test-server-seed-%d", i)
		shoe, err := fairness.NewShoe(seed, "client-seed", sessionID, fairness.DefaultDecks)
		require.NoError(t, err)
		cards := shoe.Peek(20)
		if match(cards) {
			return fixedRound{
				commitment: fairness.Commitment{ServerSeed: seed, ServerSeedHash: fairness.HashSeed(seed)},
				sessionID:  sessionID,
				shoe:       cards,
			}
		}
	}
	t.Fatalf("no seed found for %s", sessionID)
	return fixedRound{}
}

func opening(shoe []models.Card) (player, dealer []models.Card) {
	return []models.Card{shoe[0], shoe[2]}, []models.Card{shoe[1], shoe[3]}
}

func noNaturals(shoe []models.Card) bool {
	player, dealer := opening(shoe)
	_, ok := blackjack.ClassifyNaturals(player, dealer)
	return !ok
}

func ptr[T any](v T) *T {
	return &v
}
