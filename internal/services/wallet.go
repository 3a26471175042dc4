package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"blackjack-pool-backend/internal/models"
)

// Wallet is the player-balance side of a round. Both calls are idempotent
// per session so a retry after a crash never double-holds or double-pays.
type Wallet interface {
	Hold(ctx context.Context, userID, sessionID string, amount int64) error
	Release(ctx context.Context, userID, sessionID string, wager, payout int64) error
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
}

var errNoHold = errors.New("no hold recorded for session")

// RedisWallet keeps balances as hash fields so the Lua scripts can work on
// integers with HINCRBY.
type RedisWallet struct {
	client          *redis.Client
	startingBalance int64
}

func NewRedisWallet(client *redis.Client, startingBalance int64) *RedisWallet {
	return &RedisWallet{client: client, startingBalance: startingBalance}
}

var holdBalanceScript = redis.NewScript(`
	local wallet = KEYS[1]
	local marker = KEYS[2]

	if redis.call("EXISTS", marker) == 1 then
		return 1
	end

	redis.call("HSETNX", wallet, "balance", ARGV[2])
	redis.call("HSETNX", wallet, "locked", "0")

	local balance = tonumber(redis.call("HGET", wallet, "balance"))
	local locked = tonumber(redis.call("HGET", wallet, "locked"))
	local amount = tonumber(ARGV[1])

	if balance - locked < amount then
		return -1
	end

	redis.call("HINCRBY", wallet, "locked", ARGV[1])
	redis.call("SET", marker, ARGV[1], "EX", ARGV[3])

	return 0
`)

func (w *RedisWallet) Hold(ctx context.Context, userID, sessionID string, amount int64) error {
	keys := []string{
		fmt.Sprintf(KeyWallet, userID),
		fmt.Sprintf(KeyWalletHold, sessionID),
	}
	res, err := holdBalanceScript.Run(ctx, w.client, keys,
		amount, w.startingBalance, int64(TTLWalletOp.Seconds())).Int64()
	if err != nil {
		return fmt.Errorf("failed to hold balance: %w", err)
	}
	if res < 0 {
		return ErrInsufficientBalance
	}
	return nil
}

var releaseBalanceScript = redis.NewScript(`
	local wallet = KEYS[1]
	local hold = KEYS[2]
	local marker = KEYS[3]

	if redis.call("EXISTS", marker) == 1 then
		return 1
	end
	if redis.call("EXISTS", hold) == 0 then
		return -1
	end

	redis.call("HINCRBY", wallet, "locked", "-" .. ARGV[1])
	redis.call("HINCRBY", wallet, "balance", ARGV[2])
	redis.call("SET", marker, ARGV[2], "EX", ARGV[3])

	return 0
`)

// Release unlocks the wager and credits payout−wager, which is negative on
// a loss.
func (w *RedisWallet) Release(ctx context.Context, userID, sessionID string, wager, payout int64) error {
	keys := []string{
		fmt.Sprintf(KeyWallet, userID),
		fmt.Sprintf(KeyWalletHold, sessionID),
		fmt.Sprintf(KeyWalletRelease, sessionID),
	}
	res, err := releaseBalanceScript.Run(ctx, w.client, keys,
		wager, payout-wager, int64(TTLWalletOp.Seconds())).Int64()
	if err != nil {
		return fmt.Errorf("failed to release balance: %w", err)
	}
	if res < 0 {
		return fmt.Errorf("%w: %s", errNoHold, sessionID)
	}
	return nil
}

// GetWallet reports an untouched wallet at the starting balance without
// creating it.
func (w *RedisWallet) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	fields, err := w.client.HGetAll(ctx, fmt.Sprintf(KeyWallet, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	wallet := &models.Wallet{UserID: userID, Balance: w.startingBalance}
	if v, ok := fields["balance"]; ok {
		if wallet.Balance, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("corrupt wallet balance: %w", err)
		}
	}
	if v, ok := fields["locked"]; ok {
		if wallet.LockedBalance, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("corrupt wallet lock: %w", err)
		}
	}
	return wallet, nil
}
