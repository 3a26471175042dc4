package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"blackjack-pool-backend/internal/config"
	"blackjack-pool-backend/internal/models"
)

type RedisService struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisServiceFromClient(client, logger), nil
}

func NewRedisServiceFromClient(client *redis.Client, logger zerolog.Logger) *RedisService {
	return &RedisService{
		client: client,
		logger: logger.With().Str("component", "redis").Logger(),
	}
}

func (s *RedisService) Client() *redis.Client {
	return s.client
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// WithTx runs fn once under WATCH on keys. fn reads through the watched
// connection and queues writes with tx.TxPipelined. A concurrent write to a
// watched key surfaces as redis.TxFailedErr; callers decide whether to retry.
func (s *RedisService) WithTx(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	return s.client.Watch(ctx, fn, keys...)
}

// EnsurePool creates the pool record if it does not exist yet.
func (s *RedisService) EnsurePool(ctx context.Context, pool models.Pool) (bool, error) {
	data, err := json.Marshal(pool)
	if err != nil {
		return false, fmt.Errorf("failed to marshal pool: %w", err)
	}
	created, err := s.client.SetNX(ctx, fmt.Sprintf(KeyPool, pool.GameType), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to create pool: %w", err)
	}
	return created, nil
}

func (s *RedisService) GetPool(ctx context.Context, gameType string) (models.Pool, error) {
	return readPool(ctx, s.client, gameType)
}

func (s *RedisService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return readSession(ctx, s.client, sessionID)
}

// GetActiveSessionID returns "" when the user has no open session.
func (s *RedisService) GetActiveSessionID(ctx context.Context, userID string) (string, error) {
	return readActiveSessionID(ctx, s.client, userID)
}

// GetLedger returns the newest entries first.
func (s *RedisService) GetLedger(ctx context.Context, gameType string, limit int64) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = 50
	}

	raw, err := s.client.LRange(ctx, fmt.Sprintf(KeyLedger, gameType), -limit, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	entries := make([]models.LedgerEntry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var entry models.LedgerEntry
		if err := json.Unmarshal([]byte(raw[i]), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisService) LedgerLen(ctx context.Context, gameType string) (int64, error) {
	return s.client.LLen(ctx, fmt.Sprintf(KeyLedger, gameType)).Result()
}

func (s *RedisService) GetGameHistory(ctx context.Context, userID string, limit int64) ([]*models.Session, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = 50
	}

	ids, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyUserCompleted, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session IDs: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Session{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeySession, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	sessions := make([]*models.Session, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			// expired
			continue
		}
		var session models.Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, userID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// FlagForAudit records a session whose reveal failed verification.
func (s *RedisService) FlagForAudit(ctx context.Context, sessionID, reason string) error {
	return s.client.HSet(ctx, KeyAuditFlagged, sessionID, reason).Err()
}

func (s *RedisService) FlaggedSessions(ctx context.Context) (map[string]string, error) {
	return s.client.HGetAll(ctx, KeyAuditFlagged).Result()
}

// OpenSessionsBefore lists open sessions last touched at or before cutoff.
func (s *RedisService) OpenSessionsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.client.ZRangeByScore(ctx, KeyOpenSessions, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
}

func (s *RedisService) PendingWalletReleases(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, KeyWalletPending).Result()
}

func (s *RedisService) ClearPendingRelease(ctx context.Context, sessionID string) error {
	return s.client.SRem(ctx, KeyWalletPending, sessionID).Err()
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readPool(ctx context.Context, c getter, gameType string) (models.Pool, error) {
	var pool models.Pool
	data, err := c.Get(ctx, fmt.Sprintf(KeyPool, gameType)).Bytes()
	if errors.Is(err, redis.Nil) {
		return pool, fmt.Errorf("%w: pool %q is not initialised", ErrEngineInvariant, gameType)
	}
	if err != nil {
		return pool, fmt.Errorf("failed to get pool: %w", err)
	}
	if err := json.Unmarshal(data, &pool); err != nil {
		return pool, fmt.Errorf("failed to unmarshal pool: %w", err)
	}
	return pool, nil
}

func readSession(ctx context.Context, c getter, sessionID string) (*models.Session, error) {
	data, err := c.Get(ctx, fmt.Sprintf(KeySession, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func readActiveSessionID(ctx context.Context, c getter, userID string) (string, error) {
	id, err := c.Get(ctx, fmt.Sprintf(KeyUserActive, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get active session: %w", err)
	}
	return id, nil
}

// queueSession writes the session record. Open sessions expire with
// TTLSession; finished ones never expire so their seed stays revealable.
func queueSession(ctx context.Context, pipe redis.Pipeliner, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ttl := TTLSession
	if session.IsFinished() {
		ttl = 0
	}
	pipe.Set(ctx, fmt.Sprintf(KeySession, session.ID), data, ttl)
	return nil
}

func queuePool(ctx context.Context, pipe redis.Pipeliner, pool models.Pool) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("failed to marshal pool: %w", err)
	}
	pipe.Set(ctx, fmt.Sprintf(KeyPool, pool.GameType), data, 0)
	return nil
}

// queueSettlement appends the ledger entry and moves the session from the
// open indexes into the user's history.
func queueSettlement(ctx context.Context, pipe redis.Pipeliner, session *models.Session, entry models.LedgerEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	completedKey := fmt.Sprintf(KeyUserCompleted, session.UserID)
	pipe.RPush(ctx, fmt.Sprintf(KeyLedger, session.GameType), data)
	pipe.Del(ctx, fmt.Sprintf(KeyUserActive, session.UserID))
	pipe.ZRem(ctx, KeyOpenSessions, session.ID)
	pipe.ZAdd(ctx, completedKey, redis.Z{
		Score:  float64(session.FinishedAt.UnixMilli()),
		Member: session.ID,
	})
	pipe.ZRemRangeByRank(ctx, completedKey, 0, -(MaxHistory + 1))
	pipe.SAdd(ctx, KeyWalletPending, session.ID)
	return nil
}

func queueOpen(ctx context.Context, pipe redis.Pipeliner, session *models.Session) {
	pipe.Set(ctx, fmt.Sprintf(KeyUserActive, session.UserID), session.ID, TTLSession)
	pipe.ZAdd(ctx, KeyOpenSessions, redis.Z{
		Score:  float64(session.UpdatedAt.UnixMilli()),
		Member: session.ID,
	})
}

// RevokeToken blocks a token's session id until ttl passes.
func (s *RedisService) RevokeToken(ctx context.Context, tokenSessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, fmt.Sprintf(KeyRevokedToken, tokenSessionID), 1, ttl).Err()
}

func (s *RedisService) IsTokenRevoked(ctx context.Context, tokenSessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, fmt.Sprintf(KeyRevokedToken, tokenSessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
