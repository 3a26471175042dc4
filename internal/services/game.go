package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"blackjack-pool-backend/internal/blackjack"
	"blackjack-pool-backend/internal/config"
	"blackjack-pool-backend/internal/fairness"
	"blackjack-pool-backend/internal/models"
)

const (
	defaultMaxRetries = 50
	defaultSessionTTL = 10 * time.Minute
)

// GameEngine runs blackjack rounds against the shared house pool. Every
// state change of a session and the pool is one optimistic Redis
// transaction, so a settlement and its pool mutation land together or not
// at all.
type GameEngine struct {
	store       *RedisService
	wallet      Wallet
	table       config.TableRules
	rules       blackjack.Rules
	ledger      PoolLedger
	clock       quartz.Clock
	logger      zerolog.Logger
	broadcaster Broadcaster
	sessionTTL  time.Duration
	maxRetries  int

	commit    func() (fairness.Commitment, error)
	sessionID func() string
}

type Option func(*GameEngine)

func WithClock(clock quartz.Clock) Option {
	return func(e *GameEngine) { e.clock = clock }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *GameEngine) { e.logger = logger }
}

func WithBroadcaster(b Broadcaster) Option {
	return func(e *GameEngine) { e.broadcaster = b }
}

// WithSessionTTL bounds how long an open session may sit idle before the
// reaper settles it.
func WithSessionTTL(ttl time.Duration) Option {
	return func(e *GameEngine) { e.sessionTTL = ttl }
}

// WithSeedSource replaces the crypto/rand server seed generator.
func WithSeedSource(commit func() (fairness.Commitment, error)) Option {
	return func(e *GameEngine) { e.commit = commit }
}

func WithSessionIDs(next func() string) Option {
	return func(e *GameEngine) { e.sessionID = next }
}

func NewGameEngine(store *RedisService, wallet Wallet, table config.TableRules, opts ...Option) *GameEngine {
	e := &GameEngine{
		store:       store,
		wallet:      wallet,
		table:       table,
		rules:       blackjack.Rules{DealerHitsSoft17: table.DealerHitsSoft17},
		ledger:      NewPoolLedger(table),
		clock:       quartz.NewReal(),
		logger:      zerolog.Nop(),
		broadcaster: nopBroadcaster{},
		sessionTTL:  defaultSessionTTL,
		maxRetries:  defaultMaxRetries,
		commit:      fairness.Commit,
		sessionID:   models.GenerateSessionID,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "game_engine").Str("game_type", table.GameType).Logger()
	return e
}

func (e *GameEngine) Rules() blackjack.Rules {
	return e.rules
}

func (e *GameEngine) Table() config.TableRules {
	return e.table
}

// InitPool creates the pool with the given balance unless it already
// exists.
func (e *GameEngine) InitPool(ctx context.Context, initial int64) (models.Pool, error) {
	created, err := e.store.EnsurePool(ctx, models.Pool{
		GameType:  e.table.GameType,
		TotalPool: initial,
		HouseEdge: e.table.HouseEdge,
		MinBet:    e.table.MinBet,
	})
	if err != nil {
		return models.Pool{}, err
	}

	pool, err := e.GetPool(ctx)
	if err != nil {
		return models.Pool{}, err
	}
	if created {
		e.logger.Info().Int64("total_pool", pool.TotalPool).Msg("pool created")
	} else {
		e.logger.Info().Int64("total_pool", pool.TotalPool).Int64("games_played", pool.GamesPlayed).Msg("pool loaded")
	}
	return pool, nil
}

// GetPool returns the pool with its current max bet.
func (e *GameEngine) GetPool(ctx context.Context) (models.Pool, error) {
	pool, err := e.store.GetPool(ctx, e.table.GameType)
	if err != nil {
		return models.Pool{}, err
	}
	return e.ledger.Refresh(pool), nil
}

func (e *GameEngine) Deal(ctx context.Context, userID string, req models.DealRequest) (*models.SessionView, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}
	bet := req.Amount()

	clientSeed := req.ClientSeed
	if clientSeed == "" {
		seed, err := models.GenerateClientSeed()
		if err != nil {
			return nil, err
		}
		clientSeed = seed
	}

	// Cheap rejections before anything is held.
	activeID, err := e.store.GetActiveSessionID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if activeID != "" {
		return nil, fmt.Errorf("%w: session %s is still open", ErrSessionConflict, activeID)
	}
	pool, err := e.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateBet(pool, bet); err != nil {
		return nil, err
	}

	commitment, err := e.commit()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineInvariant, err)
	}
	base, err := e.newSession(userID, bet, clientSeed, commitment)
	if err != nil {
		return nil, err
	}

	if err := e.wallet.Hold(ctx, userID, base.ID, bet); err != nil {
		return nil, err
	}

	var (
		session *models.Session
		settled bool
	)
	poolKey := fmt.Sprintf(KeyPool, e.table.GameType)
	activeKey := fmt.Sprintf(KeyUserActive, userID)
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		err = e.store.WithTx(ctx, func(tx *redis.Tx) error {
			session, pool, settled, err = e.dealTx(ctx, tx, base)
			return err
		}, poolKey, activeKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if errors.Is(err, redis.TxFailedErr) {
		err = fmt.Errorf("%w: pool contention, retry the deal", ErrSessionConflict)
	}
	if err != nil {
		if rerr := e.wallet.Release(ctx, userID, base.ID, bet, bet); rerr != nil {
			e.logger.Error().Err(rerr).Str("session_id", base.ID).Msg("failed to refund hold after rejected deal")
		}
		return nil, err
	}

	e.logger.Info().
		Str("session_id", session.ID).
		Str("user_id", userID).
		Int64("bet", bet).
		Str("state", string(session.State)).
		Msg("session dealt")

	if settled {
		e.afterSettle(ctx, session)
	}
	view := projectSession(session)
	view.MaxBet = pool.MaxBet
	e.broadcaster.BroadcastSessionUpdate(userID, view)
	e.broadcaster.BroadcastPoolUpdate(pool)
	return &view, nil
}

// newSession deals the opening four cards. The shoe is a pure function of
// the seeds so this runs outside the transaction.
func (e *GameEngine) newSession(userID string, bet int64, clientSeed string, c fairness.Commitment) (*models.Session, error) {
	session := &models.Session{
		ID:             e.sessionID(),
		UserID:         userID,
		GameType:       e.table.GameType,
		BetAmount:      bet,
		ClientSeed:     clientSeed,
		ServerSeedHash: c.ServerSeedHash,
		ServerSeed:     c.ServerSeed,
		Decks:          e.table.Decks,
		State:          models.StateBetting,
	}

	shoe, err := fairness.NewShoe(session.ServerSeed, session.ClientSeed, session.ID, session.Decks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineInvariant, err)
	}
	for i := 0; i < 4; i++ {
		card, next, err := shoe.Draw(session.ShoeCursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEngineInvariant, err)
		}
		session.ShoeCursor = next
		if i%2 == 0 {
			session.PlayerCards = append(session.PlayerCards, card)
		} else {
			session.DealerCards = append(session.DealerCards, card)
		}
	}
	return session, nil
}

func (e *GameEngine) dealTx(ctx context.Context, tx *redis.Tx, base *models.Session) (*models.Session, models.Pool, bool, error) {
	var pool models.Pool

	activeID, err := readActiveSessionID(ctx, tx, base.UserID)
	if err != nil {
		return nil, pool, false, err
	}
	if activeID != "" {
		return nil, pool, false, fmt.Errorf("%w: session %s is still open", ErrSessionConflict, activeID)
	}

	pool, err = readPool(ctx, tx, e.table.GameType)
	if err != nil {
		return nil, pool, false, err
	}
	pool = e.ledger.Refresh(pool)
	if err := ValidateBet(pool, base.BetAmount); err != nil {
		return nil, pool, false, err
	}

	used, err := tx.SIsMember(ctx, KeyUsedSeeds, base.ServerSeedHash).Result()
	if err != nil {
		return nil, pool, false, fmt.Errorf("failed to check seed reuse: %w", err)
	}
	if used {
		return nil, pool, false, fmt.Errorf("%w: server seed reused", ErrFairnessViolation)
	}

	if pool.Available() < WorstCaseNet(base.BetAmount) {
		return nil, pool, false, fmt.Errorf("%w: available %d, worst case %d",
			ErrInsufficientLiquidity, pool.Available(), WorstCaseNet(base.BetAmount))
	}

	now := e.clock.Now()
	session := *base
	session.PlayerCards = append([]models.Card(nil), base.PlayerCards...)
	session.DealerCards = append([]models.Card(nil), base.DealerCards...)
	session.CreatedAt = now
	session.UpdatedAt = now

	var entry *models.LedgerEntry
	if outcome, ok := blackjack.ClassifyNaturals(session.PlayerCards, session.DealerCards); ok {
		settledPool, settledEntry, err := e.settle(&session, pool, outcome, false, now)
		if err != nil {
			return nil, pool, false, err
		}
		pool, entry = settledPool, &settledEntry
	} else {
		pool, err = Reserve(pool, session.BetAmount)
		if err != nil {
			return nil, pool, false, err
		}
		session.State = models.StatePlaying
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := queueSession(ctx, pipe, &session); err != nil {
			return err
		}
		if err := queuePool(ctx, pipe, pool); err != nil {
			return err
		}
		pipe.SAdd(ctx, KeyUsedSeeds, session.ServerSeedHash)
		if entry != nil {
			return queueSettlement(ctx, pipe, &session, *entry)
		}
		queueOpen(ctx, pipe, &session)
		return nil
	})
	if err != nil {
		return nil, pool, false, err
	}
	return &session, e.ledger.Refresh(pool), entry != nil, nil
}

// Hit draws one card for the player. expectedVersion, when set, must match
// the stored version so a replayed request cannot draw twice.
func (e *GameEngine) Hit(ctx context.Context, userID, sessionID string, expectedVersion *int64) (*models.SessionView, error) {
	return e.act(ctx, userID, sessionID, expectedVersion, func(s *models.Session, shoe *fairness.Shoe) (models.Outcome, bool, error) {
		card, next, err := shoe.Draw(s.ShoeCursor)
		if err != nil {
			return "", false, fmt.Errorf("%w: %w", ErrEngineInvariant, err)
		}
		s.ShoeCursor = next
		s.PlayerCards = append(s.PlayerCards, card)

		switch {
		case blackjack.IsBust(s.PlayerCards):
			return models.OutcomeBust, true, nil
		case blackjack.HandValue(s.PlayerCards) == blackjack.Blackjack:
			return models.OutcomeWin, true, nil
		}
		return "", false, nil
	})
}

// Stand plays out the dealer and settles.
func (e *GameEngine) Stand(ctx context.Context, userID, sessionID string, expectedVersion *int64) (*models.SessionView, error) {
	return e.act(ctx, userID, sessionID, expectedVersion, func(s *models.Session, shoe *fairness.Shoe) (models.Outcome, bool, error) {
		s.State = models.StateDealerTurn
		for e.rules.DealerShouldDraw(s.DealerCards) {
			card, next, err := shoe.Draw(s.ShoeCursor)
			if err != nil {
				return "", false, fmt.Errorf("%w: %w", ErrEngineInvariant, err)
			}
			s.ShoeCursor = next
			s.DealerCards = append(s.DealerCards, card)
		}
		return blackjack.Classify(s.PlayerCards, s.DealerCards), true, nil
	})
}

type stepFunc func(s *models.Session, shoe *fairness.Shoe) (outcome models.Outcome, done bool, err error)

func (e *GameEngine) act(ctx context.Context, userID, sessionID string, expectedVersion *int64, step stepFunc) (*models.SessionView, error) {
	var (
		session *models.Session
		pool    models.Pool
		settled bool
		seen    int64 = -1
		err     error
	)

	sessionKey := fmt.Sprintf(KeySession, sessionID)
	poolKey := fmt.Sprintf(KeyPool, e.table.GameType)
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		err = e.store.WithTx(ctx, func(tx *redis.Tx) error {
			s, err := readSession(ctx, tx, sessionID)
			if err != nil {
				return err
			}
			if s.UserID != userID {
				return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
			}
			if s.State != models.StatePlaying {
				return fmt.Errorf("%w: session is %s", ErrSessionNotActive, s.State)
			}
			if expectedVersion != nil && *expectedVersion != s.Version {
				return fmt.Errorf("%w: expected version %d, session is at %d", ErrSessionConflict, *expectedVersion, s.Version)
			}
			// A retry after losing the WATCH race must not replay onto a
			// session another request already advanced.
			if seen >= 0 && s.Version != seen {
				return fmt.Errorf("%w: session advanced concurrently", ErrSessionConflict)
			}
			seen = s.Version

			session, pool, settled, err = e.stepTx(ctx, tx, s, step)
			return err
		}, sessionKey, poolKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if errors.Is(err, redis.TxFailedErr) {
		err = fmt.Errorf("%w: too much contention", ErrSessionConflict)
	}
	if err != nil {
		if IsFatal(err) {
			e.logger.Error().Err(err).Str("session_id", sessionID).Msg("round aborted")
		}
		return nil, err
	}

	if settled {
		e.afterSettle(ctx, session)
		e.broadcaster.BroadcastPoolUpdate(pool)
	}
	view := projectSession(session)
	e.broadcaster.BroadcastSessionUpdate(userID, view)
	return &view, nil
}

func (e *GameEngine) stepTx(ctx context.Context, tx *redis.Tx, s *models.Session, step stepFunc) (*models.Session, models.Pool, bool, error) {
	var pool models.Pool

	if err := fairness.VerifyCommitment(s.ServerSeed, s.ServerSeedHash); err != nil {
		return nil, pool, false, fmt.Errorf("%w: %w", ErrFairnessViolation, err)
	}
	shoe, err := fairness.NewShoe(s.ServerSeed, s.ClientSeed, s.ID, s.Decks)
	if err != nil {
		return nil, pool, false, fmt.Errorf("%w: %w", ErrEngineInvariant, err)
	}
	pool, err = readPool(ctx, tx, s.GameType)
	if err != nil {
		return nil, pool, false, err
	}

	outcome, done, err := step(s, shoe)
	if err != nil {
		return nil, pool, false, err
	}

	now := e.clock.Now()
	s.Version++
	s.UpdatedAt = now

	var entry models.LedgerEntry
	if done {
		pool, entry, err = e.settle(s, pool, outcome, true, now)
		if err != nil {
			return nil, pool, false, err
		}
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := queueSession(ctx, pipe, s); err != nil {
			return err
		}
		if !done {
			// refresh the idle clock the reaper reads
			queueOpen(ctx, pipe, s)
			return nil
		}
		if err := queuePool(ctx, pipe, pool); err != nil {
			return err
		}
		return queueSettlement(ctx, pipe, s, entry)
	})
	if err != nil {
		return nil, pool, false, err
	}
	return s, e.ledger.Refresh(pool), done, nil
}

// settle finishes the session and applies its outcome to the pool. reserved
// says whether the session's exposure was booked at deal time.
func (e *GameEngine) settle(s *models.Session, pool models.Pool, outcome models.Outcome, reserved bool, now time.Time) (models.Pool, models.LedgerEntry, error) {
	payout := blackjack.Payout(outcome, s.BetAmount)
	if reserved {
		pool = ReleaseReserve(pool, s.BetAmount)
	}

	before := pool.TotalPool
	pool, err := ApplyOutcome(pool, s.BetAmount, payout)
	if err != nil {
		return pool, models.LedgerEntry{}, err
	}

	s.State = models.StateFinished
	s.Result = outcome
	s.Payout = payout
	s.UpdatedAt = now
	s.FinishedAt = now

	entry := models.LedgerEntry{
		ID:         models.GenerateLedgerEntryID(),
		SessionID:  s.ID,
		UserID:     s.UserID,
		Wager:      s.BetAmount,
		Payout:     payout,
		Result:     outcome,
		PoolBefore: before,
		PoolAfter:  pool.TotalPool,
		Abandoned:  s.Abandoned,
		Timestamp:  now,
	}
	return pool, entry, nil
}

// afterSettle pays the player once the settlement is durable. A failure
// leaves the session in the pending set for the reaper.
func (e *GameEngine) afterSettle(ctx context.Context, s *models.Session) {
	logger := e.logger.With().Str("session_id", s.ID).Str("user_id", s.UserID).Logger()
	logger.Info().
		Str("result", string(s.Result)).
		Int64("bet", s.BetAmount).
		Int64("payout", s.Payout).
		Bool("abandoned", s.Abandoned).
		Msg("session settled")

	if err := e.wallet.Release(ctx, s.UserID, s.ID, s.BetAmount, s.Payout); err != nil {
		logger.Warn().Err(err).Msg("wallet release deferred")
		return
	}
	if err := e.store.ClearPendingRelease(ctx, s.ID); err != nil {
		logger.Warn().Err(err).Msg("failed to clear pending release")
	}
}

// ActiveSession returns the caller's open session.
func (e *GameEngine) ActiveSession(ctx context.Context, userID string) (*models.SessionView, error) {
	id, err := e.store.GetActiveSessionID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: no open session", ErrSessionNotFound)
	}
	session, err := e.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	view := projectSession(session)
	return &view, nil
}

// Reveal discloses the server seed of a finished session after checking
// that it replays to the cards actually dealt.
func (e *GameEngine) Reveal(ctx context.Context, sessionID string) (*models.Reveal, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsFinished() {
		return nil, fmt.Errorf("%w: seed is revealed once the session finishes", ErrSessionNotActive)
	}

	reveal := &models.Reveal{
		SessionID:      session.ID,
		ServerSeed:     session.ServerSeed,
		ServerSeedHash: session.ServerSeedHash,
		ClientSeed:     session.ClientSeed,
		Decks:          session.Decks,
		PlayerCards:    session.PlayerCards,
		DealerCards:    session.DealerCards,
		Result:         session.Result,
		BetAmount:      session.BetAmount,
		Payout:         session.Payout,

		DealerHitsSoft17: e.rules.DealerHitsSoft17,
		Abandoned:        session.Abandoned,
	}
	if err := fairness.Verify(*reveal); err != nil {
		e.logger.Error().Err(err).Str("session_id", sessionID).Msg("reveal failed verification")
		if ferr := e.store.FlagForAudit(ctx, sessionID, err.Error()); ferr != nil {
			e.logger.Error().Err(ferr).Str("session_id", sessionID).Msg("failed to flag session")
		}
		return nil, fmt.Errorf("%w: %w", ErrFairnessViolation, err)
	}
	return reveal, nil
}

func (e *GameEngine) History(ctx context.Context, userID string, limit int64) ([]models.SessionView, error) {
	sessions, err := e.store.GetGameHistory(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	views := make([]models.SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, projectSession(s))
	}
	return views, nil
}

func (e *GameEngine) Ledger(ctx context.Context, limit int64) ([]models.LedgerEntry, error) {
	return e.store.GetLedger(ctx, e.table.GameType, limit)
}

func (e *GameEngine) Balance(ctx context.Context, userID string) (*models.BalanceResponse, error) {
	wallet, err := e.wallet.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.BalanceResponse{
		Balance:       wallet.Balance,
		LockedBalance: wallet.LockedBalance,
		Available:     wallet.Available(),
	}, nil
}

// AbandonStale settles every open session idle for longer than the session
// TTL as a loss. It returns how many were settled.
func (e *GameEngine) AbandonStale(ctx context.Context) (int, error) {
	cutoff := e.clock.Now().Add(-e.sessionTTL)
	ids, err := e.store.OpenSessionsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list open sessions: %w", err)
	}

	settled := 0
	for _, id := range ids {
		ok, err := e.abandon(ctx, id, cutoff)
		if err != nil {
			e.logger.Error().Err(err).Str("session_id", id).Msg("failed to abandon session")
			continue
		}
		if ok {
			settled++
		}
	}
	return settled, nil
}

func (e *GameEngine) abandon(ctx context.Context, sessionID string, cutoff time.Time) (bool, error) {
	var (
		session *models.Session
		pool    models.Pool
		settled bool
		err     error
	)

	sessionKey := fmt.Sprintf(KeySession, sessionID)
	poolKey := fmt.Sprintf(KeyPool, e.table.GameType)
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		settled = false
		err = e.store.WithTx(ctx, func(tx *redis.Tx) error {
			s, err := readSession(ctx, tx, sessionID)
			if errors.Is(err, ErrSessionNotFound) {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.ZRem(ctx, KeyOpenSessions, sessionID)
					return nil
				})
				return err
			}
			if err != nil {
				return err
			}
			if s.State != models.StatePlaying {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.ZRem(ctx, KeyOpenSessions, sessionID)
					return nil
				})
				return err
			}
			if s.UpdatedAt.After(cutoff) {
				return nil
			}

			s.Abandoned = true
			session, pool, settled, err = e.stepTx(ctx, tx, s, func(*models.Session, *fairness.Shoe) (models.Outcome, bool, error) {
				return models.OutcomeLose, true, nil
			})
			return err
		}, sessionKey, poolKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return false, err
	}
	if !settled {
		return false, nil
	}

	e.afterSettle(ctx, session)
	e.broadcaster.BroadcastSessionUpdate(session.UserID, projectSession(session))
	e.broadcaster.BroadcastPoolUpdate(pool)
	return true, nil
}

// RetryWalletReleases pays out settlements whose wallet update failed.
func (e *GameEngine) RetryWalletReleases(ctx context.Context) (int, error) {
	ids, err := e.store.PendingWalletReleases(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending releases: %w", err)
	}

	released := 0
	for _, id := range ids {
		logger := e.logger.With().Str("session_id", id).Logger()

		session, err := e.store.GetSession(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			logger.Error().Msg("pending release for missing session, dropping")
			_ = e.store.ClearPendingRelease(ctx, id)
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load session for release")
			continue
		}
		if !session.IsFinished() {
			continue
		}

		err = e.wallet.Release(ctx, session.UserID, session.ID, session.BetAmount, session.Payout)
		if errors.Is(err, errNoHold) {
			logger.Error().Err(err).Msg("release has no matching hold, needs manual reconciliation")
			_ = e.store.ClearPendingRelease(ctx, id)
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Msg("wallet release still failing")
			continue
		}
		if err := e.store.ClearPendingRelease(ctx, id); err != nil {
			logger.Warn().Err(err).Msg("failed to clear pending release")
			continue
		}
		released++
	}
	return released, nil
}

// projectSession is the only way a Session leaves the engine: the server
// seed is dropped and the hole card is masked while the player can act.
func projectSession(s *models.Session) models.SessionView {
	player := append([]models.Card(nil), s.PlayerCards...)
	dealer := append([]models.Card(nil), s.DealerCards...)
	dealerScore := blackjack.HandValue(dealer)
	if s.State == models.StatePlaying && len(dealer) > 1 {
		dealer[1] = models.Card{Hidden: true}
		dealerScore = blackjack.HandValue(dealer[:1])
	}

	return models.SessionView{
		SessionID:      s.ID,
		GameState:      s.State,
		BetAmount:      s.BetAmount,
		PlayerCards:    player,
		DealerCards:    dealer,
		PlayerScore:    blackjack.HandValue(player),
		DealerScore:    dealerScore,
		Result:         s.Result,
		Payout:         s.Payout,
		ClientSeed:     s.ClientSeed,
		ServerSeedHash: s.ServerSeedHash,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
	}
}
