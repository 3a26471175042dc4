package services

import "time"

const (
	KeyPool          = "blackjack:pool:%s"
	KeySession       = "blackjack:session:%s"
	KeyUserActive    = "blackjack:user:%s:active"
	KeyUserCompleted = "blackjack:user:%s:completed"
	KeyOpenSessions  = "blackjack:sessions:open"
	KeyUsedSeeds     = "blackjack:seeds:used"
	KeyLedger        = "blackjack:ledger:%s"
	KeyWalletPending = "blackjack:wallet:pending"
	KeyAuditFlagged  = "blackjack:audit:flagged"

	KeyWallet        = "wallet:%s"
	KeyWalletHold    = "wallet:op:%s:hold"
	KeyWalletRelease = "wallet:op:%s:release"
	KeyRateLimit     = "ratelimit:%s:%s"
	KeyRevokedToken  = "auth:revoked:%s"

	TTLSession  = 7 * 24 * time.Hour
	TTLWalletOp = 7 * 24 * time.Hour

	MaxHistory = 100

	DefaultRateLimitDeal   = 30  // Max 30 deals per minute
	DefaultRateLimitAction = 120 // Max 120 hit/stand per minute
)
