// Package fairness implements the commit-reveal protocol and the keyed
// shoe. It has no dependency on the live service so a revealed round can be
// checked offline.
package fairness

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

const seedBytes = 32

var (
	ErrCommitmentMismatch = errors.New("server seed does not match committed hash")
	ErrShoeExhausted      = errors.New("shoe exhausted")
	ErrCardMismatch       = errors.New("dealt cards do not match the shoe")
	ErrOutcomeMismatch    = errors.New("result does not follow from the dealt cards")
)

// Commitment pairs a fresh server seed with the hash handed out before play.
type Commitment struct {
	ServerSeed     string
	ServerSeedHash string
}

// Commit generates a new server seed and its SHA-256 commitment.
func Commit() (Commitment, error) {
	bytes := make([]byte, seedBytes)
	if _, err := rand.Read(bytes); err != nil {
		return Commitment{}, fmt.Errorf("failed to generate server seed: %w", err)
	}
	seed := hex.EncodeToString(bytes)
	return Commitment{ServerSeed: seed, ServerSeedHash: HashSeed(seed)}, nil
}

func HashSeed(serverSeed string) string {
	hash := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(hash[:])
}

// VerifyCommitment checks a revealed seed against its earlier hash.
func VerifyCommitment(serverSeed, serverSeedHash string) error {
	got := HashSeed(serverSeed)
	if subtle.ConstantTimeCompare([]byte(got), []byte(serverSeedHash)) != 1 {
		return fmt.Errorf("%w: hash %s, committed %s", ErrCommitmentMismatch, got, serverSeedHash)
	}
	return nil
}
