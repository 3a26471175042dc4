package fairness

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"blackjack-pool-backend/internal/models"
)

const (
	DefaultDecks = 6
	MaxDecks     = 8
	DeckSize     = 52
)

// Shoe is the shuffled multi-deck card order for one session.
type Shoe struct {
	cards []models.Card
}

// NewShoe deterministically shuffles decks×52 cards. The same three inputs
// always produce the same order.
func NewShoe(serverSeed, clientSeed, sessionID string, decks int) (*Shoe, error) {
	if serverSeed == "" {
		return nil, fmt.Errorf("server seed is required")
	}
	if decks < 1 || decks > MaxDecks {
		return nil, fmt.Errorf("deck count %d outside 1..%d", decks, MaxDecks)
	}

	cards := orderedCards(decks)
	stream := newByteStream(serverSeed, fmt.Sprintf("%s:%s", clientSeed, sessionID))
	for i := len(cards) - 1; i > 0; i-- {
		j := stream.intn(uint32(i + 1))
		cards[i], cards[j] = cards[j], cards[i]
	}

	return &Shoe{cards: cards}, nil
}

func orderedCards(decks int) []models.Card {
	cards := make([]models.Card, 0, decks*DeckSize)
	for d := 0; d < decks; d++ {
		for _, suit := range models.Suits {
			for _, rank := range models.Ranks {
				cards = append(cards, models.Card{Suit: suit, Rank: rank})
			}
		}
	}
	return cards
}

func (s *Shoe) Len() int {
	return len(s.cards)
}

// Draw returns the card at cursor and the next cursor.
func (s *Shoe) Draw(cursor int) (models.Card, int, error) {
	if cursor < 0 || cursor >= len(s.cards) {
		return models.Card{}, cursor, fmt.Errorf("%w: cursor %d of %d", ErrShoeExhausted, cursor, len(s.cards))
	}
	return s.cards[cursor], cursor + 1, nil
}

// Peek returns the first n cards without a cursor. Used by the verifier.
func (s *Shoe) Peek(n int) []models.Card {
	if n > len(s.cards) {
		n = len(s.cards)
	}
	out := make([]models.Card, n)
	copy(out, s.cards[:n])
	return out
}

// byteStream is an HMAC-SHA256 keystream keyed by the server seed over
// "message:counter" blocks.
type byteStream struct {
	key     []byte
	message string
	counter uint64
	buf     []byte
}

func newByteStream(key, message string) *byteStream {
	return &byteStream{key: []byte(key), message: message}
}

func (b *byteStream) refill() {
	mac := hmac.New(sha256.New, b.key)
	fmt.Fprintf(mac, "%s:%d", b.message, b.counter)
	b.buf = append(b.buf, mac.Sum(nil)...)
	b.counter++
}

func (b *byteStream) uint32() uint32 {
	if len(b.buf) < 4 {
		b.refill()
	}
	v := binary.BigEndian.Uint32(b.buf[:4])
	b.buf = b.buf[4:]
	return v
}

// intn returns a uniform value in [0, n) by rejection sampling.
func (b *byteStream) intn(n uint32) uint32 {
	limit := (uint64(1) << 32) - (uint64(1)<<32)%uint64(n)
	for {
		v := b.uint32()
		if uint64(v) < limit {
			return v % n
		}
	}
}
