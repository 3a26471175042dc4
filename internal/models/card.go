package models

import "strconv"

type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

// Suits lists suits in shoe construction order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Ranks lists ranks in shoe construction order.
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

// Card is a single playing card. Hidden is only ever set on cards in a
// response projection; stored hands never carry it.
type Card struct {
	Suit   Suit `json:"suit,omitempty"`
	Rank   Rank `json:"rank,omitempty"`
	Hidden bool `json:"hidden,omitempty"`
}

// Value returns the blackjack value of the card with an Ace counted as 11.
func (c Card) Value() int {
	switch c.Rank {
	case Ace:
		return 11
	case Jack, Queen, King:
		return 10
	}
	v, err := strconv.Atoi(string(c.Rank))
	if err != nil {
		return 0
	}
	return v
}

func (c Card) IsAce() bool {
	return c.Rank == Ace
}

func (c Card) String() string {
	if c.Hidden {
		return "??"
	}
	symbol := map[Suit]string{Spades: "♠", Hearts: "♥", Diamonds: "♦", Clubs: "♣"}[c.Suit]
	return string(c.Rank) + symbol
}

// Valid reports whether the card names a real suit and rank.
func (c Card) Valid() bool {
	return c.Value() > 0 && (c.Suit == Spades || c.Suit == Hearts || c.Suit == Diamonds || c.Suit == Clubs)
}
