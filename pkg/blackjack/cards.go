package blackjack

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Suit represents a card suit using its single-letter wire code
type Suit string

const (
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
	Spades   Suit = "S"
)

// Rank represents a card rank
type Rank string

const (
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
	Ace   Rank = "A"
)

var (
	suits = []Suit{Hearts, Diamonds, Clubs, Spades}
	ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
)

// Card represents a playing card
type Card struct {
	rank Rank
	suit Suit
}

// NewCard creates a new Card with the given rank and suit
// This is needed because Card fields are unexported
func NewCard(rank Rank, suit Suit) Card {
	return Card{rank: rank, suit: suit}
}

// String returns the card's wire code: rank followed by suit, e.g. "10H"
func (c Card) String() string {
	return string(c.rank) + string(c.suit)
}

// GetRank returns the card's rank
func (c Card) GetRank() string {
	return string(c.rank)
}

// GetSuit returns the card's suit
func (c Card) GetSuit() string {
	return string(c.suit)
}

// ParseCard converts a wire code like "AH" or "10S" back into a Card
func ParseCard(code string) (Card, error) {
	if len(code) < 2 {
		return Card{}, fmt.Errorf("invalid card code: %q", code)
	}

	rank := Rank(code[:len(code)-1])
	suit := Suit(code[len(code)-1:])

	switch suit {
	case Hearts, Diamonds, Clubs, Spades:
	default:
		return Card{}, fmt.Errorf("invalid suit: %q", code)
	}

	switch rank {
	case Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace:
	default:
		return Card{}, fmt.Errorf("invalid rank: %q", code)
	}

	return Card{rank: rank, suit: suit}, nil
}

// ParseHand converts a semicolon-joined hand payload back into cards. The
// literal "NO" denotes an empty hand on the wire.
func ParseHand(payload string) ([]Card, error) {
	if payload == "" || payload == "NO" {
		return nil, nil
	}

	codes := strings.Split(payload, ";")
	cards := make([]Card, 0, len(codes))
	for _, code := range codes {
		card, err := ParseCard(code)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// FormatHand renders cards as the semicolon-joined wire payload, or the
// literal "NO" for an empty hand
func FormatHand(cards []Card) string {
	if len(cards) == 0 {
		return "NO"
	}

	var b strings.Builder
	for i, card := range cards {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(card.String())
	}
	return b.String()
}

// rankValue returns the blackjack value of a rank, counting aces high
func rankValue(r Rank) int {
	switch r {
	case Ace:
		return 11
	case King, Queen, Jack:
		return 10
	default:
		n, _ := strconv.Atoi(string(r))
		return n
	}
}

// HandValue computes the blackjack value of a hand. Every ace starts at 11
// and is demoted to 1 while the total exceeds 21.
func HandValue(cards []Card) int {
	sum := 0
	aces := 0

	for _, card := range cards {
		sum += rankValue(card.rank)
		if card.rank == Ace {
			aces++
		}
	}

	for sum > 21 && aces > 0 {
		sum -= 10
		aces--
	}

	return sum
}

// Deck deals cards for blackjack rounds. Every draw is independent and
// uniform over all 52 cards, so the deck never depletes and duplicates can
// appear within a round (no shoe is modeled). It is not safe for concurrent
// use; the owning loop draws from a single goroutine.
type Deck struct {
	rng *rand.Rand
}

// NewDeck creates a new deck drawing from the given random number generator
func NewDeck(rng *rand.Rand) *Deck {
	return &Deck{rng: rng}
}

// Draw returns one card chosen uniformly at random
func (d *Deck) Draw() Card {
	return Card{
		rank: ranks[d.rng.Intn(len(ranks))],
		suit: suits[d.rng.Intn(len(suits))],
	}
}
