package poker

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// ErrDeckExhausted is returned when more cards are requested than remain.
// Hand sizing makes this unreachable; seeing it means an engine bug.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck represents a standard 52-card deck
type Deck struct {
	cards [52]Card // Fixed size array
	next  int
	rng   *rand.Rand
}

// NewDeck creates a new shuffled deck with explicit RNG.
// Production callers pass randutil.Crypto(); tests pass a seeded generator.
func NewDeck(rng *rand.Rand) *Deck {
	if rng == nil {
		panic("rng is required for deck creation")
	}
	d := &Deck{rng: rng}
	copy(d.cards[:], AllCards())
	d.Shuffle()
	return d
}

// NewStackedDeck returns a deck that deals the given cards first, followed by
// the remaining cards in canonical order. Duplicate or invalid cards panic.
func NewStackedDeck(rng *rand.Rand, top ...Card) *Deck {
	d := &Deck{rng: rng}
	var seen Hand
	i := 0
	for _, c := range top {
		if seen.HasCard(c) {
			panic(fmt.Sprintf("duplicate card %s in stacked deck", c))
		}
		seen.AddCard(c)
		d.cards[i] = c
		i++
	}
	for _, c := range AllCards() {
		if !seen.HasCard(c) {
			d.cards[i] = c
			i++
		}
	}
	return d
}

// Shuffle shuffles the deck using Fisher-Yates and resets the deal position.
func (d *Deck) Shuffle() {
	d.next = 0
	d.shuffleFrom(0)
}

func (d *Deck) shuffleFrom(start int) {
	for i := len(d.cards) - 1; i > start; i-- {
		j := start + d.rng.IntN(i-start+1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// ShuffleRemaining reshuffles only the undealt cards.
func (d *Deck) ShuffleRemaining() {
	d.shuffleFrom(d.next)
}

// Deal removes and returns the next n cards.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 || d.next+n > len(d.cards) {
		return nil, fmt.Errorf("deal %d with %d remaining: %w", n, d.CardsRemaining(), ErrDeckExhausted)
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards) - d.next
}

// Remaining returns a copy of the undealt cards in deal order.
func (d *Deck) Remaining() []Card {
	out := make([]Card, d.CardsRemaining())
	copy(out, d.cards[d.next:])
	return out
}

// Clone returns an independent copy sharing the same RNG.
func (d *Deck) Clone() *Deck {
	c := *d
	return &c
}

// Reset resets and reshuffles the deck
func (d *Deck) Reset() {
	d.Shuffle()
}
