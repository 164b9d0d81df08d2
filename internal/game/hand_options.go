package game

import (
	rand "math/rand/v2"

	"github.com/google/uuid"

	"github.com/lox/pokerroom/internal/equity"
	"github.com/lox/pokerroom/poker"
)

// HandOption configures a HandState during creation.
type HandOption func(*handConfig)

type handConfig struct {
	id         string
	deck       *poker.Deck
	equityOpts []equity.Option
}

// NewHand deals a hand to players, who must all hold chips. button indexes
// players. The rng shuffles the deck unless WithDeck supplies one; it is
// required so that every source of randomness is explicit.
//
//	h, err := NewHand(randutil.Crypto(), players, 0, 10, 20)
//
//	// Tests stack the deck: hole cards go two at a time in seat order,
//	// then flop, turn and river.
//	deck := poker.NewStackedDeck(randutil.New(1), poker.MustParseCards("AsAhKsKh2c7d9hTdJc")...)
//	h, err := NewHand(randutil.New(1), players, 0, 10, 20, WithDeck(deck))
func NewHand(rng *rand.Rand, players []*Player, button, smallBlind, bigBlind int, opts ...HandOption) (*HandState, error) {
	if rng == nil {
		panic("rng is required for hand creation")
	}
	if len(players) < 2 {
		panic("at least 2 players required")
	}
	if button < 0 || button >= len(players) {
		panic("button position out of range")
	}

	cfg := &handConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.Must(uuid.NewV7()).String()
	}
	if cfg.deck == nil {
		cfg.deck = poker.NewDeck(rng)
	}

	states := make([]*PlayerState, len(players))
	for i, p := range players {
		states[i] = &PlayerState{Player: p, Seat: i, StartStack: p.Stack}
	}

	h := &HandState{
		ID:            cfg.id,
		Stage:         PreFlop,
		Players:       states,
		Button:        button,
		Active:        -1,
		SmallBlind:    smallBlind,
		BigBlind:      bigBlind,
		LastAggressor: -1,
		Ledger:        NewLedger(states),
		Deck:          cfg.deck,
		equityOpts:    cfg.equityOpts,
	}

	for _, p := range states {
		cards, err := h.Deck.Deal(2)
		if err != nil {
			return h, h.abort(err)
		}
		p.HoleCards = poker.NewHand(cards...)
	}

	sb, bb := h.blindSeats()
	h.Ledger.Commit(sb, smallBlind)
	h.Ledger.Commit(bb, bigBlind)
	h.CurrentBet = bigBlind
	h.LastRaise = bigBlind

	if len(states) == 2 {
		h.Active = h.nextToAct(button)
	} else {
		h.Active = h.nextToAct(bb + 1)
	}
	if h.Active == -1 {
		// Blinds put everyone but at most one player all-in.
		return h, h.completeStreet()
	}
	return h, nil
}

// blindSeats returns the small and big blind seats. Heads-up the button posts
// the small blind.
func (h *HandState) blindSeats() (int, int) {
	n := len(h.Players)
	if n == 2 {
		return h.Button, (h.Button + 1) % n
	}
	return (h.Button + 1) % n, (h.Button + 2) % n
}

// WithID sets the hand ID. Default is a fresh UUIDv7.
func WithID(id string) HandOption {
	return func(c *handConfig) {
		c.id = id
	}
}

// WithDeck sets a specific pre-shuffled or stacked deck.
func WithDeck(deck *poker.Deck) HandOption {
	return func(c *handConfig) {
		c.deck = deck
	}
}

// WithEquityOptions passes options to the equity calculator used when the
// hand reaches a run-out.
func WithEquityOptions(opts ...equity.Option) HandOption {
	return func(c *handConfig) {
		c.equityOpts = append(c.equityOpts, opts...)
	}
}
