package game

import (
	"context"
	"fmt"
	"slices"

	"github.com/lox/pokerroom/internal/equity"
	"github.com/lox/pokerroom/poker"
)

// RunState tracks run-it-multiple-times negotiation.
type RunState int

const (
	Offered RunState = iota
	AwaitingAgreement
	Declined
	Resolving
	Done
)

func (s RunState) String() string {
	return [...]string{"offered", "awaiting_agreement", "declined", "resolving", "done"}[s]
}

// RunItOffer is the negotiation over how many times to deal the rest of the
// board. The underdog picks a count from Options and every favorite must
// agree; a single refusal means one run.
type RunItOffer struct {
	Underdog   string
	Favorites  []string
	Options    []int
	Times      int
	Agreements map[string]bool
	State      RunState

	// Contestants lists non-folded player IDs in acting order, with their
	// equity at the moment the run-out began.
	Contestants []string
	Equity      map[string]float64
	Outs        equity.OutsInfo // nil with more than two cards to come
}

// Pending returns favorites who have not answered yet
func (o *RunItOffer) Pending() []string {
	var out []string
	for _, id := range o.Favorites {
		if _, ok := o.Agreements[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// OpenRunOut computes equities for the all-in and either opens an offer to
// the underdog or, when the underdog is drawing dead or options allow only a
// single run, resolves the hand straight away. The returned offer carries the
// equity either way; check its State.
func (h *HandState) OpenRunOut(ctx context.Context, options []int) (*RunItOffer, error) {
	if !h.awaitingRunOut || h.RunOut != nil {
		return nil, fmt.Errorf("no run-out pending: %w", ErrProtocolViolation)
	}

	seats := h.contestants()
	holes := make([]poker.Hand, len(seats))
	order := make([]int, len(seats))
	offer := &RunItOffer{
		Agreements: make(map[string]bool),
		Equity:     make(map[string]float64, len(seats)),
		Times:      1,
	}
	for i, seat := range seats {
		holes[i] = h.Players[seat].HoleCards
		order[i] = i
		offer.Contestants = append(offer.Contestants, h.Players[seat].ID)
	}
	for _, n := range options {
		if n >= 1 && !slices.Contains(offer.Options, n) {
			offer.Options = append(offer.Options, n)
		}
	}
	h.RunOut = offer

	board := poker.NewHand(h.Board...)
	res, err := equity.Calculate(ctx, holes, board, h.equityOpts...)
	if err != nil {
		// Without equities there is no underdog to ask; deal once.
		offer.State = Resolving
		if rerr := h.resolve(1); rerr != nil {
			return offer, rerr
		}
		offer.State = Done
		return offer, fmt.Errorf("equity for hand %s: %w", h.ID, err)
	}
	for i, id := range offer.Contestants {
		offer.Equity[id] = res.Equity[i]
	}

	trailing := equity.Trailing(res, order)
	offer.Underdog = offer.Contestants[trailing]
	for _, id := range offer.Contestants {
		if id != offer.Underdog {
			offer.Favorites = append(offer.Favorites, id)
		}
	}

	dead := res.Exact && res.Win[trailing]+res.Tie[trailing] == 0
	if needed := 5 - len(h.Board); needed == 1 || needed == 2 {
		if outs, err := equity.Classify(holes, board, trailing, 0); err == nil {
			offer.Outs = outs
			_, dead = outs.(equity.DrawingDead)
		}
	}

	if dead || !slices.ContainsFunc(offer.Options, func(n int) bool { return n > 1 }) {
		return offer, h.finishRunOut(1)
	}
	offer.State = Offered
	return offer, nil
}

// ProcessUnderdogRunChoice records the underdog's run count. Choosing one
// resolves immediately.
func (h *HandState) ProcessUnderdogRunChoice(playerID string, times int) error {
	o := h.RunOut
	if o == nil || o.State != Offered || playerID != o.Underdog {
		return fmt.Errorf("run choice from %s: %w", playerID, ErrProtocolViolation)
	}
	if times != 1 && !slices.Contains(o.Options, times) {
		return fmt.Errorf("run count %d not offered: %w", times, ErrProtocolViolation)
	}
	o.Times = times
	if times == 1 {
		return h.finishRunOut(1)
	}
	o.State = AwaitingAgreement
	return nil
}

// ProcessFavoriteRunConfirmation records a favorite's answer. Any refusal
// collapses to a single run; the last agreement resolves with the chosen
// count.
func (h *HandState) ProcessFavoriteRunConfirmation(playerID string, agree bool) error {
	o := h.RunOut
	if o == nil || o.State != AwaitingAgreement || !slices.Contains(o.Pending(), playerID) {
		return fmt.Errorf("run confirmation from %s: %w", playerID, ErrProtocolViolation)
	}
	o.Agreements[playerID] = agree
	if !agree {
		o.State = Declined
		return h.finishRunOut(1)
	}
	if len(o.Pending()) == 0 {
		return h.finishRunOut(o.Times)
	}
	return nil
}

// ExpireRunOut handles a negotiation deadline. An underdog who never chose
// gets one run; a favorite who never answered is treated as declining.
func (h *HandState) ExpireRunOut() (string, error) {
	o := h.RunOut
	if o == nil {
		return "", fmt.Errorf("no negotiation: %w", ErrProtocolViolation)
	}
	switch o.State {
	case Offered:
		return o.Underdog, h.finishRunOut(1)
	case AwaitingAgreement:
		id := o.Pending()[0]
		return id, h.ProcessFavoriteRunConfirmation(id, false)
	default:
		return "", fmt.Errorf("negotiation already %s: %w", o.State, ErrProtocolViolation)
	}
}

func (h *HandState) finishRunOut(times int) error {
	o := h.RunOut
	if o.State != Declined {
		o.State = Resolving
	}
	o.Times = times
	err := h.resolve(times)
	o.State = Done
	return err
}
