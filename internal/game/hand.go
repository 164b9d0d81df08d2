package game

import (
	"fmt"
	"slices"
	"time"

	"github.com/lox/pokerroom/internal/equity"
	"github.com/lox/pokerroom/poker"
)

// HandState represents the state of a poker hand. It is owned by a single
// goroutine; nothing here is safe for concurrent use.
type HandState struct {
	ID            string
	Stage         Stage
	Board         []poker.Card
	Players       []*PlayerState
	Button        int
	Active        int // seat to act, -1 when nobody is
	CurrentBet    int // street total required to call
	LastRaise     int
	SmallBlind    int
	BigBlind      int
	LastAggressor int
	RunIndex      int       // board being reported in a multi-run, 0 otherwise
	TurnExpiresAt time.Time // set by the room when it arms the turn timer
	RunOut        *RunItOffer
	Ledger        *Ledger
	Deck          *poker.Deck

	awaitingRunOut bool
	result         *Result
	equityOpts     []equity.Option
}

// Result summarizes a finished hand.
type Result struct {
	Runs        []RunResult
	Payouts     map[string]int        // chips won, by player ID
	Revealed    map[string]poker.Hand // hole cards shown down
	Uncontested bool
	Aborted     bool
}

// RunResult is one board of a (possibly single) run-out.
type RunResult struct {
	Index int
	Board []poker.Card
	Pots  []PotResult
}

// PotResult is the settlement of one pot share on one board.
type PotResult struct {
	Amount   int
	Eligible []string
	Winners  []string
	Shares   map[string]int
	Rank     poker.HandRank
}

// Player returns the state of the player with the given ID
func (h *HandState) Player(id string) (*PlayerState, bool) {
	for _, p := range h.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// ActivePlayer returns the player to act, or nil.
func (h *HandState) ActivePlayer() *PlayerState {
	if h.Active < 0 {
		return nil
	}
	return h.Players[h.Active]
}

// IsComplete reports whether the hand has settled or aborted
func (h *HandState) IsComplete() bool {
	return h.result != nil
}

// AwaitingRunOut reports whether betting is over with board cards still to
// come, waiting for OpenRunOut.
func (h *HandState) AwaitingRunOut() bool {
	return h.awaitingRunOut
}

// Result returns the outcome once the hand is complete
func (h *HandState) Result() *Result {
	return h.result
}

// Pot returns every chip committed so far
func (h *HandState) Pot() int {
	return h.Ledger.Total()
}

func (h *HandState) actor(playerID string) (*PlayerState, error) {
	p := h.ActivePlayer()
	if p == nil || p.ID != playerID {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrOutOfTurn)
	}
	return p, nil
}

// ProcessFold folds the active player
func (h *HandState) ProcessFold(playerID string) error {
	p, err := h.actor(playerID)
	if err != nil {
		return err
	}
	p.Folded = true
	p.Acted = true
	return h.advance(p.Seat)
}

// ProcessCheck checks when nothing is owed
func (h *HandState) ProcessCheck(playerID string) error {
	p, err := h.actor(playerID)
	if err != nil {
		return err
	}
	if toCall := h.CurrentBet - p.StreetBet; toCall > 0 {
		return &AmountError{Amount: 0, Min: min(toCall, p.Remaining()), Max: min(toCall, p.Remaining())}
	}
	p.Acted = true
	return h.advance(p.Seat)
}

// ProcessCall matches the current bet, going all-in when short
func (h *HandState) ProcessCall(playerID string) error {
	p, err := h.actor(playerID)
	if err != nil {
		return err
	}
	h.Ledger.Commit(p.Seat, h.CurrentBet-p.StreetBet)
	p.Acted = true
	return h.advance(p.Seat)
}

// ProcessBet bets or raises to amount, the player's street total. The raise
// must be at least max(big blind, last raise) unless it puts the player
// all-in. An all-in short of a full raise does not change the minimum raise.
func (h *HandState) ProcessBet(playerID string, amount int) error {
	p, err := h.actor(playerID)
	if err != nil {
		return err
	}

	maxTotal := p.StreetBet + p.Remaining()
	if h.canActCount() <= 1 {
		// Everyone else is all-in: the most this player can put in is a call.
		maxTotal = min(maxTotal, h.CurrentBet)
	}
	minTotal := min(h.minBetTo(), maxTotal)
	if amount > maxTotal || amount < minTotal || amount <= h.CurrentBet && amount != maxTotal {
		return &AmountError{Amount: amount, Min: minTotal, Max: maxTotal}
	}

	h.Ledger.Commit(p.Seat, amount-p.StreetBet)
	if amount > h.CurrentBet {
		if raise := amount - h.CurrentBet; raise >= h.LastRaise {
			h.LastRaise = raise
		}
		h.CurrentBet = amount
		h.LastAggressor = p.Seat
		for _, other := range h.Players {
			if other != p && other.CanAct() {
				other.Acted = false
			}
		}
	}
	p.Acted = true
	return h.advance(p.Seat)
}

// TimeoutAction applies the automatic action for an expired turn: check when
// nothing is owed, otherwise fold.
func (h *HandState) TimeoutAction(playerID string) (Action, error) {
	p, err := h.actor(playerID)
	if err != nil {
		return Fold, err
	}
	if p.StreetBet >= h.CurrentBet {
		return Check, h.ProcessCheck(playerID)
	}
	return Fold, h.ProcessFold(playerID)
}

// advance moves play on after seat acted
func (h *HandState) advance(seat int) error {
	if live := h.contestants(); len(live) == 1 {
		return h.finishUncontested(live[0])
	}
	if h.roundComplete() {
		return h.completeStreet()
	}
	h.Active = h.nextToAct(seat + 1)
	return nil
}

// completeStreet sweeps bets and either deals the next street, goes to
// showdown after the river, or parks the hand for a run-out when at most one
// contestant can still bet.
func (h *HandState) completeStreet() error {
	h.Ledger.SweepToPot()
	for _, p := range h.Players {
		p.Acted = false
	}
	h.CurrentBet = 0
	h.LastRaise = 0
	h.LastAggressor = -1
	h.Active = -1

	if h.Stage == River {
		return h.resolve(1)
	}
	if h.canActCount() <= 1 {
		h.awaitingRunOut = true
		return nil
	}

	next := h.Stage + 1
	cards, err := h.Deck.Deal(next.boardSize() - len(h.Board))
	if err != nil {
		return h.abort(err)
	}
	h.Board = append(h.Board, cards...)
	h.Stage = next
	h.Active = h.nextToAct(h.Button + 1)
	return nil
}

// finishUncontested awards everything to the last player standing
func (h *HandState) finishUncontested(seat int) error {
	h.Ledger.SweepToPot()
	h.Active = -1
	winner := h.Players[seat]
	total := h.Ledger.Total()
	if err := h.Ledger.Check(); err != nil {
		return h.abort(err)
	}
	if err := h.Ledger.Settle(map[int]int{seat: total}); err != nil {
		return err
	}
	h.result = &Result{
		Payouts:     map[string]int{winner.ID: total},
		Revealed:    map[string]poker.Hand{},
		Uncontested: true,
	}
	return nil
}

// resolve deals times boards from the current position and settles every
// pot in times equal shares. Run one deals from a copy of the live deck; later
// runs reshuffle a copy of the same undealt cards. Chips left over from
// dividing a pot by times go to that pot's run winners clockwise from the
// button, like any other odd chip.
func (h *HandState) resolve(times int) error {
	h.Ledger.SweepToPot()
	h.Active = -1
	h.awaitingRunOut = false
	if err := h.Ledger.Check(); err != nil {
		return h.abort(err)
	}

	pots := h.Ledger.SidePots()
	runWinners := make([][][]int, len(pots)) // per pot, the winning seats of each run
	needed := 5 - len(h.Board)
	payouts := make(map[int]int)
	res := &Result{
		Payouts:  make(map[string]int),
		Revealed: make(map[string]poker.Hand),
	}
	for _, seat := range h.contestants() {
		p := h.Players[seat]
		res.Revealed[p.ID] = p.HoleCards
	}

	for run := range times {
		board := slices.Clone(h.Board)
		if needed > 0 {
			deck := h.Deck.Clone()
			if run > 0 {
				deck.ShuffleRemaining()
			}
			cards, err := deck.Deal(needed)
			if err != nil {
				return h.abort(err)
			}
			board = append(board, cards...)
		}
		boardHand := poker.NewHand(board...)

		rr := RunResult{Index: run + 1, Board: board}
		for i, pot := range pots {
			share := pot.Amount / times
			winners, rank := h.bestHands(pot.Eligible, boardHand)
			split := SplitPot(share, winners, h.Button, len(h.Players))

			pr := PotResult{Amount: share, Rank: rank, Shares: make(map[string]int)}
			for _, seat := range pot.Eligible {
				pr.Eligible = append(pr.Eligible, h.Players[seat].ID)
			}
			for _, seat := range winners {
				pr.Winners = append(pr.Winners, h.Players[seat].ID)
				pr.Shares[h.Players[seat].ID] = split[seat]
				payouts[seat] += split[seat]
			}
			runWinners[i] = append(runWinners[i], winners)
			rr.Pots = append(rr.Pots, pr)
		}
		res.Runs = append(res.Runs, rr)
	}

	// The odd chips are credited to the run each recipient first won the pot
	// on, so per-run shares still add up to the payouts.
	for i, pot := range pots {
		odd := pot.Amount % times
		if odd == 0 {
			continue
		}
		for seat, n := range SplitRunRemainder(odd, runWinners[i], h.Button, len(h.Players)) {
			run := slices.IndexFunc(runWinners[i], func(w []int) bool { return slices.Contains(w, seat) })
			payouts[seat] += n
			pr := &res.Runs[run].Pots[i]
			pr.Amount += n
			pr.Shares[h.Players[seat].ID] += n
		}
	}

	if err := h.Ledger.Settle(payouts); err != nil {
		return h.abort(err)
	}
	for seat, amount := range payouts {
		res.Payouts[h.Players[seat].ID] = amount
	}

	h.Board = res.Runs[0].Board
	h.Stage = Showdown
	h.RunIndex = 0
	if times > 1 {
		h.RunIndex = times
	}
	h.result = res
	return nil
}

// bestHands returns the seats holding the best hand on board
func (h *HandState) bestHands(seats []int, board poker.Hand) ([]int, poker.HandRank) {
	best := poker.InvalidRank
	var winners []int
	for _, seat := range seats {
		rank := poker.Evaluate7Cards(h.Players[seat].HoleCards | board)
		switch poker.CompareHands(rank, best) {
		case 1:
			best = rank
			winners = []int{seat}
		case 0:
			winners = append(winners, seat)
		}
	}
	return winners, best
}

// Abort refunds every contribution and ends the hand.
func (h *HandState) Abort() {
	h.Ledger.Refund()
	h.Active = -1
	h.awaitingRunOut = false
	h.result = &Result{
		Payouts:  map[string]int{},
		Revealed: map[string]poker.Hand{},
		Aborted:  true,
	}
}

func (h *HandState) abort(cause error) error {
	h.Abort()
	return fmt.Errorf("hand %s aborted: %w", h.ID, cause)
}
