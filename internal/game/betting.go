package game

// Stage represents the betting round
type Stage int

const (
	PreFlop Stage = iota
	Flop
	Turn
	River
	Showdown
)

func (s Stage) String() string {
	return [...]string{"pre_flop", "flop", "turn", "river", "showdown"}[s]
}

// boardSize is the number of community cards visible once the stage begins.
func (s Stage) boardSize() int {
	return [...]int{0, 3, 4, 5, 5}[s]
}

// Action represents a player action
type Action int

const (
	Fold Action = iota
	Check
	Call
	Bet
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "bet"}[a]
}

// ValidAction describes one legal action. For Call, Min is the chips the call
// commits; for Bet, Min and Max bound the street total the player may bet to.
type ValidAction struct {
	Action Action
	Min    int
	Max    int
}

// ValidActions returns the legal actions for the active player. There is no
// Bet when every opponent is all-in, since nobody could call it.
func (h *HandState) ValidActions() []ValidAction {
	if h.Active < 0 {
		return nil
	}
	p := h.Players[h.Active]
	toCall := h.CurrentBet - p.StreetBet
	maxTotal := p.StreetBet + p.Remaining()

	actions := []ValidAction{{Action: Fold}}
	if toCall <= 0 {
		actions = append(actions, ValidAction{Action: Check})
	} else {
		actions = append(actions, ValidAction{Action: Call, Min: min(toCall, p.Remaining()), Max: min(toCall, p.Remaining())})
	}
	if maxTotal > h.CurrentBet && h.canActCount() > 1 {
		actions = append(actions, ValidAction{Action: Bet, Min: min(h.minBetTo(), maxTotal), Max: maxTotal})
	}
	return actions
}

// minBetTo is the smallest legal street total for a bet or raise
func (h *HandState) minBetTo() int {
	return h.CurrentBet + max(h.BigBlind, h.LastRaise)
}

// roundComplete reports whether every player who can still act has acted
// and matched the current bet.
func (h *HandState) roundComplete() bool {
	for _, p := range h.Players {
		if !p.CanAct() {
			continue
		}
		if !p.Acted || p.StreetBet != h.CurrentBet {
			return false
		}
	}
	return true
}

// nextToAct returns the first seat from start (inclusive, clockwise) that
// still owes an action, or -1.
func (h *HandState) nextToAct(start int) int {
	n := len(h.Players)
	for i := range n {
		seat := (start + i) % n
		p := h.Players[seat]
		if p.CanAct() && (!p.Acted || p.StreetBet < h.CurrentBet) {
			return seat
		}
	}
	return -1
}

// contestants returns non-folded seats in acting order after the button
func (h *HandState) contestants() []int {
	n := len(h.Players)
	seats := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		seat := (h.Button + i) % n
		if !h.Players[seat].Folded {
			seats = append(seats, seat)
		}
	}
	return seats
}

// canActCount counts players who still make betting decisions
func (h *HandState) canActCount() int {
	count := 0
	for _, p := range h.Players {
		if p.CanAct() {
			count++
		}
	}
	return count
}
