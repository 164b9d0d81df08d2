package game

import (
	"fmt"
	"maps"
	"slices"
)

// Pot represents a pot (main or side)
type Pot struct {
	Amount   int
	Eligible []int // seats eligible to win
	Level    int   // contribution cap this pot covers
}

// Ledger tracks every chip committed during a hand. Street bets live on the
// PlayerState until SweepToPot moves them into the pot; stacks are only
// written when the hand settles.
type Ledger struct {
	players []*PlayerState
	pot     int
}

// NewLedger creates a ledger over the hand's players
func NewLedger(players []*PlayerState) *Ledger {
	return &Ledger{players: players}
}

// Commit moves up to amount from the player's remaining stack into their
// street bet. It returns the amount actually committed and flags the player
// all-in when nothing remains.
func (l *Ledger) Commit(seat, amount int) int {
	p := l.players[seat]
	amount = max(min(amount, p.Remaining()), 0)
	p.StreetBet += amount
	p.TotalBet += amount
	if p.Remaining() == 0 {
		p.AllIn = true
	}
	return amount
}

// SweepToPot collects street bets into the pot
func (l *Ledger) SweepToPot() {
	for _, p := range l.players {
		l.pot += p.StreetBet
		p.StreetBet = 0
	}
}

// Pot returns chips already swept into the pot
func (l *Ledger) Pot() int {
	return l.pot
}

// Uncollected returns chips bet this street and not yet swept.
func (l *Ledger) Uncollected() int {
	total := 0
	for _, p := range l.players {
		total += p.StreetBet
	}
	return total
}

// Total returns every chip committed this hand
func (l *Ledger) Total() int {
	return l.pot + l.Uncollected()
}

// Check verifies that contributions account for every chip in the pot.
func (l *Ledger) Check() error {
	contributed := 0
	for _, p := range l.players {
		if p.TotalBet > p.StartStack {
			return fmt.Errorf("seat %d committed %d from a %d stack", p.Seat, p.TotalBet, p.StartStack)
		}
		contributed += p.TotalBet
	}
	if contributed != l.Total() {
		return fmt.Errorf("contributions %d do not match pot %d", contributed, l.Total())
	}
	return nil
}

// SidePots splits the hand's contributions into main and side pots. Levels
// are the distinct all-in totals plus the largest contribution; each pot takes
// every player's slice between the previous level and its own, folded players
// included. Only non-folded players who reached a level are eligible for it.
func (l *Ledger) SidePots() []Pot {
	var levels []int
	top := 0
	for _, p := range l.players {
		if p.AllIn && p.TotalBet > 0 {
			levels = append(levels, p.TotalBet)
		}
		top = max(top, p.TotalBet)
	}
	if top == 0 {
		return nil
	}
	levels = append(levels, top)
	slices.Sort(levels)
	levels = slices.Compact(levels)

	var pots []Pot
	prev := 0
	for _, level := range levels {
		pot := Pot{Level: level}
		for _, p := range l.players {
			if p.TotalBet > prev {
				pot.Amount += min(p.TotalBet, level) - prev
			}
			if !p.Folded && p.TotalBet >= level {
				pot.Eligible = append(pot.Eligible, p.Seat)
			}
		}
		prev = level

		switch {
		case pot.Amount == 0:
			continue
		case len(pot.Eligible) == 0 && len(pots) > 0:
			// Dead money above every live player stays with the last pot.
			pots[len(pots)-1].Amount += pot.Amount
			continue
		case len(pots) > 0 && slices.Equal(pots[len(pots)-1].Eligible, pot.Eligible):
			pots[len(pots)-1].Amount += pot.Amount
			pots[len(pots)-1].Level = level
			continue
		}
		pots = append(pots, pot)
	}
	return pots
}

// Settle writes final stacks from the per-seat winnings. Every committed chip
// must be paid out exactly once.
func (l *Ledger) Settle(payouts map[int]int) error {
	paid := 0
	for _, amount := range payouts {
		paid += amount
	}
	if paid != l.Total() {
		return fmt.Errorf("payouts %d do not match pot %d", paid, l.Total())
	}
	for _, p := range l.players {
		p.Stack = p.StartStack - p.TotalBet + payouts[p.Seat]
	}
	return nil
}

// Refund returns every contribution, leaving stacks where the hand found them.
func (l *Ledger) Refund() {
	for _, p := range l.players {
		p.Stack = p.StartStack
		p.StreetBet = 0
		p.TotalBet = 0
	}
	l.pot = 0
}

// SplitPot divides amount evenly among winners. Odd chips go one at a time to
// winners in clockwise order starting left of the button.
func SplitPot(amount int, winners []int, button, seats int) map[int]int {
	out := make(map[int]int, len(winners))
	if len(winners) == 0 || amount <= 0 {
		return out
	}
	ordered := slices.Clone(winners)
	slices.SortFunc(ordered, func(a, b int) int {
		return clockwise(a, button, seats) - clockwise(b, button, seats)
	})

	share := amount / len(ordered)
	odd := amount % len(ordered)
	for i, seat := range ordered {
		out[seat] += share
		if i < odd {
			out[seat]++
		}
	}
	return out
}

// SplitRunRemainder hands out the odd chips left after dividing a pot into
// equal shares per run. Every seat that won the pot on any run is in line,
// and chips go one at a time clockwise from the button. Seats that receive
// nothing are omitted.
func SplitRunRemainder(odd int, runWinners [][]int, button, seats int) map[int]int {
	var winners []int
	for _, run := range runWinners {
		for _, seat := range run {
			if !slices.Contains(winners, seat) {
				winners = append(winners, seat)
			}
		}
	}
	out := SplitPot(odd, winners, button, seats)
	maps.DeleteFunc(out, func(_, n int) bool { return n == 0 })
	return out
}

// clockwise returns how many seats after the button seat is, 1..seats.
func clockwise(seat, button, seats int) int {
	d := (seat - button + seats) % seats
	if d == 0 {
		return seats
	}
	return d
}
