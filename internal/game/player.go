package game

import (
	"github.com/lox/pokerroom/poker"
)

// Status is a seated player's relationship to the next deal.
type Status int

const (
	Spectating Status = iota
	SittingOut
	InHand
)

func (s Status) String() string {
	return [...]string{"spectating", "sitting_out", "in_hand"}[s]
}

// Player is a room member. Stack only changes through Ledger.Settle.
type Player struct {
	ID          string
	Name        string
	Stack       int
	Connected   bool
	Status      Status
	MissedTurns int
	Ready       bool
}

// PlayerState is a player's per-hand state
type PlayerState struct {
	*Player
	Seat       int // index into HandState.Players
	StartStack int
	HoleCards  poker.Hand
	StreetBet  int // committed this street
	TotalBet   int // committed this hand
	Folded     bool
	AllIn      bool
	Acted      bool
}

// Remaining returns the chips not yet committed this hand.
func (p *PlayerState) Remaining() int {
	return p.StartStack - p.TotalBet
}

// CanAct reports whether the player still makes betting decisions
func (p *PlayerState) CanAct() bool {
	return !p.Folded && !p.AllIn
}
