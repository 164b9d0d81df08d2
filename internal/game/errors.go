package game

import (
	"errors"
	"fmt"

	"github.com/lox/pokerroom/poker"
)

var (
	// ErrOutOfTurn is returned for actions from anyone but the active player,
	// or for any betting action once the hand has left the betting rounds.
	ErrOutOfTurn = errors.New("out of turn")

	// ErrInvalidAmount is returned for bets outside the legal range. The
	// concrete error is an *AmountError carrying the range.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrProtocolViolation is returned for messages that do not fit the
	// current sub-state, such as a run count choice with no offer pending.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrDeckExhausted aborts the hand.
	ErrDeckExhausted = poker.ErrDeckExhausted

	// ErrUnknownPlayer is returned when the player is not dealt into the hand.
	ErrUnknownPlayer = errors.New("player not in hand")
)

// AmountError reports the legal bet range alongside ErrInvalidAmount.
type AmountError struct {
	Amount int
	Min    int
	Max    int
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("invalid amount %d: must be between %d and %d", e.Amount, e.Min, e.Max)
}

func (e *AmountError) Unwrap() error {
	return ErrInvalidAmount
}
