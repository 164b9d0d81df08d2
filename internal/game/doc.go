// Package game implements the Texas Hold'em hand engine.
//
// The main type is HandState, which owns one hand from the blinds to
// settlement: the betting-round state machine, the contribution Ledger and
// side pots, and the run-it-multiple-times negotiation for all-ins with cards
// still to come.
//
// # Basic Usage
//
//	h, err := game.NewHand(randutil.Crypto(), players, button, 10, 20)
//	if err != nil {
//	    return err
//	}
//	err = h.ProcessCall("alice")
//	if errors.Is(err, game.ErrOutOfTurn) {
//	    // not alice's turn
//	}
//
// Bets name the street total the player bets to, so a raise from 20 to 60 is
// ProcessBet(id, 60). Rejected amounts return an *AmountError carrying the
// legal range.
//
// # Run-outs
//
// When betting closes with at most one contestant able to act and board cards
// still to come, AwaitingRunOut reports true. OpenRunOut computes equities,
// names the underdog and, unless the underdog is drawing dead, opens a
// RunItOffer. ProcessUnderdogRunChoice and ProcessFavoriteRunConfirmation
// drive it to resolution; any single refusal deals one board.
//
// # Chips
//
// Stacks are only written at settlement: Stack = StartStack - TotalBet + won.
// Abort refunds everything, leaving stacks untouched. Odd chips from a split
// go one at a time clockwise from the button.
//
// HandState is not safe for concurrent use. The room package owns each hand
// from a single goroutine.
package game
