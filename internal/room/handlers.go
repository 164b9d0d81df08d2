package room

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/protocol"
)

var errInvalidSeat = errors.New("invalid seat")

// playerHandler applies one player's message to the room. It only ever runs
// on the room goroutine.
type playerHandler struct {
	room     *Room
	playerID string
}

var _ protocol.InboundHandler = (*playerHandler)(nil)

func (h *playerHandler) HandleFold(protocol.Fold) error {
	return h.room.act(h.playerID, func(hs *game.HandState) error {
		return hs.ProcessFold(h.playerID)
	})
}

func (h *playerHandler) HandleCheck(protocol.Check) error {
	return h.room.act(h.playerID, func(hs *game.HandState) error {
		return hs.ProcessCheck(h.playerID)
	})
}

func (h *playerHandler) HandleCall(protocol.Call) error {
	return h.room.act(h.playerID, func(hs *game.HandState) error {
		return hs.ProcessCall(h.playerID)
	})
}

func (h *playerHandler) HandleBet(m protocol.Bet) error {
	return h.room.act(h.playerID, func(hs *game.HandState) error {
		return hs.ProcessBet(h.playerID, m.Amount)
	})
}

func (h *playerHandler) HandleSelectRunCount(m protocol.SelectRunCount) error {
	return h.room.negotiate(func(hs *game.HandState) error {
		return hs.ProcessUnderdogRunChoice(h.playerID, m.Times)
	})
}

func (h *playerHandler) HandleAgreeRunCount(m protocol.AgreeRunCount) error {
	return h.room.negotiate(func(hs *game.HandState) error {
		return hs.ProcessFavoriteRunConfirmation(h.playerID, m.IsAgree)
	})
}

func (h *playerHandler) HandleSocialAction(m protocol.SocialAction) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("empty social action from %s: %w", h.playerID, game.ErrProtocolViolation)
	}
	h.room.transport.Broadcast(h.room.cfg.ID, protocol.SocialActionBroadcast{PlayerID: h.playerID, Payload: m.Payload})
	return nil
}

func (h *playerHandler) HandleSetReady(m protocol.SetReady) error {
	r := h.room
	p := r.members[h.playerID]
	if r.seatOf(h.playerID) < 0 {
		return fmt.Errorf("player %s is not seated: %w", h.playerID, errInvalidSeat)
	}
	if p.Ready == m.IsReady {
		return nil
	}

	p.Ready = m.IsReady
	if m.IsReady {
		p.MissedTurns = 0
		delete(r.sitOut, h.playerID)
	}
	r.logger.Info("Ready changed", "player", h.playerID, "ready", m.IsReady)
	r.transport.Broadcast(r.cfg.ID, protocol.PlayerReadyUpdate{PlayerID: h.playerID, IsReady: m.IsReady})
	r.refreshStatus(p)
	r.broadcastLobby()
	r.maybeScheduleHand()
	return nil
}

// HandleSitAtTable takes the first free seat with the requested buy-in. A
// seated player with no chips left may buy in again between hands.
// Tournaments seat everyone with the starting stack and close once play
// begins.
func (h *playerHandler) HandleSitAtTable(m protocol.SitAtTable) error {
	r := h.room
	p := r.members[h.playerID]

	seat := r.seatOf(h.playerID)
	rebuy := seat >= 0
	switch {
	case r.finished:
		return fmt.Errorf("tournament is over: %w", errInvalidSeat)
	case rebuy && (p.Stack > 0 || r.inCurrentHand(h.playerID)):
		return fmt.Errorf("player %s is already seated: %w", h.playerID, errInvalidSeat)
	case !rebuy:
		seat = slices.Index(r.seats, "")
		if seat < 0 {
			return fmt.Errorf("table is full: %w", errInvalidSeat)
		}
	}

	stack := m.BuyIn
	if t := r.cfg.Tournament; t != nil {
		if r.handsDealt > 0 {
			return fmt.Errorf("tournament has started: %w", errInvalidSeat)
		}
		stack = t.StartingStack
	} else if stack < r.cfg.MinBuyIn || stack > r.cfg.MaxBuyIn {
		return &game.AmountError{Amount: stack, Min: r.cfg.MinBuyIn, Max: r.cfg.MaxBuyIn}
	}

	r.seats[seat] = h.playerID
	p.Stack = stack
	r.logger.Info("Player seated", "player", h.playerID, "seat", seat, "stack", stack, "rebuy", rebuy)
	r.refreshStatus(p)
	r.broadcastState()
	r.broadcastLobby()
	r.maybeScheduleHand()
	return nil
}

// act applies a betting action from playerID. A deck failure part way
// through aborts the hand, which still counts as progress.
func (r *Room) act(playerID string, apply func(*game.HandState) error) error {
	h := r.hand
	if h == nil {
		return fmt.Errorf("no hand in progress: %w", game.ErrOutOfTurn)
	}
	if err := apply(h); err != nil {
		if !h.IsComplete() {
			return err
		}
		r.logger.Error("Hand aborted", "hand", h.ID, "error", err)
	}

	if p, ok := r.members[playerID]; ok {
		p.MissedTurns = 0
		delete(r.sitOut, playerID)
	}
	r.progress()
	return nil
}

// negotiate applies a run-it choice or confirmation.
func (r *Room) negotiate(apply func(*game.HandState) error) error {
	h := r.hand
	if h == nil {
		return fmt.Errorf("no hand in progress: %w", game.ErrProtocolViolation)
	}
	if err := apply(h); err != nil {
		if !h.IsComplete() {
			return err
		}
		r.logger.Error("Run-out failed", "hand", h.ID, "error", err)
	}
	r.progress()
	return nil
}
