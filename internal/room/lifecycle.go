package room

import (
	"fmt"
	"time"

	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/protocol"
)

// eligible returns the table seats that would be dealt in now
func (r *Room) eligible() []int {
	var seats []int
	for seat, id := range r.seats {
		if id == "" {
			continue
		}
		p := r.members[id]
		if p.Ready && p.Connected && p.Stack > 0 {
			seats = append(seats, seat)
		}
	}
	return seats
}

// maybeScheduleHand arms the next-hand delay once two players can play
func (r *Room) maybeScheduleHand() {
	if r.hand != nil || r.nextHand != nil || r.finished {
		return
	}
	if len(r.eligible()) < 2 {
		return
	}
	r.nextHand = r.clock.AfterFunc(r.cfg.NextHandDelay, func() {
		_ = r.post(nextHandEvent{})
	}, "room", "next-hand")
}

func (r *Room) startHand() {
	if r.hand != nil || r.finished {
		return
	}
	seats := r.eligible()
	if len(seats) < 2 {
		r.logger.Debug("Not enough players to deal", "eligible", len(seats))
		return
	}

	r.button = r.nextButton(seats)
	players := make([]*game.Player, len(seats))
	button := 0
	for i, seat := range seats {
		players[i] = r.members[r.seats[seat]]
		if seat == r.button {
			button = i
		}
	}

	sb, bb := r.cfg.blinds(r.level)
	opts := []game.HandOption{game.WithEquityOptions(r.equityOpts...)}
	if r.newDeck != nil {
		opts = append(opts, game.WithDeck(r.newDeck()))
	}
	h, err := game.NewHand(r.rng, players, button, sb, bb, opts...)
	r.hand = h
	r.handSeats = seats
	r.handsDealt++
	for _, p := range players {
		r.refreshStatus(p)
	}
	if r.cfg.Tournament != nil && r.levelTimer == nil && r.handsDealt == 1 {
		r.scheduleLevel()
	}

	r.logger.Info("Hand started", "hand", h.ID, "players", len(players), "button", r.button, "blinds", fmt.Sprintf("%d/%d", sb, bb))
	if err != nil {
		r.logger.Error("Hand aborted", "hand", h.ID, "error", err)
	}
	r.broadcastLobby()
	r.progress()
}

// nextButton moves the button to the next dealt seat clockwise
func (r *Room) nextButton(seats []int) int {
	for _, seat := range seats {
		if seat > r.button {
			return seat
		}
	}
	return seats[0]
}

// progress moves the room on after any change to the hand: it starts the
// run-out when betting has closed, settles a finished hand, or arms the
// deadline for whoever must act next.
func (r *Room) progress() {
	h := r.hand
	if h.AwaitingRunOut() {
		r.openRunOut()
	}
	if h.IsComplete() {
		r.finishHand()
		return
	}

	if r.negotiating() {
		r.armTimer(r.cfg.RunItTimeout)
		r.transport.Broadcast(r.cfg.ID, r.offerMessage())
	} else {
		r.armTimer(r.cfg.TurnTimeout)
	}
	r.broadcastState()
}

func (r *Room) openRunOut() {
	h := r.hand
	offer, err := h.OpenRunOut(r.ctx, r.cfg.RunItOptions)
	if err != nil {
		r.logger.Error("Run-out failed", "hand", h.ID, "error", err)
	}
	if offer == nil || len(offer.Equity) == 0 {
		return
	}
	r.logger.Info("All in", "hand", h.ID, "underdog", offer.Underdog, "state", offer.State)
	r.transport.Broadcast(r.cfg.ID, protocol.AllInEquityUpdate{
		HandID:   h.ID,
		Equities: equities(offer),
		Outs:     outsView(offer.Outs, offer.Underdog),
	})
}

// negotiating reports whether a run-it decision is outstanding
func (r *Room) negotiating() bool {
	if r.hand == nil || r.hand.RunOut == nil {
		return false
	}
	s := r.hand.RunOut.State
	return s == game.Offered || s == game.AwaitingAgreement
}

// armTimer starts the deadline for the next decision. Any earlier timer is
// superseded.
func (r *Room) armTimer(d time.Duration) {
	r.stopTurnTimer()
	token := r.turnToken
	r.hand.TurnExpiresAt = r.clock.Now().Add(d)
	r.turnTimer = r.clock.AfterFunc(d, func() {
		_ = r.post(turnTimeoutEvent{token: token})
	}, "room", "turn")
}

func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	r.turnToken++
}

func (r *Room) turnExpired(token uint64) {
	h := r.hand
	if token != r.turnToken || h == nil || h.IsComplete() {
		r.logger.Debug("Ignoring stale timer", "token", token)
		return
	}
	r.turnTimer = nil

	if r.negotiating() {
		who, err := h.ExpireRunOut()
		if err != nil && !h.IsComplete() {
			r.logger.Error("Run-it expiry failed", "hand", h.ID, "error", err)
			return
		}
		r.logger.Info("Run-it decision timed out", "hand", h.ID, "player", who)
		r.progress()
		return
	}

	p := h.ActivePlayer()
	if p == nil {
		return
	}
	action, err := h.TimeoutAction(p.ID)
	if err != nil && !h.IsComplete() {
		r.logger.Error("Timeout action failed", "hand", h.ID, "player", p.ID, "error", err)
		return
	}
	p.MissedTurns++
	if p.MissedTurns > r.cfg.MissedTurnLimit {
		r.sitOut[p.ID] = true
	}
	r.logger.Info("Turn timed out", "hand", h.ID, "player", p.ID, "action", action, "missed", p.MissedTurns)
	r.transport.Broadcast(r.cfg.ID, protocol.PlayerStatusUpdate{
		PlayerID:    p.ID,
		Status:      p.Status.String(),
		Stack:       p.Stack,
		MissedTurns: p.MissedTurns,
	})
	r.progress()
}

func (r *Room) finishHand() {
	h := r.hand
	r.stopTurnTimer()
	h.TurnExpiresAt = time.Time{}

	res := h.Result()
	if res.Aborted {
		r.transport.Broadcast(r.cfg.ID, protocol.Error{
			Code:    protocol.CodeServerError,
			Message: fmt.Sprintf("hand %s aborted, bets refunded", h.ID),
		})
	} else {
		if len(res.Runs) > 1 {
			for _, run := range res.Runs {
				r.transport.Broadcast(r.cfg.ID, protocol.AllInEquityUpdate{
					HandID:   h.ID,
					RunIndex: run.Index,
					Equities: runShares(run, h.RunOut.Contestants),
				})
			}
		}
		r.transport.Broadcast(r.cfg.ID, resultMessage(h))
	}
	r.logger.Info("Hand complete", "hand", h.ID, "runs", len(res.Runs), "payouts", res.Payouts, "aborted", res.Aborted)

	r.lastHand = h
	r.hand = nil
	r.broadcastState()
	r.afterHand()
}

// afterHand applies everything that waits for the hand to end: sitting out
// players who missed too many turns, busting empty stacks and crowning a
// tournament winner.
func (r *Room) afterHand() {
	for seat, id := range r.seats {
		if id == "" {
			continue
		}
		p := r.members[id]
		if r.sitOut[id] {
			delete(r.sitOut, id)
			p.Ready = false
			r.logger.Info("Sitting out after missed turns", "player", id, "missed", p.MissedTurns)
			r.transport.Broadcast(r.cfg.ID, protocol.PlayerReadyUpdate{PlayerID: id, IsReady: false})
		}
		if p.Stack == 0 {
			p.Ready = false
			if r.cfg.Tournament != nil {
				r.seats[seat] = ""
				r.logger.Info("Player eliminated", "player", id)
			}
		}
		r.refreshStatus(p)
	}

	if r.cfg.Tournament != nil {
		r.checkWinner()
	}
	r.broadcastLobby()
	r.maybeScheduleHand()
}

// refreshStatus derives a member's status from their seat and readiness,
// announcing any change. Players dealt into the running hand stay in it.
func (r *Room) refreshStatus(p *game.Player) {
	status := game.Spectating
	if r.seatOf(p.ID) >= 0 {
		status = game.SittingOut
		if p.Ready && p.Stack > 0 {
			status = game.InHand
		}
	}
	if r.inCurrentHand(p.ID) {
		status = game.InHand
	}
	if status == p.Status {
		return
	}
	p.Status = status
	r.transport.Broadcast(r.cfg.ID, protocol.PlayerStatusUpdate{
		PlayerID:    p.ID,
		Status:      status.String(),
		Stack:       p.Stack,
		MissedTurns: p.MissedTurns,
	})
}
