package room

import (
	"time"

	"github.com/lox/pokerroom/internal/protocol"
)

// scheduleLevel arms the timer for the next blind level. The clock starts
// with the first hand and stops at the last level.
func (r *Room) scheduleLevel() {
	t := r.cfg.Tournament
	if r.level >= len(t.Levels)-1 {
		r.levelTimer = nil
		r.levelEnds = time.Time{}
		return
	}
	r.levelEnds = r.clock.Now().Add(t.LevelDuration)
	r.levelTimer = r.clock.AfterFunc(t.LevelDuration, func() {
		_ = r.post(levelUpEvent{})
	}, "room", "level")
}

// levelUp raises the blinds. The hand in progress keeps the blinds it was
// dealt with.
func (r *Room) levelUp() {
	if r.cfg.Tournament == nil || r.finished {
		return
	}
	r.level++
	r.scheduleLevel()

	sb, bb := r.cfg.blinds(r.level)
	msg := protocol.BlindsUp{Level: r.level + 1, SmallBlind: sb, BigBlind: bb}
	if !r.levelEnds.IsZero() {
		next := r.levelEnds
		msg.NextLevelAt = &next
	}
	r.logger.Info("Blinds up", "level", r.level+1, "small_blind", sb, "big_blind", bb)
	r.transport.Broadcast(r.cfg.ID, msg)
	r.broadcastLobby()
}

// checkWinner ends the tournament once a single seated player has chips
func (r *Room) checkWinner() {
	if r.finished || r.handsDealt == 0 {
		return
	}
	var alive []string
	for _, id := range r.seats {
		if id != "" && r.members[id].Stack > 0 {
			alive = append(alive, id)
		}
	}
	if len(alive) != 1 {
		return
	}

	r.finished = true
	if r.levelTimer != nil {
		r.levelTimer.Stop()
		r.levelTimer = nil
	}
	if r.nextHand != nil {
		r.nextHand.Stop()
		r.nextHand = nil
	}
	winner := r.members[alive[0]]
	r.logger.Info("Tournament won", "player", winner.ID, "stack", winner.Stack, "hands", r.handsDealt)
	r.transport.Broadcast(r.cfg.ID, protocol.TournamentWinner{
		PlayerID: winner.ID,
		Name:     winner.Name,
		Stack:    winner.Stack,
	})
}
