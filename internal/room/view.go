package room

import (
	"cmp"
	"maps"
	"slices"

	"github.com/lox/pokerroom/internal/equity"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/protocol"
	"github.com/lox/pokerroom/poker"
)

// Snapshot is a point-in-time copy of a room, safe to read from any
// goroutine.
type Snapshot struct {
	RoomID         string
	Members        []game.Player // in join order
	Seats          []string
	State          protocol.GameStateUpdate // as a spectator sees it
	HandInProgress bool
	HandsDealt     int
	Level          int
	Finished       bool
}

// Member returns the member with the given ID
func (s Snapshot) Member(id string) (game.Player, bool) {
	for _, p := range s.Members {
		if p.ID == id {
			return p, true
		}
	}
	return game.Player{}, false
}

func (r *Room) snapshot() Snapshot {
	s := Snapshot{
		RoomID:         r.cfg.ID,
		Seats:          slices.Clone(r.seats),
		State:          r.stateFor(""),
		HandInProgress: r.hand != nil,
		HandsDealt:     r.handsDealt,
		Level:          r.level,
		Finished:       r.finished,
	}
	for _, id := range r.joinOrder {
		s.Members = append(s.Members, *r.members[id])
	}
	return s
}

// stateFor builds the table as viewer sees it. Hole cards are limited to the
// viewer's own and those shown down.
func (r *Room) stateFor(viewer string) protocol.GameStateUpdate {
	sb, bb := r.cfg.blinds(r.level)
	u := protocol.GameStateUpdate{
		RoomID:     r.cfg.ID,
		Stage:      "waiting",
		Board:      []string{},
		Players:    []protocol.PlayerView{},
		Dealer:     r.button,
		SmallBlind: sb,
		BigBlind:   bb,
	}

	h := r.hand
	if h == nil {
		h = r.lastHand
	}
	shown := map[string]poker.Hand{}
	dealt := map[string]bool{}
	if h != nil {
		u.HandID = h.ID
		u.Stage = h.Stage.String()
		u.Board = cardStrings(h.Board)
		u.Pot = h.Pot()
		u.LastRaise = h.LastRaise
		u.SmallBlind = h.SmallBlind
		u.BigBlind = h.BigBlind
		u.RunIndex = h.RunIndex
		if res := h.Result(); res != nil {
			shown = res.Revealed
			if !res.Aborted {
				u.Pot = 0
			}
		}
		if p := h.ActivePlayer(); p != nil {
			u.Active = p.ID
			if p.ID == viewer {
				u.ValidActions = validActions(h.ValidActions())
			}
		}
		if h.LastAggressor >= 0 {
			u.LastAggressor = h.Players[h.LastAggressor].ID
		}
		if !h.TurnExpiresAt.IsZero() {
			t := h.TurnExpiresAt
			u.TurnExpiresAt = &t
		}
		if o := h.RunOut; o != nil {
			u.RunOut = &protocol.RunOutView{
				State:      o.State.String(),
				Underdog:   o.Underdog,
				Favorites:  slices.Clone(o.Favorites),
				Options:    slices.Clone(o.Options),
				Times:      o.Times,
				Agreements: maps.Clone(o.Agreements),
			}
		}

		for i, p := range h.Players {
			dealt[p.ID] = true
			view := playerView(p.Player, r.handSeats[i])
			view.StreetBet = p.StreetBet
			view.TotalBet = p.TotalBet
			view.Folded = p.Folded
			view.AllIn = p.AllIn
			view.Acted = p.Acted
			if cards, ok := shown[p.ID]; ok {
				view.HoleCards = cardStrings(cards.Cards())
			} else if p.ID == viewer && !h.IsComplete() {
				view.HoleCards = cardStrings(p.HoleCards.Cards())
			}
			if p.ID == viewer && h.Active >= 0 {
				u.AmountToCall = min(max(h.CurrentBet-p.StreetBet, 0), p.Remaining())
			}
			u.Players = append(u.Players, view)
		}
	}

	for seat, id := range r.seats {
		if id != "" && !dealt[id] {
			u.Players = append(u.Players, playerView(r.members[id], seat))
		}
	}
	slices.SortFunc(u.Players, func(a, b protocol.PlayerView) int {
		return cmp.Compare(a.Seat, b.Seat)
	})
	return u
}

func playerView(p *game.Player, seat int) protocol.PlayerView {
	return protocol.PlayerView{
		ID:          p.ID,
		Name:        p.Name,
		Seat:        seat,
		Stack:       p.Stack,
		Connected:   p.Connected,
		Status:      p.Status.String(),
		MissedTurns: p.MissedTurns,
	}
}

func validActions(actions []game.ValidAction) []protocol.ValidAction {
	out := make([]protocol.ValidAction, len(actions))
	for i, a := range actions {
		out[i] = protocol.ValidAction{Action: a.Action.String(), Min: a.Min, Max: a.Max}
	}
	return out
}

func (r *Room) sendState(playerID string) {
	r.transport.Send(r.cfg.ID, playerID, r.stateFor(playerID))
}

// broadcastState sends every member their own view
func (r *Room) broadcastState() {
	for _, id := range r.joinOrder {
		r.sendState(id)
	}
}

func (r *Room) broadcastLobby() {
	sb, bb := r.cfg.blinds(r.level)
	msg := protocol.LobbyUpdate{
		RoomID:         r.cfg.ID,
		Members:        len(r.members),
		MaxSeats:       r.cfg.MaxSeats,
		HandInProgress: r.hand != nil,
		SmallBlind:     sb,
		BigBlind:       bb,
	}
	for _, id := range r.seats {
		if id == "" {
			continue
		}
		msg.Seated++
		if r.members[id].Ready {
			msg.Ready++
		}
	}
	r.transport.Broadcast(r.cfg.ID, msg)
}

func (r *Room) offerMessage() protocol.OfferRunItMultipleTimes {
	h := r.hand
	o := h.RunOut
	msg := protocol.OfferRunItMultipleTimes{
		HandID:    h.ID,
		State:     o.State.String(),
		Underdog:  o.Underdog,
		Favorites: slices.Clone(o.Favorites),
		Options:   slices.Clone(o.Options),
		Equities:  equities(o),
		Outs:      outsView(o.Outs, o.Underdog),
	}
	if o.State == game.AwaitingAgreement {
		msg.Times = o.Times
	}
	if !h.TurnExpiresAt.IsZero() {
		t := h.TurnExpiresAt
		msg.ExpiresAt = &t
	}
	return msg
}

func resultMessage(h *game.HandState) protocol.RunItMultipleTimesResult {
	res := h.Result()
	msg := protocol.RunItMultipleTimesResult{
		HandID:      h.ID,
		Times:       len(res.Runs),
		Boards:      []protocol.BoardResult{},
		Payouts:     res.Payouts,
		Uncontested: res.Uncontested,
	}
	for _, run := range res.Runs {
		board := protocol.BoardResult{Index: run.Index, Board: cardStrings(run.Board)}
		for _, pot := range run.Pots {
			board.Pots = append(board.Pots, protocol.PotShare{
				Amount:  pot.Amount,
				Winners: pot.Winners,
				Hand:    pot.Rank.String(),
				Payouts: pot.Shares,
			})
		}
		msg.Boards = append(msg.Boards, board)
	}
	if len(res.Revealed) > 0 {
		msg.Revealed = make(map[string][]string, len(res.Revealed))
		for id, cards := range res.Revealed {
			msg.Revealed[id] = cardStrings(cards.Cards())
		}
	}
	return msg
}

// equities lists contestant equity in acting order
func equities(o *game.RunItOffer) []protocol.PlayerEquity {
	out := make([]protocol.PlayerEquity, 0, len(o.Contestants))
	for _, id := range o.Contestants {
		out = append(out, protocol.PlayerEquity{PlayerID: id, Equity: o.Equity[id]})
	}
	return out
}

// runShares reports each contestant's fraction of the chips settled on one
// board of a multi-run.
func runShares(run game.RunResult, contestants []string) []protocol.PlayerEquity {
	won := make(map[string]int)
	total := 0
	for _, pot := range run.Pots {
		total += pot.Amount
		for id, amount := range pot.Shares {
			won[id] += amount
		}
	}
	out := make([]protocol.PlayerEquity, 0, len(contestants))
	for _, id := range contestants {
		eq := 0.0
		if total > 0 {
			eq = float64(won[id]) / float64(total)
		}
		out = append(out, protocol.PlayerEquity{PlayerID: id, Equity: eq})
	}
	return out
}

func outsView(info equity.OutsInfo, player string) *protocol.Outs {
	if info == nil {
		return nil
	}
	out := &protocol.Outs{Kind: string(info.Kind()), Player: player}
	switch o := info.(type) {
	case equity.DirectOuts:
		out.Outs = cardStrings(o.Outs)
		out.Chops = cardStrings(o.Chops)
	case equity.RunnerRunner:
		for _, pair := range o.Pairs {
			out.Pairs = append(out.Pairs, [2]string{pair[0].String(), pair[1].String()})
		}
	}
	return out
}

func cardStrings(cards []poker.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
