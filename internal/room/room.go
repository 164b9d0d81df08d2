// Package room runs one poker table per goroutine. Everything that can touch
// a room (client messages, timer expiries, connects, disconnects and snapshot
// requests) is posted to the room's inbox and handled in order by Run, so the
// hand state needs no locking.
package room

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokerroom/internal/equity"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/protocol"
	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/poker"
)

const inboxSize = 256

// ErrClosed is returned when posting to a room that has stopped.
var ErrClosed = errors.New("room closed")

// Transport delivers messages to players. Both methods must return without
// waiting on the network. Send only reaches the player's connection to roomID.
type Transport interface {
	Send(roomID, playerID string, msg protocol.Outbound)
	Broadcast(roomID string, msg protocol.Outbound)
}

// Room is a single table.
type Room struct {
	cfg        Config
	transport  Transport
	clock      quartz.Clock
	logger     *log.Logger
	rng        *rand.Rand
	equityOpts []equity.Option
	newDeck    func() *poker.Deck // stacked decks in tests

	inbox chan event
	done  chan struct{}
	ctx   context.Context

	// Owned by the Run goroutine.
	members    map[string]*game.Player
	joinOrder  []string
	seats      []string // player ID per seat, "" when empty
	hand       *game.HandState
	handSeats  []int // table seat of each hand position
	lastHand   *game.HandState
	button     int // table seat of the last button, -1 before the first hand
	handsDealt int

	turnToken uint64
	turnTimer *quartz.Timer
	nextHand  *quartz.Timer
	sitOut    map[string]bool // reached the missed turn limit this hand

	level      int
	levelTimer *quartz.Timer
	levelEnds  time.Time
	finished   bool
}

// Option configures a Room.
type Option func(*Room)

// WithClock sets the clock driving turn timers, the next-hand delay and blind
// levels. Default is the real clock.
func WithClock(clock quartz.Clock) Option {
	return func(r *Room) {
		r.clock = clock
	}
}

// WithRand sets the shuffle source. Default is crypto-backed.
func WithRand(rng *rand.Rand) Option {
	return func(r *Room) {
		r.rng = rng
	}
}

// WithSeed gives the room its own deterministic shuffle source, derived from
// seed and the room ID so rooms sharing a seed neither share a generator nor
// deal the same decks.
func WithSeed(seed int64) Option {
	return func(r *Room) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(r.cfg.ID))
		r.rng = randutil.New(seed ^ int64(h.Sum64()))
	}
}

// WithEquityOptions configures the all-in equity calculation.
func WithEquityOptions(opts ...equity.Option) Option {
	return func(r *Room) {
		r.equityOpts = append(r.equityOpts, opts...)
	}
}

// New creates a room. Call Run to start it.
func New(cfg Config, transport Transport, logger *log.Logger, opts ...Option) *Room {
	r := &Room{
		cfg:       cfg,
		transport: transport,
		clock:     quartz.NewReal(),
		logger:    logger.WithPrefix("room").With("room", cfg.ID),
		rng:       randutil.Crypto(),
		inbox:     make(chan event, inboxSize),
		done:      make(chan struct{}),
		ctx:       context.Background(),
		members:   make(map[string]*game.Player),
		seats:     make([]string, cfg.MaxSeats),
		button:    -1,
		sitOut:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the room ID
func (r *Room) ID() string {
	return r.cfg.ID
}

type event interface{}

type connectEvent struct {
	playerID string
	name     string
}

type disconnectEvent struct {
	playerID string
}

type inboundEvent struct {
	playerID string
	msg      protocol.Inbound
}

// turnTimeoutEvent fires when a turn or negotiation deadline passes. Tokens
// from superseded timers are ignored.
type turnTimeoutEvent struct {
	token uint64
}

type nextHandEvent struct{}

type levelUpEvent struct{}

type snapshotEvent struct {
	reply chan Snapshot
}

// Run processes the inbox until ctx is cancelled.
func (r *Room) Run(ctx context.Context) error {
	r.ctx = ctx
	defer close(r.done)
	defer r.stopTimers()

	r.logger.Info("Room open", "seats", r.cfg.MaxSeats, "tournament", r.cfg.Tournament != nil)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Room closed")
			return nil
		case ev := <-r.inbox:
			r.handle(ev)
		}
	}
}

func (r *Room) handle(ev event) {
	switch ev := ev.(type) {
	case connectEvent:
		r.connect(ev.playerID, ev.name)
	case disconnectEvent:
		r.disconnect(ev.playerID)
	case inboundEvent:
		if _, ok := r.members[ev.playerID]; !ok {
			r.logger.Warn("Message from non-member", "player", ev.playerID, "type", ev.msg.Type())
			return
		}
		if err := ev.msg.Accept(&playerHandler{room: r, playerID: ev.playerID}); err != nil {
			r.reject(ev.playerID, err)
		}
	case turnTimeoutEvent:
		r.turnExpired(ev.token)
	case nextHandEvent:
		r.nextHand = nil
		r.startHand()
	case levelUpEvent:
		r.levelUp()
	case snapshotEvent:
		ev.reply <- r.snapshot()
	default:
		r.logger.Error("Unknown event", "event", fmt.Sprintf("%T", ev))
	}
}

// post queues an event. It gives up once the room has stopped.
func (r *Room) post(ev event) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}
	select {
	case r.inbox <- ev:
		return nil
	case <-r.done:
		return ErrClosed
	}
}

// Connect attaches a player to the room, or marks a returning player as
// connected again.
func (r *Room) Connect(playerID, name string) error {
	return r.post(connectEvent{playerID: playerID, name: name})
}

// Disconnect marks a player as disconnected. Their seat and any turn timer
// are left alone.
func (r *Room) Disconnect(playerID string) error {
	return r.post(disconnectEvent{playerID: playerID})
}

// Deliver hands a client message to the room.
func (r *Room) Deliver(playerID string, msg protocol.Inbound) error {
	return r.post(inboundEvent{playerID: playerID, msg: msg})
}

// Snapshot returns a copy of the room state, taken between events.
func (r *Room) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := r.post(snapshotEvent{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-r.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (r *Room) connect(playerID, name string) {
	if p, ok := r.members[playerID]; ok {
		p.Connected = true
		r.logger.Info("Player reconnected", "player", playerID)
		r.transport.Broadcast(r.cfg.ID, protocol.ConnectionStatusUpdate{PlayerID: playerID, Connected: true})
		r.sendState(playerID)
		if r.negotiating() {
			r.transport.Send(r.cfg.ID, playerID, r.offerMessage())
		}
		return
	}

	if name == "" {
		name = playerID
	}
	r.members[playerID] = &game.Player{ID: playerID, Name: name, Connected: true, Status: game.Spectating}
	r.joinOrder = append(r.joinOrder, playerID)
	r.logger.Info("Player joined", "player", playerID, "name", name)
	r.transport.Broadcast(r.cfg.ID, protocol.PlayerJoined{PlayerID: playerID, Name: name})
	r.sendState(playerID)
	r.broadcastLobby()
}

func (r *Room) disconnect(playerID string) {
	p, ok := r.members[playerID]
	if !ok || !p.Connected {
		return
	}
	p.Connected = false
	r.logger.Info("Player disconnected", "player", playerID)

	// Seated players keep their chips and seat until they come back; they are
	// skipped when dealing while away.
	if r.seatOf(playerID) >= 0 {
		r.transport.Broadcast(r.cfg.ID, protocol.ConnectionStatusUpdate{PlayerID: playerID, Connected: false})
		return
	}
	r.removeMember(playerID)
	r.broadcastLobby()
}

// removeMember drops a player and frees their seat
func (r *Room) removeMember(playerID string) {
	if seat := r.seatOf(playerID); seat >= 0 {
		r.seats[seat] = ""
	}
	delete(r.members, playerID)
	delete(r.sitOut, playerID)
	for i, id := range r.joinOrder {
		if id == playerID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}
	r.logger.Info("Player left", "player", playerID)
	r.transport.Broadcast(r.cfg.ID, protocol.PlayerLeft{PlayerID: playerID})
}

func (r *Room) inCurrentHand(playerID string) bool {
	if r.hand == nil {
		return false
	}
	_, ok := r.hand.Player(playerID)
	return ok
}

func (r *Room) seatOf(playerID string) int {
	for i, id := range r.seats {
		if id == playerID {
			return i
		}
	}
	return -1
}

// reject reports a failed client message to its sender
func (r *Room) reject(playerID string, err error) {
	var amountErr *game.AmountError
	switch {
	case errors.As(err, &amountErr):
		r.transport.Send(r.cfg.ID, playerID, protocol.Error{
			Code:    protocol.CodeInvalidAmount,
			Message: err.Error(),
			Min:     amountErr.Min,
			Max:     amountErr.Max,
		})
	case errors.Is(err, game.ErrOutOfTurn):
		r.transport.Send(r.cfg.ID, playerID, protocol.Error{Code: protocol.CodeOutOfTurn, Message: err.Error()})
	case errors.Is(err, errInvalidSeat):
		r.transport.Send(r.cfg.ID, playerID, protocol.Error{Code: protocol.CodeInvalidSeat, Message: err.Error()})
	case errors.Is(err, game.ErrProtocolViolation):
		r.logger.Warn("Ignoring message", "player", playerID, "error", err)
	default:
		r.logger.Error("Message failed", "player", playerID, "error", err)
		r.transport.Send(r.cfg.ID, playerID, protocol.Error{Code: protocol.CodeServerError, Message: err.Error()})
	}
}

func (r *Room) stopTimers() {
	for _, t := range []*quartz.Timer{r.turnTimer, r.nextHand, r.levelTimer} {
		if t != nil {
			t.Stop()
		}
	}
}
