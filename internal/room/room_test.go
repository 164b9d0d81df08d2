package room

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/equity"
	"github.com/lox/pokerroom/internal/protocol"
	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/poker"
)

// fakeTransport records everything the room sends.
type fakeTransport struct {
	mu         sync.Mutex
	sent       map[string][]protocol.Outbound
	broadcasts []protocol.Outbound
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(map[string][]protocol.Outbound)}
}

func (f *fakeTransport) Send(_, playerID string, msg protocol.Outbound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[playerID] = append(f.sent[playerID], msg)
}

func (f *fakeTransport) Broadcast(_ string, msg protocol.Outbound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, msg)
}

func filter[T protocol.Outbound](msgs []protocol.Outbound) []T {
	var out []T
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func sentTo[T protocol.Outbound](f *fakeTransport, playerID string) []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return filter[T](f.sent[playerID])
}

func broadcasts[T protocol.Outbound](f *fakeTransport) []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return filter[T](f.broadcasts)
}

func lastSent[T protocol.Outbound](t *testing.T, f *fakeTransport, playerID string) T {
	t.Helper()
	msgs := sentTo[T](f, playerID)
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

type harness struct {
	t         *testing.T
	ctx       context.Context
	clock     *quartz.Mock
	transport *fakeTransport
	room      *Room
}

// stacked deals cards first in every hand: two hole cards per player in seat
// order, then flop, turn and river.
func stacked(cards string) func() *poker.Deck {
	top := poker.MustParseCards(cards)
	return func() *poker.Deck {
		return poker.NewStackedDeck(randutil.New(3), top...)
	}
}

func newHarness(t *testing.T, cfg Config, deck func() *poker.Deck) *harness {
	t.Helper()
	require.NoError(t, cfg.Validate())

	clock := quartz.NewMock(t)
	transport := newFakeTransport()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	r := New(cfg, transport, logger,
		WithClock(clock),
		WithRand(randutil.New(1)),
		WithEquityOptions(equity.WithRand(randutil.New(2)), equity.WithSamples(4000)),
	)
	r.newDeck = deck

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &harness{t: t, ctx: ctx, clock: clock, transport: transport, room: r}
}

func (h *harness) deliver(playerID string, msg protocol.Inbound) {
	h.t.Helper()
	require.NoError(h.t, h.room.Deliver(playerID, msg))
}

func (h *harness) snapshot() Snapshot {
	h.t.Helper()
	s, err := h.room.Snapshot(h.ctx)
	require.NoError(h.t, err)
	return s
}

func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	h.clock.Advance(d).MustWait(h.ctx)
}

func (h *harness) join(ids ...string) {
	h.t.Helper()
	for _, id := range ids {
		require.NoError(h.t, h.room.Connect(id, strings.ToUpper(id)))
	}
}

func (h *harness) seat(buyIn int, ids ...string) {
	h.t.Helper()
	h.join(ids...)
	for _, id := range ids {
		h.deliver(id, protocol.SitAtTable{BuyIn: buyIn})
		h.deliver(id, protocol.SetReady{IsReady: true})
	}
}

// startHand waits out the next-hand delay and returns the room with the new
// hand dealt.
func (h *harness) startHand() Snapshot {
	h.t.Helper()
	h.snapshot()
	h.advance(h.room.cfg.NextHandDelay)
	s := h.snapshot()
	require.True(h.t, s.HandInProgress, "hand should have started")
	return s
}

func (h *harness) stack(id string) int {
	h.t.Helper()
	p, ok := h.snapshot().Member(id)
	require.True(h.t, ok, "member %s", id)
	return p.Stack
}

func testConfig() Config {
	cfg := DefaultConfig("test")
	cfg.NextHandDelay = time.Second
	return cfg
}

func findPlayer(t *testing.T, u protocol.GameStateUpdate, id string) protocol.PlayerView {
	t.Helper()
	for _, p := range u.Players {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("player %s not in state", id)
	return protocol.PlayerView{}
}

func TestHeadsUpCheckDown(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), stacked("AsAh7c2dKd9s4c3hJc"))
	h.seat(1000, "a", "b")

	s := h.startHand()
	assert.Equal(t, "pre_flop", s.State.Stage)
	assert.Equal(t, "a", s.State.Active, "heads-up the button acts first")
	assert.Equal(t, 30, s.State.Pot)

	// Each player sees only their own hole cards.
	view := lastSent[protocol.GameStateUpdate](t, h.transport, "b")
	assert.ElementsMatch(t, []string{"7c", "2d"}, findPlayer(t, view, "b").HoleCards)
	assert.Empty(t, findPlayer(t, view, "a").HoleCards)
	assert.Empty(t, view.ValidActions)

	view = lastSent[protocol.GameStateUpdate](t, h.transport, "a")
	assert.Equal(t, 10, view.AmountToCall)
	assert.Equal(t, []protocol.ValidAction{
		{Action: "fold"},
		{Action: "call", Min: 10, Max: 10},
		{Action: "bet", Min: 40, Max: 1000},
	}, view.ValidActions)

	h.deliver("a", protocol.Call{})
	h.deliver("b", protocol.Check{})
	for range 3 {
		h.deliver("b", protocol.Check{})
		h.deliver("a", protocol.Check{})
	}

	s = h.snapshot()
	assert.False(t, s.HandInProgress)
	assert.Equal(t, "showdown", s.State.Stage)
	assert.Equal(t, []string{"Kd", "9s", "4c", "3h", "Jc"}, s.State.Board)
	assert.Equal(t, 1020, h.stack("a"))
	assert.Equal(t, 980, h.stack("b"))

	results := broadcasts[protocol.RunItMultipleTimesResult](h.transport)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Times)
	assert.Equal(t, map[string]int{"a": 40}, results[0].Payouts)
	assert.Len(t, results[0].Revealed, 2)
	require.Len(t, results[0].Boards, 1)
	assert.Equal(t, []string{"a"}, results[0].Boards[0].Pots[0].Winners)
	assert.Equal(t, "Pair", results[0].Boards[0].Pots[0].Hand)

	// Hole cards are public once shown down.
	view = lastSent[protocol.GameStateUpdate](t, h.transport, "b")
	assert.ElementsMatch(t, []string{"As", "Ah"}, findPlayer(t, view, "a").HoleCards)
}

func TestButtonRotates(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), nil)
	h.seat(1000, "a", "b", "c")

	s := h.startHand()
	assert.Equal(t, 0, s.State.Dealer)
	assert.Equal(t, "a", s.State.Active, "first to act after the big blind")

	h.deliver("a", protocol.Fold{})
	h.deliver("b", protocol.Fold{})
	require.False(t, h.snapshot().HandInProgress)

	s = h.startHand()
	assert.Equal(t, 1, s.State.Dealer)
	assert.Equal(t, "b", s.State.Active)
}

func TestRejectedActions(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), nil)
	h.seat(1000, "a", "b")
	h.startHand()

	h.deliver("b", protocol.Bet{Amount: 100})
	h.deliver("a", protocol.Bet{Amount: 15})
	h.deliver("a", protocol.Check{})
	h.deliver("a", protocol.SelectRunCount{Times: 2})
	s := h.snapshot()

	errs := sentTo[protocol.Error](h.transport, "b")
	require.Len(t, errs, 1)
	assert.Equal(t, protocol.CodeOutOfTurn, errs[0].Code)

	errs = sentTo[protocol.Error](h.transport, "a")
	require.Len(t, errs, 2, "protocol violations are not echoed")
	assert.Equal(t, protocol.CodeInvalidAmount, errs[0].Code)
	assert.Equal(t, 40, errs[0].Min)
	assert.Equal(t, 1000, errs[0].Max)
	assert.Equal(t, protocol.CodeInvalidAmount, errs[1].Code, "checking while facing a bet")

	assert.Equal(t, "a", s.State.Active, "rejected actions change nothing")
	assert.Equal(t, 30, s.State.Pot)
}

func TestSeating(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxSeats = 2
	h := newHarness(t, cfg, nil)
	h.join("a", "b", "c")

	h.deliver("a", protocol.SetReady{IsReady: true})
	h.deliver("a", protocol.SitAtTable{BuyIn: 100})
	h.deliver("a", protocol.SitAtTable{BuyIn: 500})
	h.deliver("a", protocol.SitAtTable{BuyIn: 500})
	h.deliver("b", protocol.SitAtTable{BuyIn: 4000})
	h.deliver("c", protocol.SitAtTable{BuyIn: 500})
	s := h.snapshot()

	errs := sentTo[protocol.Error](h.transport, "a")
	require.Len(t, errs, 3)
	assert.Equal(t, protocol.CodeInvalidSeat, errs[0].Code, "ready before sitting")
	assert.Equal(t, protocol.Error{Code: protocol.CodeInvalidAmount, Message: errs[1].Message, Min: 400, Max: 4000}, errs[1])
	assert.Equal(t, protocol.CodeInvalidSeat, errs[2].Code, "already seated")

	errs = sentTo[protocol.Error](h.transport, "c")
	require.Len(t, errs, 1)
	assert.Equal(t, protocol.CodeInvalidSeat, errs[0].Code, "table full")

	assert.Equal(t, []string{"a", "b"}, s.Seats)
	a, _ := s.Member("a")
	assert.Equal(t, 500, a.Stack)
	assert.Equal(t, "sitting_out", a.Status.String())
	c, _ := s.Member("c")
	assert.Equal(t, "spectating", c.Status.String())
	assert.False(t, s.HandInProgress)

	h.deliver("a", protocol.SetReady{IsReady: true})
	h.deliver("b", protocol.SetReady{IsReady: true})
	s = h.startHand()
	a, _ = s.Member("a")
	assert.Equal(t, "in_hand", a.Status.String())

	lobby := broadcasts[protocol.LobbyUpdate](h.transport)
	require.NotEmpty(t, lobby)
	last := lobby[len(lobby)-1]
	assert.Equal(t, protocol.LobbyUpdate{
		RoomID: "test", Members: 3, Seated: 2, Ready: 2, MaxSeats: 2,
		HandInProgress: true, SmallBlind: 10, BigBlind: 20,
	}, last)
}

func TestReconnectKeepsTimer(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), nil)
	h.seat(1000, "a", "b")
	before := h.startHand()
	require.NotNil(t, before.State.TurnExpiresAt)

	require.NoError(t, h.room.Disconnect("a"))
	s := h.snapshot()
	a, ok := s.Member("a")
	require.True(t, ok, "seated players stay while away")
	assert.False(t, a.Connected)
	assert.Equal(t, *before.State.TurnExpiresAt, *s.State.TurnExpiresAt)

	sent := len(sentTo[protocol.GameStateUpdate](h.transport, "a"))
	require.NoError(t, h.room.Connect("a", "A"))
	s = h.snapshot()
	a, _ = s.Member("a")
	assert.True(t, a.Connected)
	assert.Equal(t, *before.State.TurnExpiresAt, *s.State.TurnExpiresAt, "reconnect does not reset the clock")

	states := sentTo[protocol.GameStateUpdate](h.transport, "a")
	require.Greater(t, len(states), sent)
	assert.Len(t, findPlayer(t, states[len(states)-1], "a").HoleCards, 2)

	conn := broadcasts[protocol.ConnectionStatusUpdate](h.transport)
	assert.Equal(t, []protocol.ConnectionStatusUpdate{
		{PlayerID: "a", Connected: false},
		{PlayerID: "a", Connected: true},
	}, conn)
}

func TestSpectatorLeaves(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), nil)
	h.join("a", "watcher")
	require.NoError(t, h.room.Disconnect("watcher"))

	s := h.snapshot()
	_, ok := s.Member("watcher")
	assert.False(t, ok)
	assert.Equal(t, []protocol.PlayerLeft{{PlayerID: "watcher"}}, broadcasts[protocol.PlayerLeft](h.transport))
	assert.Len(t, broadcasts[protocol.PlayerJoined](h.transport), 2)
}

func TestSocialActionRelayed(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), nil)
	h.join("a")
	h.deliver("a", protocol.SocialAction{Payload: json.RawMessage(`{"emote":"gg"}`)})
	h.deliver("a", protocol.SocialAction{})
	h.deliver("stranger", protocol.SocialAction{Payload: json.RawMessage(`"hi"`)})
	h.snapshot()

	got := broadcasts[protocol.SocialActionBroadcast](h.transport)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].PlayerID)
	assert.JSONEq(t, `{"emote":"gg"}`, string(got[0].Payload))
}

func TestDeckExhaustionAbortsHand(t *testing.T) {
	t.Parallel()
	short := func() *poker.Deck {
		d := poker.NewDeck(randutil.New(1))
		_, _ = d.Deal(49)
		return d
	}
	h := newHarness(t, testConfig(), short)
	h.seat(1000, "a", "b")
	h.snapshot()
	h.advance(time.Second)

	s := h.snapshot()
	assert.False(t, s.HandInProgress)
	assert.Equal(t, 1000, h.stack("a"))
	assert.Equal(t, 1000, h.stack("b"))

	errs := broadcasts[protocol.Error](h.transport)
	require.Len(t, errs, 1)
	assert.Equal(t, protocol.CodeServerError, errs[0].Code)
	assert.Empty(t, broadcasts[protocol.RunItMultipleTimesResult](h.transport))
}
