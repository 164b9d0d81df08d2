package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/protocol"
)

// a holds aces, b kings; the board runs 2c 7d 9h 3s 4d.
const acesOverKings = "AsAhKsKh2c7d9h3s4d"

func allInPreflop(t *testing.T, h *harness) {
	t.Helper()
	h.seat(1000, "a", "b")
	h.startHand()
	h.deliver("a", protocol.Bet{Amount: 1000})
	h.deliver("b", protocol.Call{})
}

func equityOf(eqs []protocol.PlayerEquity, id string) float64 {
	for _, e := range eqs {
		if e.PlayerID == id {
			return e.Equity
		}
	}
	return -1
}

func TestRunItOfferedToUnderdog(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), stacked(acesOverKings))
	allInPreflop(t, h)
	s := h.snapshot()

	require.True(t, s.HandInProgress)
	require.NotNil(t, s.State.RunOut)
	assert.Equal(t, "offered", s.State.RunOut.State)
	assert.Empty(t, s.State.Active)
	assert.Equal(t, 2000, s.State.Pot)

	updates := broadcasts[protocol.AllInEquityUpdate](h.transport)
	require.Len(t, updates, 1)
	assert.InDelta(t, 0.82, equityOf(updates[0].Equities, "a"), 0.03)
	assert.InDelta(t, 0.18, equityOf(updates[0].Equities, "b"), 0.03)
	assert.Nil(t, updates[0].Outs, "no outs with five cards to come")

	offers := broadcasts[protocol.OfferRunItMultipleTimes](h.transport)
	require.Len(t, offers, 1)
	assert.Equal(t, "offered", offers[0].State)
	assert.Equal(t, "b", offers[0].Underdog)
	assert.Equal(t, []string{"a"}, offers[0].Favorites)
	assert.Equal(t, []int{1, 2, 3}, offers[0].Options)
	require.NotNil(t, offers[0].ExpiresAt)
	assert.Equal(t, 15*time.Second, offers[0].ExpiresAt.Sub(h.clock.Now()))

	// Betting is closed while the run-out is negotiated.
	h.deliver("a", protocol.Check{})
	h.deliver("a", protocol.SelectRunCount{Times: 2})
	h.snapshot()
	errs := sentTo[protocol.Error](h.transport, "a")
	require.Len(t, errs, 1)
	assert.Equal(t, protocol.CodeOutOfTurn, errs[0].Code)
}

func TestRunItTwiceAgreed(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), stacked(acesOverKings))
	allInPreflop(t, h)

	h.deliver("b", protocol.SelectRunCount{Times: 2})
	s := h.snapshot()
	require.NotNil(t, s.State.RunOut)
	assert.Equal(t, "awaiting_agreement", s.State.RunOut.State)

	offers := broadcasts[protocol.OfferRunItMultipleTimes](h.transport)
	require.Len(t, offers, 2)
	assert.Equal(t, "awaiting_agreement", offers[1].State)
	assert.Equal(t, 2, offers[1].Times)

	h.deliver("a", protocol.AgreeRunCount{IsAgree: true})
	s = h.snapshot()
	assert.False(t, s.HandInProgress)
	assert.Equal(t, 2, s.State.RunIndex)

	results := broadcasts[protocol.RunItMultipleTimesResult](h.transport)
	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, 2, res.Times)
	require.Len(t, res.Boards, 2)
	assert.Equal(t, []string{"2c", "7d", "9h", "3s", "4d"}, res.Boards[0].Board)
	assert.Equal(t, 1000, res.Boards[0].Pots[0].Amount)
	assert.Equal(t, []string{"a"}, res.Boards[0].Pots[0].Winners)
	assert.Equal(t, 1000, res.Boards[1].Pots[0].Amount)

	paid := 0
	for _, amount := range res.Payouts {
		paid += amount
	}
	assert.Equal(t, 2000, paid)
	assert.GreaterOrEqual(t, res.Payouts["a"], 1000)
	assert.Equal(t, 2000, h.stack("a")+h.stack("b"))

	// One equity update at the start and one per board.
	updates := broadcasts[protocol.AllInEquityUpdate](h.transport)
	require.Len(t, updates, 3)
	assert.Equal(t, 1, updates[1].RunIndex)
	assert.Equal(t, 1.0, equityOf(updates[1].Equities, "a"))
	assert.Equal(t, 2, updates[2].RunIndex)
}

func TestRunItFavoriteDeclines(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), stacked(acesOverKings))
	allInPreflop(t, h)

	h.deliver("b", protocol.SelectRunCount{Times: 3})
	h.deliver("a", protocol.AgreeRunCount{IsAgree: false})
	h.snapshot()

	results := broadcasts[protocol.RunItMultipleTimesResult](h.transport)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Times)
	assert.Equal(t, 2000, h.stack("a"))
	assert.Zero(t, h.stack("b"))
}

func TestRunItUnderdogTimesOut(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), stacked(acesOverKings))
	allInPreflop(t, h)
	h.snapshot()

	h.advance(15 * time.Second)
	s := h.snapshot()
	assert.False(t, s.HandInProgress)

	results := broadcasts[protocol.RunItMultipleTimesResult](h.transport)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Times)
	assert.Equal(t, 2000, h.stack("a"))

	// Busted cash players sit out until they buy in again.
	b, _ := s.Member("b")
	assert.False(t, b.Ready)
	assert.Equal(t, "sitting_out", b.Status.String())
	assert.Zero(t, b.MissedTurns, "negotiation expiry is not a missed turn")

	h.deliver("b", protocol.SitAtTable{BuyIn: 500})
	assert.Equal(t, 500, h.stack("b"))
}

func TestRunItFavoriteTimesOut(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), stacked(acesOverKings))
	allInPreflop(t, h)
	h.deliver("b", protocol.SelectRunCount{Times: 2})
	h.snapshot()

	h.advance(15 * time.Second)
	h.snapshot()

	results := broadcasts[protocol.RunItMultipleTimesResult](h.transport)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Times, "silence counts as declining")
}

func TestFlopAllInCarriesOuts(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), stacked(acesOverKings))
	h.seat(1000, "a", "b")
	h.startHand()
	h.deliver("a", protocol.Call{})
	h.deliver("b", protocol.Check{})
	h.deliver("b", protocol.Bet{Amount: 980})
	h.deliver("a", protocol.Call{})
	h.snapshot()

	offers := broadcasts[protocol.OfferRunItMultipleTimes](h.transport)
	require.Len(t, offers, 1)
	require.NotNil(t, offers[0].Outs)
	assert.Equal(t, "direct_outs", offers[0].Outs.Kind)
	assert.Equal(t, "b", offers[0].Outs.Player)
	assert.Subset(t, offers[0].Outs.Outs, []string{"Kd", "Kc"})
}

func TestDrawingDeadSkipsOffer(t *testing.T) {
	t.Parallel()
	// a flops quad aces against b's kings full.
	h := newHarness(t, testConfig(), stacked("AsAhKsKhAdAcKd2c3c"))
	h.seat(1000, "a", "b")
	h.startHand()
	h.deliver("a", protocol.Call{})
	h.deliver("b", protocol.Check{})
	h.deliver("b", protocol.Bet{Amount: 980})
	h.deliver("a", protocol.Call{})
	s := h.snapshot()

	assert.False(t, s.HandInProgress)
	assert.Empty(t, broadcasts[protocol.OfferRunItMultipleTimes](h.transport))

	updates := broadcasts[protocol.AllInEquityUpdate](h.transport)
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Outs)
	assert.Equal(t, "drawing_dead", updates[0].Outs.Kind)
	assert.Zero(t, equityOf(updates[0].Equities, "b"))

	results := broadcasts[protocol.RunItMultipleTimesResult](h.transport)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Times)
	assert.Equal(t, 2000, h.stack("a"))
}

func TestSnapshotDoesNotTrackLiveOffer(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig(), stacked(acesOverKings))
	allInPreflop(t, h)

	h.deliver("b", protocol.SelectRunCount{Times: 2})
	before := h.snapshot()
	require.NotNil(t, before.State.RunOut)
	require.Empty(t, before.State.RunOut.Agreements)

	h.deliver("a", protocol.AgreeRunCount{IsAgree: true})
	h.snapshot()

	assert.Empty(t, before.State.RunOut.Agreements, "answers after the snapshot stay out of it")
	assert.Equal(t, []string{"a"}, before.State.RunOut.Favorites)
	assert.Equal(t, "awaiting_agreement", before.State.RunOut.State)
}
