package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/protocol"
)

func tournamentConfig() Config {
	cfg := testConfig()
	cfg.Tournament = &Tournament{
		StartingStack: 1000,
		LevelDuration: 10 * time.Minute,
		Levels:        []Level{{10, 20}, {20, 40}, {50, 100}},
	}
	return cfg
}

func TestBlindsGoUpBetweenHands(t *testing.T) {
	t.Parallel()
	h := newHarness(t, tournamentConfig(), nil)
	h.seat(0, "a", "b")
	s := h.startHand()
	assert.Equal(t, 10, s.State.SmallBlind)
	assert.Equal(t, 1000, h.stack("a"), "buy-in is ignored")

	h.join("late")
	h.deliver("late", protocol.SitAtTable{BuyIn: 1000})
	h.deliver("a", protocol.Fold{})
	h.deliver("a", protocol.SetReady{IsReady: false})
	h.snapshot()

	errs := sentTo[protocol.Error](h.transport, "late")
	require.Len(t, errs, 1)
	assert.Equal(t, protocol.CodeInvalidSeat, errs[0].Code)

	// The level clock started with the first hand.
	h.advance(time.Second)
	h.advance(10*time.Minute - time.Second)
	s = h.snapshot()
	assert.Equal(t, 1, s.Level)

	ups := broadcasts[protocol.BlindsUp](h.transport)
	require.Len(t, ups, 1)
	assert.Equal(t, 2, ups[0].Level)
	assert.Equal(t, 20, ups[0].SmallBlind)
	assert.Equal(t, 40, ups[0].BigBlind)
	require.NotNil(t, ups[0].NextLevelAt)
	assert.Equal(t, 10*time.Minute, ups[0].NextLevelAt.Sub(h.clock.Now()))

	h.deliver("a", protocol.SetReady{IsReady: true})
	s = h.startHand()
	assert.Equal(t, 20, s.State.SmallBlind)
	assert.Equal(t, 40, s.State.BigBlind)
	assert.Equal(t, 60, s.State.Pot)
}

func TestTournamentWinner(t *testing.T) {
	t.Parallel()
	cfg := tournamentConfig()
	cfg.RunItOptions = []int{1}
	h := newHarness(t, cfg, stacked(acesOverKings))
	allInPreflop(t, h)
	s := h.snapshot()

	assert.True(t, s.Finished)
	assert.False(t, s.HandInProgress)
	assert.Empty(t, broadcasts[protocol.OfferRunItMultipleTimes](h.transport), "single run only")

	winners := broadcasts[protocol.TournamentWinner](h.transport)
	require.Len(t, winners, 1)
	assert.Equal(t, protocol.TournamentWinner{PlayerID: "a", Name: "A", Stack: 2000}, winners[0])

	b, _ := s.Member("b")
	assert.Equal(t, "spectating", b.Status.String())
	assert.NotContains(t, s.Seats, "b")

	h.deliver("b", protocol.SitAtTable{})
	h.snapshot()
	errs := sentTo[protocol.Error](h.transport, "b")
	require.Len(t, errs, 1)
	assert.Equal(t, protocol.CodeInvalidSeat, errs[0].Code)
}
