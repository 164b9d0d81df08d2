package main

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/equity"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestOddsReport(t *testing.T) {
	t.Parallel()
	cmd := &OddsCmd{Hands: []string{"AsAh", "Ks Kh"}, Board: "KdQc2h3d", Samples: 1000}

	var out bytes.Buffer
	require.NoError(t, cmd.report(t.Context(), &out))
	text := out.String()

	assert.Contains(t, text, "Board: KdQc2h3d  44 boards, exact")
	assert.Contains(t, text, "AsAh        4.55%")
	assert.Contains(t, text, "KsKh       95.45%")
	assert.Contains(t, text, "AsAh trails with 2 outs:")
	assert.Contains(t, text, "Ac")
	assert.Contains(t, text, "Ad")
}

func TestOddsReportPreflopHasNoOuts(t *testing.T) {
	t.Parallel()
	seed := int64(7)
	cmd := &OddsCmd{Hands: []string{"AsAh", "7c2d"}, Samples: 2000, Seed: &seed}

	var out bytes.Buffer
	require.NoError(t, cmd.report(t.Context(), &out))
	assert.Contains(t, out.String(), "Board: (none)  2000 sampled boards")
	assert.NotContains(t, out.String(), "trails")
}

func TestOddsErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cmd  OddsCmd
		err  string
	}{
		{"odd card string", OddsCmd{Hands: []string{"AsA", "KsKh"}}, "hand 1"},
		{"three cards", OddsCmd{Hands: []string{"AsAh", "KsKhKd"}}, "exactly 2 cards"},
		{"bad board", OddsCmd{Hands: []string{"AsAh", "KsKh"}, Board: "Zz"}, "board"},
		{"bad dead", OddsCmd{Hands: []string{"AsAh", "KsKh"}, Dead: "Q"}, "dead cards"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorContains(t, tt.cmd.report(t.Context(), &bytes.Buffer{}), tt.err)
		})
	}

	cmd := OddsCmd{Hands: []string{"AsAh"}, Samples: 100}
	assert.ErrorIs(t, cmd.report(t.Context(), &bytes.Buffer{}), equity.ErrTooFewHands)

	cmd = OddsCmd{Hands: []string{"AsAh", "AsKh"}, Samples: 100}
	assert.ErrorIs(t, cmd.report(t.Context(), &bytes.Buffer{}), equity.ErrOverlapping)
}
