package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lox/pokerroom/internal/equity"
	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/poker"
)

// OddsCmd runs the equity calculator the rooms use for all-in decisions
type OddsCmd struct {
	Hands   []string `arg:"" help:"Hole cards per player, e.g. AsAh KsKh"`
	Board   string   `short:"b" help:"Community cards (e.g. Td7s8h)"`
	Dead    string   `short:"d" help:"Cards known to be out of the deck"`
	Samples int      `short:"s" default:"20000" help:"Monte Carlo samples when exact enumeration is too large"`
	Seed    *int64   `help:"Random seed for reproducible sampling"`
	NoColor bool     `help:"Disable colours"`
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	handStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	percentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	outsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

func (c *OddsCmd) Run() error {
	if c.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	return c.report(context.Background(), os.Stdout)
}

// parse reads the hands, board and dead cards
func (c *OddsCmd) parse() ([]poker.Hand, poker.Hand, poker.Hand, error) {
	holes := make([]poker.Hand, len(c.Hands))
	for i, s := range c.Hands {
		cards, err := poker.ParseCards(s)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("hand %d: %w", i+1, err)
		}
		if len(cards) != 2 {
			return nil, 0, 0, fmt.Errorf("hand %d: must contain exactly 2 cards, got %d", i+1, len(cards))
		}
		holes[i] = poker.NewHand(cards...)
	}

	board, err := poker.ParseCards(c.Board)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("board: %w", err)
	}
	dead, err := poker.ParseCards(c.Dead)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("dead cards: %w", err)
	}
	return holes, poker.NewHand(board...), poker.NewHand(dead...), nil
}

func (c *OddsCmd) report(ctx context.Context, w io.Writer) error {
	holes, board, dead, err := c.parse()
	if err != nil {
		return err
	}

	opts := []equity.Option{equity.WithSamples(c.Samples), equity.WithDead(dead)}
	if c.Seed != nil {
		opts = append(opts, equity.WithRand(randutil.New(*c.Seed)))
	}
	res, err := equity.Calculate(ctx, holes, board, opts...)
	if err != nil {
		return err
	}

	method := fmt.Sprintf("%d sampled boards", res.Boards)
	if res.Exact {
		method = fmt.Sprintf("%d boards, exact", res.Boards)
	}
	boardText := "(none)"
	if c.Board != "" {
		boardText = strings.Join(strings.Fields(c.Board), "")
	}
	fmt.Fprintln(w, headerStyle.Render("Board: "+boardText+"  "+method))
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-8s %8s %8s %8s", "Hand", "Equity", "Win", "Tie")))
	for i := range holes {
		fmt.Fprintf(w, "%s %s %8.2f%% %8.2f%%\n",
			handStyle.Render(fmt.Sprintf("%-8s", c.handLabel(i))),
			percentStyle.Render(fmt.Sprintf("%7.2f%%", res.Equity[i]*100)),
			res.Win[i]*100,
			res.Tie[i]*100)
	}

	// Outs only make sense with a turn or river still to come.
	if n := board.CountCards(); n != 3 && n != 4 {
		return nil
	}
	order := make([]int, len(holes))
	for i := range order {
		order[i] = i
	}
	trailing := equity.Trailing(res, order)
	info, err := equity.Classify(holes, board, trailing, dead)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, outsStyle.Render(describeOuts(c.handLabel(trailing), info)))
	return nil
}

func (c *OddsCmd) handLabel(i int) string {
	return strings.Join(strings.Fields(c.Hands[i]), "")
}

func describeOuts(hand string, info equity.OutsInfo) string {
	switch o := info.(type) {
	case equity.DirectOuts:
		line := fmt.Sprintf("%s trails with %d outs: %s", hand, len(o.Outs), cardList(o.Outs))
		if len(o.Chops) > 0 {
			line += fmt.Sprintf(" (chops: %s)", cardList(o.Chops))
		}
		return line
	case equity.RunnerRunner:
		return fmt.Sprintf("%s trails and needs runner-runner (%d combinations)", hand, len(o.Pairs))
	default:
		return fmt.Sprintf("%s is drawing dead", hand)
	}
}

func cardList(cards []poker.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
