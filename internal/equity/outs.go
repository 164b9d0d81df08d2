package equity

import (
	"errors"
	"fmt"

	"github.com/lox/pokerroom/poker"
)

// ErrNotClassifiable is returned when outs are requested with other than one
// or two board cards still to come.
var ErrNotClassifiable = errors.New("outs are only classified with one or two cards to come")

// OutsKind names the variants of OutsInfo.
type OutsKind string

const (
	KindDirectOuts   OutsKind = "direct_outs"
	KindRunnerRunner OutsKind = "runner_runner"
	KindDrawingDead  OutsKind = "drawing_dead"
)

// OutsInfo describes how a trailing hand can still win. It is one of
// DirectOuts, RunnerRunner or DrawingDead.
type OutsInfo interface {
	Kind() OutsKind
	isOuts()
}

// DirectOuts lists single cards that win (Outs) or chop (Chops) for the
// trailing hand.
type DirectOuts struct {
	Outs  []poker.Card
	Chops []poker.Card
}

// RunnerRunner lists the two-card completions that win or chop when no single
// card does.
type RunnerRunner struct {
	Pairs [][2]poker.Card
}

// DrawingDead means no completion wins or ties.
type DrawingDead struct{}

func (DirectOuts) Kind() OutsKind   { return KindDirectOuts }
func (RunnerRunner) Kind() OutsKind { return KindRunnerRunner }
func (DrawingDead) Kind() OutsKind  { return KindDrawingDead }

func (DirectOuts) isOuts()   {}
func (RunnerRunner) isOuts() {}
func (DrawingDead) isOuts()  {}

// standing compares the trailing hand with the best opponent on a board of
// five, six or seven known cards. It returns 1 when ahead, 0 when tied and -1
// when behind.
func standing(holes []poker.Hand, trailing int, board poker.Hand) int {
	mine := poker.Evaluate(holes[trailing] | board)
	best := poker.InvalidRank
	for i, h := range holes {
		if i == trailing {
			continue
		}
		if r := poker.Evaluate(h | board); r < best {
			best = r
		}
	}
	return poker.CompareHands(mine, best)
}

// Classify reports the outs of the hand at index trailing. With one card to
// come every winning card is a direct out and every tying card a chop. With
// two to come a card is direct when the trailing hand is ahead (an out) or
// level (a chop) after it falls and at least one completion containing it
// wins or ties; when no card qualifies the winning pairs are reported as
// runner-runner.
func Classify(holes []poker.Hand, board poker.Hand, trailing int, dead poker.Hand) (OutsInfo, error) {
	if trailing < 0 || trailing >= len(holes) {
		return nil, fmt.Errorf("trailing index %d out of range", trailing)
	}
	remaining, err := validate(holes, board, dead)
	if err != nil {
		return nil, err
	}

	switch 5 - board.CountCards() {
	case 1:
		var direct DirectOuts
		for _, c := range remaining {
			switch standing(holes, trailing, board|poker.Hand(c)) {
			case 1:
				direct.Outs = append(direct.Outs, c)
			case 0:
				direct.Chops = append(direct.Chops, c)
			}
		}
		if len(direct.Outs) == 0 && len(direct.Chops) == 0 {
			return DrawingDead{}, nil
		}
		return direct, nil

	case 2:
		var pairs [][2]poker.Card
		live := make(map[poker.Card]bool)
		for i := 0; i < len(remaining); i++ {
			for j := i + 1; j < len(remaining); j++ {
				full := board | poker.Hand(remaining[i]) | poker.Hand(remaining[j])
				if standing(holes, trailing, full) >= 0 {
					pairs = append(pairs, [2]poker.Card{remaining[i], remaining[j]})
					live[remaining[i]] = true
					live[remaining[j]] = true
				}
			}
		}
		if len(pairs) == 0 {
			return DrawingDead{}, nil
		}

		var direct DirectOuts
		for _, c := range remaining {
			if !live[c] {
				continue
			}
			switch standing(holes, trailing, board|poker.Hand(c)) {
			case 1:
				direct.Outs = append(direct.Outs, c)
			case 0:
				direct.Chops = append(direct.Chops, c)
			}
		}
		if len(direct.Outs) > 0 || len(direct.Chops) > 0 {
			return direct, nil
		}
		return RunnerRunner{Pairs: pairs}, nil

	default:
		return nil, ErrNotClassifiable
	}
}
