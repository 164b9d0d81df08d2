package poker

import "testing"

func TestEvaluate7CardsTypes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		cards string
		want  HandType
	}{
		{"royal flush", "AsKsQsJsTs2c3d", StraightFlush},
		{"steel wheel", "As2s3s4s5sKdQc", StraightFlush},
		{"quads", "9c9d9h9sAs2c3d", FourOfAKind},
		{"full house", "KcKdKh2s2c7d8h", FullHouse},
		{"flush", "Ah9h7h4h2hKsQd", Flush},
		{"broadway straight", "AsKdQhJcTs2c3d", Straight},
		{"wheel", "As2d3h4c5sKcQd", Straight},
		{"trips", "7c7d7hAsKd2c4h", ThreeOfAKind},
		{"two pair", "AcAdKhKs2c3d9h", TwoPair},
		{"pair", "QcQd2h5s8c9dJh", Pair},
		{"high card", "AcJd9h7s5c3d2h", HighCard},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rank := Evaluate7Cards(MustParseHand(tc.cards))
			if rank.Type() != tc.want {
				t.Errorf("%s evaluated as %s", tc.cards, rank)
			}
		})
	}
}

func TestWheelDoesNotShadowHigherStraight(t *testing.T) {
	t.Parallel()
	sixHigh := Evaluate7Cards(MustParseHand("As2d3h4c5s6dKc"))
	wheel := Evaluate7Cards(MustParseHand("As2d3h4c5sKdQc"))
	if CompareHands(sixHigh, wheel) != 1 {
		t.Errorf("six-high straight (%d) should beat the wheel (%d)", sixHigh, wheel)
	}
}

func TestEvaluateAcceptsFiveToSevenCards(t *testing.T) {
	t.Parallel()
	five := Evaluate(MustParseHand("AsAdKcKd2h"))
	six := Evaluate(MustParseHand("AsAdKcKd2hAh"))
	if five.Type() != TwoPair {
		t.Errorf("five cards: got %s", five)
	}
	if six.Type() != FullHouse {
		t.Errorf("six cards: got %s", six)
	}
	if Evaluate(MustParseHand("AsAd")) != InvalidRank {
		t.Error("two cards should be invalid")
	}
	if CompareHands(five, InvalidRank) != 1 {
		t.Error("any real hand beats InvalidRank")
	}
}

func TestCompareHandsKickers(t *testing.T) {
	t.Parallel()
	board := "AhKd7c4s2h"
	aceQueen := Evaluate7Cards(MustParseHand(board + "AcQd"))
	aceJack := Evaluate7Cards(MustParseHand(board + "AdJc"))
	if CompareHands(aceQueen, aceJack) != 1 {
		t.Error("queen kicker should win")
	}
	chop1 := Evaluate7Cards(MustParseHand("AsKsQsJs9d" + "2c3c"))
	chop2 := Evaluate7Cards(MustParseHand("AsKsQsJs9d" + "2d3d"))
	if CompareHands(chop1, chop2) != 0 {
		t.Error("board plays should tie")
	}
}
