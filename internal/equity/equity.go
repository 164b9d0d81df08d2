// Package equity computes all-in equities and outs for hands whose hole cards
// are known.
//
// Equity is exact when the number of board completions is small enough to
// enumerate, otherwise it is estimated by uniform sampling. Both paths share
// the same tally so the sampled value converges to the enumerated one.
package equity

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/poker"
)

const (
	// DefaultMaxEnumeration caps exact enumeration. Flop and turn all-ins
	// (990 and 44 completions heads-up) always enumerate; preflop samples.
	DefaultMaxEnumeration = 50_000

	// DefaultSamples is the Monte Carlo sample count when enumeration is too large.
	DefaultSamples = 20_000
)

var (
	ErrTooFewHands   = errors.New("at least two hands required")
	ErrInvalidHole   = errors.New("each hand needs exactly two hole cards")
	ErrInvalidBoard  = errors.New("board must hold at most five cards")
	ErrOverlapping   = errors.New("cards overlap between hands, board or dead cards")
	ErrNotEnoughDeck = errors.New("not enough cards left to complete the board")
)

// Result holds per-hand equity in seat order of the input.
type Result struct {
	Equity []float64 // share of the pot won on average, 0..1
	Win    []float64 // frequency of winning outright
	Tie    []float64 // frequency of sharing the best hand
	Boards int       // completions evaluated
	Exact  bool      // true when every completion was enumerated
}

// Option configures Calculate.
type Option func(*config)

type config struct {
	maxEnumeration int
	samples        int
	rng            *rand.Rand
	dead           poker.Hand
	workers        int
}

// WithMaxEnumeration sets the largest completion count enumerated exactly.
func WithMaxEnumeration(n int) Option {
	return func(c *config) { c.maxEnumeration = n }
}

// WithSamples sets the Monte Carlo sample count.
func WithSamples(n int) Option {
	return func(c *config) { c.samples = n }
}

// WithRand seeds the sampler. Tests pass randutil.New(seed).
func WithRand(rng *rand.Rand) Option {
	return func(c *config) { c.rng = rng }
}

// WithDead removes cards from the remaining deck (mucked or exposed cards).
func WithDead(dead poker.Hand) Option {
	return func(c *config) { c.dead = dead }
}

// WithWorkers bounds parallelism.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// tally accumulates outcomes for one worker
type tally struct {
	wins   []int
	ties   []int
	shares []float64
	boards int
}

func newTally(n int) *tally {
	return &tally{wins: make([]int, n), ties: make([]int, n), shares: make([]float64, n)}
}

func (t *tally) merge(o *tally) {
	for i := range t.wins {
		t.wins[i] += o.wins[i]
		t.ties[i] += o.ties[i]
		t.shares[i] += o.shares[i]
	}
	t.boards += o.boards
}

// record evaluates every hand against a complete board
func (t *tally) record(holes []poker.Hand, board poker.Hand, ranks []poker.HandRank) {
	best := poker.InvalidRank
	for i, h := range holes {
		ranks[i] = poker.Evaluate7Cards(h | board)
		if ranks[i] < best {
			best = ranks[i]
		}
	}
	count := 0
	for _, r := range ranks {
		if r == best {
			count++
		}
	}
	for i, r := range ranks {
		if r != best {
			continue
		}
		if count == 1 {
			t.wins[i]++
		} else {
			t.ties[i]++
		}
		t.shares[i] += 1 / float64(count)
	}
	t.boards++
}

func (t *tally) result(exact bool) Result {
	n := len(t.wins)
	res := Result{
		Equity: make([]float64, n),
		Win:    make([]float64, n),
		Tie:    make([]float64, n),
		Boards: t.boards,
		Exact:  exact,
	}
	if t.boards == 0 {
		return res
	}
	total := float64(t.boards)
	for i := range n {
		res.Equity[i] = t.shares[i] / total
		res.Win[i] = float64(t.wins[i]) / total
		res.Tie[i] = float64(t.ties[i]) / total
	}
	return res
}

// Calculate computes the equity of each hand given the board so far.
func Calculate(ctx context.Context, holes []poker.Hand, board poker.Hand, opts ...Option) (Result, error) {
	cfg := config{
		maxEnumeration: DefaultMaxEnumeration,
		samples:        DefaultSamples,
		workers:        min(runtime.NumCPU(), 8),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	remaining, err := validate(holes, board, cfg.dead)
	if err != nil {
		return Result{}, err
	}
	needed := 5 - board.CountCards()
	if needed > len(remaining) {
		return Result{}, ErrNotEnoughDeck
	}

	if combinations(len(remaining), needed) <= cfg.maxEnumeration {
		t, err := enumerate(ctx, holes, board, remaining, needed, cfg.workers)
		if err != nil {
			return Result{}, err
		}
		return t.result(true), nil
	}

	rng := cfg.rng
	if rng == nil {
		rng = randutil.Crypto()
	}
	t, err := sample(ctx, holes, board, remaining, needed, cfg.samples, cfg.workers, rng)
	if err != nil {
		return Result{}, err
	}
	return t.result(false), nil
}

// validate checks the inputs and returns the undealt cards in canonical order.
func validate(holes []poker.Hand, board, dead poker.Hand) ([]poker.Card, error) {
	if len(holes) < 2 {
		return nil, ErrTooFewHands
	}
	if board.CountCards() > 5 {
		return nil, ErrInvalidBoard
	}
	used := board | dead
	count := board.CountCards() + dead.CountCards()
	for i, h := range holes {
		if h.CountCards() != 2 {
			return nil, fmt.Errorf("hand %d: %w", i, ErrInvalidHole)
		}
		used |= h
		count += 2
	}
	if used.CountCards() != count {
		return nil, ErrOverlapping
	}
	return remainingCards(used), nil
}

func remainingCards(used poker.Hand) []poker.Card {
	out := make([]poker.Card, 0, 52-used.CountCards())
	for _, c := range poker.AllCards() {
		if !used.HasCard(c) {
			out = append(out, c)
		}
	}
	return out
}

// enumerate visits every completion, one errgroup task per leading card.
func enumerate(ctx context.Context, holes []poker.Hand, board poker.Hand, remaining []poker.Card, needed, workers int) (*tally, error) {
	total := newTally(len(holes))
	if needed == 0 {
		total.record(holes, board, make([]poker.HandRank, len(holes)))
		return total, nil
	}

	partials := make([]*tally, len(remaining))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for first := 0; first <= len(remaining)-needed; first++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t := newTally(len(holes))
			ranks := make([]poker.HandRank, len(holes))
			lead := board | poker.Hand(remaining[first])
			forEachCombination(remaining[first+1:], needed-1, func(extra poker.Hand) {
				t.record(holes, lead|extra, ranks)
			})
			partials[first] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range partials {
		if t != nil {
			total.merge(t)
		}
	}
	return total, nil
}

// forEachCombination calls fn with every k-card subset of cards.
func forEachCombination(cards []poker.Card, k int, fn func(poker.Hand)) {
	var walk func(start, left int, acc poker.Hand)
	walk = func(start, left int, acc poker.Hand) {
		if left == 0 {
			fn(acc)
			return
		}
		for i := start; i <= len(cards)-left; i++ {
			walk(i+1, left-1, acc|poker.Hand(cards[i]))
		}
	}
	walk(0, k, 0)
}

// sample draws uniform completions. Each worker gets its own generator seeded
// from rng up front, so results depend only on rng and the worker count.
func sample(ctx context.Context, holes []poker.Hand, board poker.Hand, remaining []poker.Card, needed, samples, workers int, rng *rand.Rand) (*tally, error) {
	workers = max(min(workers, samples), 1)
	perWorker := samples / workers
	extra := samples % workers

	partials := make([]*tally, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		n := perWorker
		if w < extra {
			n++
		}
		seed := rng.Int64()

		g.Go(func() error {
			workerRng := randutil.New(seed)
			t := newTally(len(holes))
			ranks := make([]poker.HandRank, len(holes))
			pool := make([]poker.Card, len(remaining))
			for i := range n {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				copy(pool, remaining)
				full := board
				for j := range needed {
					k := j + workerRng.IntN(len(pool)-j)
					pool[j], pool[k] = pool[k], pool[j]
					full |= poker.Hand(pool[j])
				}
				t.record(holes, full, ranks)
			}
			partials[w] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newTally(len(holes))
	for _, t := range partials {
		total.merge(t)
	}
	return total, nil
}

// combinations returns C(n, k), saturating well above any enumeration cap.
func combinations(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	result := 1
	for i := 1; i <= k; i++ {
		result = result * (n - k + i) / i
		if result > 1<<40 {
			return 1 << 40
		}
	}
	return result
}

// Trailing returns the index of the hand with the lowest equity. Ties go to
// the hand that appears first in order, which lists hand indexes in acting
// order.
func Trailing(res Result, order []int) int {
	best := -1
	for _, i := range order {
		if i < 0 || i >= len(res.Equity) {
			continue
		}
		if best == -1 || res.Equity[i] < res.Equity[best] {
			best = i
		}
	}
	return best
}
