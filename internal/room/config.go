package room

import (
	"fmt"
	"time"
)

// Config describes one room.
type Config struct {
	ID              string
	MaxSeats        int
	SmallBlind      int
	BigBlind        int
	MinBuyIn        int
	MaxBuyIn        int
	TurnTimeout     time.Duration
	RunItTimeout    time.Duration
	NextHandDelay   time.Duration
	MissedTurnLimit int
	RunItOptions    []int
	Tournament      *Tournament
}

// Tournament replaces buy-ins with a fixed starting stack and raises the
// blinds on a schedule. New blinds apply from the next hand.
type Tournament struct {
	StartingStack int
	LevelDuration time.Duration
	Levels        []Level
}

// Level is one step of the blind schedule.
type Level struct {
	SmallBlind int
	BigBlind   int
}

// DefaultConfig returns a six-seat 10/20 cash room
func DefaultConfig(id string) Config {
	return Config{
		ID:              id,
		MaxSeats:        6,
		SmallBlind:      10,
		BigBlind:        20,
		MinBuyIn:        400,
		MaxBuyIn:        4000,
		TurnTimeout:     30 * time.Second,
		RunItTimeout:    15 * time.Second,
		NextHandDelay:   3 * time.Second,
		MissedTurnLimit: 2,
		RunItOptions:    []int{1, 2, 3},
	}
}

// Validate checks the room configuration
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("room id is required")
	}
	if c.MaxSeats < 2 || c.MaxSeats > 10 {
		return fmt.Errorf("room %s: seats must be between 2 and 10", c.ID)
	}
	if c.TurnTimeout <= 0 || c.RunItTimeout <= 0 {
		return fmt.Errorf("room %s: timeouts must be positive", c.ID)
	}
	if c.NextHandDelay < 0 {
		return fmt.Errorf("room %s: next hand delay cannot be negative", c.ID)
	}
	if c.MissedTurnLimit < 1 {
		return fmt.Errorf("room %s: missed turn limit must be at least 1", c.ID)
	}
	for _, n := range c.RunItOptions {
		if n < 1 || n > 4 {
			return fmt.Errorf("room %s: run-it options must be between 1 and 4, got %d", c.ID, n)
		}
	}

	if t := c.Tournament; t != nil {
		if t.StartingStack <= 0 {
			return fmt.Errorf("room %s: tournament starting stack must be positive", c.ID)
		}
		if t.LevelDuration <= 0 {
			return fmt.Errorf("room %s: tournament level duration must be positive", c.ID)
		}
		if len(t.Levels) == 0 {
			return fmt.Errorf("room %s: tournament needs at least one level", c.ID)
		}
		for i, l := range t.Levels {
			if err := validBlinds(l.SmallBlind, l.BigBlind); err != nil {
				return fmt.Errorf("room %s: level %d: %w", c.ID, i+1, err)
			}
		}
		return nil
	}

	if err := validBlinds(c.SmallBlind, c.BigBlind); err != nil {
		return fmt.Errorf("room %s: %w", c.ID, err)
	}
	if c.MinBuyIn < c.BigBlind || c.MinBuyIn > c.MaxBuyIn {
		return fmt.Errorf("room %s: buy-in range %d-%d is invalid", c.ID, c.MinBuyIn, c.MaxBuyIn)
	}
	return nil
}

func validBlinds(sb, bb int) error {
	if sb <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if bb < sb {
		return fmt.Errorf("big blind must be at least the small blind")
	}
	return nil
}

// blinds returns the blinds in force for a tournament level
func (c Config) blinds(level int) (int, int) {
	if c.Tournament == nil {
		return c.SmallBlind, c.BigBlind
	}
	l := c.Tournament.Levels[min(level, len(c.Tournament.Levels)-1)]
	return l.SmallBlind, l.BigBlind
}
