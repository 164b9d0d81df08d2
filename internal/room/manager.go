package room

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Manager owns the configured rooms. The set of rooms is fixed at creation.
type Manager struct {
	rooms  map[string]*Room
	logger *log.Logger
}

// NewManager creates a room per config. Every room shares the transport and
// options.
func NewManager(configs []Config, transport Transport, logger *log.Logger, opts ...Option) (*Manager, error) {
	m := &Manager{
		rooms:  make(map[string]*Room, len(configs)),
		logger: logger.WithPrefix("rooms"),
	}
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, dup := m.rooms[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate room %q", cfg.ID)
		}
		m.rooms[cfg.ID] = New(cfg, transport, logger, opts...)
	}
	return m, nil
}

// Room returns the room with the given ID
func (m *Manager) Room(id string) (*Room, bool) {
	r, ok := m.rooms[id]
	return r, ok
}

// IDs returns the room IDs in sorted order
func (m *Manager) IDs() []string {
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Run runs every room until ctx is cancelled or one fails.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range m.rooms {
		g.Go(func() error {
			return r.Run(ctx)
		})
	}
	m.logger.Info("Rooms running", "count", len(m.rooms))
	return g.Wait()
}
