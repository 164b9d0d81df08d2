package main

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerroom/cmd/pokerroom/shared"
	"github.com/lox/pokerroom/internal/room"
	"github.com/lox/pokerroom/internal/server"
)

// ServerCmd runs every configured room behind one WebSocket endpoint
type ServerCmd struct {
	Config   string `short:"c" default:"pokerroom.hcl" env:"POKERROOM_CONFIG" help:"Path to HCL configuration file"`
	Addr     string `short:"a" env:"POKERROOM_ADDR" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" env:"POKERROOM_LOG_LEVEL" help:"Log level (overrides config)"`
	LogFile  string `env:"POKERROOM_LOG_FILE" help:"Log file path (overrides config)"`
	Seed     *int64 `help:"Deterministic shuffle seed, for replays only"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.Server.LogFile = c.LogFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := shared.SetupLogger(cfg.Server.LogLevel, cfg.Server.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	configs, err := cfg.RoomConfigs()
	if err != nil {
		return err
	}

	var opts []room.Option
	if c.Seed != nil {
		logger.Warn("Using deterministic seed", "seed", *c.Seed)
		opts = append(opts, room.WithSeed(*c.Seed))
	}

	srv := server.NewServer(addr, logger)
	rooms, err := room.NewManager(configs, srv, logger, opts...)
	if err != nil {
		return err
	}
	srv.SetRooms(func(id string) (server.Room, bool) {
		r, ok := rooms.Room(id)
		if !ok {
			return nil, false
		}
		return r, true
	})

	for _, rc := range configs {
		logger.Info("Created room",
			"room", rc.ID,
			"stakes", fmt.Sprintf("%d/%d", rc.SmallBlind, rc.BigBlind),
			"seats", rc.MaxSeats,
			"tournament", rc.Tournament != nil)
	}

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rooms.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })

	return g.Wait()
}
