package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lox/pokerroom/cmd/pokerroom/shared"
	"github.com/lox/pokerroom/internal/client"
	"github.com/lox/pokerroom/internal/tui"
)

// ClientCmd joins a room with the terminal UI
type ClientCmd struct {
	Config   string `short:"c" default:"pokerroom-client.hcl" env:"POKERROOM_CLIENT_CONFIG" help:"Path to HCL configuration file"`
	Server   string `short:"s" env:"POKERROOM_SERVER" help:"Server URL to connect to (overrides config)"`
	Room     string `short:"r" help:"Room to join (overrides config)"`
	Player   string `short:"p" env:"POKERROOM_PLAYER" help:"Player ID (overrides config)"`
	Name     string `short:"n" help:"Display name (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	LogFile  string `help:"Log file path (overrides config)"`
	NoColor  bool   `help:"Disable colours"`
}

func (c *ClientCmd) Run() error {
	cfg, err := client.LoadClientConfig(c.Config)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// Apply command line overrides
	if c.Server != "" {
		cfg.Server.URL = c.Server
	}
	if c.Room != "" {
		cfg.Server.Room = c.Room
	}
	if c.Player != "" {
		cfg.Player.ID = c.Player
	}
	if c.Name != "" {
		cfg.Player.Name = c.Name
	}
	if c.LogLevel != "" {
		cfg.UI.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.UI.LogFile = c.LogFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.NoColor || cfg.UI.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logger, closeLog, err := shared.SetupLogger(cfg.UI.LogLevel, cfg.UI.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("Starting client",
		"server", cfg.Server.URL,
		"room", cfg.Server.Room,
		"player", cfg.Player.ID)

	wsClient := client.NewClient(cfg.Server.URL, cfg.Server.Room, cfg.Player.ID, cfg.Player.Name, logger)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ConnectTimeout)*time.Second)
	defer cancel()
	if err := wsClient.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = wsClient.Disconnect() }()

	model := tui.NewTableModel(cfg.Player.ID, wsClient.Messages(), wsClient.Send, logger)
	model.AddLogEntry(fmt.Sprintf("Joined %s. Type help for commands; sit %d to take a seat.", cfg.Server.Room, cfg.Player.DefaultBuyIn))

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
