package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/pokerroom/internal/room"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Rooms  []RoomConfig   `hcl:"room,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// RoomConfig defines one room. Durations use Go syntax ("30s", "10m").
//
//	room "main" {
//	  small_blind    = 10
//	  big_blind      = 20
//	  turn_timeout   = "20s"
//	  run_it_options = [1, 2]
//	}
type RoomConfig struct {
	ID              string            `hcl:"id,label"`
	MaxSeats        int               `hcl:"max_seats,optional"`
	SmallBlind      int               `hcl:"small_blind,optional"`
	BigBlind        int               `hcl:"big_blind,optional"`
	BuyInMin        int               `hcl:"buy_in_min,optional"`
	BuyInMax        int               `hcl:"buy_in_max,optional"`
	TurnTimeout     string            `hcl:"turn_timeout,optional"`
	RunItTimeout    string            `hcl:"run_it_timeout,optional"`
	NextHandDelay   string            `hcl:"next_hand_delay,optional"`
	MissedTurnLimit int               `hcl:"missed_turn_limit,optional"`
	RunItOptions    []int             `hcl:"run_it_options,optional"`
	Tournament      *TournamentConfig `hcl:"tournament,block"`
}

// TournamentConfig turns a room into a single-table tournament
type TournamentConfig struct {
	StartingStack int           `hcl:"starting_stack"`
	LevelDuration string        `hcl:"level_duration"`
	Levels        []LevelConfig `hcl:"level,block"`
}

type LevelConfig struct {
	SmallBlind int `hcl:"small_blind"`
	BigBlind   int `hcl:"big_blind"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Rooms: []RoomConfig{{ID: "main"}},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if len(config.Rooms) == 0 {
		config.Rooms = DefaultServerConfig().Rooms
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if len(c.Rooms) == 0 {
		return fmt.Errorf("at least one room must be configured")
	}

	seen := make(map[string]bool)
	for _, rc := range c.Rooms {
		if seen[rc.ID] {
			return fmt.Errorf("room %s: defined twice", rc.ID)
		}
		seen[rc.ID] = true

		cfg, err := rc.RoomConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RoomConfigs converts every room block, filling unset fields from
// room.DefaultConfig.
func (c *ServerConfig) RoomConfigs() ([]room.Config, error) {
	out := make([]room.Config, 0, len(c.Rooms))
	for _, rc := range c.Rooms {
		cfg, err := rc.RoomConfig()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// RoomConfig converts the block to a room.Config
func (rc RoomConfig) RoomConfig() (room.Config, error) {
	cfg := room.DefaultConfig(rc.ID)
	if rc.MaxSeats != 0 {
		cfg.MaxSeats = rc.MaxSeats
	}
	if rc.SmallBlind != 0 || rc.BigBlind != 0 {
		cfg.SmallBlind = rc.SmallBlind
		cfg.BigBlind = rc.BigBlind
		// Scale the default buy-in range with the blinds.
		cfg.MinBuyIn = rc.BigBlind * 20
		cfg.MaxBuyIn = rc.BigBlind * 200
	}
	if rc.BuyInMin != 0 {
		cfg.MinBuyIn = rc.BuyInMin
	}
	if rc.BuyInMax != 0 {
		cfg.MaxBuyIn = rc.BuyInMax
	}
	if rc.MissedTurnLimit != 0 {
		cfg.MissedTurnLimit = rc.MissedTurnLimit
	}
	if rc.RunItOptions != nil {
		cfg.RunItOptions = rc.RunItOptions
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"turn_timeout", rc.TurnTimeout, &cfg.TurnTimeout},
		{"run_it_timeout", rc.RunItTimeout, &cfg.RunItTimeout},
		{"next_hand_delay", rc.NextHandDelay, &cfg.NextHandDelay},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return room.Config{}, fmt.Errorf("room %s: %s: %w", rc.ID, d.name, err)
		}
		*d.dst = parsed
	}

	if t := rc.Tournament; t != nil {
		levelDuration, err := time.ParseDuration(t.LevelDuration)
		if err != nil {
			return room.Config{}, fmt.Errorf("room %s: level_duration: %w", rc.ID, err)
		}
		cfg.Tournament = &room.Tournament{
			StartingStack: t.StartingStack,
			LevelDuration: levelDuration,
		}
		for _, l := range t.Levels {
			cfg.Tournament.Levels = append(cfg.Tournament.Levels, room.Level{SmallBlind: l.SmallBlind, BigBlind: l.BigBlind})
		}
	}
	return cfg, nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
