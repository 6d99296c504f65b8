package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vctt94/blackjacksrv/pkg/blackjack"
)

// Hard limits on the configurable knobs; a config outside these bounds
// refuses to start.
const (
	maxRooms         = 20
	maxPlayersOnline = 300
)

// Timing defaults for the event loop and the liveness protocol.
const (
	DefaultTickEvery  = time.Second
	DefaultSweepEvery = 3 * time.Second
	DefaultPingAfter  = 3 * time.Second
	DefaultDropAfter  = 10 * time.Second
)

// Config carries everything NewServer needs. The YAML tags line up with the
// optional config file; command line flags override file values.
type Config struct {
	IP         string `yaml:"ip"`
	Port       int    `yaml:"port"`
	Rooms      int    `yaml:"rooms"`
	MaxPlayers int    `yaml:"maxplayers"`
	LogDir     string `yaml:"logdir"`
	DebugLevel string `yaml:"debuglevel"`
	DBFile     string `yaml:"dbfile"`
	Seed       int64  `yaml:"seed"`

	// Loop timing knobs. Not part of the file format; tests shrink them so
	// liveness scenarios run in milliseconds instead of seconds.
	TickEvery   time.Duration `yaml:"-"`
	SweepEvery  time.Duration `yaml:"-"`
	PingAfter   time.Duration `yaml:"-"`
	DropAfter   time.Duration `yaml:"-"`
	TurnTimeout time.Duration `yaml:"-"`
	RecoveryTTL time.Duration `yaml:"-"`
}

// DefaultConfig returns the stock settings: all interfaces, port 10000, six
// rooms, twenty concurrent players.
func DefaultConfig() Config {
	return Config{
		IP:         "0.0.0.0",
		Port:       10000,
		Rooms:      6,
		MaxPlayers: 20,
		DebugLevel: "info",
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path just
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.Rooms < 1 || c.Rooms > maxRooms {
		return fmt.Errorf("rooms %d out of range 1-%d", c.Rooms, maxRooms)
	}
	if c.MaxPlayers < 1 || c.MaxPlayers > maxPlayersOnline {
		return fmt.Errorf("maxplayers %d out of range 1-%d", c.MaxPlayers, maxPlayersOnline)
	}
	return nil
}

// Addr is the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

// normalize fills unset timing fields with the protocol defaults.
func (c *Config) normalize() {
	if c.DebugLevel == "" {
		c.DebugLevel = "info"
	}
	if c.TickEvery <= 0 {
		c.TickEvery = DefaultTickEvery
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = DefaultSweepEvery
	}
	if c.PingAfter <= 0 {
		c.PingAfter = DefaultPingAfter
	}
	if c.DropAfter <= 0 {
		c.DropAfter = DefaultDropAfter
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = blackjack.DefaultTurnTimeout
	}
	if c.RecoveryTTL <= 0 {
		c.RecoveryTTL = DefaultRecoveryTTL
	}
}
