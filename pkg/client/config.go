package client

import (
	"fmt"
	"time"

	"github.com/decred/slog"
)

// DefaultDialTimeout bounds how long Dial waits for the TCP handshake.
const DefaultDialTimeout = 10 * time.Second

// Config is the client's connection configuration.
type Config struct {
	// Addr is the server's host:port.
	Addr string

	// Log receives the client's own logging. Nil disables it.
	Log slog.Logger

	// Debug dumps every inbound frame to the log before dispatch.
	Debug bool

	// DialTimeout bounds the TCP handshake. Zero means DefaultDialTimeout.
	DialTimeout time.Duration
}

func (cfg *Config) normalize() error {
	if cfg.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	return nil
}
