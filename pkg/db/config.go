package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var ErrNoActiveServer = errors.New("no active server config found")

// Config is the runtime configuration of one hub process.
type Config struct {
	Name            string
	Host            string
	Port            int
	HistoryCapacity int
	UpdateInterval  time.Duration
	SendTimeout     time.Duration
	AllowedOrigin   string
	MirrorAddr      string
	MirrorChannel   string
}

// DefaultConfig returns the configuration used when nothing is stored.
func DefaultConfig() *Config {
	return &Config{
		Name:            DefaultServerName,
		Host:            "0.0.0.0",
		Port:            8000,
		HistoryCapacity: 10000,
		UpdateInterval:  2 * time.Second,
		SendTimeout:     2 * time.Second,
		AllowedOrigin:   "http://localhost:3000",
		MirrorChannel:   "telemetry:events",
	}
}

// Address returns the API listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ApplyEnv overrides fields from HOST, PORT, MAX_HISTORY_SIZE, FRONTEND_URL
// and REDIS_ADDR. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("HOST"); ok && v != "" {
		c.Host = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid PORT %q", v)
		}
		c.Port = port
	}
	if v, ok := lookup("MAX_HISTORY_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid MAX_HISTORY_SIZE %q", v)
		}
		c.HistoryCapacity = n
	}
	if v, ok := lookup("FRONTEND_URL"); ok && v != "" {
		c.AllowedOrigin = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		c.MirrorAddr = v
	}
	return nil
}

// ActiveConfig loads the configuration of the active server row.
func (db *DB) ActiveConfig(ctx context.Context) (*Config, error) {
	server, err := db.Servers().GetActive(ctx)
	if err != nil {
		if errors.Is(err, ErrServerNotFound) {
			return nil, ErrNoActiveServer
		}
		return nil, fmt.Errorf("failed to get active server: %w", err)
	}

	return &Config{
		Name:            server.Name,
		Host:            server.Host,
		Port:            server.Port,
		HistoryCapacity: server.HistoryCapacity,
		UpdateInterval:  time.Duration(server.UpdateIntervalMs) * time.Millisecond,
		SendTimeout:     time.Duration(server.SendTimeoutMs) * time.Millisecond,
		AllowedOrigin:   server.AllowedOrigin,
		MirrorAddr:      server.MirrorAddr,
		MirrorChannel:   server.MirrorChannel,
	}, nil
}
