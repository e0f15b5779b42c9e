package db

import (
	"context"
	"fmt"
)

// DefaultServerName names the server row created on first run.
const DefaultServerName = "default"

// Bootstrap creates the default active server row if the database is empty.
func (db *DB) Bootstrap(ctx context.Context) error {
	needs, err := db.NeedsBootstrap(ctx)
	if err != nil {
		return fmt.Errorf("failed to check servers: %w", err)
	}
	if !needs {
		return nil
	}

	d := DefaultConfig()
	server := &Server{
		Name:             DefaultServerName,
		IsActive:         true,
		Host:             d.Host,
		Port:             d.Port,
		HistoryCapacity:  d.HistoryCapacity,
		UpdateIntervalMs: int(d.UpdateInterval.Milliseconds()),
		SendTimeoutMs:    int(d.SendTimeout.Milliseconds()),
		AllowedOrigin:    d.AllowedOrigin,
		MirrorAddr:       d.MirrorAddr,
		MirrorChannel:    d.MirrorChannel,
	}
	if err := db.Servers().Create(ctx, server); err != nil {
		return fmt.Errorf("failed to create default server: %w", err)
	}
	return nil
}

// NeedsBootstrap returns true if no server config exists yet.
func (db *DB) NeedsBootstrap(ctx context.Context) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM servers`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
