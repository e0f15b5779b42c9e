package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var ErrServerNotFound = errors.New("server config not found")

// Server is one stored hub configuration.
type Server struct {
	ID               int64
	Name             string
	IsActive         bool
	Host             string
	Port             int
	HistoryCapacity  int
	UpdateIntervalMs int
	SendTimeoutMs    int
	AllowedOrigin    string
	MirrorAddr       string
	MirrorChannel    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Address returns host:port.
func (s *Server) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ServerStore provides server config CRUD operations.
type ServerStore interface {
	Get(ctx context.Context, id int64) (*Server, error)
	GetByName(ctx context.Context, name string) (*Server, error)
	GetActive(ctx context.Context) (*Server, error)
	List(ctx context.Context) ([]*Server, error)
	Create(ctx context.Context, s *Server) error
	Update(ctx context.Context, s *Server) error
	SetActive(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// Servers returns a ServerStore for this database.
func (db *DB) Servers() ServerStore {
	return &serverStore{db: db}
}

type serverStore struct {
	db *DB
}

const serverColumns = `id, name, is_active, host, port, history_capacity, update_interval_ms,
	send_timeout_ms, allowed_origin, mirror_addr, mirror_channel, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (*Server, error) {
	s := &Server{}
	var createdAt, updatedAt string
	err := row.Scan(&s.ID, &s.Name, &s.IsActive, &s.Host, &s.Port, &s.HistoryCapacity,
		&s.UpdateIntervalMs, &s.SendTimeoutMs, &s.AllowedOrigin, &s.MirrorAddr, &s.MirrorChannel,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServerNotFound
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	s.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return s, nil
}

func (st *serverStore) Get(ctx context.Context, id int64) (*Server, error) {
	return scanServer(st.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE id = ?`, id))
}

func (st *serverStore) GetByName(ctx context.Context, name string) (*Server, error) {
	return scanServer(st.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE name = ?`, name))
}

func (st *serverStore) GetActive(ctx context.Context) (*Server, error) {
	return scanServer(st.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE is_active = 1 LIMIT 1`))
}

func (st *serverStore) List(ctx context.Context) ([]*Server, error) {
	rows, err := st.db.QueryContext(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []*Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

func (st *serverStore) Create(ctx context.Context, s *Server) error {
	result, err := st.db.ExecContext(ctx, `
		INSERT INTO servers (name, is_active, host, port, history_capacity, update_interval_ms,
			send_timeout_ms, allowed_origin, mirror_addr, mirror_channel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.Name, s.IsActive, s.Host, s.Port, s.HistoryCapacity, s.UpdateIntervalMs,
		s.SendTimeoutMs, s.AllowedOrigin, s.MirrorAddr, s.MirrorChannel)
	if err != nil {
		return fmt.Errorf("failed to create server config: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (st *serverStore) Update(ctx context.Context, s *Server) error {
	result, err := st.db.ExecContext(ctx, `
		UPDATE servers SET name = ?, host = ?, port = ?, history_capacity = ?, update_interval_ms = ?,
			send_timeout_ms = ?, allowed_origin = ?, mirror_addr = ?, mirror_channel = ?,
			updated_at = datetime('now')
		WHERE id = ?
	`, s.Name, s.Host, s.Port, s.HistoryCapacity, s.UpdateIntervalMs,
		s.SendTimeoutMs, s.AllowedOrigin, s.MirrorAddr, s.MirrorChannel, s.ID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (st *serverStore) SetActive(ctx context.Context, id int64) error {
	return st.db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE servers SET is_active = 0`); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `UPDATE servers SET is_active = 1 WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(result)
	})
}

func (st *serverStore) Delete(ctx context.Context, id int64) error {
	result, err := st.db.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrServerNotFound
	}
	return nil
}
