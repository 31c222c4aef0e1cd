package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smk-student-hub/internal/models"
)

// ErrVersionMismatch is returned when an expected version does not match the stored one.
var ErrVersionMismatch = errors.New("state version mismatch")

// StateStore persists the keyed JSON namespace.
type StateStore interface {
	// Get returns nil without error when the key is absent.
	Get(ctx context.Context, key models.StateKey) (*models.StateEntry, error)
	// Set writes value. expected is models.AnyVersion, 0 for create-only, or the current version.
	Set(ctx context.Context, key models.StateKey, value json.RawMessage, expected int64) (*models.StateEntry, error)
	Snapshot(ctx context.Context) ([]models.StateEntry, error)
	// Replace clears the namespace and writes entries atomically.
	Replace(ctx context.Context, entries map[models.StateKey]json.RawMessage) error
	Ping(ctx context.Context) error
}

type stateRow struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	Version   int64     `db:"version"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r stateRow) entry() models.StateEntry {
	return models.StateEntry{
		Key:       models.StateKey(r.Key),
		Value:     json.RawMessage(r.Value),
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt,
	}
}

// PostgresStateStore keeps the namespace in the app_state table.
type PostgresStateStore struct {
	db *sqlx.DB
}

// NewPostgresStateStore constructs the store.
func NewPostgresStateStore(db *sqlx.DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

// Get fetches a single key.
func (s *PostgresStateStore) Get(ctx context.Context, key models.StateKey) (*models.StateEntry, error) {
	const query = `SELECT key, value, version, updated_at FROM app_state WHERE key = $1`
	var row stateRow
	if err := s.db.GetContext(ctx, &row, query, string(key)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get state %s: %w", key, err)
	}
	entry := row.entry()
	return &entry, nil
}

// Set writes a value honouring the expected version.
func (s *PostgresStateStore) Set(ctx context.Context, key models.StateKey, value json.RawMessage, expected int64) (*models.StateEntry, error) {
	var (
		query string
		args  []interface{}
	)
	switch {
	case expected == models.AnyVersion:
		query = `INSERT INTO app_state (key, value, version, updated_at) VALUES ($1, $2, 1, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, version = app_state.version + 1, updated_at = NOW()
RETURNING version, updated_at`
		args = []interface{}{string(key), string(value)}
	case expected == 0:
		query = `INSERT INTO app_state (key, value, version, updated_at) VALUES ($1, $2, 1, NOW())
ON CONFLICT (key) DO NOTHING
RETURNING version, updated_at`
		args = []interface{}{string(key), string(value)}
	default:
		query = `UPDATE app_state SET value = $2, version = version + 1, updated_at = NOW()
WHERE key = $1 AND version = $3
RETURNING version, updated_at`
		args = []interface{}{string(key), string(value), expected}
	}

	entry := models.StateEntry{Key: key, Value: value}
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&entry.Version, &entry.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionMismatch
		}
		return nil, fmt.Errorf("set state %s: %w", key, err)
	}
	return &entry, nil
}

// Snapshot returns every stored entry ordered by key.
func (s *PostgresStateStore) Snapshot(ctx context.Context) ([]models.StateEntry, error) {
	const query = `SELECT key, value, version, updated_at FROM app_state ORDER BY key`
	var rows []stateRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("snapshot state: %w", err)
	}
	entries := make([]models.StateEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

// Replace clears the table and writes entries in one transaction.
// New versions start above the previous maximum so stale ETags never match.
func (s *PostgresStateStore) Replace(ctx context.Context, entries map[models.StateKey]json.RawMessage) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace state: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var base int64
	if err = tx.GetContext(ctx, &base, `SELECT COALESCE(MAX(version), 0) FROM app_state`); err != nil {
		return fmt.Errorf("read state versions: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM app_state`); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}

	const insert = `INSERT INTO app_state (key, value, version, updated_at) VALUES ($1, $2, $3, NOW())`
	for _, key := range sortedKeys(entries) {
		if _, err = tx.ExecContext(ctx, insert, string(key), string(entries[key]), base+1); err != nil {
			return fmt.Errorf("write state %s: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace state: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStateStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func sortedKeys(entries map[models.StateKey]json.RawMessage) []models.StateKey {
	keys := make([]models.StateKey, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
