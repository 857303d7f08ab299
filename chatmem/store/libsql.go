package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	internal "github.com/ZanzyTHEbar/chat-memstore/chatmem"
	"github.com/ZanzyTHEbar/chat-memstore/chatmem/message"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

// ErrInvalidTableName is returned at construction for identifiers outside
// the allow-list. Values are always bound parameters; the identifier is the
// only interpolated token and only after validation.
var ErrInvalidTableName = errors.New("invalid table name")

// LibSQLStore implements Store on a libsql database.
type LibSQLStore struct {
	db     *sql.DB
	table  string
	logger zerolog.Logger
}

// NewLibSQLStore creates a libsql-backed store for the given table.
func NewLibSQLStore(db *sql.DB, table string, logger zerolog.Logger) (*LibSQLStore, error) {
	if !internal.ValidTableName(table) {
		return nil, fmt.Errorf("%w: %q must match ^[A-Za-z_][A-Za-z0-9_]*$", ErrInvalidTableName, table)
	}
	return &LibSQLStore{
		db:     db,
		table:  table,
		logger: logger.With().Str("component", "libsql_store").Str("table", table).Logger(),
	}, nil
}

// CreateTable creates the backing table plus its ordering index and the
// partial unique index that makes the system slot single per key.
func (s *LibSQLStore) CreateTable(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_key TEXT NOT NULL CHECK (length(chat_key) <= 255),
			role TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant', 'function')),
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (unixepoch())
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (chat_key, created_at, id)`,
			"idx_"+s.table+"_key_order", s.table),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %q ON %q (chat_key) WHERE role = 'system'`,
			"idx_"+s.table+"_system", s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", s.table, err)
		}
	}
	s.logger.Debug().Msg("table ready")
	return nil
}

// UpsertSystem relies on the partial unique index: the conflict target is
// the store's own row-level primitive, not a check-then-act in application
// code.
func (s *LibSQLStore) UpsertSystem(ctx context.Context, key string, payload []byte) error {
	stmt := fmt.Sprintf(`INSERT INTO %q (chat_key, role, payload, created_at) VALUES (?, 'system', ?, ?)
		ON CONFLICT (chat_key) WHERE role = 'system' DO UPDATE SET payload = excluded.payload`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key, string(payload), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to upsert system row: %w", err)
	}
	return nil
}

func (s *LibSQLStore) InsertInteractive(ctx context.Context, key string, role message.Role, payload []byte) error {
	stmt := fmt.Sprintf(`INSERT INTO %q (chat_key, role, payload, created_at) VALUES (?, ?, ?, ?)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key, string(role), string(payload), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to insert interactive row: %w", err)
	}
	return nil
}

// BatchInsertInteractive runs in one transaction so the batch lands
// all-or-nothing. Rows inserted in the same second keep their order through
// the id tiebreak.
func (s *LibSQLStore) BatchInsertInteractive(ctx context.Context, key string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (chat_key, role, payload, created_at) VALUES (?, ?, ?, ?)`, s.table))
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, key, string(row.Role), string(row.Payload), now); err != nil {
			return fmt.Errorf("failed to insert batch row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return nil
}

// QueryPartition returns every row for key in canonical order: created_at
// ascending, ties broken by id ascending.
func (s *LibSQLStore) QueryPartition(ctx context.Context, key string) ([]Row, error) {
	stmt := fmt.Sprintf(`SELECT role, payload, created_at FROM %q WHERE chat_key = ? ORDER BY created_at ASC, id ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, stmt, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query partition: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partition rows: %w", err)
	}
	return out, nil
}

// QuerySystem returns the system row for key, nil when absent. Ordered
// ascending defensively; the partial unique index keeps this to one row.
func (s *LibSQLStore) QuerySystem(ctx context.Context, key string) (*Row, error) {
	stmt := fmt.Sprintf(`SELECT role, payload, created_at FROM %q WHERE chat_key = ? AND role = 'system' ORDER BY created_at ASC, id ASC LIMIT 1`, s.table)
	rows, err := s.db.QueryContext(ctx, stmt, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query system row: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error reading system row: %w", err)
		}
		return nil, nil
	}
	row, err := scanRow(rows)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *LibSQLStore) CountInteractive(ctx context.Context, key string) (int, error) {
	stmt := fmt.Sprintf(`SELECT COUNT(*) FROM %q WHERE chat_key = ? AND role <> 'system'`, s.table)
	var count int
	if err := s.db.QueryRowContext(ctx, stmt, key).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count interactive rows: %w", err)
	}
	return count, nil
}

func (s *LibSQLStore) DeleteSystem(ctx context.Context, key string) error {
	stmt := fmt.Sprintf(`DELETE FROM %q WHERE chat_key = ? AND role = 'system'`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("failed to delete system row: %w", err)
	}
	return nil
}

func (s *LibSQLStore) DeleteAllInteractive(ctx context.Context, key string) error {
	stmt := fmt.Sprintf(`DELETE FROM %q WHERE chat_key = ? AND role <> 'system'`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("failed to delete interactive rows: %w", err)
	}
	return nil
}

// DeleteOldestInteractive removes the n oldest interactive rows by the
// canonical order; n beyond the available rows removes all of them.
func (s *LibSQLStore) DeleteOldestInteractive(ctx context.Context, key string, n int) error {
	if n <= 0 {
		return nil
	}
	stmt := fmt.Sprintf(`DELETE FROM %q WHERE id IN (
		SELECT id FROM %q WHERE chat_key = ? AND role <> 'system' ORDER BY created_at ASC, id ASC LIMIT ?
	)`, s.table, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key, n); err != nil {
		return fmt.Errorf("failed to delete oldest interactive rows: %w", err)
	}
	return nil
}

func (s *LibSQLStore) DeleteAll(ctx context.Context, key string) error {
	stmt := fmt.Sprintf(`DELETE FROM %q WHERE chat_key = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("failed to delete partition: %w", err)
	}
	return nil
}

func scanRow(rows *sql.Rows) (Row, error) {
	var role, payload string
	var createdAt int64
	if err := rows.Scan(&role, &payload, &createdAt); err != nil {
		return Row{}, fmt.Errorf("failed to scan row: %w", err)
	}
	return Row{
		Role:      message.Role(role),
		Payload:   []byte(payload),
		CreatedAt: time.Unix(createdAt, 0),
	}, nil
}

// Ensure LibSQLStore implements the Store interface.
var _ Store = (*LibSQLStore)(nil)
