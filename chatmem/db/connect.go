// Package db bootstraps libsql connections for the chat memory store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

// Connect opens a libsql database for the given DSN. A "file:" DSN selects
// embedded mode (the directory and file are created if missing); anything
// else is treated as a remote URL and authToken, when set, is appended as a
// query parameter.
func Connect(dsn, authToken string, logger zerolog.Logger) (*sql.DB, error) {
	var conn *sql.DB
	var err error

	if strings.HasPrefix(dsn, "file:") {
		conn, err = connectEmbedded(dsn, logger)
	} else {
		conn, err = connectRemote(dsn, authToken, logger)
	}
	if err != nil {
		return nil, err
	}

	if err := verifyConnectivity(conn); err != nil {
		conn.Close()
		return nil, err
	}

	configureConnectionPooling(conn)
	return conn, nil
}

func connectEmbedded(dsn string, logger zerolog.Logger) (*sql.DB, error) {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	// Ensure database directory exists for embedded mode
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create database directory %s: %w", dir, err)
	}

	// Embedded mode with enhanced pragmas
	embeddedDSN := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_synchronous=NORMAL&_temp_store=memory", path)

	logger.Info().Str("path", path).Msg("Connecting to embedded libsql")

	conn, err := sql.Open("libsql", embeddedDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}
	return conn, nil
}

func connectRemote(dsn, authToken string, logger zerolog.Logger) (*sql.DB, error) {
	authURL := dsn
	if authToken != "" {
		u, err := url.Parse(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database URL: %w", err)
		}
		q := u.Query()
		q.Set("authToken", authToken)
		u.RawQuery = q.Encode()
		authURL = u.String()
	}

	logger.Info().Str("url", dsn).Msg("Connecting to remote libsql")

	conn, err := sql.Open("libsql", authURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}
	return conn, nil
}

// verifyConnectivity runs a basic round trip before handing the pool out.
func verifyConnectivity(conn *sql.DB) error {
	var result int
	if err := conn.QueryRowContext(context.Background(), "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("basic connectivity test failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("basic connectivity test failed: unexpected result %d", result)
	}
	return nil
}

// configureConnectionPooling sets up connection pooling parameters suitable
// for an embedded SQLite-family database.
func configureConnectionPooling(conn *sql.DB) {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(0)
}
