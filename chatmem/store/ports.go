// Package store persists chat message partitions in a relational backend.
// The Store port is the narrow contract the engine consumes; LibSQLStore is
// the production adapter.
package store

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/chat-memstore/chatmem/message"
)

// Row is one persisted message row. Interactive ordering is created_at
// ascending with ties broken by the surrogate id; QueryPartition returns
// rows already in that order.
type Row struct {
	Role      message.Role
	Payload   []byte
	CreatedAt time.Time
}

// Store is the durable store port.
type Store interface {
	// CreateTable creates the backing table and indexes if absent.
	CreateTable(ctx context.Context) error

	// UpsertSystem atomically replaces-or-inserts the single system row for
	// key using the store's own conditional primitive.
	UpsertSystem(ctx context.Context, key string, payload []byte) error

	// InsertInteractive appends one interactive row for key.
	InsertInteractive(ctx context.Context, key string, role message.Role, payload []byte) error

	// BatchInsertInteractive appends rows for key all-or-nothing.
	BatchInsertInteractive(ctx context.Context, key string, rows []Row) error

	// QueryPartition returns every row for key in canonical order.
	QueryPartition(ctx context.Context, key string) ([]Row, error)

	// QuerySystem returns the system row for key, or nil when absent.
	QuerySystem(ctx context.Context, key string) (*Row, error)

	// CountInteractive returns the interactive row count for key.
	CountInteractive(ctx context.Context, key string) (int, error)

	// DeleteSystem removes the system row for key; absent row is a no-op.
	DeleteSystem(ctx context.Context, key string) error

	// DeleteAllInteractive removes every interactive row for key.
	DeleteAllInteractive(ctx context.Context, key string) error

	// DeleteOldestInteractive removes the n oldest interactive rows for key
	// by canonical order; n beyond the available rows removes all of them.
	DeleteOldestInteractive(ctx context.Context, key string, n int) error

	// DeleteAll removes every row for key.
	DeleteAll(ctx context.Context, key string) error
}
