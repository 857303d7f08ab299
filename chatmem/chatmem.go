// Package chatmem holds application-wide constants shared by the config,
// store and engine packages.
package chatmem

import "regexp"

const (
	DefaultAppName = "chat-memstore"

	// DefaultDatabaseDSN is the embedded libsql database used when no DSN
	// is configured.
	DefaultDatabaseDSN = "file:chatmem.db"

	// DefaultTableName is the table backing the message store.
	DefaultTableName = "ChatMessages"

	// DefaultMaxMessagesPerKey bounds the interactive message count per key.
	DefaultMaxMessagesPerKey = 20

	// DefaultCacheCapacity bounds the number of keys held in the partition
	// cache.
	DefaultCacheCapacity = 20
)

// tableNamePattern is the allow-list for table identifiers. Identifiers are
// validated once at construction; values are always bound parameters.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTableName reports whether name is a safe SQL table identifier.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}
