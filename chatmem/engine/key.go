package engine

import "github.com/google/uuid"

// NewChatKey returns a fresh opaque conversation key.
func NewChatKey() string {
	return uuid.NewString()
}
