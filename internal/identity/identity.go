// Package identity manages the anonymous per-install user id sent when
// joining a session.
package identity

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tavern/internal/storage"
)

const userIDKey = "user_id"

// UserID returns the stable anonymous user id for this install, minting
// and persisting one on first use.
func UserID(db *storage.DB) (string, error) {
	id, err := db.KVGet(userIDKey)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("load user id: %w", err)
	}

	id = uuid.New().String()
	if err := db.KVSet(userIDKey, id, 0); err != nil {
		return "", fmt.Errorf("persist user id: %w", err)
	}
	return id, nil
}
