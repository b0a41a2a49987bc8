// Package localcache keeps per-terminal and per-store state (the open cart, the last
// known store settings, setup flags) in a key-value store. Writers overwrite whole
// values; the last write wins.
package localcache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Cache stores JSON-encoded values by key.
type Cache interface {
	// Get decodes the value stored at key into dst. It returns ErrCacheMiss when the key is absent.
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")

// CartKey addresses the open cart of one terminal of a store.
func CartKey(storeID uuid.UUID, terminalID string) string {
	return fmt.Sprintf("cart:%s:%s", storeID, terminalID)
}

// SettingsKey addresses the cached settings snapshot of a store.
func SettingsKey(storeID uuid.UUID) string {
	return fmt.Sprintf("storeSettings:%s", storeID)
}

// SetupDoneKey addresses the flag recording that a user finished creating their first store.
func SetupDoneKey(userID uuid.UUID) string {
	return fmt.Sprintf("initialSetup:%s:storeDone", userID)
}
