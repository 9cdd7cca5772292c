package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tair/stock-ledger/pkg/logger"
)

// LoadList reads a JSON array stored at key. An absent key, an empty value or a
// document that does not decode yields an empty list; only store failures are
// returned as errors.
func LoadList[T any](ctx context.Context, store Store, key string) ([]T, error) {
	raw, _, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return DecodeList[T](ctx, key, raw), nil
}

// DecodeList decodes a stored JSON array read from key. Empty or malformed
// values yield an empty list.
func DecodeList[T any](ctx context.Context, key, raw string) []T {
	if raw == "" {
		return []T{}
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("key", key).
			Msg("Discarding malformed stored collection")
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// SaveList writes items as a JSON array at key
func SaveList[T any](ctx context.Context, store Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return store.Set(ctx, key, string(data))
}
