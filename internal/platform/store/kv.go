// Package store implements the per-client record store: a small key/value
// abstraction with memory, file, redis and postgres backends, plus typed JSON
// lists and values layered on top of it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by KV.Get when the key has never been written or
// has been deleted.
var ErrNotFound = errors.New("store: key not found")

// UpdateFunc computes the new value of a key from its current value. found is
// false when the key does not exist. Returning an error aborts the update.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// KV is the persistence contract every backend satisfies. Values are opaque
// JSON documents. Update is atomic per key; there is no cross-key atomicity.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys returns every stored key that starts with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Update applies fn to the key's current value and stores the result
	// without any other write to the key landing in between.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Snapshot returns every record stored for a client keyed by record name.
// Values that are not valid JSON are returned as JSON strings.
func Snapshot(ctx context.Context, kv KV, clientID string) (map[string]json.RawMessage, error) {
	prefix := ClientKeyPrefix(clientID)
	keys, err := kv.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("store: list keys for %s: %w", clientID, err)
	}

	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		raw, err := kv.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store: get %s: %w", key, err)
		}
		name := strings.TrimPrefix(key, prefix)
		if !json.Valid(raw) {
			quoted, _ := json.Marshal(string(raw))
			out[name] = quoted
			continue
		}
		out[name] = json.RawMessage(raw)
	}
	return out, nil
}
