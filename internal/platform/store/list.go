package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Record names shared by the browser app and this service.
const (
	UsersKey         = "users"
	CurrentUserKey   = "currentUser"
	AppointmentsKey  = "userAppointments"
	NotificationsKey = "userNotifications"
	BloodRequestsKey = "bloodRequests"
)

// OTPKey and OTPTimestampKey name the per-phone OTP simulation records.
func OTPKey(phone string) string          { return "otp_" + phone }
func OTPTimestampKey(phone string) string { return "otp_timestamp_" + phone }

// Validator is implemented by every record type stored in a List. A record
// that fails validation makes the whole list read as empty.
type Validator interface {
	Validate() error
}

// List is a JSON array of records stored under one name per client.
type List[T Validator] struct {
	kv   KV
	name string
}

func NewList[T Validator](kv KV, name string) *List[T] {
	return &List[T]{kv: kv, name: name}
}

func (l *List[T]) Name() string { return l.name }

// Get returns the stored list. Missing, malformed or invalid data reads as an
// empty list; only backend failures are returned as errors.
func (l *List[T]) Get(ctx context.Context) ([]T, error) {
	key := Scoped(ctx, l.name)
	raw, err := l.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", l.name, err)
	}
	return l.decode(ctx, key, raw), nil
}

func (l *List[T]) decode(ctx context.Context, key string, raw []byte) []T {
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("discarding malformed record list")
		return []T{}
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Int("index", i).Msg("discarding invalid record list")
			return []T{}
		}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// Set replaces the stored list.
func (l *List[T]) Set(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", l.name, err)
	}
	if err := l.kv.Set(ctx, Scoped(ctx, l.name), raw); err != nil {
		return fmt.Errorf("store: set %s: %w", l.name, err)
	}
	return nil
}

// update rewrites the list atomically with respect to other updates of the
// same client's list.
func (l *List[T]) update(ctx context.Context, fn func(items []T) []T) error {
	key := Scoped(ctx, l.name)
	err := l.kv.Update(ctx, key, func(current []byte, found bool) ([]byte, error) {
		items := []T{}
		if found {
			items = l.decode(ctx, key, current)
		}
		items = fn(items)
		if items == nil {
			items = []T{}
		}
		return json.Marshal(items)
	})
	if err != nil {
		return fmt.Errorf("store: update %s: %w", l.name, err)
	}
	return nil
}

// Append adds item at the end of the list.
func (l *List[T]) Append(ctx context.Context, item T) error {
	return l.update(ctx, func(items []T) []T {
		return append(items, item)
	})
}

// Prepend adds item at the front and keeps at most limit items (limit <= 0 keeps all).
func (l *List[T]) Prepend(ctx context.Context, item T, limit int) error {
	return l.update(ctx, func(items []T) []T {
		items = append([]T{item}, items...)
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		return items
	})
}

// Value is a single JSON record stored under one name per client.
type Value[T any] struct {
	kv   KV
	name string
}

func NewValue[T any](kv KV, name string) *Value[T] {
	return &Value[T]{kv: kv, name: name}
}

// Get reports ok=false when the record is absent or cannot be decoded.
func (v *Value[T]) Get(ctx context.Context) (T, bool, error) {
	var zero T
	key := Scoped(ctx, v.name)
	raw, err := v.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("store: get %s: %w", v.name, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("discarding malformed record")
		return zero, false, nil
	}
	return out, true, nil
}

func (v *Value[T]) Set(ctx context.Context, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", v.name, err)
	}
	if err := v.kv.Set(ctx, Scoped(ctx, v.name), raw); err != nil {
		return fmt.Errorf("store: set %s: %w", v.name, err)
	}
	return nil
}

func (v *Value[T]) Delete(ctx context.Context) error {
	if err := v.kv.Delete(ctx, Scoped(ctx, v.name)); err != nil {
		return fmt.Errorf("store: delete %s: %w", v.name, err)
	}
	return nil
}
