package store

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestFileKV_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("new file kv: %v", err)
	}

	key := "client:alice:userAppointments"
	if _, err := kv.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Set(ctx, key, []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Errorf("unexpected value %s", got)
	}

	if err := kv.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := kv.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := kv.Delete(ctx, key); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}
}

func TestFileKV_KeysAndNoTempLeftovers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, _ := NewFileKV(dir)

	kv.Set(ctx, "client:alice:users", []byte(`[]`))
	kv.Set(ctx, "client:alice:otp_+15551234567", []byte(`"123456"`))
	kv.Set(ctx, "client:bob:users", []byte(`[]`))

	keys, err := kv.Keys(ctx, "client:alice:")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
	if keys[0] != "client:alice:otp_+15551234567" || keys[1] != "client:alice:users" {
		t.Errorf("unexpected keys %v", keys)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Errorf("expected exactly 3 files, got %d", len(entries))
	}
}

func TestMemoryKV_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	in := []byte(`[]`)
	kv.Set(ctx, "k", in)
	in[0] = 'x'

	got, _ := kv.Get(ctx, "k")
	if string(got) != `[]` {
		t.Errorf("stored value was mutated through caller slice: %s", got)
	}
}
