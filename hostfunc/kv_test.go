package hostfunc

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func TestKVSetGet(t *testing.T) {
	kv := NewKV(DefaultKVConfig())

	if _, err := kv.Set("foo", "bar"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if val := kv.Get("foo"); val != "bar" {
		t.Errorf("expected bar, got %q", val)
	}
	if !kv.Has("foo") || kv.Count() != 1 {
		t.Errorf("Has=%v Count=%d", kv.Has("foo"), kv.Count())
	}
}

func TestKVGetMissing(t *testing.T) {
	kv := NewKV(DefaultKVConfig())
	if val := kv.Get("missing"); val != "" {
		t.Errorf("expected empty string, got %q", val)
	}
}

func TestKVDelete(t *testing.T) {
	kv := NewKV(DefaultKVConfig())
	kv.Set("foo", "bar")

	if !kv.Delete("foo") {
		t.Error("Delete should report an existing key")
	}
	if kv.Delete("foo") {
		t.Error("second Delete should report a missing key")
	}
	if kv.Has("foo") {
		t.Error("expected key gone after delete")
	}
}

func TestKVLimits(t *testing.T) {
	kv := NewKV(KVConfig{MaxKeySize: 4, MaxValueSize: 4, MaxEntries: 2})

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"empty key", "", "v", "key required"},
		{"key too long", "toolong", "v", "key exceeds max size"},
		{"value too long", "k", strings.Repeat("v", 5), "value exceeds max size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := kv.Set(tt.key, tt.value)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}

	kv.Set("a", "1")
	kv.Set("b", "2")
	if _, err := kv.Set("c", "3"); err == nil || !strings.Contains(err.Error(), "store full") {
		t.Errorf("expected store full, got %v", err)
	}
	if _, err := kv.Set("a", "9"); err != nil {
		t.Errorf("overwriting an existing key should succeed when full: %v", err)
	}
}

func TestKVConcurrentAccess(t *testing.T) {
	kv := NewKV(KVConfig{MaxEntries: 10000})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%26))
			kv.Set(key, "v")
			kv.Get(key)
		}(i)
	}
	wg.Wait()

	if kv.Count() != 26 {
		t.Errorf("expected 26 keys, got %d", kv.Count())
	}
}

func TestKVRegisteredAsBoundMethods(t *testing.T) {
	r := NewRegistry()
	first, second := NewKV(DefaultKVConfig()), NewKV(DefaultKVConfig())
	if err := first.Register(r); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if v, err := r.CallString(ctx, "kv_set", `["k","v"]`); err != nil || v.String() != "true" {
		t.Fatalf("kv_set = %s, %v", v, err)
	}
	if v, _ := r.CallString(ctx, "kv_get", `["k"]`); v.String() != `"v"` {
		t.Errorf("kv_get = %s", v)
	}
	if v, _ := r.CallString(ctx, "kv_count", `[]`); v.String() != "1" {
		t.Errorf("kv_count = %s", v)
	}

	getFirst, _ := r.Get("kv_get")
	if err := second.Register(r); err != nil {
		t.Fatal(err)
	}
	getSecond, _ := r.Get("kv_get")
	if getFirst.Callable.Equal(getSecond.Callable) {
		t.Error("kv_get bound to different stores should not be equal")
	}
	if v, _ := r.CallString(ctx, "kv_get", `["k"]`); v.String() != `""` {
		t.Errorf("kv_get on replaced store = %s", v)
	}
}
