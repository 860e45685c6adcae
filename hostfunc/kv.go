package hostfunc

import (
	"errors"
	"fmt"
	"sync"
)

const (
	DefaultKVMaxKeySize   = 256
	DefaultKVMaxValueSize = 64 * 1024
	DefaultKVMaxEntries   = 1000
)

type KVConfig struct {
	MaxKeySize   int
	MaxValueSize int
	MaxEntries   int
}

func DefaultKVConfig() KVConfig {
	return KVConfig{
		MaxKeySize:   DefaultKVMaxKeySize,
		MaxValueSize: DefaultKVMaxValueSize,
		MaxEntries:   DefaultKVMaxEntries,
	}
}

// KV is an in-memory string store exposed as kv_* functions.
type KV struct {
	cfg  KVConfig
	data map[string]string
	mu   sync.RWMutex
}

func NewKV(cfg KVConfig) *KV {
	def := DefaultKVConfig()
	if cfg.MaxKeySize <= 0 {
		cfg.MaxKeySize = def.MaxKeySize
	}
	if cfg.MaxValueSize <= 0 {
		cfg.MaxValueSize = def.MaxValueSize
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	return &KV{cfg: cfg, data: make(map[string]string)}
}

// Get returns the value stored under key, or "" when absent.
func (s *KV) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key]
}

// Set stores value under key.
func (s *KV) Set(key, value string) (bool, error) {
	if key == "" {
		return false, errors.New("key required")
	}
	if len(key) > s.cfg.MaxKeySize {
		return false, fmt.Errorf("key exceeds max size of %d bytes", s.cfg.MaxKeySize)
	}
	if len(value) > s.cfg.MaxValueSize {
		return false, fmt.Errorf("value exceeds max size of %d bytes", s.cfg.MaxValueSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; !exists && len(s.data) >= s.cfg.MaxEntries {
		return false, fmt.Errorf("store full (max %d entries)", s.cfg.MaxEntries)
	}
	s.data[key] = value
	return true, nil
}

// Delete removes key and reports whether it was present.
func (s *KV) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	delete(s.data, key)
	return ok
}

func (s *KV) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

func (s *KV) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Register adds kv_get, kv_set, kv_delete, kv_has and kv_count to r.
func (s *KV) Register(r *Registry) error {
	return registerMethods(r, s, map[string]any{
		"kv_get":    (*KV).Get,
		"kv_set":    (*KV).Set,
		"kv_delete": (*KV).Delete,
		"kv_has":    (*KV).Has,
		"kv_count":  (*KV).Count,
	})
}

func registerMethods(r *Registry, recv any, methods map[string]any) error {
	for name, m := range methods {
		if err := r.RegisterMethod(name, recv, m); err != nil {
			return err
		}
	}
	return nil
}
