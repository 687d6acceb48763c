package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMemorySize = 1024

// Memory is an in-process Cache backed by an expirable LRU. Values are stored
// JSON-encoded so callers always get their own copy.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, []byte](defaultMemorySize, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := m.lru.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		m.lru.Remove(key)
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.lru.Add(key, raw)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.lru.Remove(k)
	}
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int { return m.lru.Len() }
