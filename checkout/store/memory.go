package store

import (
	"context"
	"sync"

	"github.com/warp/sports-checkout/checkout"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps every collection as encoded JSON in a map, the same shape
// the browser portal keeps in local storage.
type Memory struct {
	Collections

	mu   sync.RWMutex
	data map[string][]byte
}

var _ checkout.Transactor = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{data: make(map[string][]byte)}
	m.Collections = Collections{Backend: memoryBackend{m: m, lock: true}}
	return m
}

// Raw returns the stored JSON for key, or nil.
func (m *Memory) Raw(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneBytes(m.data[key])
}

// SetRaw stores JSON for key without decoding it.
func (m *Memory) SetRaw(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = cloneBytes(value)
}

// Reset drops every collection.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

// WithTx executes fn against a locked view of the store.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(checkout.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		snapshot[k] = v
	}

	view := Collections{Backend: memoryBackend{m: m, lock: false}}
	if err := fn(view); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

// memoryBackend takes the store lock unless it runs inside WithTx, which
// already holds it.
type memoryBackend struct {
	m    *Memory
	lock bool
}

func (b memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	if b.lock {
		b.m.mu.RLock()
		defer b.m.mu.RUnlock()
	}
	return cloneBytes(b.m.data[key]), nil
}

func (b memoryBackend) Set(_ context.Context, key string, value []byte) error {
	if b.lock {
		b.m.mu.Lock()
		defer b.m.mu.Unlock()
	}
	b.m.data[key] = cloneBytes(value)
	return nil
}

func (b memoryBackend) Delete(_ context.Context, key string) error {
	if b.lock {
		b.m.mu.Lock()
		defer b.m.mu.Unlock()
	}
	delete(b.m.data, key)
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
