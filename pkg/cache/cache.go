// Package cache provides the small TTL'd byte cache the thread store writes
// through. Entries expire after the TTL the cache was constructed with; the
// store treats the cache as best-effort and never as the source of truth.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultTTL is how long cached threads and listing pages stay fresh.
const DefaultTTL = 5 * time.Minute

// Cache is the abstraction the store depends on. Get reports a miss with
// ok=false; Set overwrites; Del is a no-op for absent keys.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte)
	Del(key string)
}

// Memory is an in-process Cache backed by an expiring LRU.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory builds a Memory cache holding at most size entries, each expiring
// ttl after it was written. A non-positive ttl falls back to DefaultTTL and a
// non-positive size to 1024 entries.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *Memory) Set(key string, val []byte) {
	m.lru.Add(key, val)
}

func (m *Memory) Del(key string) {
	m.lru.Remove(key)
}

// Len returns the number of live entries, for stats reporting.
func (m *Memory) Len() int { return m.lru.Len() }

// Nop is a Cache that stores nothing. Used when caching is disabled.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }
func (Nop) Set(string, []byte)        {}
func (Nop) Del(string)                {}
