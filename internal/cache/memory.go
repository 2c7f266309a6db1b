package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	gen     uint64
	grants  Grants
	expires time.Time
}

// Memory is an in-process PermissionCache.
//
// Generations come from one counter shared by all principals, so a principal's
// generation only moves forward. A principal with no recorded generation reads
// as floor, which a sweep raises to the latest issued generation before it
// forgets idle principals.
type Memory struct {
	mu        sync.RWMutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]memoryEntry
	gens      map[string]uint64
	epoch     uint64
	floor     uint64
	lastSweep time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
		gens:    make(map[string]uint64),
	}
}

func (m *Memory) generation(userID string) uint64 {
	if gen, ok := m.gens[userID]; ok {
		return gen
	}
	return m.floor
}

func (m *Memory) Generation(_ context.Context, userID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation(userID), nil
}

func (m *Memory) Get(_ context.Context, userID string) (Grants, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[userID]
	live := ok && e.gen == m.generation(userID) && m.now().Before(e.expires)
	m.mu.RUnlock()

	if live {
		return e.grants.clone(), true, nil
	}
	if ok {
		m.mu.Lock()
		if cur, still := m.entries[userID]; still && cur.gen == e.gen && cur.expires.Equal(e.expires) {
			delete(m.entries, userID)
		}
		m.mu.Unlock()
	}
	return nil, false, nil
}

func (m *Memory) Set(_ context.Context, userID string, gen uint64, grants Grants) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation(userID) != gen {
		return nil
	}
	now := m.now()
	m.entries[userID] = memoryEntry{gen: gen, grants: grants.clone(), expires: now.Add(m.ttl)}
	m.sweep(now)
	return nil
}

func (m *Memory) Invalidate(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.gens[userID] = m.epoch
	delete(m.entries, userID)
	return nil
}

// sweep drops dead entries and the generations of principals without a live
// entry, at most once per ttl. Caller holds mu.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now

	gens := make(map[string]uint64, len(m.entries))
	for userID, e := range m.entries {
		if e.gen != m.generation(userID) || !now.Before(e.expires) {
			delete(m.entries, userID)
			continue
		}
		gens[userID] = e.gen
	}
	m.gens = gens
	m.floor = m.epoch
}
