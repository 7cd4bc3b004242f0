package game

import (
	"sync"
	"time"
)

// TimeLock is a cooldown that opens once its duration has elapsed.
type TimeLock struct {
	dur   time.Duration
	start time.Time
}

// NewTimeLock starts a lock at now.
func NewTimeLock(d time.Duration) TimeLock {
	return TimeLock{dur: d, start: time.Now()}
}

// Open reports whether the duration has elapsed at now.
func (l TimeLock) Open(now time.Time) bool {
	return now.Sub(l.start) > l.dur
}

// TimeLockManager keeps named cooldowns.
type TimeLockManager struct {
	mu    sync.Mutex
	locks map[string]TimeLock
	now   func() time.Time
}

// NewTimeLockManager creates an empty manager.
func NewTimeLockManager() *TimeLockManager {
	return &TimeLockManager{locks: make(map[string]TimeLock), now: time.Now}
}

// Set (re)starts the lock called key.
func (m *TimeLockManager) Set(key string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[key] = TimeLock{dur: d, start: m.now()}
}

// Check reports whether key exists and its duration has elapsed. A key that
// was never set is not open.
func (m *TimeLockManager) Check(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	return ok && l.Open(m.now())
}

// Remove deletes key.
func (m *TimeLockManager) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
}

// Prune deletes every open lock and returns how many were removed.
func (m *TimeLockManager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now, n := m.now(), 0
	for k, l := range m.locks {
		if l.Open(now) {
			delete(m.locks, k)
			n++
		}
	}
	return n
}
