// Package session serializes message processing per conversation and owns
// session lifecycle: creation, persistence, and idle expiry.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// timerEntry tracks one scheduled expiry callback.
type timerEntry struct {
	timer       *time.Timer
	scheduledAt time.Time
	expiresAt   time.Time
}

// IdleTimer schedules idle-expiry callbacks keyed by id, built on the
// standard time package.
type IdleTimer struct {
	timers map[string]*timerEntry
	mu     sync.Mutex
	nextID int64
}

// NewIdleTimer creates an empty timer set.
func NewIdleTimer() *IdleTimer {
	return &IdleTimer{timers: make(map[string]*timerEntry)}
}

// ScheduleAfter schedules fn to run once after delay and returns the timer id.
func (t *IdleTimer) ScheduleAfter(delay time.Duration, fn func()) string {
	t.mu.Lock()
	t.nextID++
	id := fmt.Sprintf("timer_%d", t.nextID)
	t.mu.Unlock()

	now := time.Now()
	timer := time.AfterFunc(delay, func() {
		slog.Debug("IdleTimer firing", "id", id)
		fn()
		t.mu.Lock()
		delete(t.timers, id)
		t.mu.Unlock()
	})

	t.mu.Lock()
	t.timers[id] = &timerEntry{timer: timer, scheduledAt: now, expiresAt: now.Add(delay)}
	t.mu.Unlock()

	slog.Debug("IdleTimer scheduled", "id", id, "delay", delay)
	return id
}

// Cancel stops a scheduled timer. Unknown ids are ignored.
func (t *IdleTimer) Cancel(id string) {
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, exists := t.timers[id]; exists {
		entry.timer.Stop()
		delete(t.timers, id)
		slog.Debug("IdleTimer canceled", "id", id)
	}
}

// Stop cancels every scheduled timer.
func (t *IdleTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	slog.Debug("IdleTimer stopping all timers", "count", len(t.timers))
	for _, entry := range t.timers {
		entry.timer.Stop()
	}
	t.timers = make(map[string]*timerEntry)
}
