package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ReminderDeduper remembers which (ticket, episode) pairs have already
// been reminded about, so repeated sweeps within one qualifying window
// emit at most one notification event. The episode is the last staff
// reply time: a new staff reply starts a new episode.
type ReminderDeduper interface {
	FirstSeen(ctx context.Context, ticketID string, episode time.Time, ttl time.Duration) (bool, error)
}

// memoryReminderDeduper backs tests and redis-less deployments. Entries
// expire lazily on the next lookup past their TTL.
type memoryReminderDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryReminderDeduper builds an in-process deduper.
func NewMemoryReminderDeduper(now func() time.Time) ReminderDeduper {
	if now == nil {
		now = time.Now
	}
	return &memoryReminderDeduper{seen: make(map[string]time.Time), now: now}
}

func (d *memoryReminderDeduper) FirstSeen(_ context.Context, ticketID string, episode time.Time, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("%s:%d", ticketID, episode.Unix())
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	for k, expiry := range d.seen {
		if expiry.Before(now) {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = now.Add(ttl)
	return true, nil
}
