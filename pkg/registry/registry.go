package registry

import (
	"sync"
	"time"
)

// BotRecord is a discovered bot. Records are owned by the BotRegistry; all
// consumers receive value copies.
type BotRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Endpoint      string    `json:"url"`
	SourceAddress string    `json:"sourceAddress"`
	LastSeenAt    time.Time `json:"lastSeenAt"`
}

// BotRegistry maps bot IDs to their last-known address and metadata.
type BotRegistry struct {
	lock    sync.RWMutex
	bots    map[string]*BotRecord
	order   []string
	timeout time.Duration
}

// NewBotRegistry creates a new BotRegistry. Records older than timeout are
// removed by SweepExpired.
func NewBotRegistry(timeout time.Duration) *BotRegistry {
	return &BotRegistry{
		bots:    make(map[string]*BotRecord),
		timeout: timeout,
	}
}

// Upsert creates or refreshes a record and returns whether the ID was
// previously unseen. An existing record is overwritten in place, keeping its
// position in the snapshot order.
func (r *BotRegistry) Upsert(id, name, endpoint, sourceAddress string, now time.Time) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	_, exists := r.bots[id]
	r.bots[id] = &BotRecord{
		ID:            id,
		Name:          name,
		Endpoint:      endpoint,
		SourceAddress: sourceAddress,
		LastSeenAt:    now,
	}
	if !exists {
		r.order = append(r.order, id)
	}
	return !exists
}

// Get returns a copy of the record for id.
func (r *BotRegistry) Get(id string) (BotRecord, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	record, ok := r.bots[id]
	if !ok {
		return BotRecord{}, false
	}
	return *record, true
}

// SweepExpired removes every record whose last response is older than the
// registry timeout and returns the removed IDs.
func (r *BotRegistry) SweepExpired(now time.Time) []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	var removed []string
	remaining := r.order[:0]
	for _, id := range r.order {
		record := r.bots[id]
		if now.Sub(record.LastSeenAt) > r.timeout {
			delete(r.bots, id)
			removed = append(removed, id)
			continue
		}
		remaining = append(remaining, id)
	}
	r.order = remaining
	return removed
}

// Snapshot returns copies of all records in insertion order.
func (r *BotRegistry) Snapshot() []BotRecord {
	r.lock.RLock()
	defer r.lock.RUnlock()
	records := make([]BotRecord, 0, len(r.order))
	for _, id := range r.order {
		records = append(records, *r.bots[id])
	}
	return records
}

// Count returns the number of registered bots.
func (r *BotRegistry) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.bots)
}
