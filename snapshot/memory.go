package snapshot

import (
	"context"
	"sync"
	"time"
)

// In memory implementation of Store below. Handy for tests and for
// deployments that can afford to start cold.

type Memory struct {
	mutex     sync.RWMutex
	snapshots map[string]Snapshot

	TimeNow func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		snapshots: map[string]Snapshot{},
		TimeNow:   time.Now,
	}
}

func (m *Memory) Write(ctx context.Context, agency string, records []RawArrival) error {
	stored := make([]RawArrival, len(records))
	copy(stored, records)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.snapshots[agency] = Snapshot{
		Agency:     agency,
		Records:    stored,
		CapturedAt: m.TimeNow().UTC(),
	}

	return nil
}

func (m *Memory) Read(ctx context.Context, agency string) (Snapshot, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap, found := m.snapshots[agency]
	if !found {
		return Snapshot{}, ErrNotFound
	}

	// Copy so callers can't alias into the stored records.
	records := make([]RawArrival, len(snap.Records))
	copy(records, snap.Records)
	snap.Records = records

	return snap, nil
}
