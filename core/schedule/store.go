package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kilianp07/outagewatch/core/clock"
	"github.com/kilianp07/outagewatch/core/logger"
	"github.com/kilianp07/outagewatch/core/model"
)

// Feed delivers published schedules. Implementations live in infra/feed.
type Feed interface {
	Fetch(ctx context.Context) (FeedData, error)
}

// FeedFunc adapts a function to the Feed interface.
type FeedFunc func(ctx context.Context) (FeedData, error)

func (f FeedFunc) Fetch(ctx context.Context) (FeedData, error) { return f(ctx) }

// Store keeps the latest schedule snapshot. Readers load the current
// pointer without locking; writers are serialized.
type Store struct {
	cur     atomic.Pointer[Snapshot]
	writeMu sync.Mutex
	version uint64
	clock   clock.Clock
	log     logger.Logger
}

// NewStore creates an empty store. A nil clock defaults to the system clock.
func NewStore(clk clock.Clock, log logger.Logger) *Store {
	if clk == nil {
		clk = clock.System{}
	}
	s := &Store{clock: clk, log: log}
	s.cur.Store(&Snapshot{Stages: StageTable{}})
	return s
}

// Snapshot returns the current snapshot. Callers should fetch it once per
// query and use that value throughout.
func (s *Store) Snapshot() *Snapshot { return s.cur.Load() }

// Get returns the schedule entries for key from the current snapshot.
func (s *Store) Get(key model.AreaKey) ([]model.ScheduleEntry, error) {
	return s.Snapshot().Entries(key)
}

// Replace builds a snapshot from data and makes it visible. On error the
// previous snapshot stays in place.
func (s *Store) Replace(data FeedData) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	snap, err := Build(data, s.version+1, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.version = snap.Version
	for _, iss := range snap.Issues {
		s.logf("schedule issue v%d: %s", snap.Version, iss)
	}
	s.cur.Store(snap)
	return snap, nil
}

// Reload fetches from feed and replaces the snapshot on success.
func (s *Store) Reload(ctx context.Context, feed Feed) (*Snapshot, error) {
	if feed == nil {
		return nil, fmt.Errorf("reload: no schedule feed configured")
	}
	data, err := feed.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}
	snap, err := s.Replace(data)
	if err != nil {
		return nil, fmt.Errorf("apply schedule: %w", err)
	}
	return snap, nil
}

func (s *Store) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Warnf(format, args...)
	}
}
