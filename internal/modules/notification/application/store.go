package application

import (
	"sync"
	"sync/atomic"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/metrics"
)

// Listener receives the full notification set, newest first, after every
// change. It runs on the mutating goroutine and must not subscribe or mutate
// the store itself.
type Listener func(snapshot []domain.Notification)

type subscription struct {
	fn      Listener
	removed atomic.Bool
}

// Store holds the ordered notification set and its observers.
type Store struct {
	// fanout serializes mutate-then-notify so one change's snapshot reaches
	// every listener before the next change is computed.
	fanout sync.Mutex

	mu      sync.Mutex
	records []domain.Notification
	subs    []*subscription

	metrics *metrics.Metrics
}

func NewStore(m *metrics.Metrics) *Store {
	return &Store{metrics: m}
}

// Snapshot returns a copy of the current set.
func (s *Store) Snapshot() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.records)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Find returns the record with the given id.
func (s *Store) Find(id domain.ID) (domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.records {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Notification{}, false
}

// Subscribe registers fn, calls it once with the current snapshot and returns
// a function that removes exactly this registration. Calling it again is a
// no-op.
func (s *Store) Subscribe(fn Listener) func() {
	sub := &subscription{fn: fn}

	s.fanout.Lock()
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	count := len(s.subs)
	snapshot := clone(s.records)
	s.mu.Unlock()
	s.metrics.SetSubscribers(count)
	fn(snapshot)
	s.fanout.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.removed.Store(true)
			s.mu.Lock()
			for i, candidate := range s.subs {
				if candidate == sub {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					break
				}
			}
			count := len(s.subs)
			s.mu.Unlock()
			s.metrics.SetSubscribers(count)
		})
	}
}

// Prepend adds a live record at the head of the set.
func (s *Store) Prepend(n domain.Notification) {
	s.update(func(records []domain.Notification) ([]domain.Notification, bool) {
		next := make([]domain.Notification, 0, len(records)+1)
		next = append(next, n)
		return append(next, records...), true
	})
}

// Replace swaps the whole set. list must already be ordered newest first.
func (s *Store) Replace(list []domain.Notification) {
	list = clone(list)
	s.update(func([]domain.Notification) ([]domain.Notification, bool) {
		return list, true
	})
}

// Clear empties the set.
func (s *Store) Clear() {
	s.update(func([]domain.Notification) ([]domain.Notification, bool) {
		return nil, true
	})
}

// Touch notifies listeners without changing the set.
func (s *Store) Touch() {
	s.update(func(records []domain.Notification) ([]domain.Notification, bool) {
		return records, true
	})
}

// update applies fn and, when it reports a change, notifies every listener
// with a fresh copy of the result.
func (s *Store) update(fn func([]domain.Notification) ([]domain.Notification, bool)) bool {
	s.fanout.Lock()
	defer s.fanout.Unlock()

	s.mu.Lock()
	next, changed := fn(s.records)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.records = next
	snapshot := clone(next)
	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.removed.Load() {
			continue
		}
		sub.fn(clone(snapshot))
	}
	return true
}

func clone(list []domain.Notification) []domain.Notification {
	if list == nil {
		return []domain.Notification{}
	}
	out := make([]domain.Notification, len(list))
	copy(out, list)
	return out
}
