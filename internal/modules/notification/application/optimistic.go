package application

import (
	"sync"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
)

// Mutator edits records in place and reports whether anything changed.
type Mutator func(records []domain.Notification) bool

// Tx is an optimistic change already visible to listeners. Exactly one of
// Commit or Rollback takes effect.
type Tx struct {
	store   *Store
	prior   []domain.Notification
	changed bool
	once    sync.Once
}

// ApplyOptimistic captures the current set, applies mutate to a copy and
// publishes the result. When mutate reports no change nothing is published
// and the returned Tx is inert.
func (s *Store) ApplyOptimistic(mutate Mutator) *Tx {
	tx := &Tx{store: s}
	tx.changed = s.update(func(records []domain.Notification) ([]domain.Notification, bool) {
		next := clone(records)
		if !mutate(next) {
			return records, false
		}
		tx.prior = clone(records)
		return next, true
	})
	return tx
}

// Changed reports whether the optimistic mutation altered the set.
func (tx *Tx) Changed() bool {
	return tx.changed
}

// Commit accepts the optimistic state.
func (tx *Tx) Commit() {
	tx.once.Do(func() {})
}

// Rollback restores the set captured before the mutation, verbatim, and
// notifies listeners again.
func (tx *Tx) Rollback() {
	tx.once.Do(func() {
		if !tx.changed {
			return
		}
		prior := tx.prior
		tx.store.update(func([]domain.Notification) ([]domain.Notification, bool) {
			return clone(prior), true
		})
	})
}
