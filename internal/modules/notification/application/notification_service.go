package application

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/metrics"
)

const (
	opMarkRead    = "mark_read"
	opMarkAllRead = "mark_all_read"
)

// NotificationService keeps the store in step with the backend: full
// resynchronization, live ingestion and optimistic read-state changes.
type NotificationService struct {
	api       domain.NotificationAPI
	store     *Store
	formatter domain.Formatter
	logger    *zap.Logger
	metrics   *metrics.Metrics

	// ctx outlives Disconnect; only Close cancels background calls.
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

func NewNotificationService(api domain.NotificationAPI, store *Store, formatter domain.Formatter, logger *zap.Logger, m *metrics.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &NotificationService{
		api:       api,
		store:     store,
		formatter: formatter,
		logger:    logger,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *NotificationService) Store() *Store {
	return s.store
}

// Fetch replaces the set with the backend listing, newest first. On failure
// the current set is kept. Listeners are notified either way.
func (s *NotificationService) Fetch(ctx context.Context) {
	list, err := s.api.List(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch notifications, keeping cached set", zap.Error(err))
		s.metrics.Fetched(metrics.ResultError)
		s.store.Touch()
		return
	}

	for i := range list {
		list[i] = s.formatter.Apply(list[i])
	}
	slices.SortStableFunc(list, func(a, b domain.Notification) int {
		return b.Timestamp.Compare(a.Timestamp.Time)
	})

	s.store.Replace(list)
	s.metrics.Fetched(metrics.ResultOK)
	s.logger.Debug("notifications fetched", zap.Int("count", len(list)))
}

// FetchAsync runs Fetch in the background.
func (s *NotificationService) FetchAsync() {
	s.pending.Go(func() {
		s.Fetch(s.ctx)
	})
}

// Ingest decodes one live frame and puts it at the head of the set.
func (s *NotificationService) Ingest(frame []byte) (domain.Notification, error) {
	n, err := domain.DecodeNotification(frame)
	if err != nil {
		return domain.Notification{}, err
	}
	n = s.formatter.Apply(n)
	s.store.Prepend(n)
	return n, nil
}

// MarkAsRead flips the record to read right away and confirms with the
// backend in the background, rolling back if the backend refuses. It reports
// whether a record with that id was present.
func (s *NotificationService) MarkAsRead(id domain.ID) bool {
	tx := s.store.ApplyOptimistic(func(records []domain.Notification) bool {
		for i := range records {
			if records[i].ID == id {
				records[i].Status = domain.StatusRead
				return true
			}
		}
		return false
	})
	if !tx.Changed() {
		return false
	}

	s.pending.Go(func() {
		s.confirm(tx, opMarkRead, func(ctx context.Context) error {
			return s.api.MarkAsRead(ctx, id)
		}, zap.String("id", string(id)))
	})
	return true
}

// MarkAllAsRead applies the read state to every record in one change and
// confirms with a single backend call.
func (s *NotificationService) MarkAllAsRead() {
	tx := s.store.ApplyOptimistic(func(records []domain.Notification) bool {
		for i := range records {
			records[i].Status = domain.StatusRead
		}
		return true
	})

	s.pending.Go(func() {
		s.confirm(tx, opMarkAllRead, s.api.MarkAllAsRead)
	})
}

func (s *NotificationService) confirm(tx *Tx, op string, call func(context.Context) error, fields ...zap.Field) {
	if err := call(s.ctx); err != nil {
		s.logger.Warn("backend rejected read-state change, rolling back",
			append(fields, zap.String("op", op), zap.Error(err))...)
		tx.Rollback()
		s.metrics.Reconciled(op, metrics.ResultRollback)
		return
	}
	tx.Commit()
	s.metrics.Reconciled(op, metrics.ResultOK)
}

// Wait blocks until background fetches and confirmations have finished.
func (s *NotificationService) Wait() {
	s.pending.Wait()
}

// Close cancels background calls and waits for them to return.
func (s *NotificationService) Close() {
	s.cancel()
	s.pending.Wait()
}
