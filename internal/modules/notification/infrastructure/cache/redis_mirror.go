package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
)

const (
	DefaultKey   = "attendify:notifications"
	writeTimeout = 3 * time.Second
)

// Publisher is the subset of redis.Cmdable the mirror writes through.
type Publisher interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// SnapshotMirror copies every store snapshot into Redis: the full snapshot
// under Key and the unread count on the Key+":unread" channel. Writes happen
// on a single worker; if snapshots arrive faster than Redis accepts them only
// the latest is written.
type SnapshotMirror struct {
	client  Publisher
	key     string
	channel string
	logger  *zap.Logger

	mu      sync.Mutex
	pending []byte
	unread  int
	dirty   bool
	wake    chan struct{}
}

func NewSnapshotMirror(client Publisher, key string, logger *zap.Logger) *SnapshotMirror {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotMirror{
		client:  client,
		key:     key,
		channel: key + ":unread",
		logger:  logger,
		wake:    make(chan struct{}, 1),
	}
}

func (m *SnapshotMirror) Key() string     { return m.key }
func (m *SnapshotMirror) Channel() string { return m.channel }

// Listen is a store listener. It never blocks on Redis.
func (m *SnapshotMirror) Listen(snapshot []domain.Notification) {
	payload, err := domain.EncodeSnapshot(snapshot)
	if err != nil {
		m.logger.Error("failed to encode snapshot for redis", zap.Error(err))
		return
	}

	m.mu.Lock()
	m.pending = payload
	m.unread = domain.CountUnread(snapshot)
	m.dirty = true
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run writes pending snapshots until ctx is cancelled. A snapshot still
// pending at cancellation is flushed once before returning.
func (m *SnapshotMirror) Run(ctx context.Context) {
	for {
		select {
		case <-m.wake:
			m.flush(ctx)
		case <-ctx.Done():
			m.flush(context.Background())
			return
		}
	}
}

func (m *SnapshotMirror) flush(parent context.Context) {
	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return
	}
	payload, unread := m.pending, m.unread
	m.dirty = false
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()

	if err := m.client.Set(ctx, m.key, payload, 0).Err(); err != nil {
		m.logger.Warn("failed to mirror snapshot to redis", zap.String("key", m.key), zap.Error(err))
		return
	}
	if err := m.client.Publish(ctx, m.channel, strconv.Itoa(unread)).Err(); err != nil {
		m.logger.Warn("failed to publish unread count", zap.String("channel", m.channel), zap.Error(err))
	}
}
