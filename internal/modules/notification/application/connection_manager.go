package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/metrics"
)

// DefaultReconnectDelay is the pause between a feed close and the next
// connection attempt.
const DefaultReconnectDelay = 3 * time.Second

const journalTimeout = 5 * time.Second

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

type ConnectionManagerConfig struct {
	BaseURL string
	// Policy yields the delay before each reconnect. Nil means a constant
	// DefaultReconnectDelay.
	Policy  backoff.BackOff
	Journal domain.Journal
}

// ConnectionManager owns the single upstream feed socket and its reconnect
// timer. All callers share one instance.
type ConnectionManager struct {
	baseURL string
	dialer  domain.Dialer
	service *NotificationService
	journal domain.Journal
	policy  backoff.BackOff
	after   afterFunc
	logger  *zap.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	loops  sync.WaitGroup

	mu         sync.Mutex
	state      domain.ConnectionState
	conn       domain.Conn
	timer      timer
	dialCancel context.CancelFunc
	role       string
	// generation changes whenever the current socket stops being current, so
	// late callbacks from an old socket or timer can recognise themselves.
	generation uint64
	closed     bool
}

func NewConnectionManager(cfg ConnectionManagerConfig, dialer domain.Dialer, service *NotificationService, logger *zap.Logger, m *metrics.Metrics) *ConnectionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := cfg.Policy
	if policy == nil {
		policy = backoff.NewConstantBackOff(DefaultReconnectDelay)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cm := &ConnectionManager{
		baseURL: cfg.BaseURL,
		dialer:  dialer,
		service: service,
		journal: cfg.Journal,
		policy:  policy,
		after:   realAfterFunc,
		logger:  logger,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
	m.SetConnectionState(int(domain.StateDisconnected))
	return cm
}

// State returns the current connection state.
func (cm *ConnectionManager) State() domain.ConnectionState {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

// Connect opens the live feed for role. Only superadmin receives live
// notifications; any other role is ignored. Calling Connect while a socket is
// being opened or is open does nothing.
func (cm *ConnectionManager) Connect(role string) {
	if role != domain.RoleSuperAdmin {
		return
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connectLocked(role)
}

// connectLocked opens the feed unless one is already being opened or open.
// cm.mu must be held.
func (cm *ConnectionManager) connectLocked(role string) {
	if cm.closed || cm.state != domain.StateDisconnected {
		return
	}
	cm.role = role

	// No socket yet: give listeners data before the feed opens.
	cm.service.FetchAsync()

	url, err := domain.FeedURL(cm.baseURL)
	if err != nil {
		cm.logger.Error("cannot derive notification feed url", zap.String("base_url", cm.baseURL), zap.Error(err))
		return
	}

	cm.stopTimerLocked()
	cm.generation++
	gen := cm.generation
	dialCtx, dialCancel := context.WithCancel(cm.ctx)
	cm.dialCancel = dialCancel
	cm.setStateLocked(domain.StateConnecting)

	cm.loops.Go(func() {
		defer dialCancel()
		cm.run(dialCtx, gen, url)
	})
}

func (cm *ConnectionManager) run(ctx context.Context, gen uint64, url string) {
	conn, err := cm.dialer.Dial(ctx, url)
	if err != nil {
		cm.logger.Warn("notification feed dial failed", zap.String("url", url), zap.Error(err))
		cm.handleClose(gen)
		return
	}
	if !cm.handleOpen(gen, conn) {
		_ = conn.Close()
		return
	}
	cm.logger.Info("notification feed connected", zap.String("url", url))

	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			cm.logger.Info("notification feed closed", zap.Error(err))
			break
		}
		cm.handleFrame(frame)
	}
	_ = conn.Close()
	cm.handleClose(gen)
}

func (cm *ConnectionManager) handleOpen(gen uint64, conn domain.Conn) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if gen != cm.generation {
		return false
	}
	cm.conn = conn
	cm.setStateLocked(domain.StateConnected)
	cm.stopTimerLocked()
	cm.policy.Reset()
	// Catch up on anything sent while the feed was down.
	cm.service.FetchAsync()
	return true
}

func (cm *ConnectionManager) handleFrame(frame []byte) {
	n, err := cm.service.Ingest(frame)
	if err != nil {
		cm.logger.Warn("discarding malformed notification frame", zap.ByteString("frame", frame), zap.Error(err))
		cm.metrics.FrameReceived(metrics.ResultMalformed)
		return
	}
	cm.metrics.FrameReceived(metrics.ResultOK)

	if cm.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(cm.ctx, journalTimeout)
	defer cancel()
	if err := cm.journal.Append(ctx, n, time.Now()); err != nil {
		cm.logger.Warn("failed to journal notification", zap.String("id", string(n.ID)), zap.Error(err))
	}
}

// handleClose moves to disconnected and schedules one reconnect. Closes of
// sockets that are no longer current are ignored.
func (cm *ConnectionManager) handleClose(gen uint64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if gen != cm.generation || cm.closed {
		return
	}
	cm.generation++
	cm.conn = nil
	cm.setStateLocked(domain.StateDisconnected)
	cm.scheduleReconnectLocked()
}

func (cm *ConnectionManager) scheduleReconnectLocked() {
	cm.stopTimerLocked()

	delay := cm.policy.NextBackOff()
	if delay == backoff.Stop {
		cm.logger.Error("reconnect policy exhausted, staying disconnected")
		return
	}

	gen := cm.generation
	role := cm.role
	cm.timer = cm.after(delay, func() {
		cm.mu.Lock()
		defer cm.mu.Unlock()
		// Checked and acted on under one lock so a Disconnect cannot slip in
		// between.
		if gen != cm.generation || cm.closed {
			return
		}
		cm.timer = nil
		cm.connectLocked(role)
	})
	cm.metrics.ReconnectScheduled()
	cm.logger.Info("notification feed reconnect scheduled", zap.Duration("delay", delay))
}

// Disconnect closes the feed, cancels any pending reconnect and clears the
// store. The close it causes does not schedule a reconnect.
func (cm *ConnectionManager) Disconnect() {
	cm.mu.Lock()
	cm.generation++
	cm.stopTimerLocked()
	if cm.dialCancel != nil {
		cm.dialCancel()
		cm.dialCancel = nil
	}
	conn := cm.conn
	cm.conn = nil
	cm.setStateLocked(domain.StateDisconnected)
	cm.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			cm.logger.Debug("closing notification feed", zap.Error(err))
		}
	}
	cm.service.Store().Clear()
}

// Shutdown disconnects for good, cancels in-flight backend calls and waits
// for background work to finish or ctx to expire.
func (cm *ConnectionManager) Shutdown(ctx context.Context) error {
	cm.mu.Lock()
	cm.closed = true
	cm.mu.Unlock()
	cm.Disconnect()
	cm.cancel()

	done := make(chan struct{})
	go func() {
		cm.loops.Wait()
		cm.service.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("notification shutdown timed out"), ctx.Err())
	}
}

func (cm *ConnectionManager) stopTimerLocked() {
	if cm.timer != nil {
		cm.timer.Stop()
		cm.timer = nil
	}
}

func (cm *ConnectionManager) setStateLocked(state domain.ConnectionState) {
	cm.state = state
	cm.metrics.SetConnectionState(int(state))
}
