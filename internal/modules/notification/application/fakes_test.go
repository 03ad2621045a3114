package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
)

type apiStub struct {
	mu          sync.Mutex
	listFn      func(context.Context) ([]domain.Notification, error)
	markFn      func(context.Context, domain.ID) error
	markAllFn   func(context.Context) error
	listCalls   int
	markCalls   []domain.ID
	markAllCall int
}

func (a *apiStub) List(ctx context.Context) ([]domain.Notification, error) {
	a.mu.Lock()
	a.listCalls++
	fn := a.listFn
	a.mu.Unlock()
	if fn == nil {
		return []domain.Notification{}, nil
	}
	return fn(ctx)
}

func (a *apiStub) MarkAsRead(ctx context.Context, id domain.ID) error {
	a.mu.Lock()
	a.markCalls = append(a.markCalls, id)
	fn := a.markFn
	a.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, id)
}

func (a *apiStub) MarkAllAsRead(ctx context.Context) error {
	a.mu.Lock()
	a.markAllCall++
	fn := a.markAllFn
	a.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (a *apiStub) lists() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listCalls
}

func (a *apiStub) marks() []domain.ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.ID(nil), a.markCalls...)
}

var errFeedClosed = errors.New("feed closed")

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case frame, ok := <-c.frames:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case <-c.closed:
		return nil, errFeedClosed
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(frame string) {
	c.frames <- []byte(frame)
}

type fakeDialer struct {
	mu    sync.Mutex
	err   error
	conns []*fakeConn
	urls  []string
}

func (d *fakeDialer) Dial(_ context.Context, url string) (domain.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *fakeDialer) all() []*fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeConn(nil), d.conns...)
}

func (d *fakeDialer) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

type fakeTimer struct {
	clock   *fakeClock
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) after(d time.Duration, fn func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, delay: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

func (c *fakeClock) scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// fire runs a pending timer's callback on the calling goroutine.
func (c *fakeClock) fire(t *fakeTimer) {
	c.mu.Lock()
	if t.stopped || t.fired {
		c.mu.Unlock()
		return
	}
	t.fired = true
	c.mu.Unlock()
	t.fn()
}

type recorder struct {
	mu        sync.Mutex
	snapshots [][]domain.Notification
}

func (r *recorder) listen(snapshot []domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snapshot)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) last() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

func mustTimestamp(raw string) domain.Timestamp {
	ts, err := domain.ParseTimestamp(raw)
	if err != nil {
		panic(err)
	}
	return ts
}

func record(id, timestamp string, status domain.Status) domain.Notification {
	return domain.Notification{
		ID:        domain.ID(id),
		Message:   "notification " + id,
		Timestamp: mustTimestamp(timestamp),
		Status:    status,
	}
}
