package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK        = "ok"
	ResultMalformed = "malformed"
	ResultError     = "error"
	ResultRollback  = "rollback"
)

// Metrics groups the notification subsystem collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	connectionState     prometheus.Gauge
	frames              *prometheus.CounterVec
	reconnectsScheduled prometheus.Counter
	fetches             *prometheus.CounterVec
	reconciliations     *prometheus.CounterVec
	subscribers         prometheus.Gauge
	relayClients        prometheus.Gauge
}

// New builds the collectors and registers them on reg. A nil reg leaves them
// unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		connectionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "notification_connection_state",
			Help: "Upstream feed state: 0 disconnected, 1 connecting, 2 connected.",
		}),
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_frames_total",
			Help: "Live feed frames received, by decode result.",
		}, []string{"result"}),
		reconnectsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "notification_reconnects_scheduled_total",
			Help: "Reconnect attempts scheduled after the feed closed.",
		}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_fetches_total",
			Help: "Full resynchronizations against the listing endpoint, by result.",
		}, []string{"result"}),
		reconciliations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_reconciliations_total",
			Help: "Optimistic read-state mutations, by operation and outcome.",
		}, []string{"op", "result"}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "notification_subscribers",
			Help: "Listeners currently registered on the notification store.",
		}),
		relayClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "notification_relay_clients",
			Help: "Downstream WebSocket clients attached to the relay.",
		}),
	}
}

func (m *Metrics) SetConnectionState(state int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}

func (m *Metrics) FrameReceived(result string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(result).Inc()
}

func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnectsScheduled.Inc()
}

func (m *Metrics) Fetched(result string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(result).Inc()
}

func (m *Metrics) Reconciled(op, result string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

func (m *Metrics) RelayClientAdded() {
	if m == nil {
		return
	}
	m.relayClients.Inc()
}

func (m *Metrics) RelayClientRemoved() {
	if m == nil {
		return
	}
	m.relayClients.Dec()
}
