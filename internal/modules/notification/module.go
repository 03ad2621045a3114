package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/attendify/notify-agent/internal/modules/notification/application"
	"github.com/attendify/notify-agent/internal/modules/notification/domain"
	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/cache"
	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/httpapi"
	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/metrics"
	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/persistence/postgres"
	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/websocket"
	notification_http "github.com/attendify/notify-agent/internal/modules/notification/interfaces/http"
	"github.com/attendify/notify-agent/internal/shared/infrastructure/config"
)

// Deps are the module's collaborators. Redis and DB are optional; a nil
// value turns the snapshot mirror or the journal off.
type Deps struct {
	Config     *config.Config
	Logger     *zap.Logger
	Registerer prometheus.Registerer
	Redis      cache.Publisher
	DB         *sqlx.DB
	// Dialer overrides the upstream feed dialer.
	Dialer domain.Dialer
}

type Module struct {
	service *application.NotificationService
	manager *application.ConnectionManager
	handler *notification_http.NotificationHandler
	journal *notification_http.JournalHandler
	hub     *websocket.Hub
	mirror  *cache.SnapshotMirror

	cancel       context.CancelFunc
	mirrorDone   sync.WaitGroup
	unsubscribes []func()
	shutdownOnce sync.Once
	shutdownErr  error
}

func NewModule(deps Deps) (*Module, error) {
	if deps.Config == nil {
		return nil, errors.New("notification module: config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("notification")

	loc, err := cfg.Display.Location()
	if err != nil {
		return nil, fmt.Errorf("notification module: %w", err)
	}

	m := metrics.New(deps.Registerer)
	store := application.NewStore(m)
	api := httpapi.NewClient(cfg.API.BaseURL,
		httpapi.WithToken(cfg.API.Token),
		httpapi.WithTimeout(cfg.API.Timeout),
	)
	service := application.NewNotificationService(api, store, domain.NewFormatter(loc, cfg.Display.Layout), logger, m)

	var (
		journal     domain.Journal
		journalRepo *postgres.PgJournalRepository
	)
	if deps.DB != nil {
		journalRepo = postgres.NewPgJournalRepository(deps.DB)
		journal = journalRepo
	}
	dialer := deps.Dialer
	if dialer == nil {
		dialer = websocket.NewDialer(cfg.API.Token)
	}
	manager := application.NewConnectionManager(application.ConnectionManagerConfig{
		BaseURL: cfg.API.BaseURL,
		Policy:  cfg.Reconnect.Policy(),
		Journal: journal,
	}, dialer, service, logger, m)

	hub := websocket.NewHub(logger, m)
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	mod := &Module{
		service: service,
		manager: manager,
		hub:     hub,
		cancel:  cancel,
	}
	mod.unsubscribes = append(mod.unsubscribes, store.Subscribe(hub.Publish))

	if deps.Redis != nil {
		mod.mirror = cache.NewSnapshotMirror(deps.Redis, cfg.Redis.Key, logger)
		mod.unsubscribes = append(mod.unsubscribes, store.Subscribe(mod.mirror.Listen))
		mod.mirrorDone.Go(func() { mod.mirror.Run(ctx) })
	}

	mod.handler = notification_http.NewNotificationHandler(service, manager, hub, logger)
	if journalRepo != nil {
		mod.journal = notification_http.NewJournalHandler(journalRepo, logger)
	}
	return mod, nil
}

func (m *Module) HTTPHandler() *notification_http.NotificationHandler {
	return m.handler
}

// JournalHandler is nil when no journal database is configured.
func (m *Module) JournalHandler() *notification_http.JournalHandler {
	return m.journal
}

func (m *Module) Service() *application.NotificationService {
	return m.service
}

func (m *Module) Manager() *application.ConnectionManager {
	return m.manager
}

func (m *Module) Hub() *websocket.Hub {
	return m.hub
}

// Mirror is nil when Redis is not configured.
func (m *Module) Mirror() *cache.SnapshotMirror {
	return m.mirror
}

// Shutdown closes the upstream feed, drains background work, stops the relay
// and flushes the Redis mirror. It is safe to call more than once.
func (m *Module) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		m.shutdownErr = m.manager.Shutdown(ctx)
		m.hub.Stop()
		for _, unsubscribe := range m.unsubscribes {
			unsubscribe()
		}
		m.cancel()
		m.mirrorDone.Wait()
	})
	return m.shutdownErr
}
