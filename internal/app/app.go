package app

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"evmobile/internal/clients"
	"evmobile/internal/clock"
	"evmobile/internal/config"
	"evmobile/internal/credentials"
	httpserver "evmobile/internal/http"
	"evmobile/internal/http/handlers"
	"evmobile/internal/models"
	redisstore "evmobile/internal/redis"
	"evmobile/internal/repository"
	"evmobile/internal/scan"
	"evmobile/internal/service"
	"evmobile/internal/ws"
	libdb "evmobile/libs/db"
	"evmobile/libs/logging"
	libredis "evmobile/libs/redis"
)

// App wires the charging client.
type App struct {
	Auth      *service.AuthService
	Charging  *service.ChargingService
	Payments  *service.PaymentService
	Wallet    *service.WalletService
	Locations *clients.LocationsClient
	Lookup    *clients.LookupClient
	Store     *service.Store

	creds      *credentials.FileStore
	socket     *ws.Manager
	sessions   *service.SessionSync
	poller     *service.TopupPoller
	stabilizer *scan.Stabilizer
	gate       *scan.Gate
	cache      *redisstore.SessionCache
	server     *httpserver.Server

	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	mu     sync.Mutex
	runCtx context.Context
}

// New constructs the application graph. Redis, Postgres and the status server
// are only set up when configured.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	ctx := context.Background()

	deviceID := credentials.ResolveDeviceID(cfg.Device.ID)
	creds, err := credentials.NewFileStore(cfg.Credentials.Path, cfg.Credentials.Secret, deviceID)
	if err != nil {
		return nil, err
	}

	a := &App{creds: creds, logger: logger, runCtx: ctx}

	base := clients.NewBaseClient(cfg.API.BaseURL, clients.NewDefaultHTTPClient(cfg.APITimeout()), creds, deviceID, logger.Named("rest"))
	authClient := clients.NewAuthClient(base)
	usersClient := clients.NewUsersClient(base)
	walletClient := clients.NewWalletClient(base)
	chargersClient := clients.NewChargersClient(base)
	a.Locations = clients.NewLocationsClient(base)
	a.Lookup = clients.NewLookupClient(base)

	store := service.NewStore()
	a.Store = store
	nav := &logNavigator{store: store, logger: logger.Named("nav")}
	notifier := &logNotifier{logger: logger.Named("toast")}

	a.sessions = service.NewSessionSync(store, chargersClient, logger.Named("sessions"))
	a.Wallet = service.NewWalletService(walletClient, store, logger.Named("wallet"))
	a.poller = service.NewTopupPoller(service.PollerConfig{
		Interval: cfg.PollInterval(),
		Timeout:  cfg.PollTimeout(),
	}, clock.New(), walletClient, a.Wallet, nav, logger.Named("poller"))
	a.Payments = service.NewPaymentService(walletClient, a.poller, logger.Named("payments"))

	a.socket = ws.NewManager(ws.Config{
		URL:            cfg.WS.URL,
		ReconnectDelay: cfg.ReconnectDelay(),
	}, ws.NewDialer(cfg.APITimeout(), nil), creds, store, clock.New(), logger.Named("ws"))
	a.sessions.AddSessionObserver(unsubscriber{socket: a.socket})

	a.Charging = service.NewChargingService(service.ChargingConfig{
		MinStartBalance: cfg.Wallet.MinStartBalance,
		IDTag:           cfg.Charging.IDTag,
	}, chargersClient, store, a.Wallet, a.sessions, a.socket, nav, notifier, logger.Named("charging"))

	dispatcher := service.NewDispatcher(store, a.sessions, a.poller, a.Wallet, nav, logger.Named("events"))
	a.socket.SetHandler(dispatcher)

	a.Auth = service.NewAuthService(authClient, usersClient, creds, a.socket, store, a.poller, logger.Named("auth"))

	guide := scan.Rect{X: cfg.Scan.GuideX, Y: cfg.Scan.GuideY, Width: cfg.Scan.GuideSize, Height: cfg.Scan.GuideSize}
	a.stabilizer = scan.NewStabilizer(scan.Config{
		Guide:        guide,
		Padding:      cfg.Scan.Padding,
		MinSizeRatio: cfg.Scan.MinSizeRatio,
		Window:       cfg.ScanWindow(),
	}, clock.New(), a.onAccepted, logger.Named("scan"))
	a.stabilizer.SetSuspended(true)
	a.gate = scan.NewGate(func(active bool) {
		a.stabilizer.SetSuspended(!active)
	})
	a.gate.SetPermission(true)
	a.gate.SetFocused(true)
	a.gate.SetForeground(true)

	if cfg.Redis.Addr != "" {
		a.redisClient, err = libredis.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.cache = redisstore.NewSessionCache(a.redisClient, deviceID, cfg.SessionTTL(), logger.Named("cache"))
		a.sessions.AddObserver(a.cache)
		a.sessions.AddSessionObserver(a.cache)
		store.Watch(func(_, current string) {
			if current == "" {
				return
			}
			if snap, ok := store.Snapshot(); ok {
				if err := a.cache.Save(a.context(), snap); err != nil {
					logger.Warn("failed to cache session", zap.String("session_id", current), zap.Error(err))
				}
			}
		})
	}

	if cfg.Database.DSN != "" {
		a.db, err = libdb.NewPostgresDB(ctx, cfg.Database.DSN, libdb.PoolOptions{})
		if err != nil {
			a.Close()
			return nil, err
		}
		journal := repository.NewJournalRepository(a.db, deviceID, logger.Named("journal"))
		if err := journal.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.sessions.AddObserver(journal)
		a.poller.AddObserver(journal)
		dispatcher.AddObserver(journal)
	}

	if addr := cfg.StatusAddress(); addr != "" {
		center := guide.Width / 4
		routes := httpserver.Routes{
			Health:     handlers.NewHealthHandler(a.socket),
			State:      handlers.NewStateHandler(store),
			Session:    handlers.NewSessionHandler(store, a.sessions, a.socket),
			Foreground: handlers.NewForegroundHandler(a),
			Scan:       handlers.NewScanHandler(a.stabilizer, scan.Rect{X: guide.X + center, Y: guide.Y + center, Width: guide.Width / 2, Height: guide.Height / 2}),
			Rescan:     handlers.NewRescanHandler(a.stabilizer),
			Stop:       handlers.NewStopHandler(a.Charging),
			Dismiss:    handlers.NewDismissHandler(a.Charging),
		}
		a.server = httpserver.NewServer(addr, httpserver.NewRouter(routes), logger.Named("status"))
	}

	store.SetAuthenticated(a.checkCredential())
	return a, nil
}

// checkCredential drops a stored token that is already past its expiry so the
// socket does not dial with it.
func (a *App) checkCredential() bool {
	token := a.creds.AccessToken()
	if token == "" {
		return false
	}
	info, err := credentials.Inspect(token)
	if err != nil {
		// opaque tokens are left to the backend
		return true
	}
	if info.Expired(time.Now()) {
		a.logger.Info("stored credential expired", zap.Time("expires_at", info.ExpiresAt))
		if err := a.creds.Clear(); err != nil {
			a.logger.Warn("failed to clear expired credential", zap.Error(err))
		}
		return false
	}
	return true
}

// Run resumes a cached session, keeps the event feed open and serves the
// status API until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	a.resume(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.socket.Run(gctx)
	})
	if a.server != nil {
		g.Go(func() error {
			return a.server.Run(gctx)
		})
	}
	err := g.Wait()
	a.poller.StopPolling()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// SetForeground forwards an app lifecycle transition to the camera gate and the
// reconciliation engine.
func (a *App) SetForeground(ctx context.Context, foreground bool) {
	a.gate.SetForeground(foreground)
	if foreground {
		go a.sessions.OnForeground(context.WithoutCancel(ctx))
		// back from the payment page
		go a.poller.CheckNow()
	}
}

// TopupPending reports whether a top-up is still being verified.
func (a *App) TopupPending() bool {
	return a.poller.Active()
}

// Close releases resources.
func (a *App) Close() {
	a.socket.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

func (a *App) context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runCtx
}

// onAccepted runs the start flow off the camera callback.
func (a *App) onAccepted(value string) {
	ctx := a.context()
	go func() {
		if err := a.Charging.HandleScan(ctx, value); err != nil {
			a.logger.Info("scan did not start a session", zap.String("value", value), zap.Error(err))
		}
	}()
}

// resume restores the session cached by a previous run.
func (a *App) resume(ctx context.Context) {
	if a.cache == nil || a.Store.SessionID() != "" {
		return
	}
	snap, err := a.cache.Load(ctx)
	if err != nil {
		a.logger.Warn("failed to load cached session", zap.Error(err))
		return
	}
	if snap == nil || snap.SessionID == "" {
		return
	}
	if err := a.Store.StartSession(snap.SessionID); err != nil {
		a.logger.Warn("failed to resume session", zap.String("session_id", snap.SessionID), zap.Error(err))
		return
	}
	a.Store.UpdateSnapshot(snap.SessionID, func(prev models.SessionSnapshot) models.SessionSnapshot {
		return service.MergeSnapshot(prev, *snap)
	})
	a.logger.Info("resumed session", zap.String("session_id", snap.SessionID))
	go a.sessions.Refresh(ctx, snap.SessionID)
}

type unsubscriber struct {
	socket *ws.Manager
}

func (u unsubscriber) SessionCleared(_ context.Context, sessionID string) {
	u.socket.Unsubscribe(sessionID)
}
