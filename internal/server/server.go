package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/careerbox/presenced/internal/gateway"
	"github.com/careerbox/presenced/internal/health"
	"github.com/careerbox/presenced/internal/metrics"
	"github.com/careerbox/presenced/internal/notify"
	"github.com/careerbox/presenced/internal/presence"
	"github.com/careerbox/presenced/internal/profileid"
	"github.com/careerbox/presenced/internal/rooms"
	"github.com/careerbox/presenced/internal/router"
	"github.com/careerbox/presenced/internal/search"
	"github.com/careerbox/presenced/internal/server/middleware"
	"github.com/careerbox/presenced/internal/store"
	"github.com/careerbox/presenced/pkg/config"
	"github.com/careerbox/presenced/pkg/state"
	"github.com/careerbox/presenced/pkg/state/statemanager"
	"github.com/careerbox/presenced/pkg/transport"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Deps are the external collaborators the fabric consumes. All of them
// are owned elsewhere; the fabric only reads and mirrors.
type Deps struct {
	Sessions   store.SessionStore
	Identities store.IdentityStore
	Directory  store.DirectoryStore
	Activity   store.ActivityLog
	HealthLog  store.HealthLog
	Alerts     store.AlertLog
	Trending   store.TrendingLog
	Pinger     store.Pinger

	// WrapBroadcaster optionally layers a cross-instance bridge over
	// the local gateway. Nil keeps delivery process-local.
	WrapBroadcaster func(gateway.Broadcaster) (gateway.Broadcaster, error)
}

type App struct {
	logger      *slog.Logger
	config      *config.Config
	states      state.Manager
	roomManager *rooms.Manager
	tracker     *presence.Tracker
	dispatcher  *notify.Dispatcher
	monitor     *health.Monitor
	eventRouter *router.Router

	http      *http.Server
	wg        sync.WaitGroup
	ctx       context.Context
	startedAt time.Time
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	states := statemanager.NewInMemoryManager(logger)

	var bcast gateway.Broadcaster = gateway.NewLocal(states, logger)
	if deps.WrapBroadcaster != nil {
		wrapped, err := deps.WrapBroadcaster(bcast)
		if err != nil {
			return nil, err
		}
		bcast = wrapped
	}
	gateway.Init(bcast)

	roomManager := rooms.NewManager(states, logger)
	tracker := presence.NewTracker(deps.Identities, bcast, cfg.Presence.StaleAfter, logger)
	validator := profileid.NewValidator(deps.Directory, logger)
	engine := search.NewEngine(deps.Directory, deps.Trending, search.Config{
		MinQueryLength: cfg.Search.MinQueryLength,
		PerTypeLimit:   cfg.Search.PerTypeLimit,
		TotalLimit:     cfg.Search.TotalLimit,
	}, logger)
	dispatcher := notify.NewDispatcher(bcast, deps.Alerts, logger)
	monitor := health.NewMonitor(states, deps.Pinger, deps.HealthLog, bcast, cfg.Health.Interval, health.Thresholds{
		DegradedRTTMs:  cfg.Health.PingThreshold.DegradedMs,
		UnhealthyRTTMs: cfg.Health.PingThreshold.UnhealthyMs,
	}, logger)
	eventRouter := router.New(logger, states, roomManager, tracker, validator, engine, dispatcher, monitor, deps.Activity, bcast)

	app := &App{
		logger:      logger,
		config:      cfg,
		states:      states,
		roomManager: roomManager,
		tracker:     tracker,
		dispatcher:  dispatcher,
		monitor:     monitor,
		eventRouter: eventRouter,
		ctx:         rootCtx,
		startedAt:   time.Now(),
	}

	connCycler := func(identityID string) {
		oldest, found := states.FindOldestConnection(identityID)
		if found {
			logger.Info("cycling connection: closing oldest",
				slog.String("identityID", identityID),
				slog.String("connID", oldest.ID.String()),
			)
			oldest.Transport.Close(errors.New("connection cycled by new connection"))
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.Chain(
		http.HandlerFunc(app.upgradeHandler),
		middleware.RequestMetadataMiddleware(),
		middleware.NewRequestLogger(logger),
		middleware.NewAuthMiddleware(logger, cfg.Server.Auth.JWTSecret, deps.Sessions, cfg.Server.Auth.Timeout),
		middleware.NewConnectionLimiter(logger, states.IdentityConnectionCount, connCycler, cfg.Server.ConnectionLimit),
	))
	mux.HandleFunc("/status", app.statusHandler)
	mux.Handle("/metrics", metrics.Handler())

	app.http = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
		BaseContext: func(l net.Listener) context.Context {
			return app.ctx
		},
	}
	return app, nil
}

func (a *App) Run() error {
	a.monitor.Start(a.ctx)

	go func() {
		a.logger.Info("server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("http server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, ok := middleware.ReqMetadataFrom(r.Context())
	if !ok || reqMeta.Identity == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ident := reqMeta.Identity
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.String("identityID", ident.ID),
	)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: a.config.Server.AllowedOrigins,
	})
	if err != nil {
		connLogger.Error("failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(r.Context(), &a.wg, wsConn, transport.Config{
		ReadTimeout: a.config.Transport.ReadTimeout,
		SendBuffer:  a.config.Transport.SendBuffer,
	}, a.logger)

	if _, err := a.states.RegisterConnection(conn, reqMeta.IP, reqMeta.UserAgent); err != nil {
		connLogger.Error("failed to register connection", slog.Any("error", err))
		conn.Close(err)
		return
	}
	if _, err := a.states.Attach(conn.ID(), ident.ID, ident.Role, ident.Capabilities, ident.SessionRef); err != nil {
		connLogger.Error("failed to attach identity", slog.Any("error", err))
		a.states.DeregisterConnection(conn.ID())
		conn.Close(err)
		return
	}
	if _, err := a.roomManager.JoinInitial(ident.ID, ident.Role); err != nil {
		connLogger.Error("failed to join initial rooms", slog.Any("error", err))
		a.states.DeregisterConnection(conn.ID())
		conn.Close(err)
		return
	}
	if err := a.tracker.Connected(r.Context(), ident.ID); err != nil {
		// Presence mirroring is best-effort at connect: the socket is
		// live even when the identity store write lagged.
		connLogger.Warn("failed to mark identity online", slog.Any("error", err))
	}
	metrics.ConnectedClients.Inc()

	conn.SetOnMessage(a.eventRouter.HandleMessage)
	identityID := ident.ID
	conn.SetOnClose(func(connID uuid.UUID, cause error) {
		connLogger.Info("connection closed", slog.Any("reason", cause))
		a.cleanupConnection(connID, identityID)
	})

	connLogger.Info("connection established", slog.String("role", string(ident.Role)))
	conn.Run()
	<-conn.Done()
}

// cleanupConnection runs on every disconnect, whatever its reason.
// The state manager decides atomically whether the departing
// connection was the identity's last, so concurrently closing
// connections of one identity elect exactly one cleanup pass. On that
// pass the identity leaves any remaining rooms (best-effort,
// continue-on-error) and is unconditionally mirrored offline.
func (a *App) cleanupConnection(connID uuid.UUID, identityID string) {
	metrics.ConnectedClients.Dec()
	last, err := a.states.DeregisterConnection(connID)
	if err != nil {
		a.logger.Error("failed to deregister connection",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
	}
	if !last {
		return
	}
	a.roomManager.LeaveAll(identityID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	a.tracker.Disconnected(ctx, identityID)
	cancel()
}

// Shutdown drains the server: stop accepting, stop monitoring, close
// every live connection and wait for their cleanup to finish.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down server")
	a.monitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	for _, ident := range a.states.AllIdentities() {
		for _, conn := range ident.Connections {
			conn.Transport.Close(errors.New("graceful shutdown"))
		}
	}
	a.wg.Wait()
	gateway.Shutdown()
	a.logger.Info("server shut down gracefully")
	return nil
}

// statusHandler is the stateless ops mirror: connected-client count
// and server identity for dashboards.
func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"server":              a.config.Server.Name,
		"connectedClients":    a.states.ConnectionCount(),
		"uptimeSeconds":       time.Since(a.startedAt).Seconds(),
		"pingIntervalSeconds": a.config.Transport.PingInterval.Seconds(),
	})
}
