package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chatdesk/internal/authtoken"
	"chatdesk/internal/config"
	"chatdesk/internal/db"
	"chatdesk/internal/handlers"
	"chatdesk/internal/logger"
	"chatdesk/internal/metrics"
	"chatdesk/internal/middleware"
	"chatdesk/internal/repository"
	"chatdesk/internal/routes"
	"chatdesk/internal/services"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const mailQueueSize = 100

type store struct {
	users    services.UserRepo
	sessions services.SessionRepo
	resets   services.PasswordResetRepo
	tx       services.Transactor
	close    func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store {
	case "memory":
		mem := repository.NewMemoryStore()
		return &store{
			users:    mem.Users(),
			sessions: mem.Sessions(),
			resets:   mem.PasswordResets(),
			tx:       mem,
			close:    func() {},
		}, nil
	case "postgres":
		pool, err := db.NewPostgresConnection(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &store{
			users:    repository.NewUserRepository(pool),
			sessions: repository.NewSessionRepository(pool),
			resets:   repository.NewPasswordResetRepository(pool),
			tx:       db.NewTxManager(pool),
			close:    pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// InitApp wires storage, services and HTTP routes. The returned cleanup stops
// the background workers and closes the store.
func InitApp(ctx context.Context, cfg *config.Config) (*mux.Router, func(), error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Log.Info("Store ready", zap.String("store", cfg.Store))

	workerCtx, cancel := context.WithCancel(context.Background())
	cleanup := func() {
		cancel()
		st.close()
	}

	// Services
	now := time.Now
	creds := services.NewCredentialStore(st.users, st.tx, now)
	sessionLedger := services.NewSessionLedger(st.sessions, now, cfg.SessionTTL)
	resetLedger := services.NewResetLedger(st.users, st.resets, st.sessions, st.tx, now, cfg.PasswordResetTTL)

	var sender services.EmailSender = services.LogSender{}
	if cfg.SMTPHost != "" && cfg.SMTPUser != "" {
		sender = services.NewEmailService(cfg)
	}
	mailQueue := services.NewMailQueue(sender, mailQueueSize, cfg.FrontendURL, cfg.PasswordResetTTL)
	mailQueue.StartWorker(workerCtx)

	authService := services.NewAuthService(creds, sessionLedger, resetLedger, mailQueue, services.AuthOptions{
		RevealUnknownEmail: cfg.ResetRevealUnknownEmail,
	})

	StartSweeper(workerCtx, authService, cfg.SweepInterval)

	// Handlers
	cookies := authtoken.NewCookieStore(cfg.SessionCookieSecret, cfg.SessionTTL, cfg.Env == "prod")
	authHandler := handlers.NewAuthHandler(authService, cookies, cfg.SessionCookieName)
	passwordHandler := handlers.NewPasswordHandler(authService)

	router := mux.NewRouter()
	routes.InitRoutes(router, authHandler, passwordHandler,
		middleware.SessionAuth(authService, cookies, cfg.SessionCookieName),
		MetricsHandler(),
	)

	return router, cleanup, nil
}

// MetricsHandler registers the application collectors on a fresh registry.
func MetricsHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

type sweeper interface {
	Sweep(ctx context.Context) (sessions, resets int64, err error)
}

// StartSweeper periodically purges expired sessions and reset requests.
// A non-positive interval disables it.
func StartSweeper(ctx context.Context, s sweeper, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				sessions, resets, err := s.Sweep(ctx)
				if err != nil {
					logger.Log.Error("Expiry sweep failed", zap.Error(err))
					continue
				}
				logger.Log.Debug("Expiry sweep done",
					zap.Int64("sessions", sessions), zap.Int64("reset_requests", resets))
			}
		}
	}()
}
