package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/auth"
	authPostgres "github.com/frahmantamala/leave-management/internal/auth/postgres"
	"github.com/frahmantamala/leave-management/internal/core/events"
	"github.com/frahmantamala/leave-management/internal/leavebalance"
	balancePostgres "github.com/frahmantamala/leave-management/internal/leavebalance/postgres"
	"github.com/frahmantamala/leave-management/internal/leaverequest"
	requestPostgres "github.com/frahmantamala/leave-management/internal/leaverequest/postgres"
	"github.com/frahmantamala/leave-management/internal/metrics"
	"github.com/frahmantamala/leave-management/internal/notification"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/frahmantamala/leave-management/internal/transport/middleware"
	"github.com/frahmantamala/leave-management/internal/transport/rest"
	"github.com/frahmantamala/leave-management/internal/user"
	userPostgres "github.com/frahmantamala/leave-management/internal/user/postgres"
	"github.com/frahmantamala/leave-management/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	Store    *store
	Router   *chi.Mux
	Bus      *events.EventBus
	Limiter  *middleware.RateLimiter
	Logger   *slog.Logger
	closeFns []func() error
}

func (d *Dependencies) onClose(fn func() error) {
	d.closeFns = append(d.closeFns, fn)
}

func (d *Dependencies) Close() {
	for i := len(d.closeFns) - 1; i >= 0; i-- {
		if err := d.closeFns[i](); err != nil {
			d.Logger.Error("failed to release resource", "error", err)
		}
	}
}

func startHTTPServer() error {
	deps, err := initializeDependencies()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	cfg := deps.Config.Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepRateLimiter(ctx, deps.Limiter)

	serverErrChan := make(chan error, 1)
	go func() {
		deps.Logger.Info("starting HTTP server", "address", addr, "driver", deps.Config.Database.Driver)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		deps.Logger.Info("received signal, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	deps.Bus.Wait()
	deps.Logger.Info("server stopped")
	return nil
}

func sweepRateLimiter(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := openStore(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps := &Dependencies{Config: config, Store: db, Logger: lg}
	deps.onClose(db.Close)

	if config.Database.Driver == internal.DriverSQLite {
		if err := autoMigrate(db.Gorm); err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	health := rest.NewHealthHandler(db.SQL)

	deps.Bus = events.NewEventBus(lg)
	metrics.SubscribeLeaveEvents(deps.Bus)
	if config.Notification.AMQPURL != "" {
		pub, err := notification.Dial(config.Notification.AMQPURL, config.Notification.Queue, lg)
		if err != nil {
			lg.Warn("event forwarding disabled, broker unreachable", "error", err)
		} else {
			pub.Subscribe(deps.Bus)
			deps.onClose(pub.Close)
			lg.Info("forwarding leave events", "queue", config.Notification.Queue)
		}
	}

	var denylist auth.Denylist
	if config.Redis.Addr != "" {
		client := newRedisClient(config.Redis)
		deps.onClose(client.Close)
		denylist = auth.NewRedisDenylist(client)
		health.WithCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	} else {
		lg.Warn("redis not configured, revoked tokens are kept in memory")
		denylist = auth.NewMemoryDenylist()
	}

	tokens, err := auth.NewTokenGeneratorFromConfig(config.Security)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to build token generator: %w", err)
	}

	userRepo := userPostgres.NewUserRepository(db.SQLX)
	balanceRepo := balancePostgres.NewLeaveBalanceRepository(db.Gorm)
	requestRepo := requestPostgres.NewLeaveRequestRepository(db.Gorm)

	loc := config.Scheduler.Location()
	balanceService := leavebalance.NewService(balanceRepo, lg).WithLocation(loc)
	requestService := leaverequest.NewService(requestRepo, balanceRepo, userRepo, deps.Bus, lg).
		WithClock(time.Now, loc)
	authService := auth.NewService(authPostgres.NewRepository(db.Gorm), tokens, denylist, lg)
	userService := user.NewService(userRepo, balanceService, config.Security.BCryptCost, lg).
		WithClock(func() time.Time { return time.Now().In(loc) })

	base := transport.NewBaseHandler(lg)
	deps.Limiter = middleware.NewRateLimiter(config.Server.LoginRatePerMin, config.Server.LoginBurst, lg)

	metricsPath := ""
	if config.Observability.Metrics.Enabled {
		metricsPath = config.Observability.Metrics.Path
	}

	deps.Router = chi.NewRouter()
	rest.RegisterAllRoutes(deps.Router, rest.Dependencies{
		Health:         health,
		Auth:           auth.NewHandler(base, authService),
		Users:          user.NewHandler(base, userService),
		LeaveRequest:   leaverequest.NewHandler(base, requestService),
		LeaveBalance:   leavebalance.NewHandler(base, balanceService),
		LoginLimiter:   deps.Limiter,
		AllowedOrigins: config.Server.Origins(),
		MetricsPath:    metricsPath,
		Logger:         lg,
	})

	return deps, nil
}

func newRedisClient(cfg internal.RedisConfig) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

func init() {
	rootCmd.AddCommand(httpServerCmd)
}
