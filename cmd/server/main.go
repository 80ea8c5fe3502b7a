/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the sports equipment checkout server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present), parse flags and environment
  2. Build the zap logger at the configured level
  3. Open the SQLite store
  4. Wire session manager, cap table and engine
  5. Run a load pass (seeds the catalog, accrues fees)
  6. Run the HTTP server and the accrual scheduler in one errgroup

CONFIGURATION (flag / env, env wins):
  -a  RUN_ADDRESS         HTTP listen address (default :8080)
  -d  DATABASE_PATH       SQLite database path (default checkout.db)
                          Use ":memory:" for an in-memory database
  -l  LIMITS_FILE         JSON or YAML cap table (default built-in table)
  -w  LOAN_WINDOW         Checkout window (default 2h)
  -i  ACCRUAL_INTERVAL    Late fee accrual interval (default 1h)
  -t  COUNTDOWN_INTERVAL  Websocket countdown tick (default 1s)
  -log-level LOG_LEVEL    debug, info, warn, error (default info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM the errgroup context is cancelled:
  1. The scheduler stops after its current pass
  2. The server stops accepting connections and drains (30s timeout)
  3. The database is closed

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/warp/sports-checkout/api"
	"github.com/warp/sports-checkout/checkout"
	"github.com/warp/sports-checkout/config"
	"github.com/warp/sports-checkout/factory"
	"github.com/warp/sports-checkout/session"
	"github.com/warp/sports-checkout/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	sessions := session.NewManager(store)

	engine := checkout.NewEngine(store, store)
	engine.Users = sessions
	engine.Logger = logger.Named("checkout")
	engine.Policy.Window = cfg.LoanWindow
	if cfg.LimitsFile != "" {
		limits, err := factory.LoadLimitsFile(cfg.LimitsFile)
		if err != nil {
			return err
		}
		engine.Limits = limits
		logger.Info("loaded cap table", zap.String("file", cfg.LimitsFile), zap.Int("sports", len(limits)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := engine.Load(ctx)
	if err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	logger.Info("store loaded",
		zap.String("database", cfg.DatabasePath),
		zap.Int("items", len(snap.Catalog)),
		zap.Int("outstanding", len(snap.Outstanding)))

	handler := api.NewHandler(engine, sessions, store, logger.Named("api"))
	handler.TickInterval = cfg.CountdownInterval
	handler.Metrics.SetOutstanding(len(snap.Outstanding))

	scheduler := api.NewAccrualScheduler(engine, logger.Named("scheduler"))
	scheduler.Interval = cfg.AccrualInterval
	scheduler.Metrics = handler.Metrics

	g, ctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:        cfg.RunAddress,
		Handler:     api.NewRouter(handler),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// hijacked countdown connections are not drained by Shutdown; the
		// base context ends their feeds instead
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", cfg.RunAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
