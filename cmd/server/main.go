/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shop sale engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (defaults, YAML, .env, SHOP_* environment)
  3. Build the zap logger
  4. Initialize SQLite store
  5. Wire the event bus, handler, rate limiter and router
  6. Start the daily summary job
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)
  -port    HTTP server port, overrides configuration
  -db      SQLite database path, overrides configuration
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the summary job and drain sale notifications
  4. Close database connection

EXAMPLES:
  ./server -config=shop.yml
  ./server -db=":memory:" -port=3000
  SHOP_TIMEZONE=Africa/Cairo SHOP_LOG_MODE=production ./server

SEE ALSO:
  - config/config.go: Settings and environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/warp/shop-engine/api"
	"github.com/warp/shop-engine/config"
	"github.com/warp/shop-engine/logging"
	"github.com/warp/shop-engine/ratelimit"
	"github.com/warp/shop-engine/sales"
	"github.com/warp/shop-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Web.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		return err
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Sale notifications
	bus := EventBus.New()
	err = bus.SubscribeAsync(sales.TopicSaleCompleted, func(r sales.Receipt) {
		logger.Info("sale completed",
			zap.String("sale_id", string(r.Sale.ID)),
			zap.String("employee", r.Employee.Name),
			zap.String("amount", r.Sale.EffectiveAmount().StringFixed(2)))
	}, false)
	if err != nil {
		return fmt.Errorf("subscribe sale notifications: %w", err)
	}
	defer bus.WaitAsync()

	handler := api.NewHandler(store, api.HandlerConfig{
		Logger:   logger,
		Location: loc,
		Notifier: sales.NewBusNotifier(bus),
	})

	limiter, err := ratelimit.New(ratelimit.Config{
		Window:      cfg.RateLimit.Window,
		MaxRequests: cfg.RateLimit.MaxRequests,
		MaxClients:  cfg.RateLimit.MaxClients,
	})
	if err != nil {
		return fmt.Errorf("initialize rate limiter: %w", err)
	}

	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:     cfg.Web.CORSOrigins,
		Limiter:         limiter,
		EnableScenarios: cfg.Web.DemoScenarios,
		TrustedProxies:  proxies,
	})

	if cfg.Jobs.DailySummaryEnabled {
		job := api.NewDailySummaryJob(store, logger.Named("jobs"), loc)
		if err := job.Start(cfg.Jobs.DailySummarySpec); err != nil {
			return fmt.Errorf("start daily summary job: %w", err)
		}
		defer job.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Web.Port),
			zap.String("db", cfg.Database.Path),
			zap.String("location", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
