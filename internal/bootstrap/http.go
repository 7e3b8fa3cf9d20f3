package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-ce-queue/config"
	httpx "github.com/target/mmk-ce-queue/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// ErrCh receives a listen failure. Optional.
	ErrCh chan<- error
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	services := httpx.RouterServices{
		Queue:        cfg.Services.Queue,
		Checks:       cfg.Services.Health,
		HeartbeatTTL: appCfg.Worker.HeartbeatTTL,
		MaxPeekWait:  appCfg.HTTP.MaxPeekWait,
		APIToken:     appCfg.HTTP.APIToken,
		Logger:       logger,
	}
	if cfg.Services.Registry != nil {
		services.Registry = cfg.Services.Registry
	}
	if services.APIToken == "" {
		logger.Warn("HTTP_API_TOKEN is empty; /api routes are unauthenticated")
	}

	handler := buildHTTPHandler(logger, services)
	return startServer(serverParams{
		logger:  logger,
		handler: handler,
		addr:    appCfg.HTTP.Addr,
		// Long-poll peeks must fit inside the write timeout.
		writeTimeout: appCfg.HTTP.MaxPeekWait + 30*time.Second,
		errCh:        cfg.ErrCh,
	})
}

// buildHTTPHandler wraps the router. Order: Recover -> Logging -> Router.
func buildHTTPHandler(logger *slog.Logger, services httpx.RouterServices) http.Handler {
	h := httpx.NewRouter(services)
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)
	return h
}

type serverParams struct {
	logger       *slog.Logger
	handler      http.Handler
	addr         string
	writeTimeout time.Duration
	errCh        chan<- error
}

func startServer(p serverParams) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	addr := p.addr
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           p.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      p.writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		p.logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("HTTP server failed", "error", err)
			if p.errCh != nil {
				select {
				case p.errCh <- fmt.Errorf("http server failed: %w", err):
				default:
				}
			}
		}
	}()

	return server
}

// ShutdownHTTPServer drains in-flight requests within timeout.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("HTTP server stopped")
	return nil
}

// healthChecks builds readiness probes for the process dependencies.
func healthChecks(db *sql.DB, rdb redis.UniversalClient) map[string]httpx.HealthCheck {
	checks := make(map[string]httpx.HealthCheck, 2)
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return checks
}
