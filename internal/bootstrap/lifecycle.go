package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/adapters/worker"
	"github.com/target/mmk-ce-queue/internal/service"
)

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	// Handlers override the HTTP dispatcher for specific job types.
	Handlers map[string]worker.HandlerFunc
	Logger   *slog.Logger
}

// shutdownWaitTimeout is the least time given to background loops to exit.
const shutdownWaitTimeout = 15 * time.Second

// loop is a long-running service owned by the supervisor.
type loop struct {
	mode config.ServiceMode
	name string
	run  func(context.Context) error
}

type runningLoop struct {
	name string
	done <-chan struct{}
}

// supervisor starts the enabled loops under one context and collects the
// first failure.
type supervisor struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	enabled map[config.ServiceMode]bool
	errs    chan error
	loops   []runningLoop
}

func newSupervisor(logger *slog.Logger, enabled map[config.ServiceMode]bool) *supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &supervisor{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		enabled: enabled,
		errs:    make(chan error, errorChannelBufferSize(enabled)),
	}
}

func (s *supervisor) spawn(l loop) {
	if !s.enabled[l.mode] {
		return
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := l.run(s.ctx); err != nil {
			s.report(fmt.Errorf("%s failed: %w", l.name, err))
		}
	}()
	s.loops = append(s.loops, runningLoop{name: l.name, done: done})
	s.logger.InfoContext(s.ctx, "background service started", "service", l.name, "mode", l.mode)
}

// report never blocks; the buffer holds one error per service and the
// first one ends the process anyway.
func (s *supervisor) report(err error) {
	select {
	case s.errs <- err:
	default:
		s.logger.Warn("dropping background service error", "error", err)
	}
}

// await waits for every loop, sharing one deadline between them.
func (s *supervisor) await(timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for _, l := range s.loops {
		select {
		case <-l.done:
			s.logger.Info(l.name + " stopped")
		case <-deadline.C:
			s.logger.Warn("timeout waiting for " + l.name + " to stop")
		}
	}
}

func queueLoops(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []loop {
	svcs := cfg.Services
	sink := metricsSink(svcs.Observability)
	return []loop{
		{
			mode: config.ServiceModeWorker,
			name: "worker pool",
			run: func(ctx context.Context) error {
				workerCfg := cfg.Config.Worker
				if workerCfg.IDPrefix == "" {
					workerCfg.IDPrefix = cfg.Config.NodeName
				}
				return RunWorkers(ctx, WorkerRunnerConfig{
					Queue:    svcs.Queue,
					Registry: svcs.Registry,
					State:    svcs.State,
					Config:   workerCfg,
					Handlers: cfg.Handlers,
					Logger:   logger,
					Metrics:  sink,
				})
			},
		},
		{
			mode: config.ServiceModeSweeper,
			name: "sweeper",
			run: func(ctx context.Context) error {
				return RunSweeper(ctx, SweeperRunnerConfig{
					Queue:    svcs.Queue,
					Registry: svcs.Registry,
					Config:   cfg.Config.Sweeper,
					Logger:   logger,
					Metrics:  sink,
				})
			},
		},
	}
}

// RunServicesWithShutdown starts every enabled service and blocks until
// SIGINT/SIGTERM or the first service failure, then stops them in order.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	switch {
	case cfg == nil:
		return errors.New("service orchestration config is required")
	case cfg.Config == nil:
		return errors.New("service orchestration config missing AppConfig")
	case cfg.Services.Queue == nil:
		return errors.New("service orchestration config missing queue service")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	sup := newSupervisor(logger, enabled)
	defer sup.cancel()

	if err := cfg.Services.Queue.SyncPauseState(sup.ctx); err != nil {
		logger.Warn("initial pause state sync failed", "error", err)
	}

	var server *http.Server
	if enabled[config.ServiceModeHTTP] {
		server = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
			ErrCh:    sup.errs,
		})
	}
	for _, l := range queueLoops(cfg, logger) {
		sup.spawn(l)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Info("shutting down services...")
	case runErr = <-sup.errs:
		logger.Error("service error", "error", runErr)
	}

	shutdown(sup, shutdownPlan{
		server:        server,
		serverTimeout: cfg.Config.HTTP.ShutdownTimeout,
		queue:         cfg.Services.Queue,
		state:         cfg.Services.State,
		loopTimeout:   serviceWaitTimeout(cfg.Config.Worker),
	})
	return runErr
}

type shutdownPlan struct {
	server        *http.Server
	serverTimeout time.Duration
	queue         *service.QueueService
	state         *service.ProcessState
	loopTimeout   time.Duration
}

// shutdown stops intake first, then releases pending long-poll peeks so the
// HTTP server can drain, then cancels the loops and waits for them.
func shutdown(sup *supervisor, p shutdownPlan) {
	if p.state != nil {
		p.state.MarkStopping()
	}
	if p.server != nil {
		if p.queue != nil {
			p.queue.StopAllListeners()
		}
		if err := ShutdownHTTPServer(context.Background(), p.server, p.serverTimeout, sup.logger); err != nil {
			sup.logger.Error("graceful HTTP shutdown failed", "error", err)
		}
	}
	sup.cancel()
	sup.await(p.loopTimeout)

	if p.queue != nil {
		p.queue.StopAllListeners()
	}
}

// serviceWaitTimeout leaves room for in-flight tasks to finish under the worker stop timeout.
func serviceWaitTimeout(cfg config.WorkerConfig) time.Duration {
	return max(cfg.StopTimeout+5*time.Second, shutdownWaitTimeout)
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	n := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			n++
		}
	}
	return n
}

// errorChannelBufferSize keeps one spare slot beyond one error per service.
func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}
