package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-ce-queue/config"
	"github.com/target/mmk-ce-queue/internal/core"
	"github.com/target/mmk-ce-queue/internal/data"
	httpx "github.com/target/mmk-ce-queue/internal/http"
	"github.com/target/mmk-ce-queue/internal/observability/metrics"
	"github.com/target/mmk-ce-queue/internal/observability/statsd"
	"github.com/target/mmk-ce-queue/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Queue         *service.QueueService
	State         *service.ProcessState
	Registry      core.WorkerRegistry
	Catalog       *core.CachedCatalog
	Executions    *metrics.ExecutionMetrics
	Observability ObservabilityContainer
	// Health holds readiness probes served on /readyz.
	Health map[string]httpx.HealthCheck
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.MetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Tasks      *data.TaskRepo
	Archive    *data.ArchiveRepo
	Activity   *data.ActivityRepo
	Components *data.ComponentRepo
	Cache      *data.RedisCacheRepo
	Pause      *data.PauseStateRepo
	Registry   *data.WorkerRegistryRepo
}

// buildObservability configures the metrics adapter. A statsd failure is
// logged and leaves metrics disabled.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig, node string) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled:    true,
			Address:    cfg.Metrics.StatsdAddress,
			Prefix:     cfg.Metrics.Prefix,
			GlobalTags: cfg.Metrics.GlobalTags(node),
			Logger:     obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
// Redis-backed repositories are left nil without a Redis client.
func buildRepositories(db *sql.DB, rdb redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	repoCfg := data.RepoConfig{Logger: logger}
	repos := &serviceRepositories{
		Tasks:      data.NewTaskRepo(db, repoCfg),
		Archive:    data.NewArchiveRepo(db, repoCfg),
		Activity:   data.NewActivityRepo(db, repoCfg),
		Components: data.NewComponentRepo(db, repoCfg),
	}
	if rdb != nil {
		repos.Cache = data.NewRedisCacheRepo(rdb)
		repos.Pause = data.NewPauseStateRepo(rdb)
		repos.Registry = data.NewWorkerRegistryRepo(rdb)
	}
	return repos
}

func newCatalog(repos *serviceRepositories, cfg config.CacheConfig, logger *slog.Logger) *core.CachedCatalog {
	opts := core.CachedCatalogOptions{
		Components: repos.Components,
		Config:     core.CatalogCacheConfig{TTL: cfg.ComponentTTL},
		Logger:     logger,
	}
	// A zero TTL disables caching.
	if repos.Cache != nil && cfg.ComponentTTL > 0 {
		opts.Cache = repos.Cache
	}
	catalog, err := core.NewCachedCatalog(opts)
	if err != nil {
		//nolint:forbidigo // the component repository is always built above
		panic(fmt.Sprintf("failed to create component catalog: %v", err))
	}
	return catalog
}

type queueServiceDeps struct {
	Repos         *serviceRepositories
	Catalog       core.ComponentCatalog
	State         *service.ProcessState
	Executions    *metrics.ExecutionMetrics
	Config        *config.AppConfig
	Observability ObservabilityContainer
	Logger        *slog.Logger
}

func newQueueService(deps queueServiceDeps) *service.QueueService {
	opts := service.QueueServiceOptions{
		Store:      deps.Repos.Tasks,
		Archiver:   deps.Repos.Archive,
		Activity:   deps.Repos.Activity,
		Catalog:    deps.Catalog,
		RunState:   deps.State,
		Node:       service.StaticNode(deps.Config.NodeName),
		Executions: deps.Executions,
		Config:     deps.Config.Queue,
		Logger:     deps.Logger,
	}
	if deps.Repos.Pause != nil {
		opts.PauseStore = deps.Repos.Pause
	}
	if deps.Observability.MetricsSink != nil {
		opts.Metrics = deps.Observability.MetricsSink
	}
	return service.MustNewQueueService(opts)
}

// NewServices wires repositories and services from deps.
func NewServices(deps *ServiceDeps) ServiceContainer {
	if deps == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, appCfg.Observability, appCfg.NodeName)
	repos := buildRepositories(deps.DB, deps.RedisClient, logger)
	catalog := newCatalog(repos, appCfg.Cache, logger)
	state := service.NewProcessState()
	executions := metrics.NewExecutionMetrics(metricsSink(observability))
	queue := newQueueService(queueServiceDeps{
		Repos:         repos,
		Catalog:       catalog,
		State:         state,
		Executions:    executions,
		Config:        appCfg,
		Observability: observability,
		Logger:        logger,
	})

	container := ServiceContainer{
		Queue:         queue,
		State:         state,
		Catalog:       catalog,
		Executions:    executions,
		Observability: observability,
		Health:        healthChecks(deps.DB, deps.RedisClient),
	}
	if repos.Registry != nil {
		container.Registry = repos.Registry
	}
	return container
}

// metricsSink avoids handing a typed nil client to consumers that check for a nil Sink.
//
//nolint:ireturn // statsd.Sink is the port every consumer accepts.
func metricsSink(obs ObservabilityContainer) statsd.Sink {
	if obs.MetricsSink == nil {
		return nil
	}
	return obs.MetricsSink
}
