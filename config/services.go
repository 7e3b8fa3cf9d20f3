package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the operator and remote-worker HTTP API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the worker pool that peeks and completes tasks.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeSweeper runs the periodic reset and worn-out cleanup.
	ServiceModeSweeper ServiceMode = "sweeper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeWorker,
		ServiceModeSweeper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker, ServiceModeSweeper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, worker, sweeper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains worker pool configuration.
type WorkerConfig struct {
	// Count is the number of worker goroutines.
	Count int `env:"WORKER_COUNT" envDefault:"1"`

	// IDPrefix prefixes generated worker ids. Defaults to the node name.
	IDPrefix string `env:"WORKER_ID_PREFIX"`

	// PollInterval is the wait between peeks when the queue had nothing eligible.
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"2s"`

	// DisabledInterval is the wait between peeks while intake is paused or stopping.
	DisabledInterval time.Duration `env:"WORKER_DISABLED_INTERVAL" envDefault:"10s"`

	// HeartbeatInterval is how often each worker refreshes its registry entry.
	HeartbeatInterval time.Duration `env:"WORKER_HEARTBEAT_INTERVAL" envDefault:"10s"`

	// HeartbeatTTL is how long a registry entry stays live without a refresh.
	HeartbeatTTL time.Duration `env:"WORKER_HEARTBEAT_TTL" envDefault:"30s"`

	// ExcludeIssueSync keeps issue-sync jobs away from this node's workers.
	ExcludeIssueSync bool `env:"WORKER_EXCLUDE_ISSUE_SYNC" envDefault:"false"`

	// StopTimeout bounds how long graceful stop waits for in-flight tasks.
	StopTimeout time.Duration `env:"WORKER_STOP_TIMEOUT" envDefault:"30s"`

	// DispatchURL is the analyzer endpoint each claimed task is POSTed to.
	DispatchURL string `env:"WORKER_DISPATCH_URL"`

	// DispatchTimeout bounds one analyzer request.
	DispatchTimeout time.Duration `env:"WORKER_DISPATCH_TIMEOUT" envDefault:"10m"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Count < 1 {
		w.Count = 1
	}
	w.IDPrefix = strings.TrimSpace(w.IDPrefix)
	if w.PollInterval < 100*time.Millisecond {
		w.PollInterval = 100 * time.Millisecond
	}
	if w.DisabledInterval < w.PollInterval {
		w.DisabledInterval = w.PollInterval
	}
	if w.HeartbeatInterval < time.Second {
		w.HeartbeatInterval = time.Second
	}
	// Entries must outlive at least two missed refreshes.
	if w.HeartbeatTTL < 2*w.HeartbeatInterval {
		w.HeartbeatTTL = 2 * w.HeartbeatInterval
	}
	if w.StopTimeout <= 0 {
		w.StopTimeout = 30 * time.Second
	}
	w.DispatchURL = strings.TrimSpace(w.DispatchURL)
	if w.DispatchTimeout <= 0 {
		w.DispatchTimeout = 10 * time.Minute
	}
}

// SweeperConfig contains sweeper service configuration.
type SweeperConfig struct {
	// Interval is the sweeper tick interval.
	Interval time.Duration `env:"SWEEPER_INTERVAL" envDefault:"1m"`

	// ResetUnknownWorkers resets IN_PROGRESS tasks held by workers missing from the registry.
	ResetUnknownWorkers bool `env:"SWEEPER_RESET_UNKNOWN_WORKERS" envDefault:"true"`

	// CancelWornOuts archives pending tasks that were already started once.
	CancelWornOuts bool `env:"SWEEPER_CANCEL_WORN_OUTS" envDefault:"true"`
}

// Sanitize applies guardrails to sweeper configuration values.
func (s *SweeperConfig) Sanitize() {
	// Enforce minimum intervals to prevent excessive database load
	if s.Interval < 10*time.Second {
		s.Interval = 10 * time.Second
	}
}
