package config

import (
	"os"
	"strings"
)

// AppConfig is everything ce-queue reads from the environment. Each section
// lives next to its Sanitize in its own file (database.go, queue.go,
// services.go, http.go, observability.go).
type AppConfig struct {
	// IsDev switches to text logs at debug. NODE_ENV=development also sets it.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel overrides the mode default (debug in dev, info otherwise).
	LogLevel string `env:"LOG_LEVEL"`

	// NodeName identifies this process in cancellation history.
	// Falls back to the host name when unset.
	NodeName string `env:"NODE_NAME"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig

	// Services is a comma list of http, worker and sweeper.
	Services string `env:"SERVICES" envDefault:"worker,sweeper"`

	HTTP          HTTPConfig
	Queue         QueueConfig
	Worker        WorkerConfig
	Sweeper       SweeperConfig
	Observability ObservabilityConfig
}

// Sanitize clamps every section and fills NodeName. LoadConfig calls it.
func (c *AppConfig) Sanitize() {
	c.Postgres.Sanitize()
	c.Cache.Sanitize()
	c.Queue.Sanitize()
	c.Worker.Sanitize()

	// One connection per worker goroutine plus the listener and the sweeper.
	if minConns := c.Worker.Count + 2; c.Postgres.MaxOpenConns < minConns {
		c.Postgres.MaxOpenConns = minConns
	}
	c.Sweeper.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()

	c.NodeName = strings.TrimSpace(c.NodeName)
	if c.NodeName == "" {
		if host, err := os.Hostname(); err == nil {
			c.NodeName = host
		}
	}

	switch strings.ToLower(os.Getenv("NODE_ENV")) {
	case "development", "dev":
		c.IsDev = true
	}
}

// GetEnabledServices parses Services.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	return err == nil && services[mode]
}

// IsHTTPEnabled reports whether the operator and pull API is served.
func (c *AppConfig) IsHTTPEnabled() bool { return c.serviceEnabled(ServiceModeHTTP) }

func (c *AppConfig) IsWorkerEnabled() bool { return c.serviceEnabled(ServiceModeWorker) }

func (c *AppConfig) IsSweeperEnabled() bool { return c.serviceEnabled(ServiceModeSweeper) }
