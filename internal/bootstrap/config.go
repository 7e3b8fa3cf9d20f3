package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/target/mmk-ce-queue/config"
)

// InitLogger installs the process logger. Dev mode logs text at debug, other
// modes log JSON at info; a valid LOG_LEVEL overrides either default.
func InitLogger(cfg *config.AppConfig) *slog.Logger {
	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, cfg *config.AppConfig) *slog.Logger {
	var (
		dev   bool
		level = slog.LevelInfo
		raw   string
	)
	if cfg != nil {
		dev = cfg.IsDev
		raw = strings.TrimSpace(cfg.LogLevel)
	}
	if dev {
		level = slog.LevelDebug
	}

	var badLevel error
	if raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			badLevel = err
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var logger *slog.Logger
	if dev {
		logger = slog.New(slog.NewTextHandler(w, opts))
	} else {
		logger = slog.New(slog.NewJSONHandler(w, opts))
	}
	if badLevel != nil {
		logger.Warn("ignoring LOG_LEVEL", "value", raw, "error", badLevel)
	}
	return logger
}

// LoadConfig reads an optional dotenv file (ENV_FILE, default .env) and then
// parses the environment into AppConfig.
func LoadConfig() (config.AppConfig, error) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.AppConfig{}, fmt.Errorf("load %s: %w", path, err)
	}

	cfg, err := env.ParseAs[config.AppConfig]()
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig checks SERVICES and what each enabled service needs.
// Workers hand tasks to the analyzer, so they require WORKER_DISPATCH_URL.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	enabled, err := cfg.GetEnabledServices()
	switch {
	case err != nil:
		return fmt.Errorf("invalid service configuration: %w", err)
	case len(enabled) == 0:
		return errors.New("no services enabled")
	case enabled[config.ServiceModeWorker] && cfg.Worker.DispatchURL == "":
		return errors.New("worker service requires WORKER_DISPATCH_URL")
	}
	return nil
}

// GetEnabledServices lists enabled services in canonical order. An invalid
// SERVICES value yields an empty list; ValidateServiceConfig reports it.
func GetEnabledServices(cfg *config.AppConfig) []string {
	names := []string{}
	if cfg == nil {
		return names
	}
	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return names
	}
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			names = append(names, string(mode))
		}
	}
	return names
}
