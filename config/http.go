package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP API server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// APIToken, when set, must be presented as a bearer token on /api routes.
	APIToken string `env:"HTTP_API_TOKEN"`

	// MaxPeekWait caps the long-poll wait a remote worker may request.
	MaxPeekWait time.Duration `env:"HTTP_MAX_PEEK_WAIT" envDefault:"30s"`

	// ShutdownTimeout bounds graceful server shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	h.APIToken = strings.TrimSpace(h.APIToken)
	if h.MaxPeekWait < 0 {
		h.MaxPeekWait = 0
	}
	if h.MaxPeekWait > 5*time.Minute {
		h.MaxPeekWait = 5 * time.Minute
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}
