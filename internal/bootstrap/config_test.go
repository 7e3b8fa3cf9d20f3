package bootstrap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/target/mmk-ce-queue/config"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name       string
		cfg        *config.AppConfig
		debugShown bool
		infoShown  bool
		json       bool
	}{
		{name: "nil config", cfg: nil, infoShown: true, json: true},
		{name: "production", cfg: &config.AppConfig{}, infoShown: true, json: true},
		{name: "dev", cfg: &config.AppConfig{IsDev: true}, debugShown: true, infoShown: true},
		{name: "override", cfg: &config.AppConfig{LogLevel: "warn"}, json: true},
		{name: "override in dev", cfg: &config.AppConfig{IsDev: true, LogLevel: "INFO"}, infoShown: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.cfg)

			logger.Debug("debug-line")
			assert.Equal(t, tt.debugShown, bytes.Contains(buf.Bytes(), []byte("debug-line")))
			logger.Info("info-line")
			assert.Equal(t, tt.infoShown, bytes.Contains(buf.Bytes(), []byte("info-line")))
			logger.Error("error-line")
			if tt.json {
				assert.Contains(t, buf.String(), `"msg":"error-line"`)
			} else {
				assert.Contains(t, buf.String(), "msg=error-line")
			}
		})
	}
}

func TestNewLogger_BadLevelWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.AppConfig{LogLevel: "loud"})

	assert.Contains(t, buf.String(), "ignoring LOG_LEVEL")
	buf.Reset()
	logger.Info("still-info")
	assert.Contains(t, buf.String(), "still-info")
}

func TestLoadConfig_EnvFile(t *testing.T) {
	t.Setenv("ENV_FILE", t.TempDir()+"/missing.env")
	t.Setenv("SERVICES", "sweeper")
	t.Setenv("NODE_NAME", "node-x")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "sweeper", cfg.Services)
	assert.Equal(t, "node-x", cfg.NodeName)
}
