package config

import (
	"maps"
	"strings"
)

// ObservabilityConfig groups configuration that controls metrics emission.
type ObservabilityConfig struct {
	Metrics MetricsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
}

// MetricsConfig controls the statsd sink for queue depth, task throughput and
// pause gauges.
//
// OBSERVABILITY_METRICS_TAGS takes comma separated key:value pairs, e.g.
// "env:prod,region:us-east". Every metric also carries a node tag.
type MetricsConfig struct {
	Enabled       bool              `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string            `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string            `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"cequeue"`
	Tags          map[string]string `env:"OBSERVABILITY_METRICS_TAGS"           envKeyValSeparator:":" envSeparator:","`
}

// Sanitize trims the sink settings. An empty address turns metrics off.
func (c *MetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), ".")
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
	if len(c.Tags) == 0 {
		return
	}
	tags := make(map[string]string, len(c.Tags))
	for k, v := range c.Tags {
		if key := strings.TrimSpace(k); key != "" {
			tags[key] = strings.TrimSpace(v)
		}
	}
	c.Tags = tags
}

func (c *MetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// GlobalTags returns the configured tags plus node. An explicit node tag wins.
func (c *MetricsConfig) GlobalTags(node string) map[string]string {
	tags := make(map[string]string, len(c.Tags)+1)
	if node != "" {
		tags["node"] = node
	}
	maps.Copy(tags, c.Tags)
	return tags
}
