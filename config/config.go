package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/ecas/core/formulation"
	"github.com/kilianp07/ecas/core/metrics"
	"github.com/kilianp07/ecas/infra/mqtt"
	"github.com/kilianp07/ecas/infra/runlog"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. ECAS_SOLVER__THREADS=4.
const EnvPrefix = "ECAS_"

type Config struct {
	Model   formulation.Options `json:"model"`
	Solver  SolverConfig        `json:"solver"`
	Metrics metrics.Config      `json:"metrics"`
	RunLog  runlog.Config       `json:"run_log"`
	Prices  PricesConfig        `json:"prices"`
	MQTT    mqtt.Config         `json:"mqtt"`
	Sentry  SentryConfig        `json:"sentry"`
}

// Load reads the configuration file at path, applies environment overrides,
// defaults and validation. An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Model.SetDefaults()
	c.Solver.SetDefaults()
	c.RunLog.SetDefaults()
	c.Prices.SetDefaults()
	c.MQTT.SetDefaults()
	c.Sentry.SetDefaults()
}

// Validate checks every section and names the failing one.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"model", c.Model.Validate},
		{"solver", c.Solver.Validate},
		{"run_log", c.RunLog.Validate},
		{"prices", c.Prices.Validate},
		{"metrics", c.Metrics.Validate},
		{"mqtt", c.MQTT.Validate},
		{"sentry", c.Sentry.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}
