package appstate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the store settings that deployments tune without code
// changes. It can be loaded from the environment or from a YAML file.
type Config struct {
	// RetainedFields are kept from history snapshots on top of the session
	// fields (cart, user, menu, tabs).
	RetainedFields []string `env:"APPSTATE_RETAINED_FIELDS" envSeparator:"," yaml:"retained_fields"`
	// RuleEngine selects the evaluator for Rules: expr, cel or js.
	RuleEngine string `env:"APPSTATE_RULE_ENGINE" yaml:"rule_engine"`
	// Rules maps a field to an applicability expression.
	Rules map[string]string `yaml:"rules"`
	// DeferPop runs the second phase of a history pop on the next tick.
	DeferPop bool           `env:"APPSTATE_DEFER_POP" yaml:"defer_pop"`
	Activity ActivityConfig `envPrefix:"APPSTATE_ACTIVITY_" yaml:"activity"`
}

// ActivityConfig controls activity emission.
type ActivityConfig struct {
	Enabled bool   `env:"ENABLED" yaml:"enabled"`
	Channel string `env:"CHANNEL" yaml:"channel"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		RuleEngine: RuleEngineExpr,
		DeferPop:   true,
		Activity: ActivityConfig{
			Enabled: true,
			Channel: "storefront",
		},
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(strings.TrimSpace(c.RuleEngine)) {
	case "", RuleEngineExpr, RuleEngineCEL, RuleEngineJS:
	default:
		errs = append(errs, fmt.Errorf("unknown rule engine %q", c.RuleEngine))
	}
	for field, expr := range c.Rules {
		if strings.TrimSpace(field) == "" {
			errs = append(errs, errors.New("rule with empty field name"))
		}
		if strings.TrimSpace(expr) == "" {
			errs = append(errs, fmt.Errorf("rule for %q is empty", field))
		}
	}
	for _, field := range c.RetainedFields {
		if strings.TrimSpace(field) == "" {
			errs = append(errs, errors.New("empty retained field name"))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("appstate: config: %w", errors.Join(errs...))
}

// LoadConfigFromEnv overlays APPSTATE_* environment variables on the
// defaults.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("appstate: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML config file on top of the defaults.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("appstate: read config %q: %w", path, err)
	}
	cfg, err := ParseConfig(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("appstate: config %q: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML from r on top of the defaults. Unknown keys are
// rejected.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("appstate: decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithConfig applies a Config to the store.
func WithConfig(cfg Config) Option {
	return func(sc *storeConfig) {
		sc.retained = append(sc.retained, cfg.RetainedFields...)
		sc.ruleEngine = cfg.RuleEngine
		for field, expr := range cfg.Rules {
			if sc.rules == nil {
				sc.rules = map[string]string{}
			}
			sc.rules[field] = expr
		}
		sc.deferPop = cfg.DeferPop
		sc.activity = cfg.Activity
	}
}
