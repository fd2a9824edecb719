// Package config loads the engine's declarative configuration
// document (spec §6): a YAML file with ${VAR:-default} environment
// substitution, recognized sections for execution inputs, rule packs,
// AI enrichment, correlation, grouping, and pattern tracking knobs.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the parsed configuration document.
type Config struct {
	Execution   ExecutionConfig   `yaml:"execution"`
	Rules       RulesConfig       `yaml:"rules"`
	AI          AIConfig          `yaml:"ai"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Grouping    GroupingConfig    `yaml:"grouping"`
	Pattern     PatternConfig     `yaml:"pattern"`
	Storage     StorageConfig     `yaml:"storage"`
}

// ExecutionConfig names the inputs to one analysis run.
type ExecutionConfig struct {
	Framework  string   `yaml:"framework"`
	SourceRoot string   `yaml:"source_root"`
	Logs       LogsConfig `yaml:"logs"`
}

// LogsConfig lists the automation (required) and application
// (optional) log sources for one run.
type LogsConfig struct {
	Automation  []string `yaml:"automation"`
	Application []string `yaml:"application"`
}

// RulesConfig names rule-pack directories/files plus inline overrides.
type RulesConfig struct {
	Paths     []string `yaml:"paths"`
	Overrides []string `yaml:"overrides"`
}

// AIConfig controls the optional enrichment layer.
type AIConfig struct {
	Enabled       bool    `yaml:"enabled"`
	TimeoutMS     int     `yaml:"timeout_ms"`
	MinConfidence float64 `yaml:"min_confidence"`
	Model         string  `yaml:"model"`
	APIKeyEnv     string  `yaml:"api_key_env"`
}

// CorrelationConfig holds the §4.7 correlation window knobs.
type CorrelationConfig struct {
	WindowSeconds   int64 `yaml:"window_seconds"`
	MinSharedTokens int   `yaml:"min_shared_tokens"`
}

// GroupingConfig holds the §4.10 grouper knobs.
type GroupingConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TimeWindowSeconds   int64   `yaml:"time_window_seconds"`
	MinGroupSize        int     `yaml:"min_group_size"`
}

// PatternConfig holds the §4.8 pattern-tracker knobs.
type PatternConfig struct {
	HashAlgo string `yaml:"hash_algo"`
	NCap     int64  `yaml:"n_cap"`
}

// StorageConfig selects in-memory (default) or distributed persistence
// and transport, generalizing the teacher's legacy/agentic split.
type StorageConfig struct {
	PostgresDSN     string   `yaml:"postgres_dsn"`
	RedpandaBrokers []string `yaml:"redpanda_brokers"`
}

// Load reads path, applies ${VAR:-default} substitution, parses it as
// YAML, fills in spec defaults, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	substituted := substituteEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the §4's "at least one automation source"
// invariant: a missing application source is a warning elsewhere, not
// a load-time error.
func (c *Config) Validate() error {
	if len(c.Execution.Logs.Automation) == 0 {
		return fmt.Errorf("execution.logs.automation: at least one automation log source is required")
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Execution.Framework == "" {
		c.Execution.Framework = "auto"
	}
	if c.Correlation.WindowSeconds == 0 {
		c.Correlation.WindowSeconds = 30
	}
	if c.Correlation.MinSharedTokens == 0 {
		c.Correlation.MinSharedTokens = 3
	}
	if c.Grouping.SimilarityThreshold == 0 {
		c.Grouping.SimilarityThreshold = 0.8
	}
	if c.Grouping.TimeWindowSeconds == 0 {
		c.Grouping.TimeWindowSeconds = 300
	}
	if c.Grouping.MinGroupSize == 0 {
		c.Grouping.MinGroupSize = 2
	}
	if c.Pattern.NCap == 0 {
		c.Pattern.NCap = 20
	}
	if c.Pattern.HashAlgo == "" {
		c.Pattern.HashAlgo = "sha256-16"
	}
	if c.AI.TimeoutMS == 0 {
		c.AI.TimeoutMS = 30_000
	}
	if c.AI.MinConfidence == 0 {
		c.AI.MinConfidence = 0.5
	}
}

// Distributed reports whether this config selects the distributed
// (Postgres + Redpanda) persistence/transport mode over the default
// in-memory mode.
func (c *Config) Distributed() bool {
	return len(c.Storage.RedpandaBrokers) > 0 || c.Storage.PostgresDSN != ""
}

var envSubstPattern = regexp.MustCompile(`\$\{(\w+)(:-([^}]*))?\}`)

// substituteEnv replaces ${VAR:-default} occurrences with the
// environment variable's value, or default when unset/empty.
func substituteEnv(raw string) string {
	return envSubstPattern.ReplaceAllStringFunc(raw, func(match string) string {
		groups := envSubstPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[3]
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
		return def
	})
}
