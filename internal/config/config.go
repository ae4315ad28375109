package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file looked up in the working directory
// when --config is not given.
const DefaultConfigFile = "cvranon.yaml"

// Aggregation policies.
const (
	PolicySingle     = "single"
	PolicySimilarity = "similarity"
)

// ValidPolicies lists all supported aggregation policies.
var ValidPolicies = []string{PolicySingle, PolicySimilarity}

// Config holds all cvranon configuration.
type Config struct {
	// Anonymization engine settings
	Anonymize AnonymizeConfig `yaml:"anonymize"`

	// Output file handling
	Output OutputConfig `yaml:"output"`

	// Run ledger
	Ledger LedgerConfig `yaml:"ledger"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// AnonymizeConfig configures the aggregation engine.
type AnonymizeConfig struct {
	MinBallots        int    `yaml:"min_ballots"`
	StyleColumn       int    `yaml:"style_column"`        // index of the declared style field
	HeaderLength      int    `yaml:"header_length"`       // identifying columns before the vote columns
	StylePrefixLength int    `yaml:"style_prefix_length"` // 0 = use the whole declared style value
	Policy            string `yaml:"policy"`              // single, similarity
}

// OutputConfig configures how anonymized files are written.
type OutputConfig struct {
	PreserveLineTerminator bool `yaml:"preserve_line_terminator"`
}

// LedgerConfig configures the SQLite run ledger.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Anonymize: AnonymizeConfig{
			MinBallots:   10,
			StyleColumn:  6,
			HeaderLength: 8,
			Policy:       PolicySingle,
		},
		Output: OutputConfig{
			PreserveLineTerminator: true,
		},
		Ledger: LedgerConfig{
			Enabled: false,
			Path:    filepath.Join(".cvranon", "ledger.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CVRANON_MIN_BALLOTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Anonymize.MinBallots = n
		}
	}
	if v := os.Getenv("CVRANON_POLICY"); v != "" {
		c.Anonymize.Policy = v
	}
	if v := os.Getenv("CVRANON_LEDGER"); v != "" {
		c.Ledger.Enabled = true
		c.Ledger.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	a := c.Anonymize
	if a.MinBallots <= 0 {
		return fmt.Errorf("min_ballots must be positive, got %d", a.MinBallots)
	}
	if a.HeaderLength <= 0 {
		return fmt.Errorf("header_length must be positive, got %d", a.HeaderLength)
	}
	if a.StyleColumn < 0 || a.StyleColumn >= a.HeaderLength {
		return fmt.Errorf("style_column %d must fall inside the %d identifying columns", a.StyleColumn, a.HeaderLength)
	}
	if a.StylePrefixLength < 0 {
		return fmt.Errorf("style_prefix_length must not be negative, got %d", a.StylePrefixLength)
	}

	validPolicy := false
	for _, p := range ValidPolicies {
		if a.Policy == p {
			validPolicy = true
			break
		}
	}
	if !validPolicy {
		return fmt.Errorf("invalid aggregation policy: %s (valid: %v)", a.Policy, ValidPolicies)
	}

	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("ledger enabled but no ledger path configured")
	}

	return nil
}
