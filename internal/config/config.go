// Package config loads and validates Red Council configuration. Settings live
// in a YAML file; string values can interpolate environment variables with
// ${VAR_NAME} syntax. Older settings files are migrated forward on load.
package config

import (
	"time"

	"github.com/sherifkozman/red-council/internal/llm"
)

// SchemaVersion is the settings schema this build reads and writes. Files
// with a lower version are migrated on load; a higher version is rejected.
const SchemaVersion = 2

// Config is the root configuration.
type Config struct {
	Version   int                           `mapstructure:"version" yaml:"version"`
	Core      CoreConfig                    `mapstructure:"core" yaml:"core"`
	Logging   LoggingConfig                 `mapstructure:"logging" yaml:"logging"`
	Campaign  CampaignConfig                `mapstructure:"campaign" yaml:"campaign"`
	Target    TargetConfig                  `mapstructure:"target" yaml:"target"`
	Providers map[string]llm.ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	HomeDir string `mapstructure:"home_dir" yaml:"home_dir"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	Debug   bool   `mapstructure:"debug" yaml:"debug"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// CampaignConfig tunes campaign execution.
type CampaignConfig struct {
	// DelayBetweenAttacks is the pause inserted after each attack when more
	// remain.
	DelayBetweenAttacks time.Duration `mapstructure:"delay_between_attacks" yaml:"delay_between_attacks" validate:"min=0"`

	// SnapshotStore selects where campaign snapshots persist.
	SnapshotStore string `mapstructure:"snapshot_store" yaml:"snapshot_store" validate:"oneof=file sqlite memory"`

	// HistoryLimit bounds the battle history; older records are pruned.
	// Zero keeps everything.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit" validate:"min=0"`

	// RequestsPerMinute caps provider calls. Zero disables throttling.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute" validate:"min=0"`

	Temperature float64 `mapstructure:"temperature" yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens" validate:"min=0"`
}

// TargetConfig names the provider entry campaigns run against.
type TargetConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// TargetProvider returns the configured target's provider config, or nil when
// the target names no known provider entry.
func (c *Config) TargetProvider() *llm.ProviderConfig {
	if c.Target.Provider == "" {
		return nil
	}
	pc, ok := c.Providers[c.Target.Provider]
	if !ok {
		return nil
	}
	if c.Target.Model != "" {
		pc.Model = c.Target.Model
	}
	return &pc
}
