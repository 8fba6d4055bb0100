package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/sherifkozman/red-council/internal/types"
)

// Loader handles loading configuration from files.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

type viperLoader struct {
	validator Validator
}

// NewLoader creates a Loader backed by viper.
func NewLoader(validator Validator) Loader {
	return &viperLoader{validator: validator}
}

// Load reads, migrates, interpolates, and validates the settings file at
// path. The file must exist.
func (l *viperLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read settings file", err)
	}

	raw := v.AllSettings()
	migrated, err := Migrate(raw)
	if err != nil {
		return nil, err
	}
	interpolated, ok := interpolateEnvVars(migrated).(map[string]any)
	if !ok {
		return nil, types.NewError(types.CONFIG_PARSE_FAILED, "settings root is not a mapping")
	}

	merged := viper.New()
	if err := merged.MergeConfigMap(interpolated); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to merge settings", err)
	}

	cfg := DefaultConfig()
	if err := merged.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to unmarshal settings", err)
	}

	if err := l.validator.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults behaves like Load but returns the default configuration
// when the file does not exist.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return l.Load(path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateEnvVars recursively replaces ${VAR_NAME} in string values with
// the environment variable's value. Unset variables interpolate to the empty
// string.
func interpolateEnvVars(data any) any {
	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			result[key] = interpolateEnvVars(value)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, value := range v {
			result[i] = interpolateEnvVars(value)
		}
		return result
	case string:
		return envVarPattern.ReplaceAllStringFunc(v, func(match string) string {
			name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
			return os.Getenv(name)
		})
	default:
		return v
	}
}

// Migrate rewrites a raw settings map from an older schema version to the
// current one. The version key is stamped on the result. Files newer than
// this build are rejected rather than silently misread.
func Migrate(raw map[string]any) (map[string]any, error) {
	version := schemaVersionOf(raw)
	if version > SchemaVersion {
		return nil, types.NewError(types.CONFIG_MIGRATION_FAILED,
			fmt.Sprintf("settings schema version %d is newer than supported version %d", version, SchemaVersion))
	}

	for version < SchemaVersion {
		migrate, ok := migrations[version]
		if !ok {
			return nil, types.NewError(types.CONFIG_MIGRATION_FAILED,
				fmt.Sprintf("no migration from settings schema version %d", version))
		}
		raw = migrate(raw)
		version++
	}
	raw["version"] = SchemaVersion
	return raw, nil
}

// migrations maps a source schema version to the rewrite producing the next
// version.
var migrations = map[int]func(map[string]any) map[string]any{
	0: migrateV0toV1,
	1: migrateV1toV2,
}

// migrateV0toV1 lifts the original flat keys into sections. Version 0 files
// predate the version key entirely.
func migrateV0toV1(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	campaignSection := map[string]any{}
	for key, value := range raw {
		switch key {
		case "delay_ms":
			if ms, ok := asInt(value); ok {
				campaignSection["delay_between_attacks"] = fmt.Sprintf("%dms", ms)
			}
		case "debug":
			out["core"] = map[string]any{"debug": value}
		default:
			out[key] = value
		}
	}
	if len(campaignSection) > 0 {
		out["campaign"] = campaignSection
	}
	return out
}

// migrateV1toV2 turns the single api_key/model/provider triple into the
// providers map plus a target reference.
func migrateV1toV2(raw map[string]any) map[string]any {
	providerName, _ := raw["provider"].(string)
	if providerName == "" {
		return raw
	}

	entry := map[string]any{"type": providerName}
	if key, ok := raw["api_key"].(string); ok && key != "" {
		entry["api_key"] = key
	}
	model, _ := raw["model"].(string)
	if model != "" {
		entry["model"] = model
	}

	out := make(map[string]any, len(raw))
	for key, value := range raw {
		switch key {
		case "provider", "api_key", "model":
		default:
			out[key] = value
		}
	}
	out["providers"] = map[string]any{providerName: entry}
	out["target"] = map[string]any{"provider": providerName, "model": model}
	return out
}

func schemaVersionOf(raw map[string]any) int {
	if v, ok := asInt(raw["version"]); ok {
		return v
	}
	return 0
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
