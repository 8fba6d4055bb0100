package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sherifkozman/red-council/internal/llm"
)

// DefaultConfig returns the configuration used when no settings file exists.
func DefaultConfig() *Config {
	home := defaultHomeDir()
	return &Config{
		Version: SchemaVersion,
		Core: CoreConfig{
			HomeDir: home,
			DataDir: filepath.Join(home, "data"),
			Debug:   false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Campaign: CampaignConfig{
			DelayBetweenAttacks: time.Second,
			SnapshotStore:       "file",
			HistoryLimit:        100,
			RequestsPerMinute:   30,
			Temperature:         0.7,
			MaxTokens:           1024,
		},
		Target: TargetConfig{
			Provider: "anthropic",
		},
		Providers: map[string]llm.ProviderConfig{
			"anthropic": {
				Type:   llm.ProviderAnthropic,
				APIKey: "${ANTHROPIC_API_KEY}",
				Model:  "claude-3-5-sonnet-latest",
			},
			"openai": {
				Type:   llm.ProviderOpenAI,
				APIKey: "${OPENAI_API_KEY}",
				Model:  "gpt-4o",
			},
			"ollama": {
				Type:    llm.ProviderOllama,
				Model:   "llama3",
				BaseURL: "http://localhost:11434",
			},
		},
	}
}

func defaultHomeDir() string {
	if dir := os.Getenv("REDCOUNCIL_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".redcouncil"
	}
	return filepath.Join(home, ".redcouncil")
}
