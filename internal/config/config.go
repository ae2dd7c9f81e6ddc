// Package config loads veil configuration from YAML. Secrets are never put
// in the file itself; each section names the environment variable that
// holds its API key.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets YAML carry human-readable values like "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or a bare integer
// (nanoseconds).
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var asInt int64
	if err := value.Decode(&asInt); err == nil {
		*d = Duration(asInt)
		return nil
	}
	var asString string
	if err := value.Decode(&asString); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(asString)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds veil configuration.
type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Storage  StorageConfig  `yaml:"storage"`
	Provider ProviderConfig `yaml:"provider"`
	Registry RegistryConfig `yaml:"registry"`
	Query    QueryConfig    `yaml:"query"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DetectorConfig struct {
	Mode      string   `yaml:"mode"`        // "local" (regex) or "remote"
	BaseURL   string   `yaml:"base_url"`    // detection service endpoint
	APIKeyEnv string   `yaml:"api_key_env"` // e.g. "VEIL_DETECT_API_KEY"
	Timeout   Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Mode string `yaml:"mode"` // "memory" or "sqlite"
	Path string `yaml:"path"` // document db path for sqlite mode

	Embedder EmbedderConfig `yaml:"embedder"`
}

type EmbedderConfig struct {
	Mode       string `yaml:"mode"`  // "hash" (offline) or "openai"
	Model      string `yaml:"model"` // openai embedding model
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Dimensions int    `yaml:"dimensions"` // hash mode only
}

type ProviderConfig struct {
	Type         string   `yaml:"type"` // "openai" or "fake"
	BaseURL      string   `yaml:"base_url"`
	APIKeyEnv    string   `yaml:"api_key_env"` // e.g. "OPENAI_API_KEY"
	Model        string   `yaml:"model"`
	SystemPrompt string   `yaml:"system_prompt"`
	Timeout      Duration `yaml:"timeout"`
}

type RegistryConfig struct {
	Path    string `yaml:"path"`    // registry db path; empty = in-memory only
	Session string `yaml:"session"` // tenant/session key within the db
}

type QueryConfig struct {
	TopK int `yaml:"top_k"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
	JSON  bool   `yaml:"json"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// APIKey resolves the named environment variable, empty if unset.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}

func applyDefaults(cfg *Config) {
	if cfg.Detector.Mode == "" {
		cfg.Detector.Mode = "local"
	}
	if cfg.Detector.Timeout <= 0 {
		cfg.Detector.Timeout = Duration(30 * time.Second)
	}

	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = "memory"
	}
	if cfg.Storage.Embedder.Mode == "" {
		cfg.Storage.Embedder.Mode = "hash"
	}
	if cfg.Storage.Embedder.Dimensions <= 0 {
		cfg.Storage.Embedder.Dimensions = 256
	}

	if cfg.Provider.Type == "" {
		cfg.Provider.Type = "fake"
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = Duration(60 * time.Second)
	}
	if cfg.Provider.SystemPrompt == "" {
		cfg.Provider.SystemPrompt = "You are a helpful support assistant. " +
			"Answer the user's question based only on the provided context. " +
			"Keep your answer concise."
	}

	if cfg.Registry.Session == "" {
		cfg.Registry.Session = "default"
	}

	if cfg.Query.TopK <= 0 {
		cfg.Query.TopK = 2
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
