// Package config provides configuration loading and structs for the FormMind server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	QA         QAConfig         `yaml:"qa"`
	Summary    SummaryConfig    `yaml:"summary"`
	Inbox      InboxConfig      `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

// StorageConfig holds paths for the snapshot directory and history database.
type StorageConfig struct {
	SnapshotDir  string `yaml:"snapshot_dir"`
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds embedding provider settings. The API key comes from
// the environment (FORMMIND_EMBEDDING_API_KEY, falling back to OPENAI_API_KEY),
// never from the config file.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// GenerationConfig holds generative model settings. The API key comes from
// the environment (FORMMIND_GENERATION_API_KEY, falling back to OPENAI_API_KEY).
type GenerationConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// QAConfig holds question-answering settings.
type QAConfig struct {
	TopK int `yaml:"top_k"`
}

// SummaryConfig holds summarization settings.
type SummaryConfig struct {
	ChunkChars int `yaml:"chunk_chars"`
}

// InboxConfig holds the watched ingestion directory settings. When Directory
// is empty the inbox watcher is disabled.
type InboxConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.SnapshotDir = expandPath(cfg.Storage.SnapshotDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Server.StaticDir != "" {
		cfg.Server.StaticDir = expandPath(cfg.Server.StaticDir, configDir)
	}
	if cfg.Inbox.Directory != "" {
		cfg.Inbox.Directory = expandPath(cfg.Inbox.Directory, configDir)
	}
	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
