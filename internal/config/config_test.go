package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `
debug: true
server:
  host: 0.0.0.0
  port: 9090
storage:
  snapshot_dir: /tmp/formmind/vectors
  database_path: /tmp/formmind/forms.db
embedding:
  model: text-embedding-3-large
  dimensions: 3072
  cache_size: 500
generation:
  model: gpt-4o
qa:
  top_k: 5
summary:
  chunk_chars: 800
inbox:
  directory: /tmp/formmind/inbox
  extensions: [".pdf"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Storage.SnapshotDir != "/tmp/formmind/vectors" {
		t.Errorf("SnapshotDir = %q", cfg.Storage.SnapshotDir)
	}
	if cfg.Embedding.Model != "text-embedding-3-large" || cfg.Embedding.Dimensions != 3072 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Embedding.CacheSize != 500 {
		t.Errorf("CacheSize = %d", cfg.Embedding.CacheSize)
	}
	if cfg.Generation.Model != "gpt-4o" {
		t.Errorf("generation model = %q", cfg.Generation.Model)
	}
	if cfg.QA.TopK != 5 {
		t.Errorf("TopK = %d", cfg.QA.TopK)
	}
	if cfg.Summary.ChunkChars != 800 {
		t.Errorf("ChunkChars = %d", cfg.Summary.ChunkChars)
	}
	if cfg.Inbox.Directory != "/tmp/formmind/inbox" {
		t.Errorf("inbox dir = %q", cfg.Inbox.Directory)
	}
	if len(cfg.Inbox.Extensions) != 1 || cfg.Inbox.Extensions[0] != ".pdf" {
		t.Errorf("extensions = %v", cfg.Inbox.Extensions)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("embedding model default = %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.CacheSize != 10000 {
		t.Errorf("cache size default = %d", cfg.Embedding.CacheSize)
	}
	if cfg.Generation.Model != "gpt-4o-mini" {
		t.Errorf("generation model default = %q", cfg.Generation.Model)
	}
	if cfg.QA.TopK != 3 {
		t.Errorf("top_k default = %d", cfg.QA.TopK)
	}
	if cfg.Summary.ChunkChars != 1200 {
		t.Errorf("chunk chars default = %d", cfg.Summary.ChunkChars)
	}
	if len(cfg.Inbox.Extensions) == 0 {
		t.Error("inbox extensions should default to the supported set")
	}
	if cfg.Inbox.Directory != "" {
		t.Errorf("inbox should be disabled by default, got %q", cfg.Inbox.Directory)
	}
}

func TestLoad_RelativePathsResolveAgainstConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  snapshot_dir: ./data/vectors
  database_path: ./data/forms.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "data/vectors")
	if cfg.Storage.SnapshotDir != want {
		t.Errorf("SnapshotDir = %q, want %q", cfg.Storage.SnapshotDir, want)
	}
	want = filepath.Join(dir, "data/forms.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("DatabasePath = %q, want %q", cfg.Storage.DatabasePath, want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [not a map")); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
