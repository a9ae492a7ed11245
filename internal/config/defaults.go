package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.SnapshotDir == "" {
		cfg.Storage.SnapshotDir = "/usr/local/var/formmind/data/vector_store"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/formmind/data/db/forms.db"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.QA.TopK == 0 {
		cfg.QA.TopK = 3
	}
	if cfg.Summary.ChunkChars == 0 {
		cfg.Summary.ChunkChars = 1200
	}
	if cfg.Inbox.Extensions == nil {
		cfg.Inbox.Extensions = []string{".pdf", ".docx", ".xlsx", ".txt", ".md", ".csv"}
	}
}
