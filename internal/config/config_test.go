package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.AI.Embedding.Provider != "mock" {
		t.Errorf("expected default provider mock, got %s", cfg.AI.Embedding.Provider)
	}
	if cfg.AI.Embedding.Dimensions != 1536 {
		t.Errorf("expected default dimensions 1536, got %d", cfg.AI.Embedding.Dimensions)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Retrieval.MinScore != 0.70 {
		t.Errorf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Ingest.EmbedBatchSize != 64 {
		t.Errorf("expected default embed batch size 64, got %d", cfg.Ingest.EmbedBatchSize)
	}
	if cfg.Elastic.IndexName != "askbase_qa" {
		t.Errorf("unexpected default index name: %s", cfg.Elastic.IndexName)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9001
retrieval:
  topK: 3
  minScore: 0.8
admin:
  password: test-password
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Server.Port)
	}
	if cfg.Retrieval.TopK != 3 || cfg.Retrieval.MinScore != 0.8 {
		t.Errorf("unexpected retrieval config: %+v", cfg.Retrieval)
	}
	if cfg.Admin.Password != "test-password" {
		t.Errorf("unexpected admin password: %q", cfg.Admin.Password)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:   "合法配置",
			mutate: func(c *Config) {},
		},
		{
			name:    "维度非正",
			mutate:  func(c *Config) { c.AI.Embedding.Dimensions = 0 },
			wantErr: true,
		},
		{
			name:    "阈值越界",
			mutate:  func(c *Config) { c.Retrieval.MinScore = 1.5 },
			wantErr: true,
		},
		{
			name:    "批大小越界",
			mutate:  func(c *Config) { c.Ingest.EmbedBatchSize = 200 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.AI.Embedding.Dimensions = 1536
			cfg.Retrieval.MinScore = 0.7
			cfg.Ingest.EmbedBatchSize = 64
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
