package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Index.ProximityStrategy != "nearest-pair" {
		t.Errorf("index.proximityStrategy = %q, want nearest-pair", cfg.Index.ProximityStrategy)
	}
	if cfg.Index.OrderPenalty != 2.0 || cfg.Index.MaxDistance != 1000.0 {
		t.Errorf("index scoring defaults = %+v", cfg.Index)
	}
	if cfg.Feedback.Alpha != 1.0 || cfg.Feedback.Beta != 1.0 || cfg.Feedback.Gamma != 1.0 {
		t.Errorf("feedback defaults = %+v", cfg.Feedback)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  port: 9999\nindex:\n  proximityStrategy: cover-span\ncorpus:\n  docType: html\n  stem: true\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Index.ProximityStrategy != "cover-span" {
		t.Errorf("index.proximityStrategy = %q, want cover-span", cfg.Index.ProximityStrategy)
	}
	if cfg.Corpus.DocType != "html" || !cfg.Corpus.Stem {
		t.Errorf("corpus = %+v", cfg.Corpus)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis.addr = %q, want default", cfg.Redis.Addr)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IR_CORPUS_DIR", "/data/corpus")
	t.Setenv("IR_CORPUS_STEM", "true")
	t.Setenv("IR_LOGGING_LEVEL", "debug")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Corpus.Dir != "/data/corpus" || !cfg.Corpus.Stem {
		t.Errorf("corpus = %+v", cfg.Corpus)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad source", "corpus:\n  source: ftp\n"},
		{"bad docType", "corpus:\n  docType: pdf\n"},
		{"bad strategy", "index:\n  proximityStrategy: random\n"},
		{"order penalty too low", "index:\n  orderPenalty: 1.0\n"},
		{"negative max distance", "index:\n  maxDistance: -5\n"},
		{"negative feedback weight", "feedback:\n  beta: -0.5\n"},
		{"limit above max", "search:\n  defaultLimit: 500\n  maxResults: 100\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("Load accepted invalid config")
			}
		})
	}
}
