// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Corpus, Index, Feedback, Redis, Kafka, Postgres).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// CorpusConfig selects the document source and tokenizer settings.
type CorpusConfig struct {
	// Source is "dir" or "postgres".
	Source string `yaml:"source"`
	// Dir is the corpus directory when Source is "dir".
	Dir string `yaml:"dir"`
	// Table is the documents table when Source is "postgres".
	Table string `yaml:"table"`
	// DocType is "text" or "html".
	DocType string `yaml:"docType"`
	// Stem enables snowball stemming during tokenization.
	Stem bool `yaml:"stem"`
}

// IndexConfig controls retrieval scoring and the proximity strategy.
type IndexConfig struct {
	// ProximityStrategy is "nearest-pair" or "cover-span".
	ProximityStrategy string `yaml:"proximityStrategy"`
	// OrderPenalty multiplies pairwise distances whose occurrence order
	// contradicts the query term order. Must be > 1.
	OrderPenalty float64 `yaml:"orderPenalty"`
	// MaxDistance is the fallback distance charged when a query term never
	// occurs in a candidate document.
	MaxDistance float64 `yaml:"maxDistance"`
	// BuildWorkers bounds concurrent per-document tokenization during the
	// indexing pass. 0 means GOMAXPROCS.
	BuildWorkers int `yaml:"buildWorkers"`
}

// SearchConfig bounds the number of results the HTTP API returns.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxResults   int `yaml:"maxResults"`
}

// FeedbackConfig holds the Rocchio reformulation weights.
type FeedbackConfig struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	Gamma float64 `yaml:"gamma"`
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	QueryEvents string `yaml:"queryEvents"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values fall back to defaults suitable for local use.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Corpus: CorpusConfig{
			Source:  "dir",
			Dir:     "corpus",
			Table:   "documents",
			DocType: "text",
			Stem:    false,
		},
		Index: IndexConfig{
			ProximityStrategy: "nearest-pair",
			OrderPenalty:      2.0,
			MaxDistance:       1000.0,
			BuildWorkers:      0,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
		},
		Feedback: FeedbackConfig{
			Alpha: 1.0,
			Beta:  1.0,
			Gamma: 1.0,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "ir-group",
			Topics: KafkaTopics{
				QueryEvents: "query-events",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "ir",
			User:            "ir",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

func (c *Config) validate() error {
	switch c.Corpus.Source {
	case "dir", "postgres":
	default:
		return fmt.Errorf("corpus.source must be \"dir\" or \"postgres\", got %q", c.Corpus.Source)
	}
	switch c.Corpus.DocType {
	case "text", "html":
	default:
		return fmt.Errorf("corpus.docType must be \"text\" or \"html\", got %q", c.Corpus.DocType)
	}
	switch c.Index.ProximityStrategy {
	case "nearest-pair", "cover-span":
	default:
		return fmt.Errorf("index.proximityStrategy must be \"nearest-pair\" or \"cover-span\", got %q",
			c.Index.ProximityStrategy)
	}
	if c.Index.OrderPenalty <= 1 {
		return fmt.Errorf("index.orderPenalty must be > 1, got %v", c.Index.OrderPenalty)
	}
	if c.Index.MaxDistance <= 0 {
		return fmt.Errorf("index.maxDistance must be positive, got %v", c.Index.MaxDistance)
	}
	if c.Feedback.Alpha < 0 || c.Feedback.Beta < 0 || c.Feedback.Gamma < 0 {
		return fmt.Errorf("feedback weights must be non-negative")
	}
	if c.Search.DefaultLimit < 1 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search limits must satisfy 1 <= defaultLimit <= maxResults")
	}
	return nil
}

// applyEnvOverrides reads IR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("IR_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("IR_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("IR_CORPUS_DOCTYPE"); v != "" {
		cfg.Corpus.DocType = v
	}
	if v := os.Getenv("IR_CORPUS_STEM"); v != "" {
		if stem, err := strconv.ParseBool(v); err == nil {
			cfg.Corpus.Stem = stem
		}
	}
	if v := os.Getenv("IR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("IR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("IR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("IR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("IR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("IR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("IR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("IR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("IR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
