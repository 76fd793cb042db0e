package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qquiche/ir/internal/analytics"
	"github.com/qquiche/ir/internal/corpus"
	"github.com/qquiche/ir/internal/feedback"
	"github.com/qquiche/ir/internal/index"
	"github.com/qquiche/ir/internal/server"
	"github.com/qquiche/ir/pkg/config"
	"github.com/qquiche/ir/pkg/health"
	"github.com/qquiche/ir/pkg/kafka"
	"github.com/qquiche/ir/pkg/logger"
	"github.com/qquiche/ir/pkg/metrics"
	"github.com/qquiche/ir/pkg/middleware"
	"github.com/qquiche/ir/pkg/postgres"
	pkgredis "github.com/qquiche/ir/pkg/redis"
	"github.com/qquiche/ir/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting retrieval service", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokCfg := corpus.Config{DocType: docType(cfg.Corpus.DocType), Stem: cfg.Corpus.Stem}
	var pgClient *postgres.Client
	var source corpus.Source
	switch cfg.Corpus.Source {
	case "postgres":
		pgClient, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgClient.Close()
		source = &corpus.PostgresSource{DB: pgClient.DB, Table: cfg.Corpus.Table, DocType: tokCfg.DocType}
	default:
		source = &corpus.DirSource{Dir: cfg.Corpus.Dir, DocType: tokCfg.DocType}
	}

	m := metrics.New()
	idx := index.New(source, tokCfg, index.Options{
		Proximity:    index.ProximityStrategy(cfg.Index.ProximityStrategy),
		OrderPenalty: cfg.Index.OrderPenalty,
		MaxDistance:  cfg.Index.MaxDistance,
		BuildWorkers: cfg.Index.BuildWorkers,
	})
	buildStart := time.Now()
	err = resilience.WithTimeout(ctx, "index-build", 10*time.Minute, func(ctx context.Context) error {
		return idx.Build(ctx)
	})
	if err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}
	m.IndexBuildSeconds.Observe(time.Since(buildStart).Seconds())
	m.DocsIndexed.Set(float64(idx.DocCount()))
	m.VocabularySize.Set(float64(idx.Size()))

	var resultCache *server.ResultCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, result caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		resultCache = server.NewResultCache(redisClient, cfg.Redis, tokCfg, m)
		slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
	defer producer.Close()
	aggregator := analytics.NewAggregator()
	collector := analytics.NewCollector(producer, aggregator, 10000)
	collector.Start(ctx)
	defer collector.Close()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if idx.Built() && idx.DocCount() > 0 {
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%d documents, %d terms", idx.DocCount(), idx.Size()),
			}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "index empty"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if pgClient != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pgClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	fbOpts := feedback.Options{Alpha: cfg.Feedback.Alpha, Beta: cfg.Feedback.Beta, Gamma: cfg.Feedback.Gamma}
	engine := server.NewEngine(idx, fbOpts, m)
	h := server.NewHandler(engine, resultCache, collector, m, tokCfg, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	var chain http.Handler = server.Routes(h, aggregator, checker)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("retrieval service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("retrieval service stopped")
}

func docType(s string) corpus.DocType {
	if s == "html" {
		return corpus.TypeHTML
	}
	return corpus.TypeText
}
