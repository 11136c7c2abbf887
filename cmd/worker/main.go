// Command citerank-worker is the long-running ranking daemon.  It ingests
// citation events from Kafka and a local spool directory, keeps the in-memory
// citation graph current, recomputes score snapshots behind a debounce, and
// fans each published snapshot out to the Redis score cache, the Neo4j case
// graph, and the snapshot-published topic.  Every external adapter is
// optional: with everything disabled the worker still ranks whatever the
// spool feeds it.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/CiteRank-Engine/internal/application/ingest"
	"github.com/turtacn/CiteRank-Engine/internal/application/ranking"
	"github.com/turtacn/CiteRank-Engine/internal/config"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	neo4jdriver "github.com/turtacn/CiteRank-Engine/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/turtacn/CiteRank-Engine/internal/infrastructure/database/neo4j/repositories"
	pgconn "github.com/turtacn/CiteRank-Engine/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/CiteRank-Engine/internal/infrastructure/database/postgres/repositories"
	redisclient "github.com/turtacn/CiteRank-Engine/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/ingest/spool"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/prometheus"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: CITERANK_* environment)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

// run wires the engine together and blocks until the context is cancelled or
// a fatal component error occurs.  Adapters are torn down in reverse order of
// construction: event sources first, then publish hooks, then stores.
func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	collector, err := buildCollector(cfg.Metrics, logger)
	if err != nil {
		return err
	}
	rankMetrics := prometheus.NewRankingMetrics(collector)

	store := graph.NewStore(graph.StoreOptions{AutoCreateStubs: !cfg.Graph.StrictEndpoints})

	// ── Optional adapters ────────────────────────────────────────────────

	var warehouse *pgrepo.CaseMetadataRepo
	if cfg.Postgres.Enabled {
		pg, err := pgconn.NewConnection(ctx, cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(); err != nil {
			return err
		}
		warehouse = pgrepo.NewCaseMetadataRepo(pg.Pool(), logger)
	}

	var caseGraph *neo4jrepo.CaseGraphRepo
	if cfg.Neo4j.Enabled {
		driver, err := neo4jdriver.NewDriver(ctx, cfg.Neo4j, logger)
		if err != nil {
			return err
		}
		defer driver.Close(context.Background())
		caseGraph = neo4jrepo.NewCaseGraphRepo(driver, logger)
		if err := caseGraph.EnsureSchema(ctx); err != nil {
			return err
		}
		nodes, edges, err := caseGraph.LoadGraph(ctx, store)
		if err != nil {
			return err
		}
		logger.Info("warm-started graph from neo4j",
			logging.Int("nodes", nodes),
			logging.Int("edges", edges))
	}

	var scoreCache *redisclient.ScoreCache
	if cfg.Redis.Enabled {
		client, err := redisclient.NewClient(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		scoreCache = redisclient.NewScoreCache(client, cfg.Redis, logger)
	}

	var producer *kafka.Producer
	if cfg.Ingest.Kafka.Enabled {
		producer, err = kafka.NewProducer(cfg.Ingest.Kafka, logger)
		if err != nil {
			return err
		}
		defer producer.Close()
	}

	// ── Core engine ──────────────────────────────────────────────────────

	svc := ranking.NewService(store, cfg.Ranking, logger, rankMetrics)

	// Interface hooks start nil and only pick up concrete adapters that were
	// actually constructed, so a disabled adapter stays a true nil.
	var cacheHook ranking.SnapshotCache
	if scoreCache != nil {
		cacheHook = scoreCache
	}
	var scoresHook ranking.ScoreWriter
	if caseGraph != nil {
		scoresHook = caseGraph
	}
	var announceHook ranking.SnapshotAnnouncer
	if producer != nil {
		announceHook = producer
	}
	publisher := ranking.NewPublisher(svc, cacheHook, scoresHook, announceHook, logger, rankMetrics)

	scheduler := ranking.NewScheduler(publisher, cfg.Worker.RecomputeDebounce, logger)

	var sink ingest.MetadataSink
	if warehouse != nil {
		sink = warehouse
	}
	var mirror ingest.GraphMirror
	if caseGraph != nil {
		mirror = caseGraph
	}
	pipeline := ingest.NewPipeline(store, scheduler, sink, mirror, logger, rankMetrics)

	// ── Event sources ────────────────────────────────────────────────────

	if cfg.Ingest.Kafka.Enabled {
		if tm, err := kafka.NewTopicManager(cfg.Ingest.Kafka.Brokers, logger); err != nil {
			logger.Warn("topic manager unavailable, assuming topics exist", logging.Err(err))
		} else {
			if err := tm.EnsureDefaultTopics(ctx); err != nil {
				logger.Warn("failed to ensure default topics", logging.Err(err))
			}
			_ = tm.Close()
		}

		consumer, err := kafka.NewConsumer(cfg.Ingest.Kafka, nil, logger)
		if err != nil {
			return err
		}
		consumer.Subscribe(kafka.TopicCitationExtracted, func(ctx context.Context, msg *kafka.Message) error {
			_, err := pipeline.ApplyRaw(ctx, "kafka", msg.Value)
			return err
		})
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer consumer.Close()
	}

	if cfg.Ingest.Spool.Enabled {
		watcher, err := spool.NewWatcher(cfg.Ingest.Spool, pipeline, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Close()
	}

	// ── Background loops ─────────────────────────────────────────────────

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	if warehouse != nil {
		g.Go(func() error {
			return enrichLoop(gctx, pipeline, warehouse, cfg.Worker, logger)
		})
	}

	g.Go(func() error {
		return serveHealth(gctx, cfg.Worker.HealthPort, collector, svc, logger)
	})

	// Warm-started or empty, compute an initial snapshot so queries have
	// something to serve before the first event arrives.
	scheduler.Notify()

	logger.Info("worker started",
		logging.Bool("kafka", cfg.Ingest.Kafka.Enabled),
		logging.Bool("spool", cfg.Ingest.Spool.Enabled),
		logging.Bool("postgres", cfg.Postgres.Enabled),
		logging.Bool("neo4j", cfg.Neo4j.Enabled),
		logging.Bool("redis", cfg.Redis.Enabled),
		logging.Int("health_port", cfg.Worker.HealthPort))

	return g.Wait()
}

func buildCollector(cfg config.MetricsConfig, logger logging.Logger) (prometheus.MetricsCollector, error) {
	if !cfg.Enabled {
		return prometheus.NewNopCollector(), nil
	}
	return prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		Subsystem:            cfg.Subsystem,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
}

// enrichLoop periodically resolves stub cases against the metadata warehouse.
// Lookup failures are logged and retried on the next tick.
func enrichLoop(ctx context.Context, pipeline *ingest.Pipeline, warehouse *pgrepo.CaseMetadataRepo, cfg config.WorkerConfig, logger logging.Logger) error {
	ticker := time.NewTicker(cfg.EnrichmentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := pipeline.EnrichStubs(ctx, warehouse, cfg.BatchSize); err != nil {
				logger.Warn("stub enrichment pass failed", logging.Err(err))
			}
		}
	}
}

// serveHealth exposes liveness, readiness, and metrics endpoints.  Readiness
// requires a published snapshot so load balancers do not route queries to a
// worker that has not completed its first scoring pass.
func serveHealth(ctx context.Context, port int, collector prometheus.MetricsCollector, svc *ranking.Service, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if svc.Published() == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("no snapshot"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown failed", logging.Err(err))
		}
		return nil
	case err := <-errCh:
		return err
	}
}
