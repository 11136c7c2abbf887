// Package config defines all configuration structures for the CiteRank
// engine.  No I/O or parsing logic lives here — only plain data types and
// validation.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// GraphConfig holds in-memory citation-graph store parameters.
type GraphConfig struct {
	// StrictEndpoints rejects citations whose endpoints are not yet loaded
	// instead of auto-creating stub nodes flagged for later enrichment.
	// The default ingestion path (false) auto-creates stubs.
	StrictEndpoints bool `mapstructure:"strict_endpoints"`
}

// FusionWeights holds the relative contribution of each ranking signal to
// the composite score.  The four weights must sum to 1.
type FusionWeights struct {
	PageRank  float64 `mapstructure:"pagerank"`
	Authority float64 `mapstructure:"authority"`
	Temporal  float64 `mapstructure:"temporal"`
	Citations float64 `mapstructure:"citations"`
}

// RankingConfig holds the tunables of the ranking calculators.
type RankingConfig struct {
	Damping             float64       `mapstructure:"damping"`
	Tolerance           float64       `mapstructure:"tolerance"`
	MaxIterations       int           `mapstructure:"max_iterations"`
	HalfLifeYears       float64       `mapstructure:"half_life_years"`
	VelocityWindowYears float64       `mapstructure:"velocity_window_years"`
	Weights             FusionWeights `mapstructure:"weights"`
	MaxChainHops        int           `mapstructure:"max_chain_hops"`
	// StrengthWeighted makes PageRank propagation proportional to edge
	// authority strength instead of uniform over out-citations.
	StrengthWeighted bool `mapstructure:"strength_weighted"`
}

// KafkaConfig holds Apache Kafka consumer/producer parameters for the
// citation-event feed.
type KafkaConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Brokers     []string      `mapstructure:"brokers"`
	GroupID     string        `mapstructure:"group_id"`
	StartOffset string        `mapstructure:"start_offset"` // "earliest" | "latest"
	MaxWait     time.Duration `mapstructure:"max_wait"`
	MinBytes    int           `mapstructure:"min_bytes"`
	MaxBytes    int           `mapstructure:"max_bytes"`
}

// SpoolConfig holds file-drop ingestion parameters.
type SpoolConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Dir      string        `mapstructure:"dir"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// IngestConfig groups the two citation-event sources.
type IngestConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
	Spool SpoolConfig `mapstructure:"spool"`
}

// Neo4jConfig holds Neo4j durable-graph connection parameters.
type Neo4jConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	Database              string        `mapstructure:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
}

// PostgresConfig holds case-metadata warehouse connection parameters.
type PostgresConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RedisConfig holds score-cache connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	ScoreTTL     time.Duration `mapstructure:"score_ttl"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	RecomputeDebounce  time.Duration `mapstructure:"recompute_debounce"`
	EnrichmentInterval time.Duration `mapstructure:"enrichment_interval"`
	BatchSize          int           `mapstructure:"batch_size"`
	HealthPort         int           `mapstructure:"health_port"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the engine.  Every
// infrastructure component and application service reads its settings from
// the relevant sub-struct.
type Config struct {
	Log      logging.LogConfig `mapstructure:"log"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Graph    GraphConfig       `mapstructure:"graph"`
	Ranking  RankingConfig     `mapstructure:"ranking"`
	Ingest   IngestConfig      `mapstructure:"ingest"`
	Neo4j    Neo4jConfig       `mapstructure:"neo4j"`
	Postgres PostgresConfig    `mapstructure:"postgres"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Worker   WorkerConfig      `mapstructure:"worker"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// weightSumTolerance bounds the allowed drift of the fusion-weight sum from 1
// so that hand-written YAML like 0.4+0.3+0.2+0.1 passes despite float repr.
const weightSumTolerance = 1e-9

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.  Disabled external adapters are
// not validated, so a standalone engine needs nothing beyond the ranking
// section.
func (c *Config) Validate() error {
	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Ranking
	r := c.Ranking
	if r.Damping <= 0 || r.Damping >= 1 {
		return fmt.Errorf("config: ranking.damping %v is out of range (0, 1)", r.Damping)
	}
	if r.Tolerance <= 0 {
		return fmt.Errorf("config: ranking.tolerance must be > 0, got %v", r.Tolerance)
	}
	if r.MaxIterations < 1 {
		return fmt.Errorf("config: ranking.max_iterations must be ≥ 1, got %d", r.MaxIterations)
	}
	if r.HalfLifeYears <= 0 {
		return fmt.Errorf("config: ranking.half_life_years must be > 0, got %v", r.HalfLifeYears)
	}
	if r.VelocityWindowYears <= 0 {
		return fmt.Errorf("config: ranking.velocity_window_years must be > 0, got %v", r.VelocityWindowYears)
	}
	w := r.Weights
	for name, val := range map[string]float64{
		"pagerank":  w.PageRank,
		"authority": w.Authority,
		"temporal":  w.Temporal,
		"citations": w.Citations,
	} {
		if val < 0 {
			return fmt.Errorf("config: ranking.weights.%s must be ≥ 0, got %v", name, val)
		}
	}
	if sum := w.PageRank + w.Authority + w.Temporal + w.Citations; math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("config: ranking.weights must sum to 1, got %v", sum)
	}
	if r.MaxChainHops < 1 {
		return fmt.Errorf("config: ranking.max_chain_hops must be ≥ 1, got %d", r.MaxChainHops)
	}

	// Ingest / Kafka
	if k := c.Ingest.Kafka; k.Enabled {
		if len(k.Brokers) == 0 {
			return fmt.Errorf("config: ingest.kafka.brokers must contain at least one broker address")
		}
		if k.GroupID == "" {
			return fmt.Errorf("config: ingest.kafka.group_id is required")
		}
		switch k.StartOffset {
		case "earliest", "latest":
		default:
			return fmt.Errorf("config: ingest.kafka.start_offset %q is invalid; expected earliest|latest", k.StartOffset)
		}
	}

	// Ingest / Spool
	if s := c.Ingest.Spool; s.Enabled {
		if s.Dir == "" {
			return fmt.Errorf("config: ingest.spool.dir is required")
		}
		if s.Debounce <= 0 {
			return fmt.Errorf("config: ingest.spool.debounce must be > 0, got %v", s.Debounce)
		}
	}

	// Neo4j
	if n := c.Neo4j; n.Enabled {
		if n.URI == "" {
			return fmt.Errorf("config: neo4j.uri is required")
		}
		if n.User == "" {
			return fmt.Errorf("config: neo4j.user is required")
		}
	}

	// Postgres
	if p := c.Postgres; p.Enabled {
		if p.Host == "" {
			return fmt.Errorf("config: postgres.host is required")
		}
		if p.Port < 1 || p.Port > 65535 {
			return fmt.Errorf("config: postgres.port %d is out of range [1, 65535]", p.Port)
		}
		if p.User == "" {
			return fmt.Errorf("config: postgres.user is required")
		}
		if p.DBName == "" {
			return fmt.Errorf("config: postgres.db_name is required")
		}
		if p.MaxConns < 1 {
			return fmt.Errorf("config: postgres.max_conns must be ≥ 1, got %d", p.MaxConns)
		}
	}

	// Redis
	if rd := c.Redis; rd.Enabled {
		if rd.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if rd.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", rd.DB)
		}
	}

	// Worker
	if c.Worker.RecomputeDebounce <= 0 {
		return fmt.Errorf("config: worker.recompute_debounce must be > 0, got %v", c.Worker.RecomputeDebounce)
	}
	if c.Worker.EnrichmentInterval <= 0 {
		return fmt.Errorf("config: worker.enrichment_interval must be > 0, got %v", c.Worker.EnrichmentInterval)
	}
	if c.Worker.BatchSize < 1 {
		return fmt.Errorf("config: worker.batch_size must be ≥ 1, got %d", c.Worker.BatchSize)
	}
	if c.Worker.HealthPort < 1 || c.Worker.HealthPort > 65535 {
		return fmt.Errorf("config: worker.health_port %d is out of range [1, 65535]", c.Worker.HealthPort)
	}

	return nil
}
