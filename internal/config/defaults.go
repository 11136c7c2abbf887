// Package config provides configuration loading, defaults, and validation
// for the CiteRank engine.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "citerank"

	// Ranking algorithm defaults.  HalfLifeYears of 20 gives the temporal
	// decay constant λ = ln(2)/20 ≈ 0.0347 per year.
	DefaultDamping             = 0.85
	DefaultTolerance           = 1e-6
	DefaultMaxIterations       = 100
	DefaultHalfLifeYears       = 20.0
	DefaultVelocityWindowYears = 5.0
	DefaultMaxChainHops        = 6

	// Composite fusion weights.
	DefaultWeightPageRank  = 0.40
	DefaultWeightAuthority = 0.30
	DefaultWeightTemporal  = 0.20
	DefaultWeightCitations = 0.10

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaGroupID     = "citerank-ingest"
	DefaultKafkaStartOffset = "earliest"
	DefaultKafkaMaxWait     = 500 * time.Millisecond
	DefaultKafkaMinBytes    = 1
	DefaultKafkaMaxBytes    = 10 << 20 // 10 MiB

	DefaultSpoolDebounce = 2 * time.Second

	DefaultNeo4jURI      = "bolt://localhost:7687"
	DefaultNeo4jUser     = "neo4j"
	DefaultNeo4jDatabase = "neo4j"
	DefaultNeo4jPoolSize = 25
	DefaultNeo4jTimeout  = 5 * time.Second

	DefaultPostgresHost     = "localhost"
	DefaultPostgresPort     = 5432
	DefaultPostgresDBName   = "citerank"
	DefaultPostgresMaxConns = 10

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "citerank"
	DefaultRedisScoreTTL  = 24 * time.Hour

	DefaultRecomputeDebounce  = 5 * time.Second
	DefaultEnrichmentInterval = time.Minute
	DefaultWorkerBatchSize    = 500
	DefaultWorkerHealthPort   = 9091
)

// ApplyDefaults fills every zero-value field in cfg with the engine default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must be called
// after unmarshalling raw config data and before Validate() so that
// optional-but-defaulted fields are never seen as missing.
//
// Boolean toggles keep their zero value as the default: adapters are
// disabled, stub nodes are auto-created, PageRank propagation is uniform.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Ranking ───────────────────────────────────────────────────────────────
	if cfg.Ranking.Damping == 0 {
		cfg.Ranking.Damping = DefaultDamping
	}
	if cfg.Ranking.Tolerance == 0 {
		cfg.Ranking.Tolerance = DefaultTolerance
	}
	if cfg.Ranking.MaxIterations == 0 {
		cfg.Ranking.MaxIterations = DefaultMaxIterations
	}
	if cfg.Ranking.HalfLifeYears == 0 {
		cfg.Ranking.HalfLifeYears = DefaultHalfLifeYears
	}
	if cfg.Ranking.VelocityWindowYears == 0 {
		cfg.Ranking.VelocityWindowYears = DefaultVelocityWindowYears
	}
	if cfg.Ranking.MaxChainHops == 0 {
		cfg.Ranking.MaxChainHops = DefaultMaxChainHops
	}
	// The weights default as a block: partially-specified weights are a config
	// error the validator should surface, not something to silently complete.
	if w := cfg.Ranking.Weights; w.PageRank == 0 && w.Authority == 0 && w.Temporal == 0 && w.Citations == 0 {
		cfg.Ranking.Weights = FusionWeights{
			PageRank:  DefaultWeightPageRank,
			Authority: DefaultWeightAuthority,
			Temporal:  DefaultWeightTemporal,
			Citations: DefaultWeightCitations,
		}
	}

	// ── Ingest / Kafka ────────────────────────────────────────────────────────
	if len(cfg.Ingest.Kafka.Brokers) == 0 {
		cfg.Ingest.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Ingest.Kafka.GroupID == "" {
		cfg.Ingest.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Ingest.Kafka.StartOffset == "" {
		cfg.Ingest.Kafka.StartOffset = DefaultKafkaStartOffset
	}
	if cfg.Ingest.Kafka.MaxWait == 0 {
		cfg.Ingest.Kafka.MaxWait = DefaultKafkaMaxWait
	}
	if cfg.Ingest.Kafka.MinBytes == 0 {
		cfg.Ingest.Kafka.MinBytes = DefaultKafkaMinBytes
	}
	if cfg.Ingest.Kafka.MaxBytes == 0 {
		cfg.Ingest.Kafka.MaxBytes = DefaultKafkaMaxBytes
	}

	// ── Ingest / Spool ────────────────────────────────────────────────────────
	if cfg.Ingest.Spool.Debounce == 0 {
		cfg.Ingest.Spool.Debounce = DefaultSpoolDebounce
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.User == "" {
		cfg.Neo4j.User = DefaultNeo4jUser
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = DefaultNeo4jDatabase
	}
	if cfg.Neo4j.MaxConnectionPoolSize == 0 {
		cfg.Neo4j.MaxConnectionPoolSize = DefaultNeo4jPoolSize
	}
	if cfg.Neo4j.ConnectionTimeout == 0 {
		cfg.Neo4j.ConnectionTimeout = DefaultNeo4jTimeout
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPostgresHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.DBName == "" {
		cfg.Postgres.DBName = DefaultPostgresDBName
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = DefaultPostgresMaxConns
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.ScoreTTL == 0 {
		cfg.Redis.ScoreTTL = DefaultRedisScoreTTL
	}
	// Redis.DB is an int; 0 is a valid explicit value and also the default,
	// so it is left as-is.

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.RecomputeDebounce == 0 {
		cfg.Worker.RecomputeDebounce = DefaultRecomputeDebounce
	}
	if cfg.Worker.EnrichmentInterval == 0 {
		cfg.Worker.EnrichmentInterval = DefaultEnrichmentInterval
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = DefaultWorkerBatchSize
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}
}
