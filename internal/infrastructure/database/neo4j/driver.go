// Package neo4j wraps the Bolt driver behind a small transaction-function
// surface.  Repositories depend on the Executor interface, never on the
// vendor driver, so their logic is testable without a running server.  Neo4j
// is durability and interchange for the citation graph — the in-memory store
// stays the compute source, and no query path blocks on this package.
package neo4j

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/CiteRank-Engine/internal/config"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

const (
	defaultPoolSize       = 50
	defaultConnectTimeout = 10 * time.Second
)

// Result is the subset of neo4j.ResultWithContext the repositories consume.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
	Consume(ctx context.Context) (neo4j.ResultSummary, error)
}

// Transaction runs Cypher inside a managed transaction.
type Transaction interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

// TransactionWork is a unit of work executed against one transaction.
type TransactionWork func(tx Transaction) (any, error)

// Executor is the repository-facing surface of the driver.
type Executor interface {
	ExecuteRead(ctx context.Context, work TransactionWork) (any, error)
	ExecuteWrite(ctx context.Context, work TransactionWork) (any, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Driver
// ─────────────────────────────────────────────────────────────────────────────

// Driver manages the Bolt connection pool and implements Executor with one
// session per unit of work.
type Driver struct {
	driver neo4j.DriverWithContext
	cfg    config.Neo4jConfig
	logger logging.Logger
	once   sync.Once
}

// NewDriver connects to Neo4j and verifies connectivity before returning.
func NewDriver(ctx context.Context, cfg config.Neo4jConfig, logger logging.Logger) (*Driver, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = defaultPoolSize
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create neo4j driver")
	}

	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	verifyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to connect to neo4j")
	}

	logger.Info("connected to neo4j",
		logging.String("uri", cfg.URI),
		logging.String("database", cfg.Database))
	return &Driver{driver: driver, cfg: cfg, logger: logger}, nil
}

func (d *Driver) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	database := d.cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return d.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: database,
		AccessMode:   mode,
	})
}

// ExecuteRead runs work in a read transaction with driver-managed retry.
func (d *Driver) ExecuteRead(ctx context.Context, work TransactionWork) (any, error) {
	session := d.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(managedTx{tx: tx})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "neo4j read failed")
	}
	return out, nil
}

// ExecuteWrite runs work in a write transaction with driver-managed retry.
func (d *Driver) ExecuteWrite(ctx context.Context, work TransactionWork) (any, error) {
	session := d.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(managedTx{tx: tx})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "neo4j write failed")
	}
	return out, nil
}

// HealthCheck verifies connectivity and a round trip through the database.
func (d *Driver) HealthCheck(ctx context.Context) error {
	if err := d.driver.VerifyConnectivity(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "neo4j connectivity check failed")
	}
	_, err := d.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, "RETURN 1", nil)
		if err != nil {
			return nil, err
		}
		res.Next(ctx)
		return nil, res.Err()
	})
	return err
}

// Close shuts the connection pool down.  Safe to call more than once.
func (d *Driver) Close(ctx context.Context) error {
	var err error
	d.once.Do(func() {
		err = d.driver.Close(ctx)
		if err == nil {
			d.logger.Info("neo4j driver closed")
		}
	})
	return err
}

// managedTx adapts a vendor transaction to the package's Transaction.
type managedTx struct {
	tx neo4j.ManagedTransaction
}

func (m managedTx) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := m.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Record helpers
// ─────────────────────────────────────────────────────────────────────────────

// CollectRecords drains a result, mapping every record.
func CollectRecords[T any](ctx context.Context, result Result, mapper func(*neo4j.Record) (T, error)) ([]T, error) {
	var items []T
	for result.Next(ctx) {
		item, err := mapper(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ForEachRecord streams a result through fn without buffering, for loads too
// large to collect.
func ForEachRecord(ctx context.Context, result Result, fn func(*neo4j.Record) error) error {
	for result.Next(ctx) {
		if err := fn(result.Record()); err != nil {
			return err
		}
	}
	return result.Err()
}
