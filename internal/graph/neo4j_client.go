package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ConnectionInfo holds what is needed to reach the graph database
type ConnectionInfo struct {
	URI      string
	Username string
	Password string
	Database string

	// MaxPoolSize caps pooled connections; 0 means DefaultMaxPoolSize
	MaxPoolSize int
}

// Complete reports whether uri, username and password are all set
func (c ConnectionInfo) Complete() bool {
	return c.URI != "" && c.Username != "" && c.Password != ""
}

// Neo4jDriver implements Driver on the official Neo4j driver
type Neo4jDriver struct {
	driver      neo4j.DriverWithContext
	logger      *slog.Logger
	monitor     *TimeoutMonitor
	database    string
	maxPoolSize int
}

// NewNeo4jDriver creates a pooled driver. Connectivity is not checked here;
// callers decide whether a failed VerifyConnectivity is fatal.
func NewNeo4jDriver(info ConnectionInfo) (*Neo4jDriver, error) {
	if !info.Complete() {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%s, user=%s", info.URI, info.Username)
	}

	poolSize := info.MaxPoolSize
	if poolSize <= 0 {
		poolSize = DefaultMaxPoolSize
	}

	driver, err := neo4j.NewDriverWithContext(info.URI,
		neo4j.BasicAuth(info.Username, info.Password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = poolSize
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = 3600 * time.Second
			config.ConnectionLivenessCheckTimeout = 5 * time.Second
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	logger := slog.Default().With("component", "neo4j")
	logger.Info("neo4j driver created",
		"uri", info.URI,
		"user", info.Username,
		"database", info.Database,
		"max_pool_size", poolSize)

	return &Neo4jDriver{
		driver:      driver,
		logger:      logger,
		monitor:     NewTimeoutMonitor(),
		database:    info.Database,
		maxPoolSize: poolSize,
	}, nil
}

// OpenSession implements Driver
func (d *Neo4jDriver) OpenSession(ctx context.Context, database string, mode RoutingMode) (Session, error) {
	if database == "" {
		database = d.database
	}
	sess := d.driver.NewSession(ctx, sessionConfigFor(mode, database))
	return &neo4jSession{session: sess, mode: mode, logger: d.logger, monitor: d.monitor}, nil
}

// VerifyConnectivity implements Driver
func (d *Neo4jDriver) VerifyConnectivity(ctx context.Context) error {
	if err := d.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j connectivity check failed: %w", err)
	}
	return nil
}

// HealthCheck verifies connectivity plus read and write routing, and reports cluster topology
func (d *Neo4jDriver) HealthCheck(ctx context.Context) (*ClusterInfo, error) {
	txConfig := GetConfigForOperation(OpHealthCheck)
	ctx, cancel := context.WithTimeout(ctx, txConfig.Timeout)
	defer cancel()

	if err := d.VerifyConnectivity(ctx); err != nil {
		return nil, err
	}
	if err := RoutingHealthCheck(ctx, d.driver, d.database); err != nil {
		return nil, fmt.Errorf("neo4j routing check failed: %w", err)
	}
	return GetClusterInfo(ctx, d.driver, d.database)
}

// Close implements Driver
func (d *Neo4jDriver) Close(ctx context.Context) error {
	if err := d.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	d.logger.Info("neo4j driver closed")
	return nil
}

type neo4jSession struct {
	session neo4j.SessionWithContext
	mode    RoutingMode
	logger  *slog.Logger
	monitor *TimeoutMonitor
}

// Run executes query in one managed transaction, using the TransactionConfig of the
// operation tagged on ctx
func (s *neo4jSession) Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	op := OperationFrom(ctx)
	if op == "" {
		op = OpGraphRead
		if s.mode == RoutingWrite {
			op = OpEntityMerge
		}
	}
	opConfig := configFor(ctx, op)
	txConfig := opConfig.AsNeo4jConfig()

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, len(records))
		for i, record := range records {
			out[i] = record.AsMap()
		}
		return out, nil
	}

	var res any
	_, err := s.monitor.MonitorQueryExecution(op, opConfig.Timeout, func() error {
		var runErr error
		if s.mode == RoutingRead {
			res, runErr = s.session.ExecuteRead(ctx, work, txConfig...)
		} else {
			res, runErr = s.session.ExecuteWrite(ctx, work, txConfig...)
		}
		return runErr
	})
	if err != nil {
		return nil, err
	}

	records, _ := res.([]map[string]any)
	s.logger.Debug("query executed", "operation", op, "record_count", len(records))
	return records, nil
}

func (s *neo4jSession) Close(ctx context.Context) error {
	return s.session.Close(ctx)
}
