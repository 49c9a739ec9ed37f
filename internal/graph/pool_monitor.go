package graph

import (
	"context"
	"fmt"
	"time"
)

// DefaultMaxPoolSize is used when ConnectionInfo.MaxPoolSize is unset
const DefaultMaxPoolSize = 50

// slowHealthCheck marks the pool unhealthy even when the check succeeds
const slowHealthCheck = 5 * time.Second

// RecommendedPoolSize sizes the pool for the expected number of concurrent sessions
func RecommendedPoolSize(expectedConcurrentSessions int) int {
	// 1.5x headroom, clamped to [10, 100]
	recommended := expectedConcurrentSessions * 3 / 2

	if recommended < 10 {
		return 10
	}
	if recommended > 100 {
		return 100
	}
	return recommended
}

// PoolHealthStatus represents the health of the connection pool
type PoolHealthStatus struct {
	Healthy       bool
	Message       string
	Cluster       *ClusterInfo
	CheckDuration time.Duration
	LastCheckTime time.Time
}

// CheckPoolHealth runs HealthCheck and grades how long it took
func (d *Neo4jDriver) CheckPoolHealth(ctx context.Context) (*PoolHealthStatus, error) {
	start := time.Now()
	cluster, err := d.HealthCheck(ctx)

	status := &PoolHealthStatus{
		Cluster:       cluster,
		CheckDuration: time.Since(start),
		LastCheckTime: time.Now(),
	}

	if err != nil {
		status.Message = fmt.Sprintf("Health check failed: %v", err)
		return status, err
	}

	if status.CheckDuration > slowHealthCheck {
		status.Message = fmt.Sprintf("Health check slow: %v (threshold: %v)", status.CheckDuration, slowHealthCheck)
		d.logger.Warn("neo4j health check slow - possible pool exhaustion",
			"duration_seconds", status.CheckDuration.Seconds())
		return status, nil
	}

	status.Healthy = true
	status.Message = fmt.Sprintf("Pool healthy (check took %v, max pool size %d)", status.CheckDuration, d.maxPoolSize)
	return status, nil
}
