package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// RoutingMode selects the cluster member a session talks to. Reads (reconciliation,
// verify) may go to followers and read replicas; materialization goes to the leader.
// On a single instance both modes reach the same server.
type RoutingMode string

const (
	RoutingRead  RoutingMode = "read"
	RoutingWrite RoutingMode = "write"
)

// sessionConfigFor builds the session config for a routing mode.
// An empty database selects the server default.
func sessionConfigFor(mode RoutingMode, database string) neo4j.SessionConfig {
	config := neo4j.SessionConfig{DatabaseName: database}
	if mode == RoutingRead {
		config.AccessMode = neo4j.AccessModeRead
	} else {
		config.AccessMode = neo4j.AccessModeWrite
	}
	return config
}

// ClusterInfo describes the topology behind the configured URI
type ClusterInfo struct {
	IsCluster        bool
	LeaderCount      int
	FollowerCount    int
	ReadReplicaCount int
}

// Servers is the number of cluster members seen
func (c *ClusterInfo) Servers() int {
	return c.LeaderCount + c.FollowerCount + c.ReadReplicaCount
}

const (
	clusterOverviewQuery = "CALL dbms.cluster.overview() YIELD role RETURN role, count(*) AS members"
	readProbeQuery       = "RETURN 1 AS ok"
	writeProbeQuery      = "CREATE (h:__HealthCheck__ {at: timestamp()}) DELETE h RETURN 1 AS ok"
)

// GetClusterInfo reads the cluster overview. Servers without the overview procedure
// (single instances, restricted users) are reported as one leader.
func GetClusterInfo(ctx context.Context, driver neo4j.DriverWithContext, database string) (*ClusterInfo, error) {
	records, err := probe(ctx, driver, database, RoutingRead, clusterOverviewQuery)
	if err != nil {
		return &ClusterInfo{LeaderCount: 1}, nil
	}

	info := &ClusterInfo{IsCluster: len(records) > 0}
	for _, record := range records {
		role, _ := record.Get("role")
		members, _ := record.Get("members")
		n, _ := members.(int64)

		switch role {
		case "LEADER":
			info.LeaderCount += int(n)
		case "FOLLOWER":
			info.FollowerCount += int(n)
		case "READ_REPLICA":
			info.ReadReplicaCount += int(n)
		}
	}
	if !info.IsCluster {
		info.LeaderCount = 1
	}
	return info, nil
}

// RoutingHealthCheck runs a trivial read and a create-then-delete write, each through
// its own routed session
func RoutingHealthCheck(ctx context.Context, driver neo4j.DriverWithContext, database string) error {
	if _, err := probe(ctx, driver, database, RoutingRead, readProbeQuery); err != nil {
		return fmt.Errorf("read routing: %w", err)
	}
	if _, err := probe(ctx, driver, database, RoutingWrite, writeProbeQuery); err != nil {
		return fmt.Errorf("write routing: %w", err)
	}
	return nil
}

// probe runs query in one managed transaction with the health check tx config
func probe(ctx context.Context, driver neo4j.DriverWithContext, database string, mode RoutingMode, query string) ([]*neo4j.Record, error) {
	session := driver.NewSession(ctx, sessionConfigFor(mode, database))
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	}
	txConfig := GetConfigForOperation(OpHealthCheck).AsNeo4jConfig()

	var (
		out any
		err error
	)
	if mode == RoutingRead {
		out, err = session.ExecuteRead(ctx, work, txConfig...)
	} else {
		out, err = session.ExecuteWrite(ctx, work, txConfig...)
	}
	if err != nil {
		return nil, err
	}
	records, _ := out.([]*neo4j.Record)
	return records, nil
}
