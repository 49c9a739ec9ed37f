package main

import (
	"context"
	"fmt"

	"github.com/rohankatakam/graphbridge/internal/config"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check configuration and Neo4j connectivity",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	result := cfg.Validate()
	if result.HasErrors() {
		fmt.Print(result.Error())
		return fmt.Errorf("configuration invalid")
	}
	for _, w := range result.Warnings {
		fmt.Printf("⚠️  %s\n", w)
	}

	info, ok := cfg.GraphConnection()
	if !ok {
		fmt.Println("Graph: not configured")
		return nil
	}

	driver, err := openGraph(cfg)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	status, err := driver.CheckPoolHealth(ctx)
	if err != nil {
		return fmt.Errorf("graph unhealthy: %w", err)
	}
	cluster := status.Cluster

	fmt.Printf("Graph: %s (user %s, password %s)\n", info.URI, info.Username, config.MaskSecret(info.Password))
	fmt.Printf("  %s\n", status.Message)
	if cluster != nil && cluster.IsCluster {
		fmt.Printf("  Cluster: %d server(s): %d leader(s), %d follower(s), %d read replica(s)\n",
			cluster.Servers(), cluster.LeaderCount, cluster.FollowerCount, cluster.ReadReplicaCount)
	} else {
		fmt.Println("  Single instance")
	}
	fmt.Printf("  Query backend: %s\n", cfg.GraphQueryBackend())
	return nil
}
