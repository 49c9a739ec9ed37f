package main

import (
	"context"
	"fmt"

	"github.com/rohankatakam/graphbridge/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	entitiesName      string
	relationshipsName string
)

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Finalize entities and relationships and write them to the output and Neo4j",
	Long: `Reads the computed entity and relationship tables from the configured output,
finalizes them, writes them back and mirrors them into Neo4j when graph.enabled is set.

Graph failures are logged and do not fail the command.`,
	RunE: runMaterialize,
}

func init() {
	materializeCmd.Flags().StringVar(&entitiesName, "entities", workflow.EntitiesTable, "name of the computed entities table")
	materializeCmd.Flags().StringVar(&relationshipsName, "relationships", workflow.RelationshipsTable, "name of the computed relationships table")
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openOutput(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	connection, _ := cfg.GraphConnection()
	out := workflow.OutputConfig{
		Store:           store,
		GraphOnly:       cfg.Graph.Only,
		GraphEnabled:    cfg.Graph.Enabled,
		Connection:      connection,
		Materializer:    cfg.MaterializerConfig(),
		SnapshotGraphML: cfg.Snapshots.GraphML,
	}

	wf := workflow.New(logger, collector)
	result, err := wf.RunFromStore(ctx, out, entitiesName, relationshipsName)
	if err != nil {
		return fmt.Errorf("materialize failed: %w", err)
	}

	fmt.Printf("Entities:       %d\n", result.FinalEntities.Len())
	fmt.Printf("Relationships:  %d\n", result.FinalRelationships.Len())
	fmt.Printf("Tables written: %v\n", result.TablesWritten)
	switch {
	case result.Graph != nil:
		fmt.Printf("Graph:          %d nodes, %d edges in %d batches\n",
			result.Graph.EntitiesWritten, result.Graph.RelationshipsWritten, result.Graph.CommittedBatches())
	case result.GraphError != nil:
		fmt.Printf("Graph:          failed (%v)\n", result.GraphError)
	default:
		fmt.Printf("Graph:          skipped\n")
	}
	if cfg.Snapshots.GraphML && result.SnapshotError == nil {
		fmt.Printf("Snapshot:       %s\n", workflow.GraphMLBlob)
	}
	fmt.Printf("Duration:       %s\n", result.Duration)

	return nil
}
