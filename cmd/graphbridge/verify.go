package main

import (
	"context"
	"fmt"

	"github.com/rohankatakam/graphbridge/internal/config"
	"github.com/rohankatakam/graphbridge/internal/graph"
	"github.com/rohankatakam/graphbridge/internal/resolver"
	"github.com/rohankatakam/graphbridge/internal/validation"
	"github.com/spf13/cobra"
)

var (
	verifyThreshold float64
	saveReport      bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare columnar output with the graph",
	Long: `Counts entities and relationships in every configured index and reports how many
of them are present in Neo4j. Fails when any table is below the threshold.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Float64Var(&verifyThreshold, "threshold", validation.DefaultThreshold, "minimum overlap percentage")
	verifyCmd.Flags().BoolVar(&saveReport, "save", false, "write "+validation.ReportBlob+" to the output store")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	driver, err := openGraph(cfg)
	if err != nil {
		return err
	}
	if driver == nil {
		return fmt.Errorf("graph connection incomplete: set %s, %s and %s",
			config.EnvNeo4jURI, config.EnvNeo4jUsername, config.EnvNeo4jPassword)
	}
	defer driver.Close(ctx)

	indexes, err := openIndexes(cfg)
	if err != nil {
		return err
	}
	defer indexes.Close()

	reader := graph.NewReader(driver, cfg.Graph.Database)
	nodes, edges, err := reader.Counts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Graph: %d nodes, %d edges\n\n", nodes, edges)

	results, err := validation.NewConsistencyValidator(reader).
		WithThreshold(verifyThreshold).
		Validate(ctx, indexes.all())
	if err != nil {
		return err
	}
	validation.LogResults(results)

	fmt.Printf("%-12s %-14s %10s %10s %9s\n", "INDEX", "TABLE", "COLUMNAR", "GRAPH", "OVERLAP")
	for _, r := range results {
		mark := "✓"
		if !r.PassedThreshold {
			mark = "✗"
		}
		fmt.Printf("%-12s %-14s %10d %10d %8.1f%% %s\n",
			r.Index, r.Table, r.ColumnarCount, r.GraphCount, r.OverlapPercent, mark)
	}

	if saveReport {
		if err := saveReports(ctx, indexes.all(), results); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
	}

	if !validation.AllPassed(results) {
		return fmt.Errorf("overlap below %.1f%% for at least one table", verifyThreshold)
	}
	return nil
}

// saveReports writes each index's results into that index's store
func saveReports(ctx context.Context, indexes []resolver.IndexDescriptor, results []validation.ValidationResult) error {
	for _, idx := range indexes {
		var own []validation.ValidationResult
		for _, r := range results {
			if r.Index == idx.Name {
				own = append(own, r)
			}
		}
		if err := validation.SaveReport(ctx, idx.Store, own); err != nil {
			return fmt.Errorf("index %q: %w", idx.Name, err)
		}
	}
	return nil
}
