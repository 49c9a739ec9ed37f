package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rohankatakam/graphbridge/internal/resolver"
	"github.com/rohankatakam/graphbridge/internal/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	requiredTables []string
	optionalTables []string
	outputFormat   string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve output tables across the configured indexes",
	Long: `Loads the requested tables from the configured output (or every named output)
and reconciles entities and relationships against Neo4j according to graph.query_backend.

Examples:
  graphbridge resolve --required entities,relationships --optional covariates
  graphbridge resolve --required entities --format yaml`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringSliceVar(&requiredTables, "required", []string{"entities", "relationships"}, "tables that must exist in every index")
	resolveCmd.Flags().StringSliceVar(&optionalTables, "optional", nil, "tables that may be absent")
	resolveCmd.Flags().StringVar(&outputFormat, "format", "json", "output format: json or yaml")
}

type tableSummary struct {
	Index   string   `json:"index" yaml:"index"`
	Rows    int      `json:"rows" yaml:"rows"`
	Columns []string `json:"columns" yaml:"columns"`
}

type bundleSummary struct {
	MultiIndex bool                      `json:"multi_index" yaml:"multi_index"`
	IndexCount int                       `json:"index_count" yaml:"index_count"`
	IndexNames []string                  `json:"index_names" yaml:"index_names"`
	Policy     string                    `json:"policy" yaml:"policy"`
	Tables     map[string][]tableSummary `json:"tables" yaml:"tables"`
	Missing    []string                  `json:"missing,omitempty" yaml:"missing,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	if outputFormat != "json" && outputFormat != "yaml" {
		return fmt.Errorf("unknown format %q (must be json or yaml)", outputFormat)
	}
	ctx := context.Background()

	indexes, err := openIndexes(cfg)
	if err != nil {
		return err
	}
	defer indexes.Close()

	routing, driver := routingConfig(ctx, cfg, indexes)
	if driver != nil {
		defer driver.Close(ctx)
	}

	bundle, err := resolver.New(logger, collector).Resolve(ctx, requiredTables, optionalTables, routing)
	if err != nil {
		return err
	}

	summary := summarize(bundle, routing.Policy)
	switch outputFormat {
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(summary)
	default:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
}

func summarize(b *resolver.Bundle, policy resolver.Policy) bundleSummary {
	s := bundleSummary{
		MultiIndex: b.MultiIndex,
		IndexCount: b.IndexCount,
		IndexNames: b.IndexNames,
		Policy:     policy.String(),
		Tables:     make(map[string][]tableSummary, len(b.Tables)),
	}

	for name := range b.Tables {
		if !b.MultiIndex {
			t := b.Single(name)
			if t == nil {
				s.Missing = append(s.Missing, name)
				continue
			}
			s.Tables[name] = []tableSummary{summarizeTable(b.IndexNames[0], t)}
			continue
		}

		if !b.Complete(name) {
			s.Missing = append(s.Missing, name)
		}
		// Partial lists do not say which index lacked the table
		for i, t := range b.List(name) {
			index := ""
			if b.Complete(name) {
				index = b.IndexNames[i]
			}
			s.Tables[name] = append(s.Tables[name], summarizeTable(index, t))
		}
	}
	return s
}

func summarizeTable(index string, t *table.Table) tableSummary {
	return tableSummary{Index: index, Rows: t.Len(), Columns: t.Columns}
}
