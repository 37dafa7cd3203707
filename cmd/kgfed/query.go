package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/server"
)

var (
	queryGraphPath string
	queryFixture   string
	queryResolver  string
	queryNoCache   bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a query graph and print the response as JSON",
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryGraphPath, "graph", "", "query graph JSON file (required)")
	queryCmd.Flags().StringVar(&queryFixture, "records", "", "fixture association file to query")
	queryCmd.Flags().StringVar(&queryResolver, "resolver", "", "identifier resolver table")
	queryCmd.Flags().BoolVar(&queryNoCache, "no-cache", false, "disable the record cache")
	_ = queryCmd.MarkFlagRequired("graph")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if queryFixture != "" {
		cfg.Providers.FixturePath = queryFixture
	}
	if queryResolver != "" {
		cfg.Providers.ResolverPath = queryResolver
	}
	if queryNoCache {
		cfg.Cache.Enabled = false
	}

	data, err := os.ReadFile(queryGraphPath)
	if err != nil {
		return fmt.Errorf("failed to read query graph: %w", err)
	}
	var g model.QueryGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("failed to parse query graph: %w", err)
	}

	ctx := cmd.Context()
	components, err := server.Build(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	defer components.Close(ctx)

	resp, err := components.Engine.Query(ctx, g)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
