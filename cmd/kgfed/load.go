package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenthands/kgfed/internal/driver"
	"github.com/agenthands/kgfed/internal/provider"
	"github.com/agenthands/kgfed/internal/server"
)

var loadFixture string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load fixture associations into Memgraph",
	RunE:  runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadFixture, "fixture", "", "fixture association file (required)")
	_ = loadCmd.MarkFlagRequired("fixture")
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Memgraph.URI == "" {
		return errors.New("memgraph.uri is not set")
	}

	f, err := provider.LoadFixtureFile(loadFixture)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := newLogger()
	d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, logger)
	if err != nil {
		return err
	}
	defer d.Close(ctx)

	if err := d.BuildIndices(ctx); err != nil {
		return err
	}
	if err := provider.NewGraphProvider(d, server.GraphInfores, 0).Load(ctx, f.Associations); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d associations\n", len(f.Associations))
	return nil
}
