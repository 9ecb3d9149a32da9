package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tidbyt.dev/gtfsgraph"
	"tidbyt.dev/gtfsgraph/config"
	"tidbyt.dev/gtfsgraph/logging"
)

var rootCmd = &cobra.Command{
	Use:   "gtfsgraph [config.yaml]",
	Short: "Converts GTFS to a GEXF station graph",
	Long: `Converts a GTFS feed into an undirected GEXF graph of stations and
the direct connections between them.

All settings are read from the given YAML file. Without one, the subway
routes of the feed extracted into mta/ are converted to out.gexf.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         convert,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(args []string) (config.Config, error) {
	if len(args) == 0 {
		return config.Default(), nil
	}
	return config.Load(args[0])
}

func convert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewStructuredLogger(os.Stderr, level)
	ctx := logging.WithLogger(context.Background(), logger)

	result, err := gtfsgraph.Convert(ctx, cfg)
	if err != nil {
		logging.LogError(logger, "conversion failed", err)
		return err
	}

	fmt.Printf("%d stations, %d connections written to %s\n", result.Counts.Nodes, result.Counts.Edges, cfg.Output)
	if result.ExportID != "" {
		fmt.Printf("export id: %s\n", result.ExportID)
	}

	return nil
}
