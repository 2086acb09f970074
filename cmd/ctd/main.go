package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/connect-the-dots/pkg/ctd"
	"github.com/gilchrisn/connect-the-dots/pkg/models"
)

// Exit codes
const (
	exitSuccess       = 0
	exitError         = 1
	exitConfiguration = 2
	exitValidation    = 3
	exitComputation   = 4
)

var version = "dev"

var (
	inputs     ctd.Inputs
	outputName string
	configFile string
	verbose    bool
)

func main() {
	os.Exit(execute())
}

func execute() int {
	config := ctd.NewConfig()
	root := newRootCmd(config)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitSuccess
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return exitValidation
	case errors.Is(err, models.ErrComputation):
		return exitComputation
	case errors.Is(err, models.ErrConfiguration):
		return exitConfiguration
	default:
		return exitError
	}
}

func newRootCmd(config *ctd.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "ctd",
		Short:         "Connect the Dots - find the most connected subgraph of perturbed nodes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(config), newVersionCmd())
	return root
}

func newRunCmd(config *ctd.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Rank the network from every seed node and report the most connected subset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := config.LoadFromFile(configFile); err != nil {
					return err
				}
			}
			if verbose {
				config.Set("logging.level", "debug")
			}
			return run(cmd.Context(), config)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&inputs.Experimental, "experimental", "", "Experimental dataset CSV (z-scores, one column per patient)")
	flags.StringVar(&inputs.Control, "control", "", "Control dataset CSV, required with --experimental")
	flags.StringVar(&inputs.Adjacency, "adj-matrix", "", "CSV with the adjacency matrix")
	flags.StringVar(&inputs.SeedSpec, "s-module", "", "Comma-separated list or CSV path (last column) of seed nodes")
	flags.StringVar(&inputs.Ranks, "ranks", "", "JSON with precalculated node ranks")
	flags.StringVar(&outputName, "output-name", "", "Name of the output JSON file")
	flags.StringVar(&configFile, "config", "", "Configuration file (yaml, json or toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	flags.Bool("include-not-in-s", false, "Include discovered nodes outside S in the most connected subgraph")
	flags.Int("kmx", 15, "Number of highly perturbed nodes per patient to consider; ignored if --s-module is given")
	flags.Float64("present-in-perc-for-s", 0.5, "Fraction of patients a node must be perturbed in to join S")
	flags.Int("num-processes", config.NumWorkers(), "Number of concurrent walks")

	v := config.Viper()
	_ = v.BindPFlag("output.include_not_in_s", flags.Lookup("include-not-in-s"))
	_ = v.BindPFlag("seeds.kmx", flags.Lookup("kmx"))
	_ = v.BindPFlag("seeds.present_in_perc", flags.Lookup("present-in-perc-for-s"))
	_ = v.BindPFlag("performance.num_workers", flags.Lookup("num-processes"))

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func run(ctx context.Context, config *ctd.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := config.CreateLogger()
	if err := config.Validate(); err != nil {
		return err
	}

	out, err := ctd.NewPipeline(config).WithLogger(logger).Run(ctx, inputs)
	if err != nil {
		logger.Error().Err(err).Msg("Run failed")
		return err
	}

	resultPath, ranksPath := ctd.OutputPaths(inputs, outputName)
	if err := ctd.NewFileWriter(logger).WriteAll(out, resultPath, ranksPath); err != nil {
		return err
	}

	logRunSummary(logger, out)
	return nil
}

func logRunSummary(logger zerolog.Logger, out *ctd.Output) {
	logger.Info().
		Int("nodes", out.Result.NumNodes).
		Int("seeds", len(out.Result.SeedNodes)).
		Int("rows", len(out.Rows)).
		Bool("ranks_from_cache", out.RanksFromCache).
		Str("optimal_bitstring", out.Result.OptimalBitstring).
		Float64("kmcm_probability", out.Result.KMCMProbability).
		Msg("Run summary")
}
