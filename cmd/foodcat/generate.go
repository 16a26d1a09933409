package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/tokens"
)

func (a *app) generateCmd() *cobra.Command {
	var (
		output  string
		input   string
		debug   bool
		workers int
		seed    uint64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Categorize every food and write the results to the configured sinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("output") {
				cfg.Output.Path = output
			}
			if flags.Changed("input") {
				cfg.Categorizer.Input = input
			}
			if flags.Changed("debug") {
				cfg.Output.Debug = debug
			}
			if flags.Changed("workers") {
				cfg.Categorizer.Workers = workers
			}
			if flags.Changed("seed") {
				cfg.Categorizer.SampleSeed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			foods, err := pipeline.OpenFoods(ctx, cfg, a.metrics)
			if err != nil {
				return err
			}
			defer foods.Close()
			_, refs, err := pipeline.LoadReferences(ctx, cfg.ReferenceSamples, foods)
			if err != nil {
				return err
			}

			runID := pipeline.NewRunID()
			out, err := pipeline.OpenOutputs(ctx, cfg, runID)
			if err != nil {
				return err
			}
			defer out.Close()

			run, err := pipeline.Generate(ctx, cfg, pipeline.Deps{
				RunID:      runID,
				Foods:      foods,
				Refs:       refs,
				Classifier: tokens.Default(),
				Sinks:      out.Sinks,
				Metrics:    a.metrics,
				Snapshots:  out.Snapshots,
			})
			if run != nil {
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "run %s: %d foods categorized, %d reference discrepancies\n",
					run.ID, run.Stats.Total, len(run.Discrepancies))
				for _, d := range run.Discrepancies {
					known := ""
					if d.KnownFailure {
						known = " (known failure)"
					}
					fmt.Fprintf(w, "  %d %q: reference %s, heuristic %s%s\n",
						d.FdcID, d.Description, d.Reference, d.Heuristic, known)
				}
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "VegAttributes JSON to write (overrides output.path)")
	f.StringVar(&input, "input", "", `food source, "archive" or "sqlite"`)
	f.BoolVar(&debug, "debug", false, "also write a debug_ twin with descriptions and sources")
	f.IntVar(&workers, "workers", 0, "categorization workers")
	f.Uint64Var(&seed, "seed", 0, "seed for the per-category sample foods; 0 picks one")
	return cmd
}
