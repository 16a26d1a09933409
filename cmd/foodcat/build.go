package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/pipeline"
)

func (a *app) buildCmd() *cobra.Command {
	var archivePath string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Index the configured FoodData Central JSON datasets into one archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			if archivePath != "" {
				a.cfg.Archive.Path = archivePath
			}
			sources := make([]fooddata.Source, 0, len(a.cfg.Sources))
			for _, s := range a.cfg.Sources {
				sources = append(sources, fooddata.SourceFromConfig(s))
			}
			stats, err := pipeline.BuildArchive(ctx, a.cfg.Archive.Path, sources, a.metrics)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d foods, %d ingredient links\n",
				a.cfg.Archive.Path, stats.Records, stats.Links)
			return nil
		},
	}
	cmd.Flags().StringVar(&archivePath, "archive", "", "archive to write (overrides archive.path)")
	return cmd
}
