package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/fooddata"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/refsample"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/tokens"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

func (a *app) refsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs",
		Short: "Curate the reference samples",
	}
	cmd.AddCommand(a.refsListCmd(), a.refsAddCmd(), a.refsResetCmd(), a.refsAuditCmd())
	return cmd
}

// withFoods opens the food source and the reference sample file for one
// curation command.
func (a *app) withFoods(ctx context.Context, fn func(foods *fooddata.Store, store *refsample.Store, set *refsample.Set) error) error {
	foods, err := pipeline.OpenFoods(ctx, a.cfg, a.metrics)
	if err != nil {
		return err
	}
	defer foods.Close()
	store, set, err := pipeline.LoadReferences(ctx, a.cfg.ReferenceSamples, foods)
	if err != nil {
		return err
	}
	return fn(foods, store, set)
}

func (a *app) refsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every reference sample, including rows that would be rejected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := refsample.Open(a.cfg.ReferenceSamples.Path, false)
			if err != nil {
				return err
			}
			samples, invalid, err := store.ReadAll()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FDC ID\tEXPECTED\tKNOWN FAILURE\tDESCRIPTION")
			for _, s := range samples {
				fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", s.FdcID, s.ExpectedCategory, s.KnownFailure, s.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, inv := range invalid {
				fmt.Fprintf(cmd.ErrOrStderr(), "line %d rejected: %v\n", inv.Line, inv.Err)
			}
			return nil
		},
	}
}

func (a *app) refsAddCmd() *cobra.Command {
	var knownFailure bool
	cmd := &cobra.Command{
		Use:   "add <fdc-id> <category>",
		Short: "Append a reference sample",
		Long: "add appends a sample for a food. The category is a full name such as " +
			"VEGETARIAN or a shortcut: veg, vov, vgt, vgo, vvo, vto, o.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("%w: fdc id %q is not a positive integer", apperrors.ErrInvalidInput, args[0])
			}
			cat, err := diet.ParseCategoryOrShortcut(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withFoods(ctx, func(foods *fooddata.Store, store *refsample.Store, set *refsample.Set) error {
				if _, dup := set.Get(id); dup {
					return fmt.Errorf("%w: fdc id %d already has a reference sample", apperrors.ErrDuplicateKey, id)
				}
				sample := refsample.Sample{FdcID: id, ExpectedCategory: cat, KnownFailure: knownFailure}
				if err := store.Append(ctx, sample, pipeline.Describe(foods)); err != nil {
					return err
				}

				food, err := foods.ByFdcID(ctx, id)
				if err != nil {
					return err
				}
				h, err := categorizer.New(foods, set, tokens.Default()).Heuristic(ctx, food)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d %q as %s (heuristic says %s)\n%s\n",
					id, food.Description, cat, h, fooddata.AppURL(id))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&knownFailure, "known-failure", false, "mark the sample as one the heuristic is known to get wrong")
	return cmd
}

func (a *app) refsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Rewrite the sample file, dropping rejected rows and refreshing descriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withFoods(ctx, func(foods *fooddata.Store, store *refsample.Store, set *refsample.Set) error {
				var samples []refsample.Sample
				for s := range set.All() {
					samples = append(samples, s)
				}
				if err := store.ResetAndPutAll(ctx, samples, pipeline.Describe(foods)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples kept\n", store.Path(), len(samples))
				return nil
			})
		},
	}
}

func (a *app) refsAuditCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Grade the heuristic against every reference sample",
		Long: "audit prints PASS, FAIL, XFAIL (known failure, still failing) or XPASS " +
			"(known failure that now passes) per sample and fails on any FAIL or XPASS.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withFoods(ctx, func(foods *fooddata.Store, _ *refsample.Store, set *refsample.Set) error {
				report, err := categorizer.New(foods, set, tokens.Default()).Audit(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					if err := enc.Encode(report); err != nil {
						return err
					}
				} else {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					for _, r := range report.Results {
						fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.Outcome, r.FdcID, r.Expected, r.Heuristic, r.Description)
					}
					tw.Flush()
					fmt.Fprintf(w, "pass %d, fail %d, xfail %d, xpass %d\n",
						report.Counts[categorizer.Pass], report.Counts[categorizer.Fail],
						report.Counts[categorizer.XFail], report.Counts[categorizer.XPass])
				}
				if report.Failed() {
					return fmt.Errorf("reference audit: %d failed, %d unexpectedly passed",
						report.Counts[categorizer.Fail], report.Counts[categorizer.XPass])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
