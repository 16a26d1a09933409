// Command foodcat builds the FoodData Central archive, assigns a diet
// category to every food, curates the reference samples the heuristic is
// checked against, and serves lookups over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/metrics"
)

// app is the state shared by every subcommand once the root has loaded the
// configuration.
type app struct {
	configPath  string
	cfg         *config.Config
	metrics     *metrics.Metrics
	stopMetrics func(context.Context) error
}

func main() {
	a := &app{}
	root := a.rootCmd()
	if err := root.Execute(); err != nil {
		slog.Error("foodcat failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "foodcat",
		Short:         "Diet categories for FoodData Central foods",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
			}
			a.cfg = cfg
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
			if cfg.Metrics.Enabled {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				a.metrics = metrics.New(reg)
				if a.stopMetrics, err = metrics.StartServer(cfg.Metrics.Port, reg); err != nil {
					return err
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.stopMetrics == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.stopMetrics(ctx)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		a.buildCmd(),
		a.generateCmd(),
		a.serveCmd(),
		a.projectCmd(),
		a.refsCmd(),
	)
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
