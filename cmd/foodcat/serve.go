package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/api"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/categorizer"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/report"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/tokens"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/redis"
)

func (a *app) serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve diet category lookups over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return a.serve(cmd)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func (a *app) serve(cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd)
	defer stop()
	cfg := a.cfg
	slog.Info("starting lookup service", "port", cfg.Server.Port, "input", cfg.Categorizer.Input)

	foods, err := pipeline.OpenFoods(ctx, cfg, a.metrics)
	if err != nil {
		return err
	}
	defer foods.Close()
	_, refs, err := pipeline.LoadReferences(ctx, cfg.ReferenceSamples, foods)
	if err != nil {
		return err
	}
	c := categorizer.New(foods, refs, tokens.Default())

	checker := health.NewChecker()
	if cfg.Categorizer.Input == config.InputArchive {
		checker.Register("archive", health.File(cfg.Archive.Path))
	}

	var (
		cache     *api.ResultCache
		redisPing func(context.Context) error
	)
	if cfg.Redis.Enabled {
		client, err := pkgredis.Open(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, lookups categorize on demand", "error", err)
		} else {
			defer client.Close()
			cache = api.NewResultCache(client, a.metrics)
			redisPing = client.Ping
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr)
		}
	}
	checker.Register("redis", health.Ping(redisPing, false))

	var (
		snapshots api.Snapshots
		pgPing    func(context.Context) error
	)
	if cfg.Postgres.Enabled {
		client, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, /api/v1/stats disabled", "error", err)
		} else {
			defer client.Close()
			snapshots = report.NewStore(client.DB)
			pgPing = client.Ping
		}
	}
	checker.Register("postgres", health.Ping(pgPing, false))

	h := api.New(foods, c, cache, snapshots, cfg.Server.MaxListResults)
	server := api.NewServer(cfg.Server, h, checker, a.metrics)

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("lookup service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("lookup service stopped")
	return nil
}
