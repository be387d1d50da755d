package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/drivewhizz/internal/config"
	"github.com/tonimelisma/drivewhizz/internal/history"
	"github.com/tonimelisma/drivewhizz/internal/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web chat",
		Long: "Serve the chat page, the JSON and WebSocket command endpoints and the Google\n" +
			"sign-in routes. The config file is reloaded when it changes.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (overrides server.listen)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	ctx, cancel := shutdownContext(cmd.Context(), logger)
	defer cancel()

	holder := config.NewHolder(resolvedCfg, resolvedCfgPath)

	sum, err := newSummarizer(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}

	var hist *history.Store

	if resolvedCfg.History.Enabled {
		hist, err = history.Open(ctx, resolvedCfg.HistoryDBPath(), logger)
		if err != nil {
			return err
		}

		defer func() {
			if cerr := hist.Close(); cerr != nil {
				logger.Warn("closing history", slog.String("error", cerr.Error()))
			}
		}()
	}

	srv, err := web.New(web.Options{
		Config:     holder,
		History:    hist,
		Summarizer: sum,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	cli := cliOverrides(cmd)
	reload := func() (*config.Config, error) {
		cfg, _, rerr := config.Resolve(config.ReadEnvOverrides(), cli)
		return cfg, rerr
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(gctx, resolvedCfg.Server.Listen)
	})

	if watchable(holder.Path()) {
		g.Go(func() error {
			return config.Watch(gctx, holder, reload, logger)
		})
	} else {
		logger.Debug("config directory missing, live reload disabled", slog.String("path", holder.Path()))
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// watchable reports whether the config file's directory exists.
func watchable(path string) bool {
	info, err := os.Stat(filepath.Dir(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}

	return err == nil && info.IsDir()
}
