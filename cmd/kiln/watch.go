package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kiln/internal/deps"
	"github.com/ShayCichocki/kiln/internal/orchestrator"
	"github.com/ShayCichocki/kiln/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [release] [test]",
	Short: "Rebuild whenever sources change",
	Long: `Build once, then watch the source tree and rebuild incrementally after
every change to a header, source or include-root marker. Press Ctrl-C to
stop.

The 'build' word only applies to the first build.`,
	Args: cobra.ArbitraryArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	req, err := parseRequest(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reporter := newReporter(cfg)
	s, err := openSession(cfg, reporter)
	if err != nil {
		return err
	}
	defer s.Close()

	w, err := watch.New(cfg.Paths.Source, cfg.Paths.Marker, cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, cancel := signalContext()
	defer cancel()

	build := func(ctx context.Context, r orchestrator.Request) {
		_, err := s.builder.Run(ctx, r)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, deps.ErrScan):
			// Keep watching: the file may be fixed by the next save.
			reporter.Banner(false, err.Error())
		default:
			reporter.Banner(false, fmt.Sprintf("Build aborted: %v", err))
		}
	}

	build(ctx, req)
	req.FullRebuild = false
	reporter.Info("Watching %s for changes (Ctrl-C to stop)", cfg.Paths.Source)

	return w.Run(ctx, func(ctx context.Context, changed []string) {
		if len(changed) == 1 {
			reporter.Info("\nChanged: %s", changed[0])
		} else {
			reporter.Info("\nChanged: %d files", len(changed))
		}
		build(ctx, req)
	})
}
