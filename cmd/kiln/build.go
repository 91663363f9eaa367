package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kiln/internal/config"
	iexec "github.com/ShayCichocki/kiln/internal/exec"
	"github.com/ShayCichocki/kiln/internal/orchestrator"
	"github.com/ShayCichocki/kiln/internal/report"
	"github.com/ShayCichocki/kiln/internal/state"
)

// parseRequest combines the positional words with the equivalent flags.
func parseRequest(args []string) (orchestrator.Request, error) {
	req := orchestrator.Request{
		FullRebuild: flagFull,
		Release:     flagRelease,
		Test:        flagTest,
	}
	for _, a := range args {
		switch strings.ToLower(a) {
		case "build":
			req.FullRebuild = true
		case "release":
			req.Release = true
		case "test":
			req.Test = true
		default:
			return req, fmt.Errorf("unknown argument %q (expected build, release or test)", a)
		}
	}
	return req, nil
}

// loadConfig loads configuration for the project directory and applies
// command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagProject)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	root := config.ProjectRoot(flagProject)
	cfg.Paths.Source = projectPath(flagSource, cfg.Paths.Source, root)
	cfg.Paths.Output = projectPath(flagOutput, cfg.Paths.Output, root)
	if flagJobs >= 0 {
		cfg.Build.Jobs = flagJobs
	}
	if flagNoColor {
		cfg.Log.Color = "never"
	}
	if flagDebug {
		cfg.Log.Debug = true
	}
	return cfg, cfg.Validate()
}

// projectPath resolves a relative flag value against -C and a relative
// configured value against root, the directory holding .kiln.yaml.
func projectPath(flagValue, configured, root string) string {
	if flagValue != "" {
		configured, root = flagValue, flagProject
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(root, configured)
}

func newReporter(cfg *config.Config) report.Reporter {
	switch cfg.Log.Color {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
	return report.New(os.Stdout, cfg.Log.Color != "never")
}

// session bundles a builder with the resources it holds open.
type session struct {
	builder *orchestrator.Builder
	history *state.DB
	logger  *orchestrator.DebugLogger
}

func (s *session) Close() {
	if s.history != nil {
		s.history.Close()
	}
	s.logger.Close()
}

// openSession wires configuration into a Builder. History problems never
// prevent a build.
func openSession(cfg *config.Config, reporter report.Reporter) (*session, error) {
	s := &session{logger: orchestrator.NopLogger()}
	if cfg.Log.Debug {
		s.logger = orchestrator.NewDebugLoggerForOutput(cfg.Paths.Output)
	}

	required, opts := orchestrator.FromConfig(cfg)
	opts = append(opts,
		orchestrator.WithReporter(reporter),
		orchestrator.WithLogger(s.logger),
		orchestrator.WithExecRunner(iexec.NewRunner()),
		orchestrator.WithTestOutput(os.Stdout, os.Stderr),
	)

	if cfg.Build.History {
		db, err := state.OpenHistory(cfg.Paths.Output)
		if err != nil {
			s.logger.Log("history disabled: %v", err)
		} else {
			s.history = db
			opts = append(opts, orchestrator.WithHistory(db))
		}
	}

	b, err := orchestrator.New(required, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.builder = b
	return s, nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runBuild(cmd *cobra.Command, args []string) error {
	req, err := parseRequest(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := openSession(cfg, newReporter(cfg))
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	res, err := s.builder.Run(ctx, req)
	if err != nil {
		return err
	}
	if code := res.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}
