package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagFull    bool
	flagRelease bool
	flagTest    bool

	flagProject string
	flagSource  string
	flagOutput  string
	flagJobs    int
	flagNoColor bool
	flagDebug   bool
)

// exitError carries a process exit code out of a command without printing
// anything further.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var rootCmd = &cobra.Command{
	Use:   "kiln [build] [release] [test]",
	Short: "Incremental build orchestrator for C/C++ trees",
	Long: `kiln compiles a C/C++ source tree incrementally.

It follows #include directives to find which sources depend on which
headers, checksums every file, and recompiles only what changed since the
last run. Sources defining main() are linked into executables; those whose
name matches the test pattern are test binaries.

Words may be given in any order:
  build     rebuild everything
  release   use the release flag profile
  test      run test binaries after a successful build

Examples:
  kiln                  # incremental debug build
  kiln release test     # release build, then run the tests
  kiln build            # full rebuild`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBuild,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&flagFull, "full", false, "Rebuild every source (same as the 'build' word)")
	rootCmd.Flags().BoolVar(&flagRelease, "release", false, "Use the release flag profile (same as the 'release' word)")
	rootCmd.Flags().BoolVar(&flagTest, "test", false, "Run test binaries after a successful build (same as the 'test' word)")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagProject, "project", "C", ".", "Project directory")
	pf.StringVar(&flagSource, "source", "", "Source root (overrides paths.source)")
	pf.StringVar(&flagOutput, "output", "", "Output root (overrides paths.output)")
	pf.IntVarP(&flagJobs, "jobs", "j", -1, "Concurrent compiles, 0 for one per CPU (overrides build.jobs)")
	pf.BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&flagDebug, "debug", false, "Write a debug log under <output>/logs")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
