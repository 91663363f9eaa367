package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kiln/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show effective configuration",
	Long: `View the effective kiln configuration.

Without arguments, displays every key with its value.
With one argument (key), displays the value for that key.

Values are layered, highest precedence first:
  KILN_* environment variables (a project .env file is loaded first)
  .kiln.yaml in the project directory or a parent
  ~/.config/kiln/config.yaml
  built-in defaults`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		}
		displayAllConfig(cfg)
		return nil
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	values := configValues(cfg)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %s\n", k, values[k])
	}

	fmt.Printf("\n%s\n", describeCompiler(cfg))
	if p := config.GetProjectConfigPath(flagProject); p != "" {
		fmt.Printf("project config: %s\n", p)
	}
	fmt.Printf("user config: %s\n", config.GetUserConfigPath())
}

// describeCompiler names the effective compiler, where it came from and
// where it lives on PATH.
func describeCompiler(cfg *config.Config) string {
	name, source := config.ResolveCompiler(cfg)
	line := fmt.Sprintf("compiler: %s (from %s)", name, source)
	path, err := config.LookupCompiler(cfg)
	if err != nil {
		return line + ", not found on PATH"
	}
	return line + " at " + path
}

func configValues(cfg *config.Config) map[string]string {
	return map[string]string{
		"paths.source":            cfg.Paths.Source,
		"paths.output":            cfg.Paths.Output,
		"paths.marker":            cfg.Paths.Marker,
		"toolchain.compiler":      cfg.Toolchain.Compiler,
		"toolchain.std":           strconv.Itoa(cfg.Toolchain.Std),
		"toolchain.debug_flags":   strings.Join(cfg.Toolchain.DebugFlags, " "),
		"toolchain.release_flags": strings.Join(cfg.Toolchain.ReleaseFlags, " "),
		"toolchain.link_flags":    strings.Join(cfg.Toolchain.LinkFlags, " "),
		"build.jobs":              strconv.Itoa(cfg.Build.Jobs),
		"build.test_pattern":      cfg.Build.TestPattern,
		"build.history":           strconv.FormatBool(cfg.Build.History),
		"log.debug":               strconv.FormatBool(cfg.Log.Debug),
		"log.color":               cfg.Log.Color,
		"watch.debounce":          cfg.Watch.Debounce.String(),
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	v, ok := configValues(cfg)[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return v, nil
}
