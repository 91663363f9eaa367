// Package config handles configuration loading and management for kiln.
// It supports XDG config paths, project-level overrides, a project .env
// file and KILN_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ProjectConfigName is the project-level override file.
const ProjectConfigName = ".kiln.yaml"

// Config holds all configuration for kiln.
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Toolchain ToolchainConfig `mapstructure:"toolchain"`
	Build     BuildConfig     `mapstructure:"build"`
	Log       LogConfig       `mapstructure:"log"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// PathsConfig locates the source tree and build outputs.
type PathsConfig struct {
	Source string `mapstructure:"source"`
	Output string `mapstructure:"output"`
	// Marker is the file name that makes its directory an include root.
	Marker string `mapstructure:"marker"`
}

// ToolchainConfig describes the external compiler and its flag profiles.
type ToolchainConfig struct {
	Compiler     string   `mapstructure:"compiler"`
	Std          int      `mapstructure:"std"`
	DebugFlags   []string `mapstructure:"debug_flags"`
	ReleaseFlags []string `mapstructure:"release_flags"`
	LinkFlags    []string `mapstructure:"link_flags"`
}

// BuildConfig holds build behaviour settings.
type BuildConfig struct {
	// Jobs bounds concurrent compiles; 0 means one per CPU.
	Jobs        int    `mapstructure:"jobs"`
	TestPattern string `mapstructure:"test_pattern"`
	// History enables the SQLite run history.
	History bool `mapstructure:"history"`
}

// LogConfig holds logging and terminal output settings.
type LogConfig struct {
	// Debug writes a debug log under <output>/logs.
	Debug bool `mapstructure:"debug"`
	// Color is "auto", "always" or "never".
	Color string `mapstructure:"color"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// StdFlag returns the -std flag shared by compiling and linking.
func (t ToolchainConfig) StdFlag() string {
	return fmt.Sprintf("-std=c++%d", t.Std)
}

// CompileFlags returns the compiler flags for the requested profile.
func (t ToolchainConfig) CompileFlags(release bool) []string {
	profile := t.DebugFlags
	if release {
		profile = t.ReleaseFlags
	}
	return append([]string{t.StdFlag()}, profile...)
}

// LinkerFlags returns the flags appended to every link command.
func (t ToolchainConfig) LinkerFlags() []string {
	return append([]string{t.StdFlag()}, t.LinkFlags...)
}

// Load loads configuration for the project rooted at projectDir.
// Precedence (highest to lowest):
// 1. Environment variables (KILN_PATHS_SOURCE, KILN_BUILD_JOBS, ...),
// including those set by <projectDir>/.env
// 2. Project config (.kiln.yaml in projectDir or a parent)
// 3. User config (~/.config/kiln/config.yaml)
// 4. Built-in defaults
func Load(projectDir string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load(filepath.Join(projectDir, ".env"))

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(projectDir); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	v.SetEnvPrefix("KILN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the build cannot work with.
func (c *Config) Validate() error {
	if c.Paths.Source == "" {
		return fmt.Errorf("paths.source must not be empty")
	}
	if c.Paths.Output == "" {
		return fmt.Errorf("paths.output must not be empty")
	}
	if c.Paths.Marker == "" {
		return fmt.Errorf("paths.marker must not be empty")
	}
	if c.Toolchain.Compiler == "" {
		return fmt.Errorf("toolchain.compiler must not be empty")
	}
	if c.Build.Jobs < 0 {
		return fmt.Errorf("build.jobs must be >= 0, got %d", c.Build.Jobs)
	}
	switch c.Log.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("log.color must be auto, always or never, got %q", c.Log.Color)
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath(projectDir string) string {
	return findProjectConfig(projectDir)
}

// ProjectRoot returns the directory relative paths.* settings are
// anchored to: the one holding the nearest .kiln.yaml, or projectDir
// when there is none.
func ProjectRoot(projectDir string) string {
	if p := findProjectConfig(projectDir); p != "" {
		return filepath.Dir(p)
	}
	return projectDir
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("paths.source", d.Paths.Source)
	v.SetDefault("paths.output", d.Paths.Output)
	v.SetDefault("paths.marker", d.Paths.Marker)

	v.SetDefault("toolchain.compiler", d.Toolchain.Compiler)
	v.SetDefault("toolchain.std", d.Toolchain.Std)
	v.SetDefault("toolchain.debug_flags", d.Toolchain.DebugFlags)
	v.SetDefault("toolchain.release_flags", d.Toolchain.ReleaseFlags)
	v.SetDefault("toolchain.link_flags", d.Toolchain.LinkFlags)

	v.SetDefault("build.jobs", d.Build.Jobs)
	v.SetDefault("build.test_pattern", d.Build.TestPattern)
	v.SetDefault("build.history", d.Build.History)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.color", d.Log.Color)

	v.SetDefault("watch.debounce", d.Watch.Debounce.String())
}

// getUserConfigDir returns the XDG config directory for kiln.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kiln")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "kiln")
	}
	return filepath.Join(home, ".config", "kiln")
}

// findProjectConfig searches for .kiln.yaml in dir and its parents.
func findProjectConfig(dir string) string {
	cwd, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Source: "src",
			Output: "bin",
			Marker: "include_dir",
		},
		Toolchain: ToolchainConfig{
			Compiler:     "g++",
			Std:          11,
			DebugFlags:   []string{"-Wall", "-Wextra", "-g", "-O1", "-fPIC"},
			ReleaseFlags: []string{"-O3", "-Wall", "-Wextra", "-Ofast", "-DNDEBUG", "-fPIC"},
			LinkFlags:    []string{"-lm"},
		},
		Build: BuildConfig{
			Jobs:        0,
			TestPattern: "(?i)test",
			History:     true,
		},
		Log: LogConfig{
			Debug: false,
			Color: "auto",
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}
