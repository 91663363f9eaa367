package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// fileConfig mirrors Config with YAML tags and durations as strings, the
// shape users write by hand.
type fileConfig struct {
	Paths struct {
		Source string `yaml:"source"`
		Output string `yaml:"output"`
		Marker string `yaml:"marker"`
	} `yaml:"paths"`
	Toolchain struct {
		Compiler     string   `yaml:"compiler"`
		Std          int      `yaml:"std"`
		DebugFlags   []string `yaml:"debug_flags"`
		ReleaseFlags []string `yaml:"release_flags"`
		LinkFlags    []string `yaml:"link_flags"`
	} `yaml:"toolchain"`
	Build struct {
		Jobs        int    `yaml:"jobs"`
		TestPattern string `yaml:"test_pattern"`
		History     bool   `yaml:"history"`
	} `yaml:"build"`
	Log struct {
		Debug bool   `yaml:"debug"`
		Color string `yaml:"color"`
	} `yaml:"log"`
	Watch struct {
		Debounce string `yaml:"debounce"`
	} `yaml:"watch"`
}

func toFile(cfg *Config) fileConfig {
	var f fileConfig
	f.Paths.Source = cfg.Paths.Source
	f.Paths.Output = cfg.Paths.Output
	f.Paths.Marker = cfg.Paths.Marker
	f.Toolchain.Compiler = cfg.Toolchain.Compiler
	f.Toolchain.Std = cfg.Toolchain.Std
	f.Toolchain.DebugFlags = cfg.Toolchain.DebugFlags
	f.Toolchain.ReleaseFlags = cfg.Toolchain.ReleaseFlags
	f.Toolchain.LinkFlags = cfg.Toolchain.LinkFlags
	f.Build.Jobs = cfg.Build.Jobs
	f.Build.TestPattern = cfg.Build.TestPattern
	f.Build.History = cfg.Build.History
	f.Log.Debug = cfg.Log.Debug
	f.Log.Color = cfg.Log.Color
	f.Watch.Debounce = cfg.Watch.Debounce.String()
	return f
}

// Marshal renders cfg as YAML in the layout of .kiln.yaml.
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(toFile(cfg))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// WriteTemplate writes cfg to path unless the file already exists.
func WriteTemplate(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	header := []byte("# kiln project configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
