package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/kiln/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .kiln.yaml in the project directory",
	Long: `Write a .kiln.yaml with the default settings to the project directory and
create the source and output directories if they are missing.

An existing .kiln.yaml is never overwritten.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if flagSource != "" {
		cfg.Paths.Source = flagSource
	}
	if flagOutput != "" {
		cfg.Paths.Output = flagOutput
	}

	path := filepath.Join(flagProject, config.ProjectConfigName)
	if err := config.WriteTemplate(path, cfg); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)

	for _, dir := range []string{cfg.Paths.Source, cfg.Paths.Output} {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(flagProject, dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
