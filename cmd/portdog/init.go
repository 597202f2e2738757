package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/portdog/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/portdog.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new portdog configuration file",
		Long: `Initialize creates a commented default configuration file.

Without flags the file is written to the XDG config directory, where
every scan picks it up automatically. The generated file includes:
- Default settings for ports, timing, and rate limiting
- Commented examples for per-target configurations
- Documentation for all available options

Examples:
  # Create the config file in the XDG config directory
  portdog init

  # Create a project-local config file instead
  portdog init -o .portdog.yaml

  # Force overwrite existing file
  portdog init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Output file path for the configuration (default: XDG config directory)")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = filepath.Join(config.XDGConfigDir(), config.XDGConfigFile)
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := configTemplate.ReadFile("templates/portdog.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write configuration file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("Created configuration file: %s\n", outputPath)
	fmt.Println("\nEdit this file to configure scan defaults and per-target settings such as:")
	fmt.Println("  - Port ranges and timing profiles")
	fmt.Println("  - Connection timeouts, concurrency, and rate limits")
	fmt.Println("  - SOCKS5 proxies for targets behind them")

	return nil
}
