package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prototypedave/hybridTool/internal/config"
)

//go:embed templates/hybridscan.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new hybridscan configuration file",
		Long: `Initialize creates a new .hybridscan.yaml configuration file in the current directory.

The generated file documents every option with its default value:
- HTTP API address and database location
- Job timeout, rescan interval and rescanned targets
- Retry policy of the performance audits
- Chrome, Lighthouse, ping, traceroute, ZAP and ipinfo settings`,
		Example: `  # Create .hybridscan.yaml in current directory
  hybridscan init

  # Create config file at a specific path
  hybridscan init -o myconfig.yaml

  # Force overwrite existing file
  hybridscan init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
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
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/hybridscan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold the ZAP API key and the ipinfo token.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - The ZAP API address and key")
	fmt.Fprintln(out, "  - Targets to rescan periodically")
	fmt.Fprintln(out, "  - Lighthouse, ping and traceroute commands")

	return nil
}
