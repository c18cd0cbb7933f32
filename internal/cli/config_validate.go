package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudseek/cloudseek/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Loads the configuration file and environment overrides and checks them.

This includes:
- YAML syntax and unknown keys
- Schema version compatibility
- Scheduler, window, content and logging ranges`,
		Example: `  # Validate current configuration
  cloudseek config validate

  # Validate and show detailed information
  cloudseek config validate --verbose`,
		Annotations: map[string]string{annotationSkipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	warnings := cfg.Warnings()
	if len(warnings) > 0 {
		cmd.Println("Configuration warnings:")
		for _, w := range warnings {
			cmd.Printf("  - %s\n", w)
		}
		cmd.Println()
	}
	cmd.Printf("Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}

	return nil
}

// printVerboseDetails prints the settings that shape scheduling and layout.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Printf("File:            %s\n", cfg.ConfigPath())
	cmd.Printf("Schema version:  %s\n", cfg.SchemaVersion)
	cmd.Println()
	cmd.Println("Scheduler:")
	cmd.Printf("  max_batch_size: %d\n", cfg.Scheduler.MaxBatchSize)
	cmd.Printf("  max_wait:       %s\n", cfg.Scheduler.MaxWaitTime)
	cmd.Printf("  cache_ttl:      %s\n", cfg.Scheduler.CacheTTL)
	cmd.Println("Window:")
	cmd.Printf("  estimated_item_height: %g\n", cfg.Window.EstimatedItemHeight)
	cmd.Printf("  overscan:              %d\n", cfg.Window.OverscanCount)
	cmd.Println("Logging:")
	cmd.Printf("  level:  %s\n", cfg.Logging.Level)
	cmd.Printf("  format: %s\n", cfg.Logging.Format)
	if cfg.Logging.File != "" {
		cmd.Printf("  file:   %s\n", cfg.Logging.File)
	}
}
