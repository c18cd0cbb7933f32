package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudseek/cloudseek/internal/config"
)

// NewConfigInitCmd creates the config init command, which writes the default
// configuration to the config path.
func NewConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values at
$CLOUDSEEK_HOME/config.yaml (default ~/.cloudseek/config.yaml), or at the
path given with --config.`,
		Example: `  # Create configuration
  cloudseek config init

  # Create configuration, overwriting existing
  cloudseek config init --force`,
		Annotations: map[string]string{annotationSkipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	cfg := config.New()
	if path := config.GetGlobalConfig().ConfigPath(); path != "" {
		cfg.SetConfigPath(path)
	}

	// Check if config already exists and force isn't set
	if !force {
		if _, err := os.Stat(cfg.ConfigPath()); err == nil {
			return errors.New("configuration file already exists, use --force to overwrite")
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access config path %s: %w", cfg.ConfigPath(), err)
		}
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized successfully\n")
	cmd.Printf("Configuration file: %s\n", cfg.ConfigPath())

	return nil
}
