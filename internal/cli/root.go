// Package cli implements the cloudseek command line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/logging"
)

// annotationSkipConfigLoad marks commands that read the configuration file
// themselves, so a broken file does not stop them from running.
const annotationSkipConfigLoad = "cloudseek/skip-config-load"

// ExitError carries a process exit code other than 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code for err: 0 for nil, the code of a wrapped
// ExitError, otherwise 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger = zerolog.Nop() //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the cloudseek CLI.
// It loads the configuration, wires up logging and tracing, and adds the
// feed, browse, config and version subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logResult  *logging.LoggerResult
		configPath string
	)

	cmd := &cobra.Command{
		Use:           "cloudseek",
		Short:         "Browse the CloudSeek article catalogue",
		Long:          "CloudSeek: page through articles with batched, deduplicated and cached requests",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.New()
			if cmd.Annotations[annotationSkipConfigLoad] == "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("loading configuration: %w", err)
				}
				cfg = loaded
				for _, w := range cfg.Warnings() {
					cmd.PrintErrf("Warning: %s\n", w)
				}
			} else if configPath != "" {
				cfg.SetConfigPath(configPath)
			}
			config.SetGlobalConfig(cfg)

			result, err := setupLogging(cmd, cfg)
			if err != nil {
				return err
			}
			logResult = result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"configuration file (default $CLOUDSEEK_HOME/config.yaml or ~/.cloudseek/config.yaml)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.AddCommand(NewFeedCmd(), NewBrowseCmd(), newConfigCmd(), NewVersionCmd())

	return cmd
}

const rootCmdExample = `  # Fetch the first three pages concurrently in one batch
  cloudseek feed --pages 3

  # Security articles by title, twice, to show cache hits
  cloudseek feed --category security --sort title:asc --repeat 2

  # Browse interactively
  cloudseek browse

  # Initialize configuration
  cloudseek config init`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigShowCmd(), NewConfigValidateCmd())
	return cmd
}
