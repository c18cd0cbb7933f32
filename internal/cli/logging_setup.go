package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/logging"
)

// setupLogging configures logging from the loaded configuration and CLI
// flags, and stores a traced logger in the command context.
func setupLogging(cmd *cobra.Command, cfg *config.Config) (*logging.LoggerResult, error) {
	loggingCfg := cfg.Logging

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = "console"
		loggingCfg.File = ""
	}

	// Ensure log directory exists after all overrides have been applied.
	if loggingCfg.File != "" {
		if err := loggingCfg.EnsureLogDir(); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		}
	}

	lc := loggingCfg.ToLoggingConfig()
	var (
		result *logging.LoggerResult
		err    error
	)
	if lc.Output == logging.OutputFile {
		result, err = logging.NewLoggerWithWriter(lc, nil)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v, logging to stderr\n", err)
			result = nil
		}
	}
	if result == nil {
		result, err = logging.NewLoggerWithWriter(lc, cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("configuring logging: %w", err)
		}
	}

	logger = logging.ComponentLogger(result.Logger, "cli")

	ctx := cmd.Context()
	ctx = logging.WithTrace(ctx, logger)
	cmd.SetContext(ctx)

	logging.FromContext(ctx).Info().Str("command", cmd.Name()).Msg("command started")
	if result.FilePath != "" {
		logging.FromContext(ctx).Debug().Str("log_file", result.FilePath).Msg("logging to file")
	}

	return result, nil
}

// cleanupLogging closes the log file handle.
func cleanupLogging(_ *cobra.Command, logResult *logging.LoggerResult) error {
	if logResult != nil {
		return logResult.Close()
	}
	return nil
}
