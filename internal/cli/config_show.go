package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudseek/cloudseek/internal/config"
)

// NewConfigShowCmd creates the config show command, which prints the
// effective configuration after file and environment overrides.
func NewConfigShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Example: `  # Show as YAML
  cloudseek config show

  # Show as JSON
  cloudseek config show --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()

			var (
				data []byte
				err  error
			)
			switch output {
			case outputYAML:
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", cfg.ConfigPath())
				data, err = cfg.Marshal()
			case outputJSON:
				data, err = json.MarshalIndent(cfg, "", "  ")
				data = append(data, '\n')
			default:
				return fmt.Errorf("%w: --output must be yaml or json, got %q", errInvalidFlag, output)
			}
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputYAML, "output format: yaml, json")

	return cmd
}
