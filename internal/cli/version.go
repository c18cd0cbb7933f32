package cli

import (
	"github.com/spf13/cobra"

	"github.com/cloudseek/cloudseek/pkg/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{annotationSkipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("cloudseek %s\n", version.String())
			cmd.Printf("config schema %s (supports %s)\n", version.SchemaVersion, version.SupportedSchema)
			return nil
		},
	}
}
