package cli

import (
	"fmt"

	"github.com/meghashyamc/deepfind/api"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve subcommand
func NewServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if port != "" {
				cfg.Set("PORT", port)
			}

			return api.Run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (overrides config)")

	return cmd
}
