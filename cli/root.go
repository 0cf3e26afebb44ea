package cli

import (
	"github.com/meghashyamc/deepfind/config"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

var configEnv string

// NewRootCommand creates and returns the root cobra command for deepfind
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deepfind",
		Short: "Breadth-first file name search",
		Long: `deepfind searches a directory tree for files and folders whose names
contain a query, shallowest matches first.

It can run as an HTTP server streaming results to a browser, or directly
from the terminal.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configEnv, "env", "", "config environment to load (defaults to $ENV, then local)")

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewSearchCommand())

	return cmd
}

func loadConfig() (*config.Config, error) {
	return config.Load(configEnv)
}
