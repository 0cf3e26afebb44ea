package cli

import (
	"fmt"
	"path/filepath"

	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/services/listing"
	"github.com/spf13/cobra"
)

// NewListCommand creates the ls subcommand
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory, or the mounted volumes when no path is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := listing.RootPath
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return fmt.Errorf("invalid path %q: %w", args[0], err)
				}
				path = abs
			}

			runList(path, newPrinter(cmd.OutOrStdout()), logger.Discard())
			return nil
		},
	}

	return cmd
}

// runList prints the entries of path. Unreadable directories list as empty.
func runList(path string, p *printer, log logger.Logger) {
	entries := listing.New(log).List(path)
	if len(entries) == 0 {
		p.dim.Fprintln(p.out, "(empty)")
		return
	}
	for _, entry := range entries {
		p.entryRow(entry)
	}
}
