package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/meghashyamc/deepfind/config"
	"github.com/meghashyamc/deepfind/logger"
	"github.com/meghashyamc/deepfind/services/listing"
	"github.com/meghashyamc/deepfind/services/search"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	root      string
	query     string
	resultCap int
	all       bool
	// interactive asks before each resume instead of stopping at the first pause.
	interactive bool
	// progress writes a live folder and file count to the error stream.
	progress bool
}

// NewSearchCommand creates the search subcommand
func NewSearchCommand() *cobra.Command {
	var (
		resultCap int
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "search <root> <query>",
		Short: "Search a directory tree for names containing query",
		Long: `Search walks root breadth first and prints every file or folder whose
name contains query, ignoring case. Shallow matches come first.

Results arrive in batches of --cap. In a terminal you are asked whether to
continue after each batch; otherwise the search stops at the first batch
unless --all is given.`,
		Example: `  deepfind search ~/projects readme
  deepfind search / passwd --all
  deepfind search . .go --cap 50`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			opts := searchOptions{
				root:        args[0],
				query:       args[1],
				resultCap:   resultCap,
				all:         all,
				interactive: isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout()),
				progress:    isTerminal(cmd.ErrOrStderr()),
			}
			return runSearch(ctx, newSearchService(cfg, logger.Discard()), opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&resultCap, "cap", "n", 0, "matches per batch (0 uses the configured result cap)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "keep resuming until the whole tree is searched")

	return cmd
}

// newSearchService builds a service without a status store; terminal searches
// are not recorded.
func newSearchService(cfg *config.Config, log logger.Logger) *search.Service {
	return search.New(log, listing.New(log), nil, search.Options{
		ResultCap:            cfg.GetResultCap(),
		Skip:                 search.SkipNamed(cfg.GetSystemDirectory()),
		CaseInsensitivePaths: cfg.GetCaseInsensitivePaths(),
		ProgressFolders:      cfg.GetProgressFolders(),
		ProgressFiles:        cfg.GetProgressFiles(),
	})
}

func runSearch(ctx context.Context, service *search.Service, opts searchOptions, in io.Reader, out io.Writer, errOut io.Writer) error {
	p := newPrinter(out)
	status := newPrinter(errOut)

	callbacks := search.Callbacks{
		OnMatch: p.match,
	}
	if opts.progress {
		callbacks.OnProgress = func(foldersChecked int, filesChecked int) {
			status.dim.Fprintf(status.out, "\r%d folders, %d files checked", foldersChecked, filesChecked)
		}
	}

	session, err := service.Start(opts.root, opts.query, callbacks, opts.resultCap)
	if err != nil {
		return err
	}

	answers := bufio.NewReader(in)
	for {
		if err := session.Wait(ctx); err != nil {
			// Interrupted.
			session.Cancel()
			fmt.Fprintln(errOut)
			return nil
		}
		if opts.progress {
			fmt.Fprint(errOut, "\r\033[K")
		}

		switch session.State() {
		case search.StateCompleted:
			reportDone(status, session)
			return nil
		case search.StateCancelled:
			return nil
		}

		// Paused at the result cap.
		if !opts.all && !(opts.interactive && askMore(ctx, p, answers)) {
			_, _, emitted := session.Stats()
			status.warn.Fprintf(status.out, "stopped after %d matches; rerun with --all for everything\n", emitted)
			session.Cancel()
			return nil
		}
		if err := session.Resume(); err != nil {
			return err
		}
	}
}

// askMore prompts for another batch. Anything but y or yes is a no.
func askMore(ctx context.Context, p *printer, answers *bufio.Reader) bool {
	if ctx.Err() != nil {
		return false
	}

	p.warn.Fprint(p.out, "more? [y/N] ")
	line, err := answers.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func reportDone(p *printer, session *search.Session) {
	folders, files, emitted := session.Stats()
	p.ok.Fprintf(p.out, "%d matches; %d folders and %d files checked\n", emitted, folders, files)
}
