package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/meghashyamc/deepfind/services/listing"
)

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f any) bool {
	file, ok := f.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

type printer struct {
	out    io.Writer
	folder *color.Color
	dim    *color.Color
	warn   *color.Color
	ok     *color.Color
}

func newPrinter(out io.Writer) *printer {
	p := &printer{
		out:    out,
		folder: color.New(color.FgCyan, color.Bold),
		dim:    color.New(color.Faint),
		warn:   color.New(color.FgYellow),
		ok:     color.New(color.FgGreen),
	}

	if !isTerminal(out) {
		for _, c := range []*color.Color{p.folder, p.dim, p.warn, p.ok} {
			c.DisableColor()
		}
	}
	return p
}

// entryRow prints one listing row: modified time, type, size and name.
func (p *printer) entryRow(entry listing.Entry) {
	modified := ""
	if !entry.LastModified.IsZero() {
		modified = entry.LastModified.Local().Format(time.DateTime)
	}

	size := ""
	if !entry.IsDirectory {
		size = humanSize(entry.SizeBytes)
	}

	p.dim.Fprintf(p.out, "%-19s  %-14s  %10s  ", modified, entry.TypeLabel, size)
	if entry.IsDirectory {
		p.folder.Fprintln(p.out, entry.DisplayLabel)
		return
	}
	fmt.Fprintln(p.out, entry.DisplayLabel)
}

// match prints one search result.
func (p *printer) match(entry listing.Entry) {
	if entry.IsDirectory {
		p.folder.Fprintln(p.out, entry.DisplayLabel+string(os.PathSeparator))
		return
	}
	fmt.Fprintln(p.out, entry.DisplayLabel)
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
