package listing

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meghashyamc/deepfind/logger"
)

// RootPath is the sentinel that lists mounted volumes instead of a directory.
const RootPath = ""

// Child is one immediate child of a directory, before its metadata is read.
type Child struct {
	Name   string
	IsDir  bool
	IsLink bool
	entry  fs.DirEntry
}

type Lister struct {
	logger logger.Logger
}

func New(logger logger.Logger) *Lister {
	return &Lister{logger: logger}
}

// List returns the immediate children of path as entries, directories first.
// Enumeration errors yield an empty slice.
func (l *Lister) List(path string) []Entry {
	if path == RootPath {
		return l.listVolumes()
	}

	path = filepath.Clean(path)
	children, err := l.ReadChildren(path)
	if err != nil {
		return []Entry{}
	}

	entries := make([]Entry, 0, len(children))
	for _, child := range children {
		entry, err := l.Materialize(path, child)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

// ReadChildren enumerates path without reading per-child metadata, so
// callers only pay for stat on entries they keep. The result is directories
// first then files, each group sorted case-insensitively.
func (l *Lister) ReadChildren(path string) ([]Child, error) {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		l.logger.Debug("could not enumerate directory", "path", path, "err", err.Error())
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	var dirs, files []Child
	for _, dirEntry := range dirEntries {
		child := Child{Name: dirEntry.Name(), IsDir: dirEntry.IsDir(), entry: dirEntry}
		if dirEntry.Type()&fs.ModeSymlink != 0 {
			child.IsLink = true
			// Follow links so linked directories are traversable.
			if info, err := os.Stat(filepath.Join(path, child.Name)); err == nil {
				child.IsDir = info.IsDir()
			}
		}

		if child.IsDir {
			dirs = append(dirs, child)
		} else {
			files = append(files, child)
		}
	}

	sortChildren(dirs)
	sortChildren(files)

	return append(dirs, files...), nil
}

// Materialize reads the metadata of child and turns it into an entry. An
// error means the child vanished or became unreadable and should be skipped.
func (l *Lister) Materialize(parentPath string, child Child) (Entry, error) {
	var info fs.FileInfo
	var err error
	if child.entry != nil && !child.IsLink {
		info, err = child.entry.Info()
	} else {
		info, err = os.Stat(filepath.Join(parentPath, child.Name))
		if err != nil {
			info, err = os.Lstat(filepath.Join(parentPath, child.Name))
		}
	}
	if err != nil {
		l.logger.Debug("could not read entry metadata", "path", filepath.Join(parentPath, child.Name), "err", err.Error())
		return Entry{}, err
	}

	entry := NewEntry(info, parentPath)
	return entry, nil
}

func (l *Lister) listVolumes() []Entry {
	volumes := mountedVolumes(l.logger)
	sort.Slice(volumes, func(i, j int) bool {
		return volumes[i].mountPoint < volumes[j].mountPoint
	})

	entries := make([]Entry, 0, len(volumes))
	for _, volume := range volumes {
		entries = append(entries, NewVolumeEntry(volume.mountPoint, volume.label))
	}
	return entries
}

func sortChildren(children []Child) {
	sort.Slice(children, func(i, j int) bool {
		return lessFold(children[i].Name, children[j].Name)
	})
}

// lessFold orders names ordinally ignoring case, falling back to the exact
// name so the order is total.
func lessFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

type volume struct {
	mountPoint string
	label      string
}
