package listing

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

const (
	folderTypeLabel = "File folder"
	volumeTypeLabel = "Local Disk"
	fileTypeSuffix  = " File"
	defaultFileType = "File"
)

// Entry is one file, directory or volume surfaced by a listing or a search.
type Entry struct {
	Name         string    `json:"name"`
	FullPath     string    `json:"full_path"`
	IsDirectory  bool      `json:"is_directory"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
	TypeLabel    string    `json:"type_label"`
	ParentPath   string    `json:"parent_path,omitempty"`
	DisplayLabel string    `json:"display_label"`
}

// NewEntry materializes an entry from metadata the caller already read.
// info must be valid; callers skip entries whose metadata could not be read.
func NewEntry(info fs.FileInfo, parentPath string) Entry {
	name := info.Name()
	entry := Entry{
		Name:         name,
		FullPath:     filepath.Join(parentPath, name),
		IsDirectory:  info.IsDir(),
		LastModified: info.ModTime(),
		ParentPath:   parentPath,
		DisplayLabel: name,
	}

	if entry.IsDirectory {
		entry.TypeLabel = folderTypeLabel
		return entry
	}

	entry.SizeBytes = info.Size()
	entry.TypeLabel = fileTypeLabel(name)
	return entry
}

// NewVolumeEntry builds the synthetic directory entry for a mounted volume.
func NewVolumeEntry(mountPoint string, label string) Entry {
	display := mountPoint
	if label != "" {
		display = label + " (" + mountPoint + ")"
	}

	return Entry{
		Name:         volumeName(mountPoint),
		FullPath:     mountPoint,
		IsDirectory:  true,
		TypeLabel:    volumeTypeLabel,
		DisplayLabel: display,
	}
}

// WithDisplayLabel applies the search label rule: entries directly under
// searchRoot show their name, deeper ones show the full path.
func (e Entry) WithDisplayLabel(searchRoot string) Entry {
	if e.ParentPath == filepath.Clean(searchRoot) {
		e.DisplayLabel = e.Name
	} else {
		e.DisplayLabel = e.FullPath
	}
	return e
}

// volumeName is the last segment of a mount point. A filesystem root keeps
// its volume name ("C:") or its separator ("/").
func volumeName(mountPoint string) string {
	name := filepath.Base(mountPoint)
	if name != string(filepath.Separator) && name != "." {
		return name
	}
	if volume := filepath.VolumeName(mountPoint); volume != "" {
		return volume
	}
	return string(filepath.Separator)
}

func fileTypeLabel(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return defaultFileType
	}
	return strings.ToUpper(ext) + fileTypeSuffix
}
