package listing

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/meghashyamc/deepfind/logger"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logger.Logger {
	return logger.NewWithLevel(os.Stderr, slog.LevelDebug)
}

func writeTree(t *testing.T, root string, paths []string) {
	t.Helper()
	for _, relPath := range paths {
		fullPath := filepath.Join(root, filepath.FromSlash(relPath))
		if relPath[len(relPath)-1] == '/' {
			require.NoError(t, os.MkdirAll(fullPath, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
		require.NoError(t, os.WriteFile(fullPath, []byte("content of "+relPath), 0644))
	}
}

func names(entries []Entry) []string {
	result := make([]string, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entry.Name)
	}
	return result
}

func TestListDirectoriesBeforeFiles(t *testing.T) {
	assert := require.New(t)
	root := t.TempDir()
	writeTree(t, root, []string{
		"zeta.txt",
		"Alpha.md",
		"beta",
		"Zoo/",
		"apple/",
		"Mango/",
		"banana.go",
	})

	entries := New(newTestLogger()).List(root)

	assert.Equal([]string{"apple", "Mango", "Zoo", "Alpha.md", "banana.go", "beta", "zeta.txt"}, names(entries))

	seenFile := false
	for _, entry := range entries {
		if !entry.IsDirectory {
			seenFile = true
			continue
		}
		assert.False(seenFile, "directory %s listed after a file", entry.Name)
	}
}

func TestListEntryMetadata(t *testing.T) {
	assert := require.New(t)
	root := t.TempDir()
	writeTree(t, root, []string{"docs/", "readme.md", "Makefile"})

	entries := New(newTestLogger()).List(root)
	assert.Len(entries, 3)

	docs := entries[0]
	assert.Equal("docs", docs.Name)
	assert.True(docs.IsDirectory)
	assert.Equal(int64(0), docs.SizeBytes)
	assert.Equal("File folder", docs.TypeLabel)
	assert.Equal(filepath.Clean(root), docs.ParentPath)
	assert.Equal(filepath.Join(root, "docs"), docs.FullPath)

	makefile := entries[1]
	assert.Equal("Makefile", makefile.Name)
	assert.Equal("File", makefile.TypeLabel)

	readme := entries[2]
	assert.Equal("MD File", readme.TypeLabel)
	assert.Equal(int64(len("content of readme.md")), readme.SizeBytes)
	assert.WithinDuration(time.Now(), readme.LastModified, time.Minute)
	assert.Equal(filepath.Join(readme.ParentPath, readme.Name), readme.FullPath)
}

func TestListFailuresYieldEmpty(t *testing.T) {
	assert := require.New(t)
	root := t.TempDir()
	writeTree(t, root, []string{"file.txt"})
	lister := New(newTestLogger())

	missing := lister.List(filepath.Join(root, "missing"))
	assert.NotNil(missing)
	assert.Empty(missing)

	assert.Empty(lister.List(filepath.Join(root, "file.txt")))
}

func TestListFollowsDirectorySymlinks(t *testing.T) {
	assert := require.New(t)
	root := t.TempDir()
	writeTree(t, root, []string{"target/inner.txt"})
	if err := os.Symlink(filepath.Join(root, "target"), filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks not supported: %s", err)
	}
	if err := os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "dangling")); err != nil {
		t.Skipf("symlinks not supported: %s", err)
	}

	entries := New(newTestLogger()).List(root)

	assert.Equal([]string{"link", "target", "dangling"}, names(entries))
	assert.True(entries[0].IsDirectory)
	assert.Equal("File folder", entries[0].TypeLabel)
	assert.False(entries[2].IsDirectory)
}

func TestListRootReturnsVolumes(t *testing.T) {
	assert := require.New(t)

	volumes := New(newTestLogger()).List(RootPath)

	assert.NotEmpty(volumes)
	mountPoints := make([]string, 0, len(volumes))
	for _, volume := range volumes {
		assert.True(volume.IsDirectory)
		assert.Equal("Local Disk", volume.TypeLabel)
		assert.Empty(volume.ParentPath)
		mountPoints = append(mountPoints, volume.FullPath)
	}
	assert.True(sort.StringsAreSorted(mountPoints))
}

func TestNewVolumeEntryLabel(t *testing.T) {
	assert := require.New(t)

	assert.Equal("Data (/mnt/data)", NewVolumeEntry("/mnt/data", "Data").DisplayLabel)
	assert.Equal("/", NewVolumeEntry("/", "").DisplayLabel)
}

func TestNewVolumeEntryNameIsBaseName(t *testing.T) {
	assert := require.New(t)

	data := NewVolumeEntry(filepath.FromSlash("/mnt/data"), "Data")
	assert.Equal("data", data.Name)
	assert.Equal(filepath.FromSlash("/mnt/data"), data.FullPath)
	assert.NotContains(data.Name, string(filepath.Separator))

	root := NewVolumeEntry(string(filepath.Separator), "")
	assert.Equal(string(filepath.Separator), root.Name)
	assert.Equal(string(filepath.Separator), root.FullPath)
}

func TestWithDisplayLabel(t *testing.T) {
	assert := require.New(t)
	root := t.TempDir()
	writeTree(t, root, []string{"top.txt", "sub/deep.txt"})
	lister := New(newTestLogger())

	top := lister.List(root)[1].WithDisplayLabel(root)
	assert.Equal("top.txt", top.DisplayLabel)

	deep := lister.List(filepath.Join(root, "sub"))[0].WithDisplayLabel(root)
	assert.Equal(filepath.Join(root, "sub", "deep.txt"), deep.DisplayLabel)
}
