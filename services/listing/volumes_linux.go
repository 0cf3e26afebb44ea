//go:build linux

package listing

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/meghashyamc/deepfind/logger"
	"golang.org/x/sys/unix"
)

const (
	mountsFile    = "/proc/self/mounts"
	labelsDir     = "/dev/disk/by-label"
	devicesPrefix = "/dev/"
)

// mountedVolumes returns block-device backed mounts that answer statfs.
func mountedVolumes(log logger.Logger) []volume {
	file, err := os.Open(mountsFile)
	if err != nil {
		log.Debug("could not read mount table", "err", err.Error())
		return []volume{{mountPoint: "/"}}
	}
	defer file.Close()

	labels := deviceLabels()
	seen := make(map[string]struct{})
	var volumes []volume

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !strings.HasPrefix(fields[0], devicesPrefix) {
			continue
		}
		device := fields[0]
		mountPoint := unescapeMountField(fields[1])
		if _, ok := seen[mountPoint]; ok {
			continue
		}

		if !isVolumeReady(mountPoint) {
			continue
		}
		seen[mountPoint] = struct{}{}

		if resolved, err := filepath.EvalSymlinks(device); err == nil {
			device = resolved
		}
		volumes = append(volumes, volume{mountPoint: mountPoint, label: labels[device]})
	}

	if len(volumes) == 0 {
		return []volume{{mountPoint: "/"}}
	}
	return volumes
}

func isVolumeReady(mountPoint string) bool {
	var stat unix.Statfs_t
	if err := unix.Statfs(mountPoint, &stat); err != nil {
		return false
	}
	return stat.Blocks > 0
}

// deviceLabels maps resolved device paths to their filesystem labels.
func deviceLabels() map[string]string {
	labels := make(map[string]string)
	entries, err := os.ReadDir(labelsDir)
	if err != nil {
		return labels
	}

	for _, entry := range entries {
		device, err := filepath.EvalSymlinks(filepath.Join(labelsDir, entry.Name()))
		if err != nil {
			continue
		}
		labels[device] = unescapeMountField(entry.Name())
	}
	return labels
}

// unescapeMountField decodes the octal escapes the kernel uses for blanks in
// mount table fields and udev label names.
func unescapeMountField(field string) string {
	replacer := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`, `\x20`, " ")
	return replacer.Replace(field)
}
