//go:build !linux

package listing

import (
	"os"
	"runtime"

	"github.com/meghashyamc/deepfind/logger"
)

func mountedVolumes(log logger.Logger) []volume {
	if runtime.GOOS != "windows" {
		return []volume{{mountPoint: "/"}}
	}

	var volumes []volume
	for letter := 'A'; letter <= 'Z'; letter++ {
		root := string(letter) + `:\`
		if _, err := os.Stat(root); err != nil {
			continue
		}
		volumes = append(volumes, volume{mountPoint: root})
	}
	if len(volumes) == 0 {
		log.Debug("no ready drives found")
	}
	return volumes
}
