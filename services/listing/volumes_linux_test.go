//go:build linux

package listing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnescapeMountField(t *testing.T) {
	assert := require.New(t)
	assert.Equal("/media/My Disk", unescapeMountField(`/media/My\040Disk`))
	assert.Equal("plain", unescapeMountField("plain"))
}

func TestIsVolumeReady(t *testing.T) {
	assert := require.New(t)
	assert.True(isVolumeReady("/"))
	assert.False(isVolumeReady("/definitely/not/a/mount/point"))
}
