package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGet tests that the payload carries the ldflags values plus the
// runtime Go version.
func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildTime, info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}
