package cmd

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveVersion(t *testing.T) {
	build := func(bi *debug.BuildInfo) func() (*debug.BuildInfo, bool) {
		return func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	}

	assert.Equal(t, "v1.2.0", resolveVersion("v1.2.0", build(nil)))
	assert.Equal(t, "unknown", resolveVersion("unknown", build(nil)))
	assert.Equal(t, "v0.3.1", resolveVersion("unknown", build(&debug.BuildInfo{Main: debug.Module{Version: "v0.3.1"}})))
	assert.Equal(t, "0123456789ab", resolveVersion("unknown", build(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}},
	})))
	assert.Equal(t, "unknown", resolveVersion("unknown", build(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})))
}
