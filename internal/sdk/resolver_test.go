package sdk

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

const exportConfig = `{
  "name": "voxim",
  "version": "24.08.0",
  "libDir": "lib",
  "includeDirs": ["include"],
  "libraries": ["libvoxim.so"]
}`

func writeConfig(t *testing.T, fs afero.Fs, path string, payload string) {
	t.Helper()
	assert.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
	assert.NoError(t, afero.WriteFile(fs, path, []byte(payload), 0644))
}

func TestResolveUsesOverridePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/opt/sdk/install/lib/voxim/voxim-config.json", exportConfig)
	t.Setenv("VOXIM_SDK_PATH", "/opt/sdk")

	info, err := NewResolver(fs).Resolve("/work/repo/build-release", "")
	assert.NoError(t, err)
	assert.Equal(t, "/opt/sdk/install", info.Root)
	assert.Equal(t, "/opt/sdk/install/lib/voxim/voxim-config.json", info.ConfigPath)
	assert.Equal(t, "24.08.0", info.Config.Version)
}

func TestResolveConfiguredPathWinsOverEnvironment(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/opt/sdk/install/lib/voxim/voxim-config.json", exportConfig)
	writeConfig(t, fs, "/opt/other/install/lib/voxim/voxim-config.json", exportConfig)
	t.Setenv("VOXIM_SDK_PATH", "/opt/other")

	info, err := NewResolver(fs).Resolve("/work/repo/build-release", "/opt/sdk")
	assert.NoError(t, err)
	assert.Equal(t, "/opt/sdk/install", info.Root)
}

func TestResolveOverrideDoesNotFallThrough(t *testing.T) {
	fs := afero.NewMemMapFs()
	// A perfectly good SDK exists next to the build tree, but the override
	// points somewhere empty: that must fail rather than silently pick
	// another SDK.
	writeConfig(t, fs, "/work/repo/install/lib/voxim/voxim-config.json", exportConfig)
	t.Setenv("VOXIM_SDK_PATH", "/opt/empty")

	_, err := NewResolver(fs).Resolve("/work/repo/build-release", "")
	assert.Error(t, err)

	var notFound *PackageNotFoundError
	assert.ErrorAs(t, err, &notFound)
	for _, path := range notFound.Searched {
		assert.Contains(t, path, "/opt/empty")
	}
}

func TestResolveFallsBackToBuildTreeParent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/work/repo/install/lib/voxim/voxim-config.json", exportConfig)
	t.Setenv("VOXIM_SDK_PATH", "")
	t.Setenv("PREFIX", "")

	info, err := NewResolver(fs).Resolve("/work/repo/build-release", "")
	assert.NoError(t, err)
	assert.Equal(t, "/work/repo/install", info.Root)
}

func TestResolveFallsBackToPrefix(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/conda/env/lib/voxim/voxim-config.json", exportConfig)
	t.Setenv("VOXIM_SDK_PATH", "")
	t.Setenv("PREFIX", "/conda/env")

	info, err := NewResolver(fs).Resolve("/work/repo/build-release", "")
	assert.NoError(t, err)
	assert.Equal(t, "/conda/env", info.Root)
}

func TestResolveReportsEverySearchedPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	t.Setenv("VOXIM_SDK_PATH", "")
	t.Setenv("PREFIX", "/conda/env")

	_, err := NewResolver(fs).Resolve("/work/repo/build-release", "")
	assert.Error(t, err)

	var notFound *PackageNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{
		"/work/repo/install/lib/voxim/voxim-config.json",
		"/work/repo/lib/voxim/voxim-config.json",
		"/conda/env/install/lib/voxim/voxim-config.json",
		"/conda/env/lib/voxim/voxim-config.json",
	}, notFound.Searched)
	assert.Contains(t, notFound.Error(), "package voxim not found")
	assert.Contains(t, notFound.Error(), "/conda/env/lib/voxim/voxim-config.json")
}

func TestResolveRejectsMalformedConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/work/repo/install/lib/voxim/voxim-config.json", "{not-json")
	t.Setenv("VOXIM_SDK_PATH", "")

	_, err := NewResolver(fs).Resolve("/work/repo/build-release", "")
	assert.Error(t, err)

	var invalid *InvalidConfigError
	assert.ErrorAs(t, err, &invalid)
}

func TestResolveRejectsIncompleteConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/work/repo/install/lib/voxim/voxim-config.json", `{"name": "voxim"}`)
	t.Setenv("VOXIM_SDK_PATH", "")

	_, err := NewResolver(fs).Resolve("/work/repo/build-release", "")
	assert.Error(t, err)
}

func TestLibDirAndIncludeDirsAnchorToRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/opt/sdk/install/lib/voxim/voxim-config.json", exportConfig)
	t.Setenv("VOXIM_SDK_PATH", "/opt/sdk")

	info, err := NewResolver(fs).Resolve("/work/repo/build-release", "")
	assert.NoError(t, err)
	assert.Equal(t, "/opt/sdk/install/lib", LibDir(info))
	assert.Equal(t, []string{"/opt/sdk/install/include"}, IncludeDirs(info))
}
