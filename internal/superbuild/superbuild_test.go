package superbuild

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voxim-io/voxim/internal/models"
)

func sdkInfo() models.SDKInfo {
	return models.SDKInfo{
		Root: "/opt/voxim-sdk/install",
		Config: models.SDKConfig{
			Name:    "voxim",
			Version: "24.08.0",
			LibDir:  "lib",
			Dependencies: []models.Dependency{
				{
					Name:     "voxim",
					Version:  "24.08.0",
					Kind:     models.LinkShared,
					LinkName: "voxim",
					Requires: []string{"fmt"},
				},
			},
		},
	}
}

func TestLinkOrderPutsRequirementsFirst(t *testing.T) {
	registry, err := NewRegistry(sdkInfo())
	assert.NoError(t, err)

	ordered, err := registry.LinkOrder()
	assert.NoError(t, err)

	position := map[string]int{}
	for i, dep := range ordered {
		position[dep.Name] = i
	}
	assert.Less(t, position["fmt"], position["voxim"])
	assert.Less(t, position["pybind11"], position["pybind11_json"])
	assert.Less(t, position["nlohmann_json"], position["pybind11_json"])
}

func TestSDKEntriesOverrideBuiltins(t *testing.T) {
	info := sdkInfo()
	info.Config.Dependencies = append(info.Config.Dependencies, models.Dependency{
		Name:        "fmt",
		Version:     "9.0.0",
		Kind:        models.LinkHeaderOnly,
		IncludeDirs: []string{"include/fmt-9"},
	})

	registry, err := NewRegistry(info)
	assert.NoError(t, err)

	dep, ok := registry.Lookup("fmt")
	assert.True(t, ok)
	assert.Equal(t, "9.0.0", dep.Version)
}

func TestIncludeDirsAreAbsoluteAndDeduplicated(t *testing.T) {
	registry, err := NewRegistry(sdkInfo())
	assert.NoError(t, err)

	dirs, err := registry.IncludeDirs()
	assert.NoError(t, err)

	seen := map[string]bool{}
	for _, dir := range dirs {
		assert.True(t, filepath.IsAbs(dir), "expected absolute path, got %s", dir)
		assert.False(t, seen[dir], "duplicate include dir %s", dir)
		seen[dir] = true
	}
	assert.Contains(t, dirs, "/opt/voxim-sdk/install/include/pybind11")
}

func TestLinkLibsOnlyListsSharedDependencies(t *testing.T) {
	registry, err := NewRegistry(sdkInfo())
	assert.NoError(t, err)

	libs, err := registry.LinkLibs()
	assert.NoError(t, err)
	assert.Equal(t, []string{"voxim"}, libs)
}

func TestNewRegistryRejectsCycles(t *testing.T) {
	info := sdkInfo()
	info.Config.Dependencies = []models.Dependency{
		{Name: "a", Kind: models.LinkHeaderOnly, Requires: []string{"b"}},
		{Name: "b", Kind: models.LinkHeaderOnly, Requires: []string{"a"}},
	}

	_, err := NewRegistry(info)
	assert.Error(t, err)
}
