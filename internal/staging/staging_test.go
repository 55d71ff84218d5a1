package staging

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/voxim-io/voxim/internal/models"
	"github.com/voxim-io/voxim/internal/sdk"
)

func builtTree(t *testing.T, fs afero.Fs) *models.Plan {
	t.Helper()
	plan := &models.Plan{
		ModuleName: "_voxim",
		BuildDir:   "/build",
		OutputPath: "lib/voxim/_voxim.so",
		ConfigPath: "/opt/sdk/install/lib/voxim/voxim-config.json",
	}
	assert.NoError(t, afero.WriteFile(fs, "/build/lib/voxim/_voxim.so", []byte("so"), 0755))
	assert.NoError(t, afero.WriteFile(fs, "/build/voxim-plan.json", []byte("{}"), 0644))
	sdkConfig := `{"name":"voxim","version":"25.06.0","libDir":"lib","libraries":["voxim"]}`
	assert.NoError(t, afero.WriteFile(fs, plan.ConfigPath, []byte(sdkConfig), 0644))
	return plan
}

func readExportConfig(t *testing.T, fs afero.Fs, path string) models.SDKConfig {
	t.Helper()
	payload, err := afero.ReadFile(fs, path)
	assert.NoError(t, err)

	var cfg models.SDKConfig
	assert.NoError(t, json.Unmarshal(payload, &cfg))
	return cfg
}

func TestInstallStagesModuleAndMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	plan := builtTree(t, fs)

	artifacts, err := NewInstaller(fs).Install(plan, "/usr/local")
	assert.NoError(t, err)
	assert.Len(t, artifacts, 3)

	module, err := afero.ReadFile(fs, "/usr/local/lib/voxim/_voxim.so")
	assert.NoError(t, err)
	assert.Equal(t, "so", string(module))

	planCopy, err := afero.ReadFile(fs, "/usr/local/share/voxim/voxim-plan.json")
	assert.NoError(t, err)
	assert.Equal(t, "{}", string(planCopy))
}

func TestInstallExportConfigDescribesStagedTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	plan := builtTree(t, fs)

	_, err := NewInstaller(fs).Install(plan, "/usr/local")
	assert.NoError(t, err)

	cfg := readExportConfig(t, fs, "/usr/local/lib/voxim/voxim-config.json")
	assert.Equal(t, "voxim", cfg.Name)
	assert.Equal(t, "25.06.0", cfg.Version)
	assert.Equal(t, "lib/voxim", cfg.LibDir)
	assert.Equal(t, []string{"_voxim.so"}, cfg.Libraries)
}

func TestInstallPrefixResolvesAsSDK(t *testing.T) {
	fs := afero.NewMemMapFs()
	plan := builtTree(t, fs)

	_, err := NewInstaller(fs).Install(plan, "/usr/local")
	assert.NoError(t, err)

	info, err := sdk.NewResolver(fs).Resolve("/elsewhere/build", "/usr/local")
	assert.NoError(t, err)
	assert.Equal(t, "/usr/local", info.Root)
	assert.Equal(t, "/usr/local/lib/voxim", sdk.LibDir(info))
}

func TestInstallWritesManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	plan := builtTree(t, fs)

	artifacts, err := NewInstaller(fs).Install(plan, "/usr/local")
	assert.NoError(t, err)

	manifest, err := afero.ReadFile(fs, "/usr/local/share/voxim/install-manifest.json")
	assert.NoError(t, err)
	for _, artifact := range artifacts {
		assert.Contains(t, string(manifest), artifact.Destination)
	}
}

func TestInstallFailsWithoutBuiltModule(t *testing.T) {
	fs := afero.NewMemMapFs()
	plan := &models.Plan{
		BuildDir:   "/build",
		OutputPath: "lib/voxim/_voxim.so",
	}

	_, err := NewInstaller(fs).Install(plan, "/usr/local")
	assert.Error(t, err)

	var noArtifact *NoArtifactError
	assert.ErrorAs(t, err, &noArtifact)
	assert.Contains(t, noArtifact.Error(), "/build/lib/voxim/_voxim.so")
}

func TestInstallReplacesPreviousInstallation(t *testing.T) {
	fs := afero.NewMemMapFs()
	plan := builtTree(t, fs)
	assert.NoError(t, afero.WriteFile(fs, "/usr/local/lib/voxim/_voxim.so", []byte("stale"), 0755))

	_, err := NewInstaller(fs).Install(plan, "/usr/local")
	assert.NoError(t, err)

	module, err := afero.ReadFile(fs, "/usr/local/lib/voxim/_voxim.so")
	assert.NoError(t, err)
	assert.Equal(t, "so", string(module))
}

func TestInstallGeneratesExportConfigWithoutSDKConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	plan := builtTree(t, fs)
	assert.NoError(t, fs.Remove(plan.ConfigPath))

	artifacts, err := NewInstaller(fs).Install(plan, "/usr/local")
	assert.NoError(t, err)
	assert.Len(t, artifacts, 3)

	cfg := readExportConfig(t, fs, "/usr/local/lib/voxim/voxim-config.json")
	assert.Equal(t, "voxim", cfg.Name)
	assert.Equal(t, "unknown", cfg.Version)
}
