// Package staging installs build outputs into an installation prefix. The
// binding module and a generated export configuration land under
// <prefix>/lib/voxim, the plan copy and install manifest under
// <prefix>/share/voxim, so downstream builds can resolve this installation
// the same way the build resolved its own SDK.
package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/voxim-io/voxim/internal/constants"
	"github.com/voxim-io/voxim/internal/fsutil"
	"github.com/voxim-io/voxim/internal/models"
)

// NoArtifactError means install ran before a successful build.
type NoArtifactError struct {
	Path string
}

func (e *NoArtifactError) Error() string {
	return fmt.Sprintf("no built binding module at %s", e.Path)
}

// Installer stages artifacts into a prefix.
type Installer struct {
	fs afero.Fs
}

func NewInstaller(fs afero.Fs) *Installer {
	return &Installer{fs: fs}
}

// Install stages the built module and its metadata and reports what went
// where. Re-running install over an existing prefix replaces files in
// place; partially written files never become visible.
func (i *Installer) Install(plan *models.Plan, prefix string) ([]models.Artifact, error) {
	modulePath := filepath.Join(plan.BuildDir, plan.OutputPath)
	exists, err := afero.Exists(i.fs, modulePath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NoArtifactError{Path: modulePath}
	}

	artifacts := []models.Artifact{
		{
			Source:      modulePath,
			Destination: filepath.Join(prefix, "lib", constants.PackageName, filepath.Base(plan.OutputPath)),
			Mode:        0755,
		},
		{
			Source:      filepath.Join(plan.BuildDir, constants.PlanFileName),
			Destination: filepath.Join(prefix, "share", constants.PackageName, constants.PlanFileName),
			Mode:        0644,
		},
	}

	for _, artifact := range artifacts {
		if err := i.stage(artifact); err != nil {
			return nil, err
		}
	}

	exportConfig, err := i.writeExportConfig(plan, prefix)
	if err != nil {
		return nil, err
	}
	artifacts = append(artifacts, exportConfig)

	if err := i.writeManifest(prefix, artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// writeExportConfig generates the export configuration for the staged tree
// itself, so a downstream build resolving this prefix sees the files that
// were actually installed rather than the layout of the SDK this build
// consumed. It lands where the resolver searches: <prefix>/lib/voxim.
func (i *Installer) writeExportConfig(plan *models.Plan, prefix string) (models.Artifact, error) {
	cfg := models.SDKConfig{
		Name:      constants.PackageName,
		Version:   i.sdkVersion(plan),
		LibDir:    filepath.Join("lib", constants.PackageName),
		Libraries: []string{filepath.Base(plan.OutputPath)},
	}

	payload, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return models.Artifact{}, err
	}
	payload = append(payload, '\n')

	destination := filepath.Join(prefix, "lib", constants.PackageName, constants.CorePackageConfigName)
	if err := i.fs.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return models.Artifact{}, err
	}
	if err := fsutil.WriteFileAtomic(i.fs, destination, payload); err != nil {
		return models.Artifact{}, err
	}
	return models.Artifact{Destination: destination, Mode: 0644}, nil
}

// sdkVersion carries the core package's version over from the SDK export
// configuration the build resolved against. A missing or unreadable config
// degrades the version rather than failing the install.
func (i *Installer) sdkVersion(plan *models.Plan) string {
	if plan.ConfigPath == "" {
		return "unknown"
	}
	payload, err := afero.ReadFile(i.fs, plan.ConfigPath)
	if err != nil {
		return "unknown"
	}
	var cfg models.SDKConfig
	if err := json.Unmarshal(payload, &cfg); err != nil || cfg.Version == "" {
		return "unknown"
	}
	return cfg.Version
}

func (i *Installer) stage(artifact models.Artifact) error {
	payload, err := afero.ReadFile(i.fs, artifact.Source)
	if err != nil {
		return err
	}
	if err := i.fs.MkdirAll(filepath.Dir(artifact.Destination), 0755); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(i.fs, artifact.Destination, payload); err != nil {
		return err
	}
	return i.fs.Chmod(artifact.Destination, os.FileMode(artifact.Mode))
}

// writeManifest records the staged files so clean and future installs know
// what this tool owns inside the prefix.
func (i *Installer) writeManifest(prefix string, artifacts []models.Artifact) error {
	payload, err := json.MarshalIndent(artifacts, "", "  ")
	if err != nil {
		return err
	}
	payload = append(payload, '\n')

	manifestPath := filepath.Join(prefix, "share", constants.PackageName, "install-manifest.json")
	if err := i.fs.MkdirAll(filepath.Dir(manifestPath), 0755); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(i.fs, manifestPath, payload)
}
