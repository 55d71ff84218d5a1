// Package sdk locates the staged core SDK and reads its export
// configuration. The binding build cannot proceed without it, so a failed
// lookup is fatal and reports every location that was searched.
package sdk

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/voxim-io/voxim/internal/constants"
	"github.com/voxim-io/voxim/internal/environment"
	"github.com/voxim-io/voxim/internal/models"
)

// PackageNotFoundError reports a failed export-config lookup with every
// path that was tried, in the order it was tried.
type PackageNotFoundError struct {
	Package  string
	Searched []string
}

func (e *PackageNotFoundError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s not found; searched:", e.Package)
	for _, path := range e.Searched {
		sb.WriteString("\n  ")
		sb.WriteString(path)
	}
	return sb.String()
}

// InvalidConfigError reports an export configuration that exists but
// cannot be decoded.
type InvalidConfigError struct {
	Path string
	Err  error
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid export configuration %s: %v", e.Path, e.Err)
}

func (e *InvalidConfigError) Unwrap() error {
	return e.Err
}

// Resolver locates voxim-config.json under a staged SDK tree.
type Resolver struct {
	fs afero.Fs
}

func NewResolver(fs afero.Fs) *Resolver {
	return &Resolver{fs: fs}
}

// Resolve finds the export configuration for the binding build whose build
// tree lives at buildDir. sdkPath names an explicit SDK root from the
// layered configuration; when it is empty, VOXIM_SDK_PATH is consulted
// directly so callers without a loaded configuration keep working.
// Candidate roots are tried in a fixed order:
//
//  1. the explicit SDK root, when set (an override never falls through)
//  2. the build tree's parent directory
//  3. the packaging prefix from PREFIX
//
// Within a root the config may live under install/lib/voxim or directly
// under lib/voxim, depending on whether the root is a source checkout or a
// staged install tree.
func (r *Resolver) Resolve(buildDir string, sdkPath string) (models.SDKInfo, error) {
	if sdkPath == "" {
		if override, ok := environment.SDKPath(); ok {
			sdkPath = override
		}
	}

	var candidates []string
	if sdkPath != "" {
		candidates = configCandidates(sdkPath)
	} else {
		parent := filepath.Dir(filepath.Clean(buildDir))
		candidates = configCandidates(parent)
		if prefix, ok := environment.Prefix(); ok && prefix != "" {
			candidates = append(candidates, configCandidates(prefix)...)
		}
	}

	var searched []string
	for _, candidate := range candidates {
		searched = append(searched, candidate)
		exists, err := afero.Exists(r.fs, candidate)
		if err != nil {
			return models.SDKInfo{}, err
		}
		if !exists {
			continue
		}
		return r.load(candidate)
	}

	return models.SDKInfo{}, &PackageNotFoundError{
		Package:  constants.PackageName,
		Searched: searched,
	}
}

func configCandidates(root string) []string {
	return []string{
		filepath.Join(root, "install", "lib", constants.PackageName, constants.CorePackageConfigName),
		filepath.Join(root, "lib", constants.PackageName, constants.CorePackageConfigName),
	}
}

// load reads and validates the export configuration at configPath. The SDK
// root is the directory the config's relative paths are anchored to.
func (r *Resolver) load(configPath string) (models.SDKInfo, error) {
	payload, err := afero.ReadFile(r.fs, configPath)
	if err != nil {
		return models.SDKInfo{}, err
	}

	var cfg models.SDKConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return models.SDKInfo{}, &InvalidConfigError{Path: configPath, Err: err}
	}
	if cfg.Name == "" || cfg.Version == "" {
		return models.SDKInfo{}, &InvalidConfigError{
			Path: configPath,
			Err:  fmt.Errorf("name and version are required"),
		}
	}
	if cfg.LibDir == "" {
		cfg.LibDir = "lib"
	}

	// configPath is <root>/lib/voxim/voxim-config.json; walk back up.
	root := filepath.Dir(filepath.Dir(filepath.Dir(configPath)))

	return models.SDKInfo{
		Root:       root,
		ConfigPath: configPath,
		Config:     cfg,
	}, nil
}

// LibDir returns the SDK's absolute shared-library directory.
func LibDir(info models.SDKInfo) string {
	if filepath.IsAbs(info.Config.LibDir) {
		return info.Config.LibDir
	}
	return filepath.Join(info.Root, info.Config.LibDir)
}

// IncludeDirs returns the SDK's absolute include directories.
func IncludeDirs(info models.SDKInfo) []string {
	dirs := make([]string, 0, len(info.Config.IncludeDirs))
	for _, dir := range info.Config.IncludeDirs {
		if filepath.IsAbs(dir) {
			dirs = append(dirs, dir)
			continue
		}
		dirs = append(dirs, filepath.Join(info.Root, dir))
	}
	return dirs
}
