// Package buildplan derives the complete build configuration for the
// binding module. Derivation is deterministic: the same configuration, SDK
// and dependency registry always produce a byte-identical plan file.
package buildplan

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/voxim-io/voxim/internal/config"
	"github.com/voxim-io/voxim/internal/constants"
	"github.com/voxim-io/voxim/internal/fsutil"
	"github.com/voxim-io/voxim/internal/models"
	"github.com/voxim-io/voxim/internal/sdk"
	"github.com/voxim-io/voxim/internal/superbuild"
)

// NoSourcesError means neither the configuration nor the conventional
// source directory produced anything to compile.
type NoSourcesError struct {
	SearchedDir string
}

func (e *NoSourcesError) Error() string {
	return fmt.Sprintf("no binding sources configured and none found under %s", e.SearchedDir)
}

// Deriver turns a layered configuration plus a resolved SDK into a Plan.
type Deriver struct {
	fs afero.Fs
}

func NewDeriver(fs afero.Fs) *Deriver {
	return &Deriver{fs: fs}
}

// Derive assembles the plan. Every slice is sorted or in fixed layer order
// so repeated runs serialize identically.
func (d *Deriver) Derive(cfg *config.Config, info models.SDKInfo, registry *superbuild.Registry) (*models.Plan, error) {
	buildType, err := models.ParseBuildType(cfg.BuildType)
	if err != nil {
		return nil, err
	}

	sources, err := d.collectSources(cfg)
	if err != nil {
		return nil, err
	}

	includeDirs, err := d.collectIncludeDirs(cfg, info, registry)
	if err != nil {
		return nil, err
	}

	linkLibs, err := collectLinkLibs(info, registry)
	if err != nil {
		return nil, err
	}

	defines := []string{
		"FMT_HEADER_ONLY",
		"VOXIM_VERSION=" + info.Config.Version,
	}
	defines = append(defines, cfg.Defines...)
	sort.Strings(defines)

	archs := append([]string(nil), cfg.CudaArchs...)
	sort.Strings(archs)

	return &models.Plan{
		ModuleName:    cfg.ModuleName,
		PackageDir:    cfg.PackageDir,
		BuildDir:      cfg.BuildDir,
		BuildType:     buildType,
		CudaVersion:   cfg.CudaVersion,
		CudaArchs:     archs,
		PythonVersion: cfg.PythonVersion,

		Compiler:     cfg.Compiler,
		Linker:       linkerFor(cfg),
		CudaCompiler: cfg.CudaCompiler,

		Sources:      sources,
		IncludeDirs:  includeDirs,
		Defines:      defines,
		CompileFlags: compileFlags(buildType, cfg.CompileFlags),
		LinkFlags:    append([]string{"-shared"}, cfg.LinkFlags...),
		LinkLibs:     linkLibs,
		RPaths:       []string{"$ORIGIN", sdk.LibDir(info)},

		SDKRoot:    info.Root,
		SDKLibDir:  sdk.LibDir(info),
		ConfigPath: info.ConfigPath,

		LinkedName: constants.LinkedModuleName,
		OutputPath: filepath.Join("lib", constants.PackageName, constants.BindingModuleName+".so"),
	}, nil
}

// collectSources uses the configured list when present and otherwise globs
// the conventional source directory under the package dir.
func (d *Deriver) collectSources(cfg *config.Config) ([]string, error) {
	if len(cfg.Sources) > 0 {
		sources := make([]string, 0, len(cfg.Sources))
		for _, source := range cfg.Sources {
			if filepath.IsAbs(source) {
				sources = append(sources, source)
				continue
			}
			sources = append(sources, filepath.Join(cfg.PackageDir, source))
		}
		sort.Strings(sources)
		return sources, nil
	}

	srcDir := filepath.Join(cfg.PackageDir, "src")
	var matches []string
	for _, pattern := range []string{"*.cpp", "*.cu"} {
		found, err := afero.Glob(d.fs, filepath.Join(srcDir, pattern))
		if err != nil {
			return nil, err
		}
		matches = append(matches, found...)
	}
	if len(matches) == 0 {
		return nil, &NoSourcesError{SearchedDir: srcDir}
	}
	sort.Strings(matches)
	return matches, nil
}

// collectIncludeDirs layers include paths: the package's own headers, the
// SDK exports, the dependency registry, and finally the Python headers.
func (d *Deriver) collectIncludeDirs(cfg *config.Config, info models.SDKInfo, registry *superbuild.Registry) ([]string, error) {
	registryDirs, err := registry.IncludeDirs()
	if err != nil {
		return nil, err
	}

	var dirs []string
	dirs = append(dirs, filepath.Join(cfg.PackageDir, "include"))
	dirs = append(dirs, sdk.IncludeDirs(info)...)
	dirs = append(dirs, registryDirs...)
	dirs = append(dirs, pythonIncludeDir(cfg.PythonVersion))

	seen := map[string]bool{}
	var out []string
	for _, dir := range dirs {
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	return out, nil
}

func collectLinkLibs(info models.SDKInfo, registry *superbuild.Registry) ([]string, error) {
	registryLibs, err := registry.LinkLibs()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var libs []string
	for _, library := range info.Config.Libraries {
		name := linkNameFor(library)
		if name != "" && !seen[name] {
			seen[name] = true
			libs = append(libs, name)
		}
	}
	for _, name := range registryLibs {
		if !seen[name] {
			seen[name] = true
			libs = append(libs, name)
		}
	}
	return libs, nil
}

// linkNameFor turns an exported library file name into its -l name,
// libvoxim.so becomes voxim.
func linkNameFor(fileName string) string {
	name := filepath.Base(fileName)
	name = strings.TrimPrefix(name, "lib")
	if idx := strings.Index(name, ".so"); idx >= 0 {
		name = name[:idx]
	}
	return name
}

func linkerFor(cfg *config.Config) string {
	if cfg.Linker != "" {
		return cfg.Linker
	}
	return cfg.Compiler
}

func compileFlags(buildType models.BuildType, extra []string) []string {
	flags := []string{"-fPIC", "-fvisibility=hidden", "-std=c++17"}
	switch buildType {
	case models.Debug:
		flags = append(flags, "-O0", "-g")
	case models.RelWithDebInfo:
		flags = append(flags, "-DNDEBUG", "-O2", "-g")
	default:
		flags = append(flags, "-DNDEBUG", "-O3")
	}
	return append(flags, extra...)
}

func pythonIncludeDir(version string) string {
	return "/usr/include/python" + version
}

// Write serializes the plan into the build tree as voxim-plan.json. The
// write is atomic so an interrupted configure never leaves a torn plan.
func Write(fs afero.Fs, plan *models.Plan) (string, error) {
	payload, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", err
	}
	payload = append(payload, '\n')

	if err := fs.MkdirAll(plan.BuildDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(plan.BuildDir, constants.PlanFileName)
	if err := fsutil.WriteFileAtomic(fs, path, payload); err != nil {
		return "", err
	}
	return path, nil
}

// Read loads a previously written plan from the build tree.
func Read(fs afero.Fs, buildDir string) (*models.Plan, error) {
	path := filepath.Join(buildDir, constants.PlanFileName)
	payload, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	var plan models.Plan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return nil, fmt.Errorf("invalid build plan %s: %w", path, err)
	}
	return &plan, nil
}
