// Package config loads the project configuration for a binding build.
// Values are layered: baked-in defaults, then the voxim.yaml project file,
// then VOXIM_-prefixed environment variables, then explicit command flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/voxim-io/voxim/internal/constants"
	"github.com/voxim-io/voxim/internal/environment"
	"github.com/voxim-io/voxim/internal/models"
)

const (
	DefaultBuildDir = "build-release"
	DefaultCompiler = "g++"
)

// Config is the fully layered project configuration.
type Config struct {
	ProjectRoot string `koanf:"-"`
	ConfigFile  string `koanf:"-"`

	ModuleName string `koanf:"module_name"`
	PackageDir string `koanf:"package_dir"`
	BuildDir   string `koanf:"build_dir"`
	BuildType  string `koanf:"build_type"`

	Compiler     string `koanf:"compiler"`
	Linker       string `koanf:"linker"`
	CudaCompiler string `koanf:"cuda_compiler"`

	Sources      []string `koanf:"sources"`
	Defines      []string `koanf:"defines"`
	CompileFlags []string `koanf:"compile_flags"`
	LinkFlags    []string `koanf:"link_flags"`

	CudaVersion   string   `koanf:"cuda_version"`
	CudaArchs     []string `koanf:"cuda_archs"`
	PythonVersion string   `koanf:"python_version"`

	SDKPath string `koanf:"sdk_path"`
	Prefix  string `koanf:"prefix"`
}

type InvalidConfigError struct {
	Path string
	Err  error
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid configuration file %s: %v", e.Path, e.Err)
}

func (e *InvalidConfigError) Unwrap() error {
	return e.Err
}

// Load layers the configuration for the project rooted at projectRoot.
// flags may be nil; only flags the user actually set are applied.
func Load(projectRoot string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	var cudaArchs []string
	if raw, ok := environment.CudaArchs(); ok {
		cudaArchs = splitArchList(raw)
	}

	compiler := DefaultCompiler
	if override, ok := environment.Compiler(); ok {
		compiler = override
	}

	defaults := map[string]interface{}{
		"module_name":    constants.BindingModuleName,
		"package_dir":    "python/" + constants.PackageName,
		"build_dir":      DefaultBuildDir,
		"build_type":     string(models.Release),
		"compiler":       compiler,
		"linker":         compiler,
		"cuda_compiler":  environment.CudaCompiler(),
		"cuda_version":   environment.CudaVersion(),
		"cuda_archs":     cudaArchs,
		"python_version": environment.PythonVersion(),
		"prefix":         environment.InstallPrefix(),
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, err
	}

	configFile := findConfigFile(projectRoot, flags)
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, &InvalidConfigError{Path: configFile, Err: err}
		}
	}

	if err := k.Load(env.Provider("VOXIM_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "VOXIM_"))
	}), nil); err != nil {
		return nil, err
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		if configFile != "" {
			return nil, &InvalidConfigError{Path: configFile, Err: err}
		}
		return nil, err
	}

	cfg.ProjectRoot = projectRoot
	cfg.ConfigFile = configFile
	cfg.PackageDir = resolveAgainst(cfg.PackageDir, projectRoot)
	cfg.BuildDir = resolveAgainst(cfg.BuildDir, projectRoot)

	if _, err := models.ParseBuildType(cfg.BuildType); err != nil {
		return nil, &InvalidConfigError{Path: configFile, Err: err}
	}
	return &cfg, nil
}

// findConfigFile prefers an explicit --config flag, then voxim.yaml in the
// project root. An empty result means defaults only, which is not an error.
func findConfigFile(projectRoot string, flags *pflag.FlagSet) string {
	if flags != nil && flags.Changed("config") {
		if explicit, _ := flags.GetString("config"); explicit != "" {
			return explicit
		}
	}
	candidate := filepath.Join(projectRoot, constants.ProjectConfigName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func resolveAgainst(path string, root string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// splitArchList splits a CUDAARCHS-style list. Both semicolons and commas
// appear in the wild, so accept either, deduplicate, and sort.
func splitArchList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ','
	})
	seen := map[string]bool{}
	var archs []string
	for _, field := range fields {
		arch := strings.TrimSpace(field)
		if arch == "" || seen[arch] {
			continue
		}
		seen[arch] = true
		archs = append(archs, arch)
	}
	sort.Strings(archs)
	return archs
}
