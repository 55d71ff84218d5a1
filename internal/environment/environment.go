// Package environment reads runtime environment configuration.
package environment

import (
	"os"
)

var (
	posthogAPIKeyDefault = "REPL_POSTHOG_API_KEY" // #nosec G101 -- build-time placeholder replaced in release builds.
	sdkBaseURLDefault    = "https://artifacts.voxim.io/sdk"
)

// SDKPath returns the staged SDK root override, if any. An empty string
// means the caller must derive the root from the build tree.
func SDKPath() (string, bool) {
	return os.LookupEnv("VOXIM_SDK_PATH")
}

// Prefix returns the packaging environment's staging prefix, if set.
func Prefix() (string, bool) {
	return os.LookupEnv("PREFIX")
}

// InstallPrefix returns the installation prefix. PREFIX takes over when the
// dedicated variable is absent so conda-style packaging keeps working.
func InstallPrefix() string {
	if prefix, present := os.LookupEnv("VOXIM_INSTALL_PREFIX"); present {
		return prefix
	}
	if prefix, present := Prefix(); present {
		return prefix
	}
	return "/usr/local"
}

// Compiler returns the toolchain compiler from the conventional variables.
// CXX wins over CC since the binding sources are C++; an empty result means
// the configuration's default applies.
func Compiler() (string, bool) {
	if cxx := os.Getenv("CXX"); cxx != "" {
		return cxx, true
	}
	if cc := os.Getenv("CC"); cc != "" {
		return cc, true
	}
	return "", false
}

// CudaCompiler returns the CUDA compiler, honoring the NVCC variable.
func CudaCompiler() string {
	if nvcc := os.Getenv("NVCC"); nvcc != "" {
		return nvcc
	}
	return "nvcc"
}

func CudaVersion() string {
	if version, present := os.LookupEnv("VOXIM_CUDA_VERSION"); present {
		return version
	}
	return "12.0"
}

func CudaArchs() (string, bool) {
	if archs, present := os.LookupEnv("VOXIM_CUDA_ARCHS"); present {
		return archs, true
	}
	return os.LookupEnv("CUDAARCHS")
}

func PythonVersion() string {
	if version, present := os.LookupEnv("VOXIM_PYTHON_VERSION"); present {
		return version
	}
	return "3.12"
}

func SDKBaseURL() string {
	if url, present := os.LookupEnv("VOXIM_SDK_BASE_URL"); present {
		return url
	}
	return sdkBaseURLDefault
}

func PosthogAPIKey() string {
	key, present := os.LookupEnv("POSTHOG_API_KEY")
	if present {
		return key
	}

	return posthogAPIKeyDefault
}

func AppVersion() string {
	return "REPL_VERSION"
}

func HelpURL() string {
	return "REPL_HELP_URL"
}
