package environment

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSDKPath(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		t.Setenv("VOXIM_SDK_PATH", "")
		_ = setenvCleared(t, "VOXIM_SDK_PATH")
		path, present := SDKPath()
		assert.False(t, present)
		assert.Empty(t, path)
	})

	t.Run("set", func(t *testing.T) {
		t.Setenv("VOXIM_SDK_PATH", "/opt/voxim-sdk")
		path, present := SDKPath()
		assert.True(t, present)
		assert.Equal(t, "/opt/voxim-sdk", path)
	})
}

func TestInstallPrefix(t *testing.T) {
	t.Run("defaults to /usr/local", func(t *testing.T) {
		_ = setenvCleared(t, "VOXIM_INSTALL_PREFIX")
		_ = setenvCleared(t, "PREFIX")
		assert.Equal(t, "/usr/local", InstallPrefix())
	})

	t.Run("PREFIX wins over default", func(t *testing.T) {
		_ = setenvCleared(t, "VOXIM_INSTALL_PREFIX")
		t.Setenv("PREFIX", "/conda/env")
		assert.Equal(t, "/conda/env", InstallPrefix())
	})

	t.Run("dedicated variable wins over PREFIX", func(t *testing.T) {
		t.Setenv("PREFIX", "/conda/env")
		t.Setenv("VOXIM_INSTALL_PREFIX", "/opt/voxim")
		assert.Equal(t, "/opt/voxim", InstallPrefix())
	})
}

func TestCudaArchs(t *testing.T) {
	_ = setenvCleared(t, "VOXIM_CUDA_ARCHS")
	t.Setenv("CUDAARCHS", "70;80")
	archs, present := CudaArchs()
	assert.True(t, present)
	assert.Equal(t, "70;80", archs)

	t.Setenv("VOXIM_CUDA_ARCHS", "90")
	archs, present = CudaArchs()
	assert.True(t, present)
	assert.Equal(t, "90", archs)
}

func TestDefaults(t *testing.T) {
	_ = setenvCleared(t, "VOXIM_CUDA_VERSION")
	_ = setenvCleared(t, "VOXIM_PYTHON_VERSION")
	_ = setenvCleared(t, "VOXIM_SDK_BASE_URL")
	_ = setenvCleared(t, "POSTHOG_API_KEY")

	assert.Equal(t, "12.0", CudaVersion())
	assert.Equal(t, "3.12", PythonVersion())
	assert.Equal(t, "https://artifacts.voxim.io/sdk", SDKBaseURL())
	assert.Equal(t, "REPL_POSTHOG_API_KEY", PosthogAPIKey())
	assert.Equal(t, "REPL_VERSION", AppVersion())
}

// setenvCleared registers the variable with t.Setenv for restoration, then
// removes it so LookupEnv reports absence.
func setenvCleared(t *testing.T, key string) string {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset %s: %v", key, err)
	}
	return key
}
