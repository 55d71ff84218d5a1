package install

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/voxim-io/voxim/internal/logger"
	"github.com/voxim-io/voxim/internal/models"
	"github.com/voxim-io/voxim/internal/telemetry"
)

func addPersistentFlagsForTesting(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", "", "Path to the project configuration file")
	cmd.PersistentFlags().StringP("build-dir", "b", "", "Build tree directory")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
}

func setCommandOutputForTesting(cmd *cobra.Command) {
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
}

func testCommand(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	addPersistentFlagsForTesting(cmd)
	setCommandOutputForTesting(cmd)
	cmd.SetContext(context.Background())
	return cmd
}

func builtTree(t *testing.T, fs afero.Fs) *models.Plan {
	t.Helper()
	plan := &models.Plan{
		ModuleName: "_voxim",
		BuildDir:   "/build",
		OutputPath: "lib/voxim/_voxim.so",
	}
	payload, err := json.Marshal(plan)
	assert.NoError(t, err)
	assert.NoError(t, afero.WriteFile(fs, "/build/voxim-plan.json", payload, 0644))
	assert.NoError(t, afero.WriteFile(fs, "/build/lib/voxim/_voxim.so", []byte("so"), 0755))
	return plan
}

func TestCommandWithRunnerParsesFlags(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	var gotOpts installOptions
	cmd := commandWithRunner(func(_ context.Context, _ *cobra.Command, opts installOptions, _ installDeps) (Result, error) {
		gotOpts = opts
		return Result{}, nil
	})
	addPersistentFlagsForTesting(cmd)
	setCommandOutputForTesting(cmd)

	cmd.SetArgs([]string{"--prefix", "/opt/stage", "--build-dir", "/build"})
	assert.NoError(t, cmd.Execute())
	assert.Equal(t, "/opt/stage", gotOpts.Prefix)
	assert.Equal(t, "/build", gotOpts.BuildDir)
}

func TestCommandReturnsCommand(t *testing.T) {
	assert.NotNil(t, Command())
}

func TestRunInstallStagesArtifacts(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	fs := afero.NewMemMapFs()
	builtTree(t, fs)

	out := &strings.Builder{}
	deps := installDeps{
		fs:        fs,
		logger:    logger.New(out, out, false, false),
		telemetry: func(telemetry.CommandTelemetry) {},
	}

	result, err := runInstall(context.Background(), nil, installOptions{BuildDir: "/build", Prefix: "/opt/stage"}, deps)
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Artifacts)

	installed, err := afero.Exists(fs, "/opt/stage/lib/voxim/_voxim.so")
	assert.NoError(t, err)
	assert.True(t, installed)
	assert.Contains(t, out.String(), "cmd.install.success")
}

func TestRunInstallDefaultsPrefixFromEnvironment(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")
	t.Setenv("VOXIM_INSTALL_PREFIX", "/conda/env")

	fs := afero.NewMemMapFs()
	builtTree(t, fs)

	deps := installDeps{
		fs:        fs,
		logger:    logger.New(io.Discard, io.Discard, true, false),
		getwd:     func() (string, error) { return "/work/repo", nil },
		telemetry: func(telemetry.CommandTelemetry) {},
	}

	_, err := runInstall(context.Background(), testCommand(t), installOptions{BuildDir: "/build"}, deps)
	assert.NoError(t, err)

	installed, err := afero.Exists(fs, "/conda/env/lib/voxim/_voxim.so")
	assert.NoError(t, err)
	assert.True(t, installed)
}

func TestRunInstallPrefixFromProjectFile(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")
	root := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(root, "voxim.yaml"), []byte("prefix: /opt/stage\n"), 0644))

	fs := afero.NewMemMapFs()
	builtTree(t, fs)

	deps := installDeps{
		fs:        fs,
		logger:    logger.New(io.Discard, io.Discard, true, false),
		getwd:     func() (string, error) { return root, nil },
		telemetry: func(telemetry.CommandTelemetry) {},
	}

	_, err := runInstall(context.Background(), testCommand(t), installOptions{BuildDir: "/build"}, deps)
	assert.NoError(t, err)

	installed, err := afero.Exists(fs, "/opt/stage/lib/voxim/_voxim.so")
	assert.NoError(t, err)
	assert.True(t, installed)
}

func TestRunInstallFailsWithoutBuild(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	fs := afero.NewMemMapFs()
	plan := &models.Plan{ModuleName: "_voxim", BuildDir: "/build", OutputPath: "lib/voxim/_voxim.so"}
	payload, err := json.Marshal(plan)
	assert.NoError(t, err)
	assert.NoError(t, afero.WriteFile(fs, "/build/voxim-plan.json", payload, 0644))

	out := &strings.Builder{}
	deps := installDeps{
		fs:        fs,
		logger:    logger.New(out, out, false, false),
		telemetry: func(telemetry.CommandTelemetry) {},
	}

	_, err = runInstall(context.Background(), nil, installOptions{BuildDir: "/build", Prefix: "/opt/stage"}, deps)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "cmd.install.error.no_artifact")
}

func TestRunInstallFailsWithoutPlan(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	deps := installDeps{
		fs:        afero.NewMemMapFs(),
		logger:    logger.New(io.Discard, io.Discard, true, false),
		telemetry: func(telemetry.CommandTelemetry) {},
	}

	_, err := runInstall(context.Background(), nil, installOptions{BuildDir: "/build"}, deps)
	assert.Error(t, err)
}
