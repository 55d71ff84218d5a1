package voxim

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommand_UsageTemplateUsesWrappedFlags(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	cmd := Command()
	assert.Contains(t, cmd.UsageTemplate(), ".FlagUsagesWrapped")
}

func TestCommand_RegistersSubcommands(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	cmd := Command()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"configure", "build", "install", "clean", "fetch-sdk", "inspect", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestCommand_VersionTemplate(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	cmd := Command()
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stdout)
	cmd.SetArgs([]string{"--version"})

	assert.NoError(t, cmd.Execute())
	assert.Equal(t, "REPL_VERSION\n", stdout.String())
}

func TestCommand_AcceptsPerfFlags(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	cmd := Command()
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stdout)
	cmd.SetArgs([]string{"--perf", "--perf-out-dir", "perf", "version"})

	assert.NoError(t, cmd.Execute())
	assert.Equal(t, "REPL_VERSION\n", stdout.String())
}

func TestCommand_HelpHandlesUnknownTopic(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	cmd := Command()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"help", "nope"})

	err := cmd.Execute()
	assert.NoError(t, err)
	assert.NotEmpty(t, stderr.String())
}

func TestCommand_HelpHandlesKnownTopic(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")

	cmd := Command()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"help", "version"})

	err := cmd.Execute()
	assert.NoError(t, err)
	assert.NotEmpty(t, stdout.String())
}

func TestExecute_ReturnsNilOnHelp(t *testing.T) {
	t.Setenv("VOXIM_TEST", "true")
	originalArgs := os.Args
	t.Cleanup(func() { os.Args = originalArgs })
	os.Args = []string{"voxim", "--help"}

	assert.NoError(t, Execute())
}
