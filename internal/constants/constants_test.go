package constants

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "voxim", AppName, "AppName should be 'voxim'")
	assert.Equal(t, "voxim", CommandName, "CommandName should be 'voxim'")
	assert.Equal(t, "_voxim", BindingModuleName)
	assert.Equal(t, "voxim-config.json", CorePackageConfigName)
}
