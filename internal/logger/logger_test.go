package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLogQuietSuppresses(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	logger := New(&stdout, &stderr, true, false)
	logger.Log("hello world", false)

	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestLoggerLogForceShowBypassesQuiet(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	logger := New(&stdout, &stderr, true, false)
	logger.Log("hello world", true)

	assert.Equal(t, "hello world\n", stdout.String())
}

func TestLoggerDebugOnlyInDebugMode(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	logger := New(&stdout, &stderr, false, false)
	logger.Debug("invisible")
	assert.Empty(t, stdout.String())

	debugLogger := New(&stdout, &stderr, false, true)
	debugLogger.Debug("visible")
	assert.Equal(t, "visible\n", stdout.String())
}

func TestLoggerQuietAndDebugStillLogs(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	logger := New(&stdout, &stderr, true, true)
	logger.Log("hello world", false)

	assert.Equal(t, "hello world\n", stdout.String())
}

func TestLoggerErrorGoesToStderr(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	logger := New(&stdout, &stderr, false, false)
	logger.Error("boom")
	logger.Errorf("code %d\n", 2)

	assert.Empty(t, stdout.String())
	assert.Equal(t, "boom\ncode 2\n", stderr.String())
}
