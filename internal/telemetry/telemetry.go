// Package telemetry reports anonymous command usage.
package telemetry

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"

	"github.com/voxim-io/voxim/internal/environment"
)

type Client interface {
	io.Closer
	Enqueue(posthog.Message) error
}

var (
	clientMu     sync.Mutex
	singleClient Client
	machineID    string

	newClient = defaultNewClient
)

type CommandTelemetry struct {
	Command     string                 `json:"command"`
	Success     bool                   `json:"success"`
	Error       error                  `json:"error,omitempty"`
	ExitCode    int                    `json:"exitCode"`
	Interactive bool                   `json:"interactive"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

func defaultNewClient() Client {
	pc, _ := posthog.NewWithConfig(
		environment.PosthogAPIKey(),
		posthog.Config{
			Endpoint: "https://eu.i.posthog.com",
		},
	)
	return pc
}

func getMachineID() string {
	envMachineID, hasEnvID := os.LookupEnv("MACHINE_ID")
	if hasEnvID {
		return envMachineID
	}

	id, _ := machineid.ID()
	return id
}

// Init creates the shared client so subsequent events batch onto one
// connection. Safe to skip; RecordCommand initializes lazily.
func Init() {
	if optedOut() {
		return
	}

	clientMu.Lock()
	defer clientMu.Unlock()
	ensureClientLocked()
}

func ensureClientLocked() Client {
	if singleClient == nil {
		machineID = getMachineID()
		singleClient = newClient()
	}
	return singleClient
}

// Shutdown flushes queued events. The context is accepted for symmetry with
// the rest of the shutdown path; posthog's Close has no deadline hook.
func Shutdown(_ context.Context) {
	clientMu.Lock()
	defer clientMu.Unlock()

	if singleClient == nil {
		return
	}
	_ = singleClient.Close()
	singleClient = nil
}

func RecordCommand(command CommandTelemetry) {
	if optedOut() {
		return
	}

	properties := map[string]interface{}{
		"type":        "command",
		"success":     command.Success,
		"exitCode":    command.ExitCode,
		"interactive": command.Interactive,
		"version":     environment.AppVersion(),
	}

	if command.Error != nil {
		properties["error"] = command.Error.Error()
	}

	if command.Extra != nil {
		properties["extra"] = command.Extra
	}

	capture(command.Command, properties)
}

func capture(event string, properties map[string]interface{}) {
	clientMu.Lock()
	defer clientMu.Unlock()

	client := ensureClientLocked()
	_ = client.Enqueue(posthog.Capture{
		Event:      event,
		DistinctId: machineID,
		Properties: properties,
	})
}

func optedOut() bool {
	if _, testing := os.LookupEnv("VOXIM_TEST"); testing {
		return true
	}
	if value, present := os.LookupEnv("DO_NOT_TRACK"); present && value != "0" {
		return true
	}
	if value, present := os.LookupEnv("VOXIM_TELEMETRY"); present && (value == "0" || value == "off") {
		return true
	}
	return false
}
