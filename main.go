package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/joho/godotenv/autoload"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voxim-io/voxim/cmd/voxim"
	"github.com/voxim-io/voxim/internal/lifecycle"
	"github.com/voxim-io/voxim/internal/perf"
	"github.com/voxim-io/voxim/internal/telemetry"
)

const (
	perfLifecycleStartup  = "lifecycle.startup"
	perfLifecycleExecute  = "lifecycle.execute"
	perfLifecycleShutdown = "lifecycle.shutdown"
)

type shutdownTrigger string

const (
	shutdownTriggerNormal shutdownTrigger = "normal"
	shutdownTriggerSignal shutdownTrigger = "signal"
)

type runDeps struct {
	execute           func(context.Context) error
	telemetryInit     func()
	telemetryShutdown func(context.Context)
	register          func(lifecycle.Handler) lifecycle.HandlerID
	unregister        func(lifecycle.HandlerID)
	args              []string
}

type perfExportConfig struct {
	enabled bool
	debug   bool
	baseDir string
	outDir  string
}

func main() {
	os.Exit(runWithDeps(runDeps{
		execute:           func(context.Context) error { return voxim.Execute() },
		telemetryInit:     telemetry.Init,
		telemetryShutdown: telemetry.Shutdown,
		register:          lifecycle.Register,
		unregister:        lifecycle.Unregister,
		args:              os.Args[1:],
	}))
}

func runWithDeps(deps runDeps) int {
	ctx := context.Background()

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	exportCfg := perfExportConfigFromArgs(deps.args, cwd)

	var shutdownOnce sync.Once
	shutdown := func(trigger shutdownTrigger, sig os.Signal) {
		shutdownOnce.Do(func() {
			_, span := perf.StartSpan(ctx, perfLifecycleShutdown,
				perf.WithAttributes(attribute.String("trigger", string(trigger))))
			if sig != nil {
				span.SetAttributes(attribute.String("signal", sig.String()))
			}
			deps.telemetryShutdown(ctx)
			span.End()
		})
	}

	_, startupSpan := perf.StartSpan(ctx, perfLifecycleStartup)
	deps.telemetryInit()
	handlerID := deps.register(func(sig os.Signal) {
		shutdown(shutdownTriggerSignal, sig)
	})
	startupSpan.End()

	execCtx, execSpan := perf.StartSpan(ctx, perfLifecycleExecute)
	execErr := deps.execute(execCtx)
	execSpan.SetAttributes(attribute.Bool("success", execErr == nil))
	execSpan.End()

	shutdown(shutdownTriggerNormal, nil)
	deps.unregister(handlerID)

	if exportCfg.enabled {
		path, exportErr := perf.ExportToFile(exportCfg.outDir, exportCfg.baseDir)
		if exportErr != nil {
			fmt.Fprintf(os.Stderr, "perf export failed: %v\n", exportErr)
		} else if exportCfg.debug {
			fmt.Fprintf(os.Stderr, "perf data written to %s\n", path)
		}
	}

	if execErr != nil {
		return 1
	}
	return 0
}

// perfExportConfigFromArgs inspects the raw arguments before cobra parses
// them, so the export destination is known even when the command itself
// fails to parse. Paths are resolved relative to the project configuration
// file when one is given.
func perfExportConfigFromArgs(args []string, cwd string) perfExportConfig {
	cfg := perfExportConfig{baseDir: cwd, outDir: cwd}

	configPath := ""
	perfOutDir := ""

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--perf":
			cfg.enabled = true
		case arg == "--debug" || arg == "-d":
			cfg.debug = true
		case arg == "--config" || arg == "-c":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--perf-out-dir":
			if i+1 < len(args) {
				perfOutDir = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--perf-out-dir="):
			perfOutDir = strings.TrimPrefix(arg, "--perf-out-dir=")
		}
	}

	if configPath != "" {
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(cwd, configPath)
		}
		if abs, err := filepath.Abs(configPath); err == nil {
			cfg.baseDir = filepath.Dir(abs)
		}
	}

	cfg.outDir = cfg.baseDir
	if perfOutDir != "" {
		if filepath.IsAbs(perfOutDir) {
			cfg.outDir = perfOutDir
		} else {
			cfg.outDir = filepath.Join(cfg.baseDir, perfOutDir)
		}
	}

	return cfg
}
