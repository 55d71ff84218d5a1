package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voxim-io/voxim/internal/buildplan"
	"github.com/voxim-io/voxim/internal/config"
	"github.com/voxim-io/voxim/internal/i18n"
	"github.com/voxim-io/voxim/internal/logger"
	"github.com/voxim-io/voxim/internal/models"
	"github.com/voxim-io/voxim/internal/perf"
	"github.com/voxim-io/voxim/internal/telemetry"
)

type inspectDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	telemetry func(telemetry.CommandTelemetry)
}

type inspectOptions struct {
	BuildDir string
	JSON     bool
	Quiet    bool
	Debug    bool
}

type inspectRunner func(context.Context, *cobra.Command, inspectOptions, inspectDeps) error

func Command() *cobra.Command {
	return commandWithRunner(runInspect)
}

func commandWithRunner(runner inspectRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: i18n.T("cmd.inspect.short"),
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.inspect")

			buildDir, err := cmd.Flags().GetString("build-dir")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				span.End()
				return err
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				span.End()
				return err
			}
			quiet, err := cmd.Flags().GetBool("quiet")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				span.End()
				return err
			}
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				span.End()
				return err
			}

			deps := inspectDeps{
				fs:        afero.NewOsFs(),
				logger:    logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, debug),
				telemetry: telemetry.RecordCommand,
			}

			opts := inspectOptions{
				BuildDir: buildDir,
				JSON:     asJSON,
				Quiet:    quiet,
				Debug:    debug,
			}

			err = runner(ctx, cmd, opts, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))
			span.End()

			payload := telemetry.CommandTelemetry{
				Command:  "inspect",
				Success:  err == nil,
				Error:    err,
				ExitCode: 0,
			}
			if err != nil {
				payload.ExitCode = 1
			}
			deps.telemetry(payload)

			return err
		},
	}

	cmd.Flags().Bool("json", false, i18n.T("cmd.inspect.flag.json"))

	return cmd
}

func runInspect(ctx context.Context, cmd *cobra.Command, opts inspectOptions, deps inspectDeps) error {
	_, span := perf.StartSpan(ctx, "inspect.run")
	defer span.End()

	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = config.DefaultBuildDir
	}

	plan, err := buildplan.Read(deps.fs, buildDir)
	if err != nil {
		return err
	}

	if opts.JSON {
		payload, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	}

	renderPlan(cmd, plan)
	return nil
}

func renderPlan(cmd *cobra.Command, plan *models.Plan) {
	out := cmd.OutOrStdout()

	rows := map[string]string{
		"module":     plan.ModuleName,
		"build type": string(plan.BuildType),
		"compiler":   plan.Compiler,
		"cuda":       plan.CudaVersion,
		"python":     plan.PythonVersion,
		"sdk root":   plan.SDKRoot,
		"output":     plan.OutputPath,
	}
	if len(plan.CudaArchs) > 0 {
		rows["cuda archs"] = strings.Join(plan.CudaArchs, ", ")
	}

	keys := make([]string, 0, len(rows))
	for key := range rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintf(out, "%-12s %s\n", key, rows[key])
	}

	fmt.Fprintf(out, "%-12s %d\n", "sources", len(plan.Sources))
	for _, source := range plan.Sources {
		fmt.Fprintf(out, "  %s\n", source)
	}
}
