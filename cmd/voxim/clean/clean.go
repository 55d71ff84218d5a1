package clean

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voxim-io/voxim/internal/config"
	"github.com/voxim-io/voxim/internal/i18n"
	"github.com/voxim-io/voxim/internal/logger"
	"github.com/voxim-io/voxim/internal/perf"
	"github.com/voxim-io/voxim/internal/telemetry"
)

type cleanDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	telemetry func(telemetry.CommandTelemetry)
}

type cleanOptions struct {
	BuildDir string
	Quiet    bool
	Debug    bool
}

type cleanRunner func(context.Context, *cobra.Command, cleanOptions, cleanDeps) error

func Command() *cobra.Command {
	return commandWithRunner(runClean)
}

func commandWithRunner(runner cleanRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: i18n.T("cmd.clean.short"),
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.clean")

			buildDir, err := cmd.Flags().GetString("build-dir")
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

			deps := cleanDeps{
				fs:        afero.NewOsFs(),
				logger:    logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, debug),
				telemetry: telemetry.RecordCommand,
			}

			opts := cleanOptions{
				BuildDir: buildDir,
				Quiet:    quiet,
				Debug:    debug,
			}

			err = runner(ctx, cmd, opts, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))
			span.End()

			payload := telemetry.CommandTelemetry{
				Command:  "clean",
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

	return cmd
}

func runClean(ctx context.Context, _ *cobra.Command, opts cleanOptions, deps cleanDeps) error {
	_, span := perf.StartSpan(ctx, "clean.run")
	defer span.End()

	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = config.DefaultBuildDir
	}

	exists, err := afero.DirExists(deps.fs, buildDir)
	if err != nil {
		return err
	}
	if !exists {
		deps.logger.Log(i18n.T("cmd.clean.nothing", i18n.Tvars{
			Data: &i18n.TData{"path": buildDir},
		}), false)
		return nil
	}

	if err := deps.fs.RemoveAll(buildDir); err != nil {
		return err
	}

	deps.logger.Log(i18n.T("cmd.clean.success", i18n.Tvars{
		Data: &i18n.TData{"path": buildDir},
	}), false)
	return nil
}
