package install

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voxim-io/voxim/internal/buildplan"
	"github.com/voxim-io/voxim/internal/config"
	"github.com/voxim-io/voxim/internal/i18n"
	"github.com/voxim-io/voxim/internal/logger"
	"github.com/voxim-io/voxim/internal/models"
	"github.com/voxim-io/voxim/internal/perf"
	"github.com/voxim-io/voxim/internal/staging"
	"github.com/voxim-io/voxim/internal/telemetry"
)

type installDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	getwd     func() (string, error)
	telemetry func(telemetry.CommandTelemetry)
}

type installOptions struct {
	BuildDir string
	Prefix   string
	Quiet    bool
	Debug    bool
}

type Result struct {
	Artifacts []models.Artifact
}

type installRunner func(context.Context, *cobra.Command, installOptions, installDeps) (Result, error)

func Command() *cobra.Command {
	return commandWithRunner(runInstall)
}

func commandWithRunner(runner installRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: i18n.T("cmd.install.short"),
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.install")

			buildDir, err := cmd.Flags().GetString("build-dir")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				span.End()
				return err
			}
			prefix, err := cmd.Flags().GetString("prefix")
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

			deps := installDeps{
				fs:        afero.NewOsFs(),
				logger:    logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, debug),
				getwd:     os.Getwd,
				telemetry: telemetry.RecordCommand,
			}

			opts := installOptions{
				BuildDir: buildDir,
				Prefix:   prefix,
				Quiet:    quiet,
				Debug:    debug,
			}

			result, err := runner(ctx, cmd, opts, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))
			span.End()

			payload := telemetry.CommandTelemetry{
				Command:  "install",
				Success:  err == nil,
				Error:    err,
				ExitCode: 0,
				Extra: map[string]interface{}{
					"stagedArtifacts": len(result.Artifacts),
				},
			}
			if err != nil {
				payload.ExitCode = 1
			}
			deps.telemetry(payload)

			return err
		},
	}

	cmd.Flags().StringP("prefix", "p", "", i18n.T("cmd.install.flag.prefix"))

	return cmd
}

func runInstall(ctx context.Context, cmd *cobra.Command, opts installOptions, deps installDeps) (Result, error) {
	_, span := perf.StartSpan(ctx, "install.run")
	defer span.End()

	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = config.DefaultBuildDir
	}

	plan, err := buildplan.Read(deps.fs, buildDir)
	if err != nil {
		return Result{}, err
	}

	// The layered configuration already defaults the prefix from the
	// environment; an explicit --prefix still wins.
	prefix := opts.Prefix
	if prefix == "" {
		projectRoot, err := deps.getwd()
		if err != nil {
			return Result{}, err
		}
		cfg, err := config.Load(projectRoot, cmd.Flags())
		if err != nil {
			return Result{}, err
		}
		prefix = cfg.Prefix
	}

	artifacts, err := staging.NewInstaller(deps.fs).Install(plan, prefix)
	if err != nil {
		var noArtifact *staging.NoArtifactError
		if errors.As(err, &noArtifact) {
			deps.logger.Error(i18n.T("cmd.install.error.no_artifact", i18n.Tvars{
				Data: &i18n.TData{"path": noArtifact.Path},
			}))
		}
		return Result{}, err
	}

	for _, artifact := range artifacts {
		deps.logger.Log(i18n.T("cmd.install.staged", i18n.Tvars{
			Data: &i18n.TData{
				"file":        artifact.Source,
				"destination": artifact.Destination,
			},
		}), false)
	}

	deps.logger.Log(i18n.T("cmd.install.success", i18n.Tvars{
		Data: &i18n.TData{"prefix": prefix},
	}), false)

	return Result{Artifacts: artifacts}, nil
}
