package configure

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
	"github.com/voxim-io/voxim/internal/sdk"
	"github.com/voxim-io/voxim/internal/superbuild"
	"github.com/voxim-io/voxim/internal/telemetry"
)

type configureDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	getwd     func() (string, error)
	telemetry func(telemetry.CommandTelemetry)
}

type configureOptions struct {
	Quiet bool
	Debug bool
}

type Result struct {
	Plan     *models.Plan
	PlanPath string
	SDK      models.SDKInfo
}

type configureRunner func(context.Context, *cobra.Command, configureOptions, configureDeps) (Result, error)

func Command() *cobra.Command {
	return commandWithRunner(runConfigure)
}

func commandWithRunner(runner configureRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: i18n.T("cmd.configure.short"),
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.configure")

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

			deps := configureDeps{
				fs:        afero.NewOsFs(),
				logger:    logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, debug),
				getwd:     os.Getwd,
				telemetry: telemetry.RecordCommand,
			}

			opts := configureOptions{
				Quiet: quiet,
				Debug: debug,
			}

			_, err = runner(ctx, cmd, opts, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))
			span.End()

			payload := telemetry.CommandTelemetry{
				Command:  "configure",
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

// Run executes the configure flow for another command that needs a plan as
// a prerequisite, without emitting configure telemetry.
func Run(ctx context.Context, cmd *cobra.Command, quiet bool, debug bool) (Result, error) {
	deps := configureDeps{
		fs:        afero.NewOsFs(),
		logger:    logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, debug),
		getwd:     os.Getwd,
		telemetry: func(telemetry.CommandTelemetry) {},
	}

	opts := configureOptions{Quiet: quiet, Debug: debug}
	return runConfigure(ctx, cmd, opts, deps)
}

func runConfigure(ctx context.Context, cmd *cobra.Command, opts configureOptions, deps configureDeps) (Result, error) {
	_, span := perf.StartSpan(ctx, "configure.run")
	defer span.End()

	projectRoot, err := deps.getwd()
	if err != nil {
		return Result{}, err
	}

	cfg, err := config.Load(projectRoot, cmd.Flags())
	if err != nil {
		deps.logger.Error(err.Error())
		return Result{}, err
	}

	info, err := sdk.NewResolver(deps.fs).Resolve(cfg.BuildDir, cfg.SDKPath)
	if err != nil {
		var notFound *sdk.PackageNotFoundError
		if errors.As(err, &notFound) {
			deps.logger.Error(i18n.T("cmd.configure.error.sdk"))
			for _, path := range notFound.Searched {
				deps.logger.Error("  " + path)
			}
		}
		return Result{}, err
	}

	deps.logger.Log(i18n.T("cmd.configure.resolved", i18n.Tvars{
		Data: &i18n.TData{
			"name":    info.Config.Name,
			"version": info.Config.Version,
			"path":    info.Root,
		},
	}), false)

	registry, err := superbuild.NewRegistry(info)
	if err != nil {
		return Result{}, err
	}

	plan, err := buildplan.NewDeriver(deps.fs).Derive(cfg, info, registry)
	if err != nil {
		return Result{}, err
	}

	planPath, err := buildplan.Write(deps.fs, plan)
	if err != nil {
		return Result{}, err
	}

	deps.logger.Log(i18n.T("cmd.configure.plan_written", i18n.Tvars{
		Data: &i18n.TData{"path": planPath},
	}), false)

	return Result{Plan: plan, PlanPath: planPath, SDK: info}, nil
}
