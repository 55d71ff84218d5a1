package build

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voxim-io/voxim/cmd/voxim/configure"
	"github.com/voxim-io/voxim/internal/assembler"
	"github.com/voxim-io/voxim/internal/buildplan"
	"github.com/voxim-io/voxim/internal/i18n"
	"github.com/voxim-io/voxim/internal/logger"
	"github.com/voxim-io/voxim/internal/models"
	"github.com/voxim-io/voxim/internal/perf"
	"github.com/voxim-io/voxim/internal/telemetry"
	"github.com/voxim-io/voxim/internal/tui"
)

type planner func(context.Context, *cobra.Command, bool, bool) (configure.Result, error)

type buildDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	runner    assembler.Runner
	configure planner
	telemetry func(telemetry.CommandTelemetry)
}

type buildOptions struct {
	BuildDir string
	Quiet    bool
	Debug    bool
}

type Result struct {
	ModulePath    string
	CompiledCount int
}

type buildRunner func(context.Context, *cobra.Command, buildOptions, buildDeps) (Result, error)

func Command() *cobra.Command {
	return commandWithRunner(runBuild)
}

func commandWithRunner(runner buildRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: i18n.T("cmd.build.short"),
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.build")

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

			deps := buildDeps{
				fs:        afero.NewOsFs(),
				logger:    logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, debug),
				runner:    assembler.NewExecRunner(),
				configure: configure.Run,
				telemetry: telemetry.RecordCommand,
			}

			opts := buildOptions{
				BuildDir: buildDir,
				Quiet:    quiet,
				Debug:    debug,
			}

			result, err := runner(ctx, cmd, opts, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))
			span.End()

			payload := telemetry.CommandTelemetry{
				Command:  "build",
				Success:  err == nil,
				Error:    err,
				ExitCode: 0,
				Extra: map[string]interface{}{
					"compiledSources": result.CompiledCount,
				},
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

func runBuild(ctx context.Context, cmd *cobra.Command, opts buildOptions, deps buildDeps) (Result, error) {
	ctx, span := perf.StartSpan(ctx, "build.run")
	defer span.End()

	plan, err := loadOrDerivePlan(ctx, cmd, opts, deps)
	if err != nil {
		return Result{}, err
	}

	deps.logger.Log(i18n.T("cmd.build.compiling", i18n.Tvars{
		Count: len(plan.Sources),
		Data:  &i18n.TData{"count": len(plan.Sources)},
	}), false)

	asm := assembler.New(deps.fs, deps.runner)
	asm.OnProgress = func(done int, total int, source string) {
		deps.logger.Debug(source)
	}
	asm.OnLink = func(output string) {
		deps.logger.Log(i18n.T("cmd.build.linking", i18n.Tvars{
			Data: &i18n.TData{"output": output},
		}), false)
	}

	var modulePath string
	if tui.ShouldUseTUI(opts.Quiet, cmd.InOrStdin(), cmd.OutOrStdout()) {
		modulePath, err = assembleWithProgress(ctx, cmd, asm, plan)
	} else {
		modulePath, err = asm.Assemble(ctx, plan)
	}
	if err != nil {
		reportBuildError(err, deps)
		return Result{}, err
	}

	deps.logger.Log(i18n.T("cmd.build.success", i18n.Tvars{
		Data: &i18n.TData{"path": modulePath},
	}), false)

	return Result{ModulePath: modulePath, CompiledCount: len(plan.Sources)}, nil
}

type assembleOutcome struct {
	modulePath string
	err        error
}

var errBuildInterrupted = errors.New("build interrupted")

// assembleWithProgress runs the assembler behind an interactive progress
// bar, forwarding compile progress into the Bubble Tea program. The
// assembler's result travels over a channel so a display torn down early
// (ctrl+c) never reports a half-finished build as a success.
func assembleWithProgress(ctx context.Context, cmd *cobra.Command, asm *assembler.Assembler, plan *models.Plan) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewBuildProgressModel(len(plan.Sources), tui.TerminalWidth(cmd.OutOrStdout(), 80))
	program := tea.NewProgram(model, tui.ProgramOptions(cmd.InOrStdin(), cmd.OutOrStdout())...)

	asm.OnProgress = func(done int, total int, source string) {
		program.Send(tui.CompileProgressMsg{Done: done, Total: total, Source: source})
	}

	outcome := make(chan assembleOutcome, 1)
	go func() {
		modulePath, err := asm.Assemble(ctx, plan)
		outcome <- assembleOutcome{modulePath: modulePath, err: err}
		program.Send(tui.BuildDoneMsg{Err: err})
	}()

	if _, err := program.Run(); err != nil {
		return "", err
	}

	select {
	case result := <-outcome:
		return result.modulePath, result.err
	default:
		// The display quit before the assembler finished.
		return "", errBuildInterrupted
	}
}

// loadOrDerivePlan reuses a plan written by configure when the build tree
// has one, and runs the configure flow itself otherwise.
func loadOrDerivePlan(ctx context.Context, cmd *cobra.Command, opts buildOptions, deps buildDeps) (*models.Plan, error) {
	if opts.BuildDir != "" {
		plan, err := buildplan.Read(deps.fs, opts.BuildDir)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	result, err := deps.configure(ctx, cmd, opts.Quiet, opts.Debug)
	if err != nil {
		return nil, err
	}
	return result.Plan, nil
}

func reportBuildError(err error, deps buildDeps) {
	var compileErr *assembler.CompileError
	if errors.As(err, &compileErr) {
		deps.logger.Error(i18n.T("cmd.build.error.compile", i18n.Tvars{
			Data: &i18n.TData{
				"source": compileErr.Source,
				"output": compileErr.Output,
			},
		}))
		return
	}

	var linkErr *assembler.LinkError
	if errors.As(err, &linkErr) {
		deps.logger.Error(i18n.T("cmd.build.error.link", i18n.Tvars{
			Data: &i18n.TData{"output": linkErr.Output},
		}))
	}
}
