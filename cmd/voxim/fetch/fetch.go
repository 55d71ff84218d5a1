package fetch

import (
	"context"
	"errors"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/voxim-io/voxim/internal/httpclient"
	"github.com/voxim-io/voxim/internal/i18n"
	"github.com/voxim-io/voxim/internal/logger"
	"github.com/voxim-io/voxim/internal/perf"
	"github.com/voxim-io/voxim/internal/sdkfetch"
	"github.com/voxim-io/voxim/internal/telemetry"
)

type fetcher interface {
	Fetch(ctx context.Context, version string, expectedDigest string, destDir string) (string, error)
}

type fetchDeps struct {
	fs        afero.Fs
	logger    *logger.Logger
	fetcher   fetcher
	telemetry func(telemetry.CommandTelemetry)
}

type fetchOptions struct {
	Version string
	Digest  string
	Dest    string
	Quiet   bool
	Debug   bool
}

type Result struct {
	Root string
}

type fetchRunner func(context.Context, *cobra.Command, fetchOptions, fetchDeps) (Result, error)

func Command() *cobra.Command {
	return commandWithRunner(runFetch)
}

func commandWithRunner(runner fetchRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch-sdk",
		Short: i18n.T("cmd.fetch.short"),
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := perf.StartSpan(cmd.Context(), "app.command.fetch-sdk")

			version, err := cmd.Flags().GetString("sdk-version")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				span.End()
				return err
			}
			digest, err := cmd.Flags().GetString("digest")
			if err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				span.End()
				return err
			}
			dest, err := cmd.Flags().GetString("dest")
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

			fs := afero.NewOsFs()
			client := httpclient.NewRLClient(rate.NewLimiter(rate.Inf, 0))

			deps := fetchDeps{
				fs:        fs,
				logger:    logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), quiet, debug),
				fetcher:   sdkfetch.NewFetcher(fs, client, nil),
				telemetry: telemetry.RecordCommand,
			}

			opts := fetchOptions{
				Version: version,
				Digest:  digest,
				Dest:    dest,
				Quiet:   quiet,
				Debug:   debug,
			}

			result, err := runner(ctx, cmd, opts, deps)
			span.SetAttributes(attribute.Bool("success", err == nil))
			span.End()

			payload := telemetry.CommandTelemetry{
				Command:  "fetch-sdk",
				Success:  err == nil,
				Error:    err,
				ExitCode: 0,
				Extra: map[string]interface{}{
					"sdkVersion": version,
					"sdkRoot":    result.Root,
				},
			}
			if err != nil {
				payload.ExitCode = 1
			}
			deps.telemetry(payload)

			return err
		},
	}

	cmd.Flags().String("sdk-version", "", i18n.T("cmd.fetch.flag.version"))
	cmd.Flags().String("digest", "", i18n.T("cmd.fetch.flag.digest"))
	cmd.Flags().String("dest", "sdk", i18n.T("cmd.fetch.flag.dest"))
	_ = cmd.MarkFlagRequired("sdk-version")

	return cmd
}

func runFetch(ctx context.Context, _ *cobra.Command, opts fetchOptions, deps fetchDeps) (Result, error) {
	ctx, span := perf.StartSpan(ctx, "fetch.run")
	defer span.End()

	deps.logger.Log(i18n.T("cmd.fetch.downloading", i18n.Tvars{
		Data: &i18n.TData{"url": sdkfetch.ArchiveURL(opts.Version)},
	}), false)

	root, err := deps.fetcher.Fetch(ctx, opts.Version, opts.Digest, opts.Dest)
	if err != nil {
		var mismatch *sdkfetch.HashMismatchError
		if errors.As(err, &mismatch) {
			deps.logger.Error(i18n.T("cmd.fetch.error.hash_mismatch", i18n.Tvars{
				Data: &i18n.TData{"url": mismatch.URL},
			}))
		}
		return Result{}, err
	}

	deps.logger.Log(i18n.T("cmd.fetch.success", i18n.Tvars{
		Data: &i18n.TData{
			"version": opts.Version,
			"path":    root,
		},
	}), false)

	return Result{Root: root}, nil
}
