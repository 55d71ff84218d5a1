package voxim

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/voxim-io/voxim/cmd/voxim/build"
	"github.com/voxim-io/voxim/cmd/voxim/clean"
	"github.com/voxim-io/voxim/cmd/voxim/configure"
	"github.com/voxim-io/voxim/cmd/voxim/fetch"
	"github.com/voxim-io/voxim/cmd/voxim/inspect"
	"github.com/voxim-io/voxim/cmd/voxim/install"
	"github.com/voxim-io/voxim/cmd/voxim/version"
	"github.com/voxim-io/voxim/internal/constants"
	"github.com/voxim-io/voxim/internal/environment"
	"github.com/voxim-io/voxim/internal/i18n"
)

func Command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     constants.CommandName,
		Short:   i18n.T("app.description"),
		Version: environment.AppVersion(),
	}
	cobra.MousetrapHelpText = "" // allow the app to run in windows by clicking the exe

	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.PersistentFlags().StringP("config", "c", "", i18n.T("cmd.flag.config"))
	rootCmd.PersistentFlags().StringP("build-dir", "b", "", i18n.T("cmd.flag.build_dir"))
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, i18n.T("cmd.flag.quiet"))
	rootCmd.PersistentFlags().BoolP("debug", "d", false, i18n.T("cmd.flag.debug"))
	rootCmd.PersistentFlags().Bool("perf", false, i18n.T("cmd.flag.perf"))
	rootCmd.PersistentFlags().String("perf-out-dir", "", i18n.T("cmd.flag.perf_out_dir"))

	rootCmd.AddCommand(configure.Command())
	rootCmd.AddCommand(build.Command())
	rootCmd.AddCommand(install.Command())
	rootCmd.AddCommand(clean.Command())
	rootCmd.AddCommand(fetch.Command())
	rootCmd.AddCommand(inspect.Command())
	rootCmd.AddCommand(version.Command())

	translateDefaultHelpFacilities(rootCmd)
	fixFlagUsageAlignment(rootCmd)

	return rootCmd
}

func translateDefaultHelpFacilities(rootCmd *cobra.Command) {
	subcommands := rootCmd.Commands()
	allCommands := make([]*cobra.Command, 0, len(subcommands)+1)
	allCommands = append(allCommands, rootCmd)
	allCommands = append(allCommands, subcommands...)

	for _, cmd := range allCommands {
		cmd.InitDefaultHelpFlag()
		flags := cmd.Flags()
		flags.Lookup("help").Usage = i18n.T("cmd.help.template", i18n.Tvars{
			Data: &i18n.TData{"command": cmd.Name()},
		})
	}

	rootCmd.InitDefaultHelpCmd()
	helpCmd, _, e := rootCmd.Find([]string{"help"})

	if e == nil {
		helpCmd.Short = i18n.T("cmd.help.usage.short")
		helpCmd.Long = i18n.T("cmd.help.usage.long", i18n.Tvars{
			Data: &i18n.TData{"appName": rootCmd.Name()},
		})
		helpCmd.Run = func(c *cobra.Command, args []string) {
			cmd, _, e := c.Root().Find(args)
			if cmd == nil || e != nil {
				c.PrintErrln(i18n.T("cmd.help.error", i18n.Tvars{
					Data: &i18n.TData{"topic": fmt.Sprintf("%#q", args)},
				}) + "\n")
				cobra.CheckErr(c.Root().Usage())
			} else {
				cmd.InitDefaultHelpFlag()
				cmd.InitDefaultVersionFlag()
				cobra.CheckErr(cmd.Help())
			}
		}
	}
}

func fixFlagUsageAlignment(rootCmd *cobra.Command) {
	width, _, _ := term.GetSize(int(os.Stdout.Fd()))
	usageTemplate := rootCmd.UsageTemplate()
	usageTemplate = strings.ReplaceAll(usageTemplate, ".FlagUsages", fmt.Sprintf(".FlagUsagesWrapped %d", width))
	rootCmd.SetUsageTemplate(usageTemplate)
}

func Execute() error {
	return Command().Execute()
}
