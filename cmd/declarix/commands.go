package declarix

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/declarix/internal/version"
	"github.com/arthur-debert/declarix/pkg/commands"
	"github.com/arthur-debert/declarix/pkg/config"
	"github.com/arthur-debert/declarix/pkg/logging"
	"github.com/arthur-debert/declarix/pkg/managers"
	"github.com/arthur-debert/declarix/pkg/output"
	"github.com/arthur-debert/declarix/pkg/paths"
	"github.com/arthur-debert/declarix/pkg/topics"
	"github.com/arthur-debert/declarix/pkg/watch"
)

// globals holds the persistent flags shared by every command
type globals struct {
	verbosity  int
	configFile string
	noColor    bool
	overrides  []string
}

func (g *globals) options(categories []string) commands.Options {
	return commands.Options{
		ConfigFile: g.configFile,
		Categories: categories,
		Overrides:  g.overrides,
	}
}

// render writes lines with the renderer of the command's output
func (g *globals) render(cmd *cobra.Command, lines []output.Line) error {
	return output.NewRenderer(cmd.OutOrStdout(), g.noColor).Render(lines)
}

// Runner is used by install, services and apply; tests replace it
var Runner managers.Runner = managers.NewExecRunner()

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:     "declarix",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(g.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", MsgFlagConfig)
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, MsgFlagNoColor)
	rootCmd.PersistentFlags().StringArrayVar(&g.overrides, "set", nil, MsgFlagSet)

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "COMMANDS:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newLinkCmd(g))
	rootCmd.AddCommand(newInstallCmd(g))
	rootCmd.AddCommand(newServicesCmd(g))
	rootCmd.AddCommand(newApplyCmd(g))
	rootCmd.AddCommand(newStatusCmd(g))
	rootCmd.AddCommand(newWatchCmd(g))
	rootCmd.AddCommand(newConfigCmd(g))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	if help, err := topics.Load(topicFiles, "topics", topics.Options{Renderer: &topicRenderer{g: g, root: rootCmd}}); err == nil {
		help.Install(rootCmd)
	} else {
		log.Warn().Err(err).Msg("Help topics unavailable")
	}

	return rootCmd
}

// topicRenderer picks glamour or plain text once flags are parsed
type topicRenderer struct {
	g    *globals
	root *cobra.Command
}

func (r *topicRenderer) Render(content string, format string) string {
	if output.Plain(r.root.OutOrStdout(), r.g.noColor) {
		return (&topics.PlainRenderer{}).Render(content, format)
	}
	return topics.NewGlamourRenderer().Render(content, format)
}

// categoryCompletion completes category names from the configuration
func categoryCompletion(g *globals) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		p, err := paths.New(g.configFile)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		cfg, err := config.Load(p.ConfigFile(), false)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		given := map[string]bool{}
		for _, arg := range args {
			given[arg] = true
		}
		var available []string
		for _, category := range cfg.Categories() {
			if !given[category] {
				available = append(available, category)
			}
		}
		return available, cobra.ShellCompDirectiveNoFileComp
	}
}

func newLinkCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:               "link [categories...]",
		Short:             MsgLinkShort,
		Long:              MsgLinkLong,
		Example:           MsgLinkExample,
		GroupID:           "core",
		ValidArgsFunction: categoryCompletion(g),
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().Strs("categories", args).Msg("Linking")
			lines, err := commands.Link(cmd.Context(), g.options(args))
			if renderErr := g.render(cmd, lines); renderErr != nil {
				return renderErr
			}
			if err != nil {
				return fmt.Errorf(MsgErrLink, err)
			}
			return nil
		},
	}
}

func newInstallCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "install",
		Short:   MsgInstallShort,
		Long:    MsgInstallLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := commands.Install(cmd.Context(), g.options(nil), Runner)
			if renderErr := g.render(cmd, lines); renderErr != nil {
				return renderErr
			}
			if err != nil {
				return fmt.Errorf(MsgErrInstall, err)
			}
			return nil
		},
	}
}

func newServicesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "services",
		Short:   MsgServicesShort,
		Long:    MsgServicesLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := commands.Services(cmd.Context(), g.options(nil), Runner)
			if renderErr := g.render(cmd, lines); renderErr != nil {
				return renderErr
			}
			if err != nil {
				return fmt.Errorf(MsgErrServices, err)
			}
			return nil
		},
	}
}

func newApplyCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "apply",
		Short:   MsgApplyShort,
		Long:    MsgApplyLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := commands.Apply(cmd.Context(), g.options(nil), Runner)
			if renderErr := g.render(cmd, lines); renderErr != nil {
				return renderErr
			}
			if err != nil {
				return fmt.Errorf(MsgErrApply, err)
			}
			return nil
		},
	}
}

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:               "status [categories...]",
		Short:             MsgStatusShort,
		Long:              MsgStatusLong,
		Example:           MsgStatusExample,
		GroupID:           "core",
		ValidArgsFunction: categoryCompletion(g),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := commands.Status(g.options(args))
			if err != nil {
				return fmt.Errorf(MsgErrStatus, err)
			}
			if len(lines) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), MsgNothingStatus)
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), output.NewRenderer(cmd.OutOrStdout(), g.noColor).Format(lines))
			return err
		},
	}
}

func newWatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   MsgWatchShort,
		Long:    MsgWatchLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := g.options(nil)
			files, roots, err := commands.WatchTargets(opts)
			if err != nil {
				return fmt.Errorf(MsgErrWatch, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), MsgWatching, len(roots), files[0])

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = watch.New(files, roots).Run(ctx, func(ctx context.Context) error {
				lines, err := commands.Link(ctx, opts)
				if renderErr := g.render(cmd, lines); renderErr != nil {
					return renderErr
				}
				return err
			})
			if err != nil {
				return fmt.Errorf(MsgErrWatch, err)
			}
			return nil
		},
	}
}

func newConfigCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		Long:    MsgConfigLong,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := commands.ShowConfig(g.options(nil))
			if err != nil {
				return fmt.Errorf(MsgErrConfig, err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), MsgVersionFormat, version.Version, version.Commit, version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true)
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
		},
	}
}
