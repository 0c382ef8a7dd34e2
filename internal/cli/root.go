// Package cli provides the command-line interface for leadaudit.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/leadaudit/internal/cli/commands"
	"github.com/leapstack-labs/leadaudit/internal/cli/config"
	"github.com/leapstack-labs/leadaudit/internal/cli/output"
	"github.com/leapstack-labs/leadaudit/pkg/tabular"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// skipConfig lists commands that run without loading configuration.
var skipConfig = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"version":    true,
	"init":       true,
}

// validated lists subcommands that audit and therefore need a valid config.
var validated = map[string]bool{
	"audit": true,
	"watch": true,
	"rules": true,
}

// NewRootCmd creates and returns the root command. Run without a subcommand
// it audits the configured input, like "leadaudit audit".
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leadaudit [input] [output]",
		Short: "leadaudit - CRM lead data-quality audit",
		Long: `leadaudit checks every lead of a CRM export against a fixed set of
data-quality rules and writes a copy of the export with one Yes/No column per
rule, a fail count, a 0-100 score, PASS/FAIL and the failed rule names.

Without arguments it reads hubspot_export.xlsx and writes audit_result.xlsx.
Settings come from leadaudit.yaml, LEADAUDIT_* environment variables and flags.`,
		Example: `  # Audit hubspot_export.xlsx into audit_result.xlsx
  leadaudit

  # Audit another export and print a summary
  leadaudit leads.csv audited.xlsx --summary

  # Record the run in the history database
  leadaudit --history`,
		Version: Version,
		Args:    cobra.MaximumNArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfig[cmd.Name()] {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return commands.WrapStage(commands.StageConfig, err)
			}

			logger := config.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
			if cmd == cmd.Root() || validated[cmd.Name()] {
				if err := cfg.Validate(); err != nil {
					return commands.WrapStage(commands.StageConfig, err)
				}
			}

			ctx := config.WithLogger(cmd.Context(), logger)
			ctx = config.WithConfig(ctx, cfg)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		RunE:          commands.RunAudit,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
CRM lead data-quality audit
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./leadaudit.yaml)")
	flags.String("sheet", "", "Worksheet to read from workbook inputs (default: first sheet)")
	flags.Int("workers", 0, "Number of concurrent evaluation workers")
	flags.Int("pass-score", 0, "Minimum score for PASS (0-100)")
	flags.Bool("strict-nulls", false, "Treat only blank cells as empty")
	flags.Bool("trim-space", false, "Treat whitespace-only cells as empty")
	flags.StringSlice("null-markers", nil, "Cell values treated as empty (replaces the defaults)")
	flags.Bool("history", false, "Record the run in the history database")
	flags.String("history-path", "", "Path to the history database")
	flags.Bool("summary", false, "Print a summary after writing the output")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output-format", "o", "", "Summary format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})
	rootCmd.ValidArgsFunction = func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) >= 2 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return tabular.Extensions(), cobra.ShellCompDirectiveFilterFileExt
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewAuditCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leadaudit.

To load completions:

Bash:
  $ source <(leadaudit completion bash)

Zsh:
  $ leadaudit completion zsh > "${fpath[1]}/_leadaudit"

Fish:
  $ leadaudit completion fish | source

PowerShell:
  PS> leadaudit completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
