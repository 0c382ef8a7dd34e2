package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leadaudit/internal/cli/config"
	"github.com/leapstack-labs/leadaudit/internal/cli/output"
	"github.com/leapstack-labs/leadaudit/pkg/audit"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const configHeader = `# leadaudit configuration
#
# Every key can be overridden with a LEADAUDIT_* environment variable
# (e.g. LEADAUDIT_PASS_SCORE) or the matching command-line flag.
# Rule predicates: PRESENT passes when the field has a value,
# ABSENT passes when it is empty.

`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a leadaudit.yaml with the default settings",
		Long: `Write a leadaudit.yaml configuration file containing the default input
and output paths, pass score and the built-in lead rules, ready to edit.`,
		Example: `  # Initialize in current directory
  leadaudit init

  # Initialize in another directory
  leadaudit init exports/

  # Force overwrite existing config
  leadaudit init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cc := NewCommandContext(cmd)
			return runInit(cc.Renderer, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

// initialConfig returns the configuration written by init.
func initialConfig() *config.Config {
	cfg := config.Default()
	cfg.Rules = append([]audit.Rule(nil), audit.DefaultRules...)
	return cfg
}

// marshalConfig renders cfg as a commented leadaudit.yaml document.
func marshalConfig(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	data, err := marshalConfig(initialConfig())
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.StatusLine(configPath, "success", "")
	r.Println("")
	r.Success("leadaudit initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Export your leads to " + config.DefaultInput)
	r.Println("  2. Adjust rules and pass_score in " + config.DefaultConfigFile)
	r.Println("  3. Run 'leadaudit' to write " + config.DefaultOutput)

	return nil
}
