package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leadaudit/internal/cli/commands"
	"github.com/leapstack-labs/leadaudit/internal/cli/config"
	clitest "github.com/leapstack-labs/leadaudit/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewRootCmd_Flags(t *testing.T) {
	cmd := NewRootCmd()

	flags := []string{
		"config", "sheet", "workers", "pass-score", "strict-nulls", "trim-space",
		"null-markers", "history", "history-path", "summary", "verbose", "output-format",
	}
	for _, name := range flags {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %q should exist", name)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"audit", "watch", "rules", "history", "init", "version", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestRoot_AuditsDefaultPaths(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	clitest.WriteWorkbook(t, filepath.Join(dir, config.DefaultInput), clitest.LeadHeaders, clitest.SampleLeads)

	out, errOut, err := runRoot(t)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Reading input file")
	assert.Contains(t, errOut, "Audit completed successfully")

	rows := clitest.ReadWorkbook(t, filepath.Join(dir, config.DefaultOutput))
	assert.Equal(t, []string{"PASS", "FAIL", "PASS"}, clitest.Column(t, rows, "Audit Result"))
}

func TestRoot_FlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	clitest.WriteWorkbook(t, filepath.Join(dir, "leads.xlsx"), clitest.LeadHeaders, clitest.SampleLeads)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultConfigFile),
		[]byte("input: leads.xlsx\noutput: from-config.xlsx\npass_score: 100\n"), 0o600))

	_, _, err := runRoot(t, "--pass-score", "60", "--output-format", "json", "--summary")
	require.NoError(t, err)

	rows := clitest.ReadWorkbook(t, filepath.Join(dir, "from-config.xlsx"))
	assert.Equal(t, []string{"PASS", "PASS", "PASS"}, clitest.Column(t, rows, "Audit Result"),
		"flag pass score 60 beats the file's 100")
}

func TestRoot_ConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		args      []string
		errSubstr string
	}{
		{
			name:      "invalid predicate",
			config:    "rules:\n  - name: A\n    field: x\n    predicate: maybe\n",
			errSubstr: "unknown predicate",
		},
		{
			name:      "invalid pass score",
			args:      []string{"--pass-score", "120"},
			errSubstr: "pass score",
		},
		{
			name:      "invalid format",
			args:      []string{"-o", "xml"},
			errSubstr: "unknown output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			if tt.config != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte(tt.config), 0o600))
			}

			_, _, err := runRoot(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, commands.StageConfig, commands.StageOf(err))
			assert.Contains(t, err.Error(), "config failed: ")
			assert.Contains(t, err.Error(), tt.errSubstr)
			assert.NoFileExists(t, filepath.Join(dir, config.DefaultOutput))
		})
	}
}

func TestRoot_InitIgnoresBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(config.DefaultConfigFile, []byte("pass_score: [\n"), 0o600))

	_, _, err := runRoot(t, "init", "--force")
	require.NoError(t, err)

	_, _, err = runRoot(t, "rules", "--format", "json")
	require.NoError(t, err, "init replaced the broken file")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := runRoot(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "leadaudit")
		})
	}

	_, _, err := runRoot(t, "completion", "tcsh")
	require.Error(t, err)
}
