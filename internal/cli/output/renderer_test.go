package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputMode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"TEXT", ModeText, false},
		{"md", ModeMarkdown, false},
		{"markdown", ModeMarkdown, false},
		{" json ", ModeJSON, false},
		{"yaml", ModeAuto, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, ModeAuto, Mode("bogus"))
	assert.Equal(t, ModeJSON, Mode("json"))
}

func TestRenderer_EffectiveMode(t *testing.T) {
	var out, errOut bytes.Buffer

	assert.Equal(t, ModeText, NewRendererWithTTY(&out, &errOut, true, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRendererWithTTY(&out, &errOut, false, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(&out, &errOut, true, ModeJSON).EffectiveMode())

	r := NewRenderer(&out, &errOut, ModeAuto)
	assert.False(t, r.IsTTY(), "a buffer is not a terminal")
}

func TestRenderer_Markdown(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeMarkdown)

	r.Header(1, "Audit Summary")
	r.KeyValue("Records", "32")
	r.Success("done")
	r.Table([]string{"Rule", "Failures"}, [][]string{{"Lead Source Present", "16"}})

	got := out.String()
	assert.Contains(t, got, "# Audit Summary")
	assert.Contains(t, got, "- **Records:** 32")
	assert.Contains(t, got, "**done**")
	assert.Contains(t, got, "| Rule | Failures |")
	assert.Contains(t, got, "| Lead Source Present | 16 |")
	assert.False(t, ansiPattern.MatchString(got), "markdown has no escape codes")
}

func TestRenderer_TextWithoutTTY(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeText)

	r.Header(2, "Rules")
	r.StatusLine("Contact Owner Present", "success", "Contact owner")
	r.StatusLine("AM SLA Met", "failed", "")
	r.Table([]string{"#", "Rule"}, [][]string{{"1", "Contact Owner Present"}})
	r.Warning("history disabled")
	r.Error("boom")

	got := out.String()
	assert.Contains(t, got, "Rules")
	assert.Contains(t, got, "✓ Contact Owner Present")
	assert.Contains(t, got, "✗ AM SLA Met")
	assert.Contains(t, got, "┌")
	assert.False(t, ansiPattern.MatchString(got), "styles are stripped without a terminal")

	assert.Contains(t, errOut.String(), "Warning: history disabled")
	assert.Contains(t, errOut.String(), "Error: boom")
}

func TestRenderer_JSON(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"total": 3}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 3, decoded["total"])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Rules", FormatHeader(2, "Rules"))
	assert.Equal(t, "# Top", FormatHeader(0, "Top"))
	assert.Equal(t, "- **Input:** a.xlsx", FormatKeyValue("Input", "a.xlsx"))
}
