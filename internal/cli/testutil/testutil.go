// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/leadaudit/internal/cli/output"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// LeadHeaders is the header row of a HubSpot-style lead export.
var LeadHeaders = []string{
	"Email", "Contact owner", "Owner assigned date", "SLA ALERT BDR", "SLA ALERT AM", "Lead Source",
}

// SampleLeads are three leads covering a clean pass, a two-rule failure and an
// SLA alert next to an N/A marker.
var SampleLeads = [][]string{
	{"alice@example.com", "Ann", "2024-01-02", "", "", "Web"},
	{"bob@example.com", "", "2024-01-03", "", "", ""},
	{"carol@example.com", "Cid", "2024-01-04", "Yes", "N/A", "Referral"},
}

// WriteWorkbook writes headers and rows to the first sheet of a new workbook
// at path.
func WriteWorkbook(t *testing.T, path string, headers []string, rows [][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &headers))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}
	require.NoError(t, f.SaveAs(path))
}

// SetupLeadsWorkbook writes SampleLeads to a workbook in a temp directory and
// returns its path.
func SetupLeadsWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hubspot_export.xlsx")
	WriteWorkbook(t, path, LeadHeaders, SampleLeads)
	return path
}

// ReadWorkbook returns every row of the first sheet of the workbook at path,
// header included.
func ReadWorkbook(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}

// Column returns the values of the named column below the header.
func Column(t *testing.T, rows [][]string, name string) []string {
	t.Helper()
	require.NotEmpty(t, rows, "workbook has no header row")

	idx := -1
	for i, h := range rows[0] {
		if h == name {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0, "column %q not found in %v", name, rows[0])

	values := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if idx < len(row) {
			values = append(values, row[idx])
		} else {
			values = append(values, "")
		}
	}
	return values
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a renderer with the given mode and TTY state whose
// output is captured for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the captured stdout.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the captured stderr.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
