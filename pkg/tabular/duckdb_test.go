package tabular

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leadaudit/internal/testutil"
	"github.com/leapstack-labs/leadaudit/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFormat(t *testing.T, name string) Format {
	t.Helper()
	f, err := Get(name, testutil.NewTestLogger(t))
	require.NoError(t, err)
	return f
}

func TestDuckDB_ReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	content := "Contact owner,Lead Source,Phone\nJane,Web,555\n,N/A,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	ds, err := mustFormat(t, "csv").Read(context.Background(), path, ReadOptions{NullPolicy: dataset.DefaultNullPolicy()})
	require.NoError(t, err)

	assert.Equal(t, []string{"Contact owner", "Lead Source", "Phone"}, ds.Columns)
	require.Equal(t, 2, ds.Len())

	v, _ := ds.Record(0).Get("Phone")
	assert.Equal(t, "555", v.String(), "all cells are read as text")

	second := ds.Record(1)
	v, _ = second.Get("Contact owner")
	assert.True(t, v.IsNull())
	v, _ = second.Get("Lead Source")
	assert.True(t, v.IsNull())
	v, _ = second.Get("Phone")
	assert.True(t, v.IsNull())
}

func TestDuckDB_CSVRoundTrip(t *testing.T) {
	ds := dataset.New([]string{"Name", "Fail Count", "Failure Reason"})
	require.NoError(t, ds.Append(dataset.String("Jane"), dataset.Int(0), dataset.String("None")))
	require.NoError(t, ds.Append(dataset.String("O'Brien"), dataset.Int(2), dataset.String("Owner, Source")))
	require.NoError(t, ds.Append(dataset.Null(), dataset.Int(5), dataset.String("All")))

	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	csv := mustFormat(t, "csv")
	require.NoError(t, csv.Write(context.Background(), path, ds))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Name,Fail Count,Failure Reason", lines[0])
	assert.Equal(t, "Jane,0,None", lines[1])

	back, err := csv.Read(context.Background(), path, ReadOptions{NullPolicy: dataset.DefaultNullPolicy()})
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, back.Columns)
	require.Equal(t, 3, back.Len())

	v, _ := back.Record(1).Get("Name")
	assert.Equal(t, "O'Brien", v.String())
	v, _ = back.Record(1).Get("Failure Reason")
	assert.Equal(t, "Owner, Source", v.String())
	v, _ = back.Record(2).Get("Name")
	assert.True(t, v.IsNull())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is renamed into place")
}

func TestDuckDB_ReadDelimitedHeaders(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		content string
	}{
		{"csv", "csv", "Lead Source,Lead Source,\nWeb,Ads,x\n,,\nReferral,,\n"},
		{"tsv", "tsv", "Lead Source\tLead Source\t\nWeb\tAds\tx\n\t\t\nReferral\t\t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "leads."+tt.format)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			ds, err := mustFormat(t, tt.format).Read(context.Background(), path, ReadOptions{NullPolicy: dataset.DefaultNullPolicy()})
			require.NoError(t, err)

			assert.Equal(t, []string{"Lead Source", "Lead Source.1", "Unnamed: 2"}, ds.Columns)
			require.Equal(t, 2, ds.Len(), "fully blank rows are skipped")
			v, _ := ds.Record(0).Get("Lead Source.1")
			assert.Equal(t, "Ads", v.String())
			v, _ = ds.Record(1).Get("Unnamed: 2")
			assert.True(t, v.IsNull())
		})
	}
}

func TestDuckDB_WriteCaseVariantColumns(t *testing.T) {
	ds := dataset.New([]string{"Lead Source", "lead source", "Fail Count"})
	require.NoError(t, ds.Append(dataset.String("Web"), dataset.String("Ads"), dataset.Int(2)))
	require.NoError(t, ds.Append(dataset.Null(), dataset.String("Referral"), dataset.Int(0)))

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		csv := mustFormat(t, "csv")
		require.NoError(t, csv.Write(context.Background(), path, ds))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "Lead Source,lead source,Fail Count", lines[0])
		assert.Equal(t, "Web,Ads,2", lines[1])

		back, err := csv.Read(context.Background(), path, ReadOptions{NullPolicy: dataset.DefaultNullPolicy()})
		require.NoError(t, err)
		assert.Equal(t, ds.Columns, back.Columns)
		require.Equal(t, 2, back.Len())
		v, _ := back.Record(1).Get("Lead Source")
		assert.True(t, v.IsNull())
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.json")
		require.NoError(t, mustFormat(t, "json").Write(context.Background(), path, ds))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var records []map[string]any
		require.NoError(t, json.Unmarshal(data, &records))
		require.Len(t, records, 2)
		assert.Equal(t, "Web", records[0]["Lead Source"])
		assert.Equal(t, "Ads", records[0]["lead source"])
		assert.Equal(t, float64(2), records[0]["Fail Count"])
		assert.Nil(t, records[1]["Lead Source"])
		assert.Equal(t, "Referral", records[1]["lead source"])
	})

	t.Run("ndjson", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.ndjson")
		require.NoError(t, mustFormat(t, "ndjson").Write(context.Background(), path, ds))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 2)
		var second map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
		assert.Equal(t, "Referral", second["lead source"])
		assert.Equal(t, float64(0), second["Fail Count"])
	})
}

func TestDuckDB_JSONRoundTrip(t *testing.T) {
	ds := dataset.New([]string{"Email", "Fail Count"})
	require.NoError(t, ds.Append(dataset.String("ann@example.com"), dataset.Int(1)))
	require.NoError(t, ds.Append(dataset.String("bob@example.com"), dataset.Int(3)))

	path := filepath.Join(t.TempDir(), "out.json")
	f := mustFormat(t, "json")
	require.NoError(t, f.Write(context.Background(), path, ds))

	back, err := f.Read(context.Background(), path, ReadOptions{NullPolicy: dataset.DefaultNullPolicy()})
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, back.Columns)
	require.Equal(t, 2, back.Len())
	v, _ := back.Record(1).Get("Email")
	assert.Equal(t, "bob@example.com", v.String())
	v, _ = back.Record(1).Get("Fail Count")
	assert.Equal(t, "3", v.String())
}

func TestDuckDB_WriteNoColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	err := mustFormat(t, "csv").Write(context.Background(), path, dataset.New(nil))
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestDuckDB_ReadMissingFile(t *testing.T) {
	_, err := mustFormat(t, "csv").Read(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), ReadOptions{})
	require.Error(t, err)
}

func TestIntegerColumns(t *testing.T) {
	ds := dataset.New([]string{"ints", "mixed", "text", "empty", "marker"})
	policy := dataset.DefaultNullPolicy()
	require.NoError(t, ds.Append(dataset.Int(1), dataset.Int(2), dataset.String("a"), dataset.Null(), dataset.Int(1)))
	require.NoError(t, ds.Append(dataset.Null(), dataset.String("b"), dataset.String("c"), dataset.Null(), dataset.Text("N/A", policy)))
	require.NoError(t, ds.Append(dataset.Int(3), dataset.Int(4), dataset.Null(), dataset.Null(), dataset.Int(2)))

	assert.Equal(t, []bool{true, false, false, false, false}, integerColumns(ds))
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `'it''s'`, quoteLiteral("it's"))
	assert.Equal(t, `"a ""b"""`, quoteIdent(`a "b"`))
}
