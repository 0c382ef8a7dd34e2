package dataset

import (
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Dataset is an ordered table of records.
type Dataset struct {
	Columns []string
	Records []Record

	index map[string]int
}

// Record is one row. Values are aligned with the owning dataset's columns.
type Record struct {
	Values []Value

	index map[string]int
}

// New creates an empty dataset with the given columns.
func New(columns []string) *Dataset {
	ds := &Dataset{Columns: append([]string(nil), columns...)}
	ds.reindex()
	return ds
}

func (ds *Dataset) reindex() {
	ds.index = buildIndex(ds.Columns)
}

// lookup returns the column index without mutating ds.
func (ds *Dataset) lookup() map[string]int {
	if ds.index != nil {
		return ds.index
	}
	return buildIndex(ds.Columns)
}

func buildIndex(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		key := normalizeKey(c)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	return index
}

// Append adds a record built from values. Short rows are padded with nulls and
// long rows are rejected.
func (ds *Dataset) Append(values ...Value) error {
	if ds.index == nil {
		ds.reindex()
	}
	if len(values) > len(ds.Columns) {
		return fmt.Errorf("row %d has %d values but dataset has %d columns", len(ds.Records)+1, len(values), len(ds.Columns))
	}
	row := make([]Value, len(ds.Columns))
	copy(row, values)
	ds.Records = append(ds.Records, Record{Values: row, index: ds.index})
	return nil
}

// Len returns the number of records.
func (ds *Dataset) Len() int {
	return len(ds.Records)
}

// ColumnIndex returns the position of a column, matching on the NFC form of
// the name.
func (ds *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := ds.lookup()[normalizeKey(name)]
	return i, ok
}

// Record returns record i with its lookup index attached.
func (ds *Dataset) Record(i int) Record {
	r := ds.Records[i]
	r.index = ds.lookup()
	return r
}

// Get returns the value of the named field. A missing field yields a null
// value and false.
func (r Record) Get(name string) (Value, bool) {
	i, ok := r.index[normalizeKey(name)]
	if !ok || i >= len(r.Values) {
		return Null(), false
	}
	return r.Values[i], true
}

// NewRecord builds a standalone record from a field map in the given column
// order. Mostly useful in tests.
func NewRecord(columns []string, fields map[string]Value) Record {
	values := make([]Value, len(columns))
	for i, c := range columns {
		values[i] = fields[c]
	}
	return Record{Values: values, index: buildIndex(columns)}
}

// NormalizeHeaders makes header names unique and non-empty. Blank headers
// become "Unnamed: <i>" and repeated names get ".1", ".2" suffixes.
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		if _, dup := seen[h]; dup {
			n := seen[h]
			for {
				n++
				name = h + "." + strconv.Itoa(n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[h] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

func normalizeKey(s string) string {
	return norm.NFC.String(s)
}
