package tabular

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leadaudit/pkg/dataset"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

const outputTable = "audit_output"

// layout says how column names travel between a file and DuckDB.
type layout int

const (
	// named files carry column names in their schema. They are written with
	// COPY and aliased columns.
	named layout = iota
	// delimited files are scanned without a header. Row 1 is the header and is
	// written back as the first data row, so names are never case-folded or
	// renamed by DuckDB.
	delimited
	// jsonArray and jsonLines rows are rendered with json_object, which keeps
	// keys exactly as given.
	jsonArray
	jsonLines
)

// duckdbFormat describes how DuckDB scans and copies one file type.
type duckdbFormat struct {
	name    string
	scan    string // table function; %s is the quoted path
	copyOpt string // COPY ... TO options
	layout  layout
}

var duckdbFormats = []struct {
	format     duckdbFormat
	extensions []string
}{
	{duckdbFormat{"csv", "read_csv_auto(%s, header=false, all_varchar=true, null_padding=true)", "FORMAT CSV, HEADER false", delimited}, []string{".csv"}},
	{duckdbFormat{"tsv", "read_csv_auto(%s, header=false, all_varchar=true, null_padding=true, delim='\t')", "FORMAT CSV, HEADER false, DELIMITER '\t'", delimited}, []string{".tsv"}},
	{duckdbFormat{"parquet", "read_parquet(%s)", "FORMAT PARQUET", named}, []string{".parquet"}},
	{duckdbFormat{"json", "read_json_auto(%s)", "", jsonArray}, []string{".json"}},
	{duckdbFormat{"ndjson", "read_json_auto(%s, format='newline_delimited')", "", jsonLines}, []string{".ndjson", ".jsonl"}},
}

func init() {
	for _, f := range duckdbFormats {
		def := f.format
		Register(def.name, func(logger *slog.Logger) Format { return newDuckDB(def, logger) }, f.extensions...)
	}
}

// DuckDB reads and writes delimited, Parquet and JSON files through an
// in-memory DuckDB database.
type DuckDB struct {
	def    duckdbFormat
	logger *slog.Logger
}

// newDuckDB creates a DuckDB-backed format handler.
func newDuckDB(def duckdbFormat, logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDB{def: def, logger: logger}
}

// Name returns the registry name of the file type.
func (d *DuckDB) Name() string { return d.def.name }

func (d *DuckDB) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return db, nil
}

// Read scans the file with DuckDB. SQL NULLs (blank CSV cells) are absent and
// text cells are classified with opts.NullPolicy. For delimited files the first
// row is the header and rows with no content at all are skipped.
func (d *DuckDB) Read(ctx context.Context, path string, opts ReadOptions) (*dataset.Dataset, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	db, err := d.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	query := "SELECT * FROM " + fmt.Sprintf(d.def.scan, quoteLiteral(absPath))
	d.logger.Debug("scanning file", "path", absPath, "query", query)

	rows, err := db.QueryContext(ctx, query) //nolint:gosec // path is quoted
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var ds *dataset.Dataset
	if d.def.layout != delimited {
		ds = dataset.New(dataset.NormalizeHeaders(columns))
	}
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	line, skipped := 0, 0
	for rows.Next() {
		line++
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", line, err)
		}
		if ds == nil {
			header := make([]string, len(raw))
			for i, v := range raw {
				header[i] = headerText(v)
			}
			ds = dataset.New(dataset.NormalizeHeaders(header))
			continue
		}
		if d.def.layout == delimited && allNil(raw) {
			skipped++
			continue
		}
		values := make([]dataset.Value, len(raw))
		for i, v := range raw {
			values[i] = fromSQL(v, opts.NullPolicy)
		}
		if err := ds.Append(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", path, err)
	}
	if ds == nil {
		ds = dataset.New(nil)
	}

	d.logger.Debug("read file",
		"path", path,
		"format", d.def.name,
		"columns", len(ds.Columns),
		"records", ds.Len(),
		"blank_rows_skipped", skipped,
	)
	return ds, nil
}

// Write loads ds into a table with positional column names and copies it out
// with DuckDB. Columns holding only integers are stored as BIGINT, everything
// else as VARCHAR.
func (d *DuckDB) Write(ctx context.Context, path string, ds *dataset.Dataset) error {
	if len(ds.Columns) == 0 {
		return fmt.Errorf("cannot write %s: dataset has no columns", path)
	}

	db, err := d.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	intCols := integerColumns(ds)

	defs := make([]string, 0, len(ds.Columns)+1)
	marks := make([]string, 0, len(ds.Columns)+1)
	defs = append(defs, "rn BIGINT")
	marks = append(marks, "?")
	for i := range ds.Columns {
		typ := "VARCHAR"
		if intCols[i] {
			typ = "BIGINT"
		}
		defs = append(defs, positional(i)+" "+typ)
		marks = append(marks, "?")
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", outputTable, strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create output table: %w", err)
	}

	if err := d.insertAll(ctx, db, ds, intCols, strings.Join(marks, ", ")); err != nil {
		return err
	}

	return writeAtomic(path, func(tmp string) error {
		var err error
		switch d.def.layout {
		case jsonArray, jsonLines:
			err = d.writeJSON(ctx, db, tmp, ds.Columns)
		default:
			copySQL := fmt.Sprintf("COPY (%s) TO %s (%s)", d.copyQuery(ds.Columns), quoteLiteral(tmp), d.def.copyOpt)
			if _, execErr := db.ExecContext(ctx, copySQL); execErr != nil {
				err = fmt.Errorf("failed to write %s: %w", path, execErr)
			}
		}
		if err != nil {
			return err
		}
		d.logger.Debug("wrote file", "path", path, "format", d.def.name, "records", ds.Len())
		return nil
	})
}

// copyQuery selects the output rows in record order. Delimited files get the
// header as a leading row of string literals.
func (d *DuckDB) copyQuery(columns []string) string {
	cols := make([]string, len(columns))
	for i, name := range columns {
		if d.def.layout == delimited {
			cols[i] = positional(i)
		} else {
			cols[i] = positional(i) + " AS " + quoteIdent(name)
		}
	}
	if d.def.layout != delimited {
		return fmt.Sprintf("SELECT %s FROM %s ORDER BY rn", strings.Join(cols, ", "), outputTable)
	}

	header := make([]string, len(columns))
	body := make([]string, len(columns))
	for i, name := range columns {
		header[i] = quoteLiteral(name) + " AS " + positional(i)
		body[i] = "CAST(" + positional(i) + " AS VARCHAR)"
	}
	return fmt.Sprintf("SELECT %s FROM (SELECT -1 AS rn, %s UNION ALL SELECT rn, %s FROM %s) ORDER BY rn",
		strings.Join(cols, ", "), strings.Join(header, ", "), strings.Join(body, ", "), outputTable)
}

// writeJSON renders each record with json_object and writes one object per
// line, wrapped in an array for the json format.
func (d *DuckDB) writeJSON(ctx context.Context, db *sql.DB, tmp string, columns []string) error {
	args := make([]string, 0, 2*len(columns))
	for i, name := range columns {
		args = append(args, quoteLiteral(name), positional(i))
	}
	query := fmt.Sprintf("SELECT CAST(json_object(%s) AS VARCHAR) FROM %s ORDER BY rn", strings.Join(args, ", "), outputTable)

	rows, err := db.QueryContext(ctx, query) //nolint:gosec // names are quoted
	if err != nil {
		return fmt.Errorf("failed to render json: %w", err)
	}
	defer func() { _ = rows.Close() }()

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	defer func() { _ = f.Close() }()
	w := bufio.NewWriter(f)

	if d.def.layout == jsonArray {
		_, _ = w.WriteString("[")
	}
	for n := 0; rows.Next(); n++ {
		var obj string
		if err := rows.Scan(&obj); err != nil {
			return fmt.Errorf("failed to scan json row: %w", err)
		}
		switch {
		case d.def.layout == jsonLines:
			_, _ = w.WriteString(obj + "\n")
		case n == 0:
			_, _ = w.WriteString("\n\t" + obj)
		default:
			_, _ = w.WriteString(",\n\t" + obj)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to render json: %w", err)
	}
	if d.def.layout == jsonArray {
		_, _ = w.WriteString("\n]\n")
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return f.Close()
}

func (d *DuckDB) insertAll(ctx context.Context, db *sql.DB, ds *dataset.Dataset, intCols []bool, marks string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", outputTable, marks))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(ds.Columns)+1)
	for n, rec := range ds.Records {
		args[0] = int64(n)
		for i := range ds.Columns {
			var v dataset.Value
			if i < len(rec.Values) {
				v = rec.Values[i]
			}
			args[i+1] = toSQL(v, intCols[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", n+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// integerColumns reports, per column, whether the column holds at least one
// integer and otherwise only empty nulls.
func integerColumns(ds *dataset.Dataset) []bool {
	out := make([]bool, len(ds.Columns))
	mixed := make([]bool, len(ds.Columns))
	for _, rec := range ds.Records {
		for i := range out {
			if mixed[i] || i >= len(rec.Values) {
				continue
			}
			v := rec.Values[i]
			switch {
			case v.IsInt():
				out[i] = true
			case v.IsNull() && v.Raw() == nil:
			default:
				mixed[i] = true
				out[i] = false
			}
		}
	}
	return out
}

func toSQL(v dataset.Value, integer bool) any {
	if v.Raw() == nil {
		return nil
	}
	if integer {
		switch x := v.Raw().(type) {
		case int:
			return int64(x)
		case int64:
			return x
		}
	}
	return v.String()
}

func fromSQL(v any, policy dataset.NullPolicy) dataset.Value {
	switch x := v.(type) {
	case nil:
		return dataset.Null()
	case string:
		return dataset.Text(x, policy)
	case []byte:
		return dataset.Text(string(x), policy)
	case int8:
		return dataset.Of(int64(x))
	case int16:
		return dataset.Of(int64(x))
	case int32:
		return dataset.Of(int64(x))
	case uint8:
		return dataset.Of(int64(x))
	case uint16:
		return dataset.Of(int64(x))
	case uint32:
		return dataset.Of(int64(x))
	case float32:
		return dataset.Of(float64(x))
	case int64, float64, bool, time.Time:
		return dataset.Of(x)
	default:
		return dataset.String(fmt.Sprint(x))
	}
}

// positional names the table column holding dataset column i.
func positional(i int) string {
	return "c" + strconv.Itoa(i)
}

func headerText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func allNil(values []any) bool {
	for _, v := range values {
		if v != nil {
			return false
		}
	}
	return true
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
