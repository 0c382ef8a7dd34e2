package tabular

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leadaudit/pkg/dataset"
	"github.com/xuri/excelize/v2"
)

// defaultSheet matches the sheet name of a freshly created workbook.
const defaultSheet = "Sheet1"

func init() {
	Register("xlsx", func(logger *slog.Logger) Format { return NewXLSX(logger) }, ".xlsx", ".xlsm")
}

// XLSX reads and writes Excel workbooks.
type XLSX struct {
	logger *slog.Logger
}

// NewXLSX creates an Excel format handler. A nil logger discards output.
func NewXLSX(logger *slog.Logger) *XLSX {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &XLSX{logger: logger}
}

// Name returns "xlsx".
func (x *XLSX) Name() string { return "xlsx" }

// Read loads one worksheet. The first row is the header. Short rows are padded
// with nulls and rows with no content at all are skipped. Numeric cells come
// back as int64 or float64, date-formatted cells as time.Time and boolean
// cells as bool. Only text cells go through opts.NullPolicy.
func (x *XLSX) Read(ctx context.Context, path string, opts ReadOptions) (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	cr, err := newCellReader(f, sheet, opts.NullPolicy)
	if err != nil {
		return nil, err
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	defer func() { _ = rows.Close() }()

	var header []string
	var body []sheetRow
	line := 0
	skipped := 0
	width := 0
	for rows.Next() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d of sheet %q: %w", line, sheet, err)
		}

		if header == nil {
			header = cells
			if header == nil {
				header = []string{}
			}
			width = len(header)
			continue
		}
		if isBlankRow(cells) {
			skipped++
			continue
		}
		width = max(width, len(cells))
		body = append(body, sheetRow{line: line, cells: cells})
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate sheet %q: %w", sheet, err)
	}

	// Cells beyond the header get "Unnamed: <i>" columns.
	for len(header) < width {
		header = append(header, "")
	}
	ds := dataset.New(dataset.NormalizeHeaders(header))
	for _, row := range body {
		values := make([]dataset.Value, len(row.cells))
		for i, c := range row.cells {
			v, err := cr.value(i+1, row.line, c)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		if err := ds.Append(values...); err != nil {
			return nil, err
		}
	}

	x.logger.Debug("read workbook",
		"path", path,
		"sheet", sheet,
		"columns", len(ds.Columns),
		"records", ds.Len(),
		"blank_rows_skipped", skipped,
	)
	return ds, nil
}

// Write saves ds as a single-sheet workbook. Numbers stay numeric, times are
// written as date cells and null cells without raw content are left empty.
func (x *XLSX) Write(ctx context.Context, path string, ds *dataset.Dataset) error {
	return writeAtomic(path, func(tmp string) error {
		f := excelize.NewFile()
		defer func() { _ = f.Close() }()

		styles, err := newDateStyles(f)
		if err != nil {
			return err
		}

		sw, err := f.NewStreamWriter(defaultSheet)
		if err != nil {
			return fmt.Errorf("failed to create sheet writer: %w", err)
		}

		header := make([]interface{}, len(ds.Columns))
		for i, c := range ds.Columns {
			header[i] = c
		}
		if err := sw.SetRow("A1", header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}

		for i, rec := range ds.Records {
			if i%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			row := make([]interface{}, len(ds.Columns))
			for j := range row {
				if j < len(rec.Values) {
					row[j] = styles.cellValue(rec.Values[j])
				}
			}
			if err := sw.SetRow(cell, row); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}

		if err := sw.Flush(); err != nil {
			return fmt.Errorf("failed to flush sheet: %w", err)
		}
		if err := f.SaveAs(tmp); err != nil {
			return fmt.Errorf("failed to save workbook: %w", err)
		}

		x.logger.Debug("wrote workbook", "path", path, "columns", len(ds.Columns), "records", ds.Len())
		return nil
	})
}

type sheetRow struct {
	line  int
	cells []string
}

// cellReader turns raw cell text into typed values using the cell type and
// number format stored in the workbook.
type cellReader struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	policy     dataset.NullPolicy
	dateStyles map[int]bool
}

func newCellReader(f *excelize.File, sheet string, policy dataset.NullPolicy) (*cellReader, error) {
	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook properties: %w", err)
	}
	return &cellReader{
		f:          f,
		sheet:      sheet,
		date1904:   props.Date1904 != nil && *props.Date1904,
		policy:     policy,
		dateStyles: make(map[int]bool),
	}, nil
}

func (c *cellReader) value(col, row int, raw string) (dataset.Value, error) {
	if raw == "" {
		return dataset.Null(), nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return dataset.Value{}, err
	}
	typ, err := c.f.GetCellType(c.sheet, cell)
	if err != nil {
		return dataset.Value{}, fmt.Errorf("failed to read cell %s: %w", cell, err)
	}

	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
	case excelize.CellTypeBool:
		return dataset.Of(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return dataset.Of(t), nil
		}
		return dataset.Text(raw, c.policy), nil
	default:
		return dataset.Text(raw, c.policy), nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return dataset.Text(raw, c.policy), nil
	}
	isDate, err := c.isDate(cell)
	if err != nil {
		return dataset.Value{}, err
	}
	if isDate {
		if t, err := excelize.ExcelDateToTime(n, c.date1904); err == nil {
			return dataset.Of(t.Round(time.Millisecond)), nil
		}
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return dataset.Of(i), nil
	}
	return dataset.Of(n), nil
}

// isDate reports whether the cell's number format displays a date or time.
func (c *cellReader) isDate(cell string) (bool, error) {
	idx, err := c.f.GetCellStyle(c.sheet, cell)
	if err != nil {
		return false, fmt.Errorf("failed to read style of cell %s: %w", cell, err)
	}
	if idx == 0 {
		return false, nil
	}
	if known, ok := c.dateStyles[idx]; ok {
		return known, nil
	}
	style, err := c.f.GetStyle(idx)
	if err != nil {
		return false, fmt.Errorf("failed to read style %d: %w", idx, err)
	}
	date := isDateNumFmt(style.NumFmt)
	if style.CustomNumFmt != nil {
		date = isDateFormatCode(*style.CustomNumFmt)
	}
	c.dateStyles[idx] = date
	return date, nil
}

// isDateNumFmt reports whether a built-in number format id is a date or time
// format, including the locale-specific date ids.
func isDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 45 && id <= 47:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58, id >= 71 && id <= 81:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom format code shows date or time
// parts outside quoted literals, escapes and bracketed sections.
func isDateFormatCode(code string) bool {
	var quoted, bracket, escaped bool
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case quoted:
			quoted = r != '"'
		case bracket:
			if r == ']' {
				bracket = false
			}
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = true
		case r == '[':
			bracket = true
		case r == 'y', r == 'd', r == 'h', r == 's':
			return true
		}
	}
	return false
}

// dateStyles holds the cell styles used to write time values.
type dateStyles struct {
	date     int
	dateTime int
}

func newDateStyles(f *excelize.File) (dateStyles, error) {
	date, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return dateStyles{}, fmt.Errorf("failed to create date style: %w", err)
	}
	dateTime, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return dateStyles{}, fmt.Errorf("failed to create date style: %w", err)
	}
	return dateStyles{date: date, dateTime: dateTime}, nil
}

// cellValue maps a dataset value to something the stream writer accepts.
func (s dateStyles) cellValue(v dataset.Value) interface{} {
	raw := v.Raw()
	switch x := raw.(type) {
	case nil:
		return nil
	case string, int, int64, float64, bool:
		return raw
	case time.Time:
		style := s.dateTime
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			style = s.date
		}
		return excelize.Cell{StyleID: style, Value: x}
	default:
		return v.String()
	}
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
