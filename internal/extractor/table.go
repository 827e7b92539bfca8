package extractor

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RedactedSuffix is appended to the selected column name for the output column.
const RedactedSuffix = "_REDACTED"

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrEmptyTable     = errors.New("table has no header row")
)

// Table is a parsed spreadsheet: a header row and rectangular data rows.
type Table struct {
	Format Format
	Sheet  string
	Sheets []string
	Header []string
	Rows   [][]string

	// source is the uploaded workbook; Encode writes added columns into it
	// so other sheets, cell types and styles survive.
	source  []byte
	written []columnWrite
}

type columnWrite struct {
	index  int
	name   string
	values []string
}

// ReadTable parses a csv or xlsx upload. For xlsx, sheet selects the
// worksheet; the first sheet is used when it is empty.
func ReadTable(format Format, data []byte, sheet string) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch format {
	case FormatCSV:
		t, err = readCSV(data)
	case FormatXLSX:
		t, err = readXLSX(data, sheet)
	default:
		return nil, fmt.Errorf("%w: %q is not a table", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	t.normalize()
	return t, nil
}

func readCSV(data []byte) (*Table, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode CSV: %w", err)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}

	return &Table{Format: FormatCSV, Header: records[0], Rows: records[1:]}, nil
}

func readXLSX(data []byte, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !contains(sheets, sheet) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	return &Table{
		Format: FormatXLSX,
		Sheet:  sheet,
		Sheets: sheets,
		Header: rows[0],
		Rows:   rows[1:],
		source: data,
	}, nil
}

// normalize pads or widens rows so every row has one cell per header.
func (t *Table) normalize() {
	width := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(t.Header) < width {
		t.Header = append(t.Header, fmt.Sprintf("column_%d", len(t.Header)+1))
	}
	for i, row := range t.Rows {
		for len(row) < width {
			row = append(row, "")
		}
		t.Rows[i] = row
	}
}

func (t *Table) ColumnIndex(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	trimmed := strings.TrimSpace(name)
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), trimmed) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Column returns the cells of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	cells := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row[idx]
	}
	return cells, nil
}

// TextColumns lists the columns holding at least one non-numeric value.
func (t *Table) TextColumns() []string {
	var cols []string
	for i, h := range t.Header {
		for _, row := range t.Rows {
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				cols = append(cols, h)
				break
			}
		}
	}
	return cols
}

// WithColumn returns a copy of the table with values added as the named
// column, replacing a column that already has that name.
func (t *Table) WithColumn(name string, values []string) (*Table, error) {
	if len(values) != len(t.Rows) {
		return nil, fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}

	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}

	out := &Table{
		Format: t.Format,
		Sheet:  t.Sheet,
		Sheets: t.Sheets,
		Header: append([]string(nil), t.Header...),
		Rows:   make([][]string, len(t.Rows)),
		source: t.source,
	}
	if idx < 0 {
		idx = len(out.Header)
		out.Header = append(out.Header, name)
	}
	out.written = append(append([]columnWrite(nil), t.written...), columnWrite{
		index:  idx,
		name:   name,
		values: append([]string(nil), values...),
	})
	for i, row := range t.Rows {
		r := append([]string(nil), row...)
		for len(r) <= idx {
			r = append(r, "")
		}
		r[idx] = values[i]
		out.Rows[i] = r
	}
	return out, nil
}

// Encode serializes the table in its own format.
func (t *Table) Encode() ([]byte, error) {
	switch t.Format {
	case FormatCSV:
		return t.encodeCSV()
	case FormatXLSX:
		return t.encodeXLSX()
	}
	return nil, fmt.Errorf("%w: %q is not a table", ErrUnsupportedFormat, t.Format)
}

func (t *Table) encodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeXLSX writes the added columns into the uploaded workbook. A table
// built without one is written to a new single-sheet workbook.
func (t *Table) encodeXLSX() ([]byte, error) {
	if t.source == nil {
		return t.encodeNewXLSX()
	}

	f, err := excelize.OpenReader(bytes.NewReader(t.source))
	if err != nil {
		return nil, fmt.Errorf("failed to reopen XLSX: %w", err)
	}
	defer f.Close()

	for _, c := range t.written {
		cells := append([]string{c.name}, c.values...)
		for r, v := range cells {
			cell, err := excelize.CoordinatesToCellName(c.index+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(t.Sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode XLSX: %w", err)
	}
	return buf.Bytes(), nil
}

func (t *Table) encodeNewXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	write := func(rowNum int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := write(1, t.Header); err != nil {
		return nil, fmt.Errorf("failed to write XLSX header: %w", err)
	}
	for i, row := range t.Rows {
		if err := write(i+2, row); err != nil {
			return nil, fmt.Errorf("failed to write XLSX row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode XLSX: %w", err)
	}
	return buf.Bytes(), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
