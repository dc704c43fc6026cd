package customer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dukerupert/binbill/internal/domain"
)

// SourceRow is a RawRow together with the file line it came from.
// The header is line 1, so the first data row is line 2.
type SourceRow struct {
	Line int
	Raw  domain.RawRow
}

// ParseSource reads a customer file, choosing the format by file extension.
func ParseSource(name string, r io.Reader) ([]SourceRow, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	default:
		return nil, &ParseError{Err: fmt.Errorf("%w: %q (expected .csv or .xlsx)", ErrUnsupportedFormat, ext)}
	}
}

// ParseCSV reads UTF-8 delimited text whose first line is a header.
// Header names are matched case-insensitively against Columns; other
// columns are ignored. Blank lines are skipped.
func ParseCSV(r io.Reader) ([]SourceRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		header []string
		rows   []SourceRow
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{Line: csvErr.Line, Err: csvErr.Err}
			}
			return nil, &ParseError{Err: err}
		}
		line, _ := cr.FieldPos(0)

		if header == nil {
			if isBlank(record) {
				continue
			}
			header, err = mapHeader(record, line)
			if err != nil {
				return nil, err
			}
			continue
		}

		if row, ok := buildRow(header, record); ok {
			rows = append(rows, SourceRow{Line: line, Raw: row})
		}
	}

	return finish(header, rows)
}

// ParseXLSX reads the first sheet of an Excel workbook under the same rules as ParseCSV.
func ParseXLSX(r io.Reader) ([]SourceRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Err: errors.New("workbook has no sheets")}
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}

	var (
		header []string
		rows   []SourceRow
	)
	for i, record := range records {
		line := i + 1
		if header == nil {
			if isBlank(record) {
				continue
			}
			header, err = mapHeader(record, line)
			if err != nil {
				return nil, err
			}
			continue
		}

		if row, ok := buildRow(header, record); ok {
			rows = append(rows, SourceRow{Line: line, Raw: row})
		}
	}

	return finish(header, rows)
}

// mapHeader returns, per column position, the recognized column name or "".
func mapHeader(record []string, line int) ([]string, error) {
	header := make([]string, len(record))
	seen := make(map[string]bool, len(record))
	recognized := 0
	for i, cell := range record {
		name, ok := canonicalColumn(cell)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		header[i] = name
		recognized++
	}
	if recognized == 0 {
		return nil, &ParseError{Line: line, Err: fmt.Errorf("header has none of the expected columns (%s)", strings.Join(Columns, ", "))}
	}
	return header, nil
}

func buildRow(header, record []string) (domain.RawRow, bool) {
	if isBlank(record) {
		return nil, false
	}
	row := make(domain.RawRow, len(header))
	for i, name := range header {
		if name == "" || i >= len(record) {
			continue
		}
		row[name] = CleanCell(record[i])
	}
	return row, true
}

func finish(header []string, rows []SourceRow) ([]SourceRow, error) {
	if header == nil {
		return nil, &ParseError{Err: errors.New("file is empty")}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Err: errors.New("file has a header but no data rows")}
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if CleanCell(cell) != "" {
			return false
		}
	}
	return true
}
