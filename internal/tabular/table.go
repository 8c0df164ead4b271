// Package tabular reads row-oriented CSV extracts into an in-memory
// table the normalizer can work with. It tolerates the variations seen
// in real agency exports: UTF-8 BOMs, ragged rows, empty lines.
package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"gtas-reconciliation-service/pkg/errors"
	"gtas-reconciliation-service/pkg/logger"
)

// Table is a header-plus-rows view of one tabular input. Rows keep
// their original order; Line maps a row index back to its 1-indexed
// line in the source file (header included).
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Line returns the 1-indexed source-file line for the given row index,
// accounting for the header row.
func (t *Table) Line(rowIndex int) int {
	return rowIndex + 2
}

// ColumnIndex returns the index of the named header, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (rowIndex, colIndex), or "" when the row
// is shorter than the header (ragged CSV rows are tolerated).
func (t *Table) Cell(rowIndex, colIndex int) string {
	if colIndex < 0 || rowIndex < 0 || rowIndex >= len(t.Rows) {
		return ""
	}
	row := t.Rows[rowIndex]
	if colIndex >= len(row) {
		return ""
	}
	return row[colIndex]
}

// ReadFile reads a CSV file into a Table
func ReadFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer file.Close()

	table, err := Parse(file, path)
	if err != nil {
		return nil, err
	}

	logger.WithComponent("tabular").WithFields(logger.Fields{
		"file":    path,
		"rows":    len(table.Rows),
		"columns": len(table.Headers),
	}).Debug("Read tabular input")

	return table, nil
}

// Parse reads CSV data from r into a Table. name is used for error
// reporting only.
func Parse(r io.Reader, name string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		line := 0
		if parseErr, ok := err.(*csv.ParseError); ok {
			line = parseErr.Line
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat, name, line, err)
	}

	if len(records) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyInput, name, 0, nil)
	}

	headers := records[0]
	if len(headers) > 0 {
		headers[0] = stripBOM(headers[0])
	}

	for i, header := range headers {
		if !utf8.ValidString(header) {
			return nil, errors.ParseError(errors.CodeEncodingError, name, 1, nil).
				WithContext("column_index", i)
		}
	}

	rows := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if isEmptyRow(record) {
			continue
		}
		rows = append(rows, record)
	}

	return &Table{
		Name:    name,
		Headers: headers,
		Rows:    rows,
	}, nil
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

func isEmptyRow(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
