package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyWorkbook is returned when the first sheet has no header or no data rows.
var ErrEmptyWorkbook = errors.New("workbook has no data rows")

// Row is one data row keyed by field key.
type Row struct {
	Line   int // 1-based sheet row number
	Fields map[string]string
}

// Get returns the trimmed value for key, or "".
func (r Row) Get(key string) string {
	return strings.TrimSpace(r.Fields[key])
}

// Name is a display label for failure reports.
func (r Row) Name() string {
	return strings.TrimSpace(r.Get(KeyFirstName) + " " + r.Get(KeyLastName))
}

// ReadMemberRows reads the first sheet of an xlsx workbook. The first row is
// the header; columns with unrecognized headers are ignored and blank rows
// are skipped. Date cells come back as serial numbers for the caller to
// normalize.
func ReadMemberRows(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	grid, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(grid) < 2 {
		return nil, ErrEmptyWorkbook
	}

	keys := make([]string, len(grid[0]))
	known := 0
	for i, h := range grid[0] {
		if keys[i] = FieldKey(h); keys[i] != "" {
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("no recognized columns in header row")
	}

	var rows []Row
	for i, cells := range grid[1:] {
		row := Row{Line: i + 2, Fields: make(map[string]string, known)}
		blank := true
		for c, v := range cells {
			if c >= len(keys) || keys[c] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			blank = false
			if _, dup := row.Fields[keys[c]]; !dup {
				row.Fields[keys[c]] = v
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return rows, nil
}
