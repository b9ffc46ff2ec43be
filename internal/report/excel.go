package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var errNoSheet = errors.New("no active sheet")

// ExcelWriter writes tabular report data to Excel format.
type ExcelWriter interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []interface{}) error
	Save(w io.Writer) error
	SaveToFile(path string) error
	Close() error
}

// ExcelizeWriter implements ExcelWriter on top of excelize. Rows append to
// the sheet last added; AddSheet resets the cursor.
type ExcelizeWriter struct {
	file  *excelize.File
	sheet string
	row   int
}

func NewExcelizeWriter() ExcelWriter {
	return &ExcelizeWriter{file: excelize.NewFile()}
}

// AddSheet makes name the active sheet. The first call renames the default
// Sheet1 so workbooks never carry an empty leading tab.
func (w *ExcelizeWriter) AddSheet(name string) error {
	// Excel caps sheet names at 31 chars
	if len(name) > 31 {
		name = name[:31]
	}
	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename default sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheet = name
	w.row = 1
	return nil
}

// WriteHeader writes a bold header row.
func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	if w.sheet == "" {
		return errNoSheet
	}
	cells := make([]interface{}, len(columns))
	for i, c := range columns {
		cells[i] = c
	}
	first, last, err := w.writeCells(cells)
	if err != nil {
		return err
	}
	if style, serr := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); serr == nil {
		_ = w.file.SetCellStyle(w.sheet, first, last, style)
	}
	w.row++
	return nil
}

// WriteRow appends one data row to the active sheet.
func (w *ExcelizeWriter) WriteRow(row []interface{}) error {
	if w.sheet == "" {
		return errNoSheet
	}
	if _, _, err := w.writeCells(row); err != nil {
		return err
	}
	w.row++
	return nil
}

// writeCells fills the cursor row left to right and returns the first and
// last cell names for styling.
func (w *ExcelizeWriter) writeCells(values []interface{}) (first, last string, err error) {
	for i, v := range values {
		cell, cerr := excelize.CoordinatesToCellName(i+1, w.row)
		if cerr != nil {
			return "", "", cerr
		}
		if i == 0 {
			first = cell
		}
		last = cell
		if err := w.file.SetCellValue(w.sheet, cell, v); err != nil {
			return "", "", err
		}
	}
	return first, last, nil
}

func (w *ExcelizeWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *ExcelizeWriter) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

func (w *ExcelizeWriter) Close() error {
	return w.file.Close()
}
