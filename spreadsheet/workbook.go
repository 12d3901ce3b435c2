// Package spreadsheet exposes the active sheet of an .xlsx workbook as a
// 1-based grid of text cells.
package spreadsheet

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var ErrNoActiveSheet = errors.New("workbook has no active sheet")

type Workbook struct {
	file  *excelize.File
	sheet string
}

func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		f.Close()
		return nil, ErrNoActiveSheet
	}

	return &Workbook{file: f, sheet: sheet}, nil
}

// Cell returns the formatted text of the cell at row, col (both 1-based).
func (w *Workbook) Cell(row, col int) (string, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	return w.file.GetCellValue(w.sheet, axis)
}

func (w *Workbook) SetCell(row, col int, value string) error {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.file.SetCellStr(w.sheet, axis, value)
}

// Header returns the cells of the first row.
func (w *Workbook) Header() ([]string, error) {
	rows, err := w.file.GetRows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// MaxRow returns the index of the last row holding any value.
func (w *Workbook) MaxRow() (int, error) {
	rows, err := w.file.GetRows(w.sheet)
	if err != nil {
		return 0, fmt.Errorf("read rows: %w", err)
	}
	return len(rows), nil
}

// InsertColumn shifts col and every column right of it one place right.
func (w *Workbook) InsertColumn(col int) error {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return err
	}
	return w.file.InsertCols(w.sheet, name, 1)
}

func (w *Workbook) SaveAs(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (w *Workbook) Close() error {
	return w.file.Close()
}
