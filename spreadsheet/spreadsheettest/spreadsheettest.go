// Package spreadsheettest builds and reads small workbooks for tests.
package spreadsheettest

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// Write saves a single-sheet workbook holding rows to path.
func Write(t testing.TB, path string, rows [][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, row := range rows {
		for j, value := range row {
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellStr(sheet, axis, value); err != nil {
				t.Fatalf("set %s: %v", axis, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

// Rows returns every row of the active sheet of the workbook at path.
func Rows(t testing.TB, path string) [][]string {
	t.Helper()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}
