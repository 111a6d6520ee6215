package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jakechorley/volunteer-portal/pkg/core/services"
)

// Header is the column layout shared by the xlsx and Google Sheets exports
var Header = []string{
	"Org", "Code", "Name", "Role",
	"Attendance (mins)", "Tasks (mins)", "Total (mins)", "Total (hours)",
	"Pending sessions", "Pending tasks", "Checked in now",
}

// Rows flattens report rows into spreadsheet cells in Header order
func Rows(rows []services.HoursRow) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		checkedIn := "no"
		if r.OpenSession {
			checkedIn = "yes"
		}
		out = append(out, []interface{}{
			string(r.Org), r.Code, r.Name, r.Role,
			r.AttendanceMinutes, r.TaskMinutes, r.TotalMinutes(),
			fmt.Sprintf("%.2f", float64(r.TotalMinutes())/60),
			r.PendingSessions, r.PendingTasks, checkedIn,
		})
	}
	return out
}

// HeaderCells returns Header as spreadsheet cells
func HeaderCells() []interface{} {
	cells := make([]interface{}, len(Header))
	for i, h := range Header {
		cells[i] = h
	}
	return cells
}

// WriteXLSX writes the hours report as a workbook with one sheet per org
func WriteXLSX(w io.Writer, rows []services.HoursRow) error {
	f := excelize.NewFile()
	defer f.Close()

	byOrg := make(map[string][]services.HoursRow)
	var order []string
	for _, r := range rows {
		org := string(r.Org)
		if _, ok := byOrg[org]; !ok {
			order = append(order, org)
		}
		byOrg[org] = append(byOrg[org], r)
	}
	if len(order) == 0 {
		order = []string{"Hours"}
	}

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}

		if err := f.SetSheetRow(name, "A1", &Header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		for j, cells := range Rows(byOrg[name]) {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return fmt.Errorf("failed to compute cell name: %w", err)
			}
			if err := f.SetSheetRow(name, cell, &cells); err != nil {
				return fmt.Errorf("failed to write row %d: %w", j+2, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ReadRoster reads a roster sheet from an xlsx workbook, header first.
// An empty sheet name reads the first sheet.
func ReadRoster(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}
	return rows, nil
}
