package customer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/dukerupert/binbill/internal/domain"
)

const reportSheet = "Upload Errors"

// WriteErrorReport writes rejected rows to an Excel workbook: the file line,
// the reason, then the original values in template column order.
func WriteErrorReport(w io.Writer, sourceName string, rowErrs []domain.RowError) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("name report sheet: %w", err)
	}

	header := append([]interface{}{"Row", "Error"}, toInterfaces(Columns)...)
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFE6E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(reportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, re := range rowErrs {
		values := []interface{}{re.Row, re.Message}
		for _, col := range Columns {
			values = append(values, re.Raw[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return fmt.Errorf("write report row %d: %w", re.Row, err)
		}
	}

	_ = f.SetColWidth(reportSheet, "A", "A", 8)
	_ = f.SetColWidth(reportSheet, "B", "B", 50)
	_ = f.SetColWidth(reportSheet, "C", lastCol, 20)

	summaryRow := len(rowErrs) + 3
	_ = f.SetCellValue(reportSheet, fmt.Sprintf("A%d", summaryRow), "Source")
	_ = f.SetCellValue(reportSheet, fmt.Sprintf("B%d", summaryRow), sourceName)
	_ = f.SetCellValue(reportSheet, fmt.Sprintf("A%d", summaryRow+1), "Rejected")
	_ = f.SetCellValue(reportSheet, fmt.Sprintf("B%d", summaryRow+1), len(rowErrs))

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func toInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
