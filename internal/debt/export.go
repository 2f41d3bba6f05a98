package debt

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Công nợ"
	yearSheet    = "Theo năm"
)

var (
	summaryHeaders = []string{"Mã KH", "Khách hàng", "Người đại diện", "Tổng nợ", "Đã thanh toán", "Còn lại"}
	yearHeaders    = []string{"Mã KH", "Khách hàng", "Năm", "Nợ", "Đã thanh toán", "Còn lại"}
)

// ExportSummary writes the debt summary as an xlsx workbook.
func (s *Service) ExportSummary(ctx context.Context, w io.Writer) error {
	summary, err := s.Summary(ctx)
	if err != nil {
		return err
	}
	f, err := buildWorkbook(summary)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

func buildWorkbook(summary Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(yearSheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return nil, err
	}

	if err := writeHeader(f, summarySheet, summaryHeaders, bold); err != nil {
		return nil, err
	}
	if err := writeHeader(f, yearSheet, yearHeaders, bold); err != nil {
		return nil, err
	}

	row, yearRow := 2, 2
	for _, c := range summary.Customers {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(summarySheet, cell, &[]any{
			c.CustomerID, c.DisplayName, c.RepresentativeName,
			c.TotalDebt.IntPart(), c.TotalPayments.IntPart(), c.Remaining.IntPart(),
		}); err != nil {
			return nil, err
		}
		row++
		for _, y := range c.Years {
			cell, _ := excelize.CoordinatesToCellName(1, yearRow)
			if err := f.SetSheetRow(yearSheet, cell, &[]any{
				c.CustomerID, c.DisplayName, y.Year,
				y.Debt.IntPart(), y.Payments.IntPart(), y.Remaining.IntPart(),
			}); err != nil {
				return nil, err
			}
			yearRow++
		}
	}

	totalCell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(summarySheet, totalCell, &[]any{
		"", "Tổng cộng", "",
		summary.TotalDebt.IntPart(), summary.TotalPayments.IntPart(), summary.Remaining.IntPart(),
	}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(summarySheet, totalCell, fmt.Sprintf("F%d", row), bold); err != nil {
		return nil, err
	}
	if row > 2 {
		if err := f.SetCellStyle(summarySheet, "D2", fmt.Sprintf("F%d", row-1), money); err != nil {
			return nil, err
		}
	}
	if yearRow > 2 {
		if err := f.SetCellStyle(yearSheet, "D2", fmt.Sprintf("F%d", yearRow-1), money); err != nil {
			return nil, err
		}
	}
	for _, sheet := range []string{summarySheet, yearSheet} {
		if err := f.SetColWidth(sheet, "B", "C", 32); err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, "D", "F", 18); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}
