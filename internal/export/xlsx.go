package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Weekly Report"

// XLSX renders the report as a spreadsheet with a bold, frozen header row.
func (s *Service) XLSX(ctx context.Context) ([]byte, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for r, row := range rows {
		for c, v := range row {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cellName, v); err != nil {
				return nil, fmt.Errorf("set cell: %w", err)
			}
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		end, _ := excelize.CoordinatesToCellName(len(Header), 1)
		_ = f.SetCellStyle(sheetName, "A1", end, headerStyle)
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
