// Package export renders a user's people as an XLSX workbook.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/communitymapper/community-mapper/internal/domain"
)

// SheetName is the worksheet holding the people rows.
const SheetName = "People"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Headers are the column titles, in order.
var Headers = []string{
	"Name", "Context", "Proximity",
	"Importance", "Trust", "Influence",
	"Party", "Position", "Candidate", "Office",
	"Email", "Phone", "Address", "City",
	"Tags", "Notes", "Created", "Updated",
}

var columnWidths = map[string]float64{
	"A": 28, "B": 16, "C": 14, "K": 28, "M": 32, "O": 30, "P": 48, "Q": 20, "R": 20,
}

// People writes one header row and one row per person. tagsByPerson maps a
// person id to its tag names; people without tags may be absent.
func People(people []*domain.Person, tagsByPerson map[string][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"336699"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(Headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", style); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, p := range people {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			p.Name, p.Context, p.Proximity,
			p.Importance, p.TrustLevel, p.InfluenceLevel,
			p.PoliticalParty, p.PoliticalPosition, yesNo(p.IsCandidate), p.CandidateOffice,
			p.Email, p.Phone, p.Address, p.City,
			strings.Join(tagsByPerson[p.ID], ", "), p.Notes, p.CreatedAt, p.UpdatedAt,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row for %s: %w", p.ID, err)
		}
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}
	if err := f.AutoFilter(SheetName, fmt.Sprintf("A1:%s%d", lastCol, len(people)+1), nil); err != nil {
		return nil, fmt.Errorf("add filter: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName returns the download name for an export taken on date (YYYY-MM-DD).
func FileName(date string) string {
	return "people-" + date + ".xlsx"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
