package consolidate

import (
	"fmt"
	"strings"

	"github.com/rackworks/bomctl/pkg/workbook"
)

// Sheet layout: three summary rows, a blank row, a header row, then one
// row per entry with the number indented two spaces per level.
const (
	summaryRows   = 3
	headerRow     = summaryRows + 2
	firstEntryRow = headerRow + 1
)

var entryHeaders = []string{"Item Number", "Name", "Category", "Qty", "Level"}

// WriteSheet renders a consolidation result onto a workbook sheet,
// clearing any previous content first.
func WriteSheet(ws workbook.Sheet, r *Result) {
	ws.ClearRange(1, 1, ws.Rows(), ws.Cols())

	ws.SetValue(1, 1, "Source grid")
	ws.SetValue(1, 2, r.Grid)
	ws.SetValue(2, 1, "Unique items")
	ws.SetValue(2, 2, r.UniqueItems)
	ws.SetValue(3, 1, "Total placements")
	ws.SetValue(3, 2, r.TotalPlacements)

	for col, h := range entryHeaders {
		ws.SetValue(headerRow, col+1, h)
	}

	for i, e := range r.Entries {
		row := firstEntryRow + i
		ws.SetValue(row, 1, indent(e.Level)+e.Number)
		ws.SetValue(row, 2, e.Name)
		ws.SetValue(row, 3, e.Category)
		ws.SetValue(row, 4, e.Quantity)
		ws.SetValue(row, 5, e.Level)
	}
}

func indent(level int) string {
	if level <= 0 {
		return ""
	}
	return strings.Repeat("  ", level)
}

// Rows renders the result as display rows for terminal output, numbers
// indented the same way the sheet is.
func (r *Result) Rows() [][]string {
	rows := make([][]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		rows = append(rows, []string{
			indent(e.Level) + e.Number,
			e.Name,
			e.Category,
			fmt.Sprintf("%d", e.Quantity),
			fmt.Sprintf("%d", e.Level),
		})
	}
	return rows
}

// Headers returns the display column headers matching Rows.
func (r *Result) Headers() []string {
	return entryHeaders
}
