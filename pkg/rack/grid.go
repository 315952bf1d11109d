package rack

import (
	"fmt"
	"strings"

	"github.com/rackworks/bomctl/pkg/workbook"
)

// Overview grid layout. Row 1 is the header: a row-label column, one
// column per position, and a trailing id column written after a push.
// Data rows place rack numbers into position cells.
const (
	gridHeaderRow = 1
	gridColLabel  = 1
	gridFirstPos  = 2
)

// rowIDHeader labels the trailing column carrying level-1 identities.
const rowIDHeader = "Row ID"

// Placement is one non-empty grid cell.
type Placement struct {
	Rack     string // rack number as written
	Position int    // 1-based position index within the row
}

// GridRow is one populated grid row with its metadata.
type GridRow struct {
	Index      int    // 1-based order within the grid
	Name       string // row label (e.g. "Row1")
	GUID       string // level-1 item identity, set after a push
	Placements []Placement
}

// RackGroup aggregates repeated placements of one rack within a row.
type RackGroup struct {
	Rack      string
	Count     int
	Positions []string // position header labels, in column order
}

// Grid is the parsed overview grid.
type Grid struct {
	SheetName string
	Positions []string // position header labels
	Rows      []GridRow

	ws workbook.Sheet
}

// LoadGrid parses the overview grid sheet.
func LoadGrid(ws workbook.Sheet) (*Grid, error) {
	g := &Grid{SheetName: ws.Name(), ws: ws}

	for col := gridFirstPos; col <= ws.Cols(); col++ {
		header := cellString(ws, gridHeaderRow, col)
		if header == "" || header == rowIDHeader {
			break
		}
		g.Positions = append(g.Positions, header)
	}
	if len(g.Positions) == 0 {
		return nil, fmt.Errorf("grid sheet %q has no position headers", ws.Name())
	}

	idCol := gridFirstPos + len(g.Positions)
	for row := gridHeaderRow + 1; row <= ws.Rows(); row++ {
		gr := GridRow{
			Index: row - gridHeaderRow,
			Name:  cellString(ws, row, gridColLabel),
			GUID:  cellString(ws, row, idCol),
		}
		for pos := range g.Positions {
			value := cellString(ws, row, gridFirstPos+pos)
			if value == "" {
				continue
			}
			gr.Placements = append(gr.Placements, Placement{Rack: value, Position: pos + 1})
		}
		if gr.Name == "" && len(gr.Placements) == 0 {
			continue
		}
		if gr.Name == "" {
			gr.Name = fmt.Sprintf("Row%d", gr.Index)
		}
		g.Rows = append(g.Rows, gr)
	}

	return g, nil
}

// Counts tallies placements per normalized rack number across the grid.
func (g *Grid) Counts() map[string]int {
	counts := make(map[string]int)
	for _, row := range g.Rows {
		for _, p := range row.Placements {
			counts[NormalizeNumber(p.Rack)]++
		}
	}
	return counts
}

// TotalPlacements counts all non-empty grid cells.
func (g *Grid) TotalPlacements() int {
	total := 0
	for _, row := range g.Rows {
		total += len(row.Placements)
	}
	return total
}

// Groups aggregates a row's placements per rack, preserving first-seen
// order. Position labels come from the grid header.
func (g *Grid) Groups(row GridRow) []RackGroup {
	byRack := make(map[string]*RackGroup)
	var order []string

	for _, p := range row.Placements {
		key := NormalizeNumber(p.Rack)
		group, ok := byRack[key]
		if !ok {
			group = &RackGroup{Rack: strings.TrimSpace(p.Rack)}
			byRack[key] = group
			order = append(order, key)
		}
		group.Count++
		group.Positions = append(group.Positions, g.Positions[p.Position-1])
	}

	groups := make([]RackGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byRack[key])
	}
	return groups
}

// SetRowGUID persists a row's level-1 identity after a push.
func (g *Grid) SetRowGUID(rowIndex int, guid string) {
	idCol := gridFirstPos + len(g.Positions)
	if cellString(g.ws, gridHeaderRow, idCol) == "" {
		g.ws.SetValue(gridHeaderRow, idCol, rowIDHeader)
	}
	g.ws.SetValue(gridHeaderRow+rowIndex, idCol, guid)
	for i := range g.Rows {
		if g.Rows[i].Index == rowIndex {
			g.Rows[i].GUID = guid
		}
	}
}
