// Package rack models the authoring surfaces of the workbook: per-rack
// configuration sheets and the overview grid, plus the sync status machine.
package rack

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/workbook"
)

// SentinelLabel marks row 1 of a rack configuration sheet.
const SentinelLabel = "RACK"

// Metadata row (row 1) column layout.
const (
	MetaRow          = 1
	colSentinel      = 1
	colMetaNumber    = 2
	colMetaName      = 3
	colMetaDesc      = 4
	colMetaStatus    = 5
	colMetaGUID      = 6
	colMetaLastSync  = 7
	colMetaChecksum  = 8
)

// Header row (row 2) fixed columns; custom attribute columns follow.
const (
	HeaderRow    = 2
	DataStartRow = 3

	colItemNumber = 1
	colName       = 2
	colDesc       = 3
	colCategory   = 4
	colQty        = 5
	colRevision   = 6

	fixedColumns = 6
)

// timeFormat used for the last-sync cell.
const timeFormat = time.RFC3339

// ChildLine is one data row of a configuration sheet.
type ChildLine struct {
	Number      string
	Name        string
	Description string
	Category    string
	Quantity    int
	Revision    string

	// Custom maps configured custom-attribute column names to values.
	Custom map[string]string
}

// Sheet is a parsed rack configuration sheet bound to its workbook sheet.
type Sheet struct {
	Number      string
	Name        string
	Description string
	Status      SyncStatus
	GUID        string
	LastSync    time.Time
	Checksum    string

	// CustomColumns lists the custom-attribute headers after Revision.
	CustomColumns []string
	Children      []ChildLine

	ws workbook.Sheet
}

// IsRackSheet reports whether a workbook sheet carries the rack sentinel.
func IsRackSheet(ws workbook.Sheet) bool {
	return cellString(ws, MetaRow, colSentinel) == SentinelLabel
}

// Load parses a rack configuration sheet.
func Load(ws workbook.Sheet) (*Sheet, error) {
	if !IsRackSheet(ws) {
		return nil, fmt.Errorf("sheet %q is not a rack configuration sheet", ws.Name())
	}

	s := &Sheet{
		Number:      cellString(ws, MetaRow, colMetaNumber),
		Name:        cellString(ws, MetaRow, colMetaName),
		Description: cellString(ws, MetaRow, colMetaDesc),
		Status:      ParseStatus(cellString(ws, MetaRow, colMetaStatus)),
		GUID:        cellString(ws, MetaRow, colMetaGUID),
		Checksum:    cellString(ws, MetaRow, colMetaChecksum),
		ws:          ws,
	}
	if s.Number == "" {
		return nil, fmt.Errorf("sheet %q carries no rack number", ws.Name())
	}
	if raw := cellString(ws, MetaRow, colMetaLastSync); raw != "" {
		if ts, err := time.Parse(timeFormat, raw); err == nil {
			s.LastSync = ts
		}
	}

	for col := fixedColumns + 1; col <= ws.Cols(); col++ {
		header := cellString(ws, HeaderRow, col)
		if header == "" {
			break
		}
		s.CustomColumns = append(s.CustomColumns, header)
	}

	for row := DataStartRow; row <= ws.Rows(); row++ {
		number := cellString(ws, row, colItemNumber)
		if number == "" {
			continue
		}
		line := ChildLine{
			Number:      number,
			Name:        cellString(ws, row, colName),
			Description: cellString(ws, row, colDesc),
			Category:    cellString(ws, row, colCategory),
			Quantity:    cellQuantity(ws, row, colQty),
			Revision:    cellString(ws, row, colRevision),
		}
		for i, header := range s.CustomColumns {
			if v := cellString(ws, row, fixedColumns+1+i); v != "" {
				if line.Custom == nil {
					line.Custom = make(map[string]string)
				}
				line.Custom[header] = v
			}
		}
		s.Children = append(s.Children, line)
	}

	return s, nil
}

// Write lays out the configuration sheet for the rack. The data region is
// cleared first so a rewrite with fewer children or columns leaves no
// stale rows behind.
func Write(ws workbook.Sheet, s *Sheet) {
	if rows, cols := ws.Rows(), ws.Cols(); rows > 0 {
		if cols > fixedColumns {
			ws.ClearRange(HeaderRow, fixedColumns+1, HeaderRow, cols)
		}
		if rows >= DataStartRow {
			ws.ClearRange(DataStartRow, 1, rows, cols)
		}
	}

	meta := []any{SentinelLabel, s.Number, s.Name, s.Description, string(s.Status), s.GUID, "", s.Checksum}
	if !s.LastSync.IsZero() {
		meta[colMetaLastSync-1] = s.LastSync.Format(timeFormat)
	}
	ws.SetRange(MetaRow, 1, [][]any{meta})

	header := []any{"Item Number", "Name", "Description", "Category", "Qty", "Revision"}
	for _, custom := range s.CustomColumns {
		header = append(header, custom)
	}
	ws.SetRange(HeaderRow, 1, [][]any{header})

	for i, line := range s.Children {
		row := []any{line.Number, line.Name, line.Description, line.Category, line.Quantity, line.Revision}
		for _, custom := range s.CustomColumns {
			row = append(row, line.Custom[custom])
		}
		ws.SetRange(DataStartRow+i, 1, [][]any{row})
	}
}

// SetStatus writes the status cell with its indicator color.
func (s *Sheet) SetStatus(status SyncStatus) {
	s.Status = status
	s.ws.SetValue(MetaRow, colMetaStatus, string(status))
	s.ws.SetBackground(MetaRow, colMetaStatus, StatusColor(status))
}

// SetGUID persists the parent opaque id after a push.
func (s *Sheet) SetGUID(guid string) {
	s.GUID = guid
	s.ws.SetValue(MetaRow, colMetaGUID, guid)
}

// SetChecksum persists the stored checksum.
func (s *Sheet) SetChecksum(sum string) {
	s.Checksum = sum
	s.ws.SetValue(MetaRow, colMetaChecksum, sum)
}

// SetLastSync persists the last-sync timestamp.
func (s *Sheet) SetLastSync(ts time.Time) {
	s.LastSync = ts
	s.ws.SetValue(MetaRow, colMetaLastSync, ts.Format(timeFormat))
}

// SheetName returns the underlying workbook sheet name.
func (s *Sheet) SheetName() string { return s.ws.Name() }

// FindSheets loads every rack configuration sheet in the workbook.
func FindSheets(wb workbook.Workbook) ([]*Sheet, error) {
	var sheets []*Sheet
	for _, name := range wb.SheetNames() {
		ws, ok := wb.Sheet(name)
		if !ok || !IsRackSheet(ws) {
			continue
		}
		s, err := Load(ws)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}

// NormalizeNumber canonicalizes a rack or item number for comparisons:
// placements match sheets case-insensitively with whitespace trimmed.
func NormalizeNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// cellString reads a cell as a trimmed string.
func cellString(ws workbook.Sheet, row, col int) string {
	v := ws.Value(row, col)
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// cellQuantity reads a quantity cell. Negative or non-numeric quantities
// are treated as 1 with a warning.
func cellQuantity(ws workbook.Sheet, row, col int) int {
	v := ws.Value(row, col)
	switch val := v.(type) {
	case float64:
		if val >= 0 && val == float64(int64(val)) {
			return int(val)
		}
	case int:
		if val >= 0 {
			return val
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && n >= 0 {
			return n
		}
	case nil:
		logger.Warn("empty quantity, using 1",
			logger.KeySheet, ws.Name(), "row", row)
		return 1
	}
	logger.Warn("invalid quantity, using 1",
		logger.KeySheet, ws.Name(), "row", row, "value", fmt.Sprint(v))
	return 1
}
