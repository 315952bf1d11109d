package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/rack"
	"github.com/rackworks/bomctl/pkg/workbook"
)

// SheetName is the dedicated history sheet.
const SheetName = "History"

// Layout: the summary section occupies a fixed block so the event log
// below it never has to shift. Each rack keeps its row for its lifetime.
const (
	summaryHeaderRow = 1
	summaryFirstRow  = 2
	summaryCapacity  = 200
	detailHeaderRow  = summaryFirstRow + summaryCapacity
	detailFirstRow   = detailHeaderRow + 1
)

const timeFormat = time.RFC3339

var summaryHeaders = []string{
	"Number", "Name", "Status", "GUID",
	"Created At", "Last Refresh", "Last Sync", "Last Push", "Checksum",
}

var detailHeaders = []string{
	"ID", "Timestamp", "Rack", "Event", "Actor",
	"Status Before", "Status After", "Summary", "Details", "Link",
}

// Log is the history sheet handle. All writes serialize on the log.
type Log struct {
	ws workbook.Sheet
	mu sync.Mutex
}

// Open binds the history sheet, creating and protecting it on first use.
func Open(wb workbook.Workbook) (*Log, error) {
	ws, ok := wb.Sheet(SheetName)
	if !ok {
		ws = wb.CreateSheet(SheetName)
	}

	l := &Log{ws: ws}
	l.ensureHeaders()
	ws.Protect("Maintained by bomctl; do not edit directly")
	return l, nil
}

func (l *Log) ensureHeaders() {
	if cellString(l.ws, summaryHeaderRow, 1) == summaryHeaders[0] {
		return
	}
	for col, h := range summaryHeaders {
		l.ws.SetValue(summaryHeaderRow, col+1, h)
	}
	for col, h := range detailHeaders {
		l.ws.SetValue(detailHeaderRow, col+1, h)
	}
}

// Append writes one event to the end of the detail section.
func (l *Log) Append(ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	row := l.nextEventRow()
	values := []any{
		ev.ID,
		ev.Timestamp.Format(timeFormat),
		ev.Rack,
		string(ev.Kind),
		ev.Actor,
		string(ev.StatusBefore),
		string(ev.StatusAfter),
		ev.Summary,
		ev.Details,
		ev.Link,
	}
	l.ws.SetRange(row, 1, [][]any{values})

	logger.Debug("history event appended",
		logger.KeyRack, ev.Rack, "event", string(ev.Kind))
	return nil
}

func (l *Log) nextEventRow() int {
	row := detailFirstRow
	for cellString(l.ws, row, 1) != "" {
		row++
	}
	return row
}

// Events reads the full detail section in append order.
func (l *Log) Events() []Event {
	var events []Event
	for row := detailFirstRow; ; row++ {
		id := cellString(l.ws, row, 1)
		if id == "" {
			break
		}
		ts, _ := time.Parse(timeFormat, cellString(l.ws, row, 2))
		events = append(events, Event{
			ID:           id,
			Timestamp:    ts,
			Rack:         cellString(l.ws, row, 3),
			Kind:         EventKind(cellString(l.ws, row, 4)),
			Actor:        cellString(l.ws, row, 5),
			StatusBefore: rack.SyncStatus(cellString(l.ws, row, 6)),
			StatusAfter:  rack.SyncStatus(cellString(l.ws, row, 7)),
			Summary:      cellString(l.ws, row, 8),
			Details:      cellString(l.ws, row, 9),
			Link:         cellString(l.ws, row, 10),
		})
	}
	return events
}

// UpdateSummary writes a rack's summary row in place, claiming the next
// free row for a rack seen for the first time.
func (l *Log) UpdateSummary(s SummaryRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, err := l.summaryRowFor(s.Number)
	if err != nil {
		return err
	}

	values := []any{
		s.Number,
		s.Name,
		string(s.Status),
		s.GUID,
		formatTime(s.CreatedAt),
		formatTime(s.LastRefresh),
		formatTime(s.LastSync),
		formatTime(s.LastPush),
		s.Checksum,
	}
	l.ws.SetRange(row, 1, [][]any{values})
	return nil
}

func (l *Log) summaryRowFor(number string) (int, error) {
	number = rack.NormalizeNumber(number)
	for row := summaryFirstRow; row < detailHeaderRow; row++ {
		existing := cellString(l.ws, row, 1)
		if existing == "" {
			return row, nil
		}
		if rack.NormalizeNumber(existing) == number {
			return row, nil
		}
	}
	return 0, fmt.Errorf("history summary section is full (%d racks)", summaryCapacity)
}

// Summaries reads every populated summary row.
func (l *Log) Summaries() []SummaryRow {
	var rows []SummaryRow
	for row := summaryFirstRow; row < detailHeaderRow; row++ {
		number := cellString(l.ws, row, 1)
		if number == "" {
			break
		}
		rows = append(rows, SummaryRow{
			Number:      number,
			Name:        cellString(l.ws, row, 2),
			Status:      rack.SyncStatus(cellString(l.ws, row, 3)),
			GUID:        cellString(l.ws, row, 4),
			CreatedAt:   parseTime(cellString(l.ws, row, 5)),
			LastRefresh: parseTime(cellString(l.ws, row, 6)),
			LastSync:    parseTime(cellString(l.ws, row, 7)),
			LastPush:    parseTime(cellString(l.ws, row, 8)),
			Checksum:    cellString(l.ws, row, 9),
		})
	}
	return rows
}

// removeSummary clears a summary row and compacts the section so reads
// stop at the first blank row.
func (l *Log) removeSummary(number string) {
	number = rack.NormalizeNumber(number)
	rows := l.Summaries()
	kept := rows[:0]
	for _, r := range rows {
		if rack.NormalizeNumber(r.Number) != number {
			kept = append(kept, r)
		}
	}
	l.ws.ClearRange(summaryFirstRow, 1, detailHeaderRow-1, len(summaryHeaders))
	for i, r := range kept {
		l.ws.SetRange(summaryFirstRow+i, 1, [][]any{{
			r.Number, r.Name, string(r.Status), r.GUID,
			formatTime(r.CreatedAt), formatTime(r.LastRefresh),
			formatTime(r.LastSync), formatTime(r.LastPush), r.Checksum,
		}})
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func cellString(ws workbook.Sheet, row, col int) string {
	v := ws.Value(row, col)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
