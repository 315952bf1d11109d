package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackworks/bomctl/pkg/rack"
	"github.com/rackworks/bomctl/pkg/workbook"
)

func TestOpenCreatesProtectedSheet(t *testing.T) {
	wb := workbook.NewMemory()
	l, err := Open(wb)
	require.NoError(t, err)

	ws, ok := wb.Sheet(SheetName)
	require.True(t, ok)
	assert.True(t, ws.Protected())
	assert.Equal(t, "Number", ws.Value(summaryHeaderRow, 1))
	assert.Equal(t, "ID", ws.Value(detailHeaderRow, 1))
	assert.NotNil(t, l)
}

func TestOpenIdempotent(t *testing.T) {
	wb := workbook.NewMemory()
	l, err := Open(wb)
	require.NoError(t, err)
	require.NoError(t, l.Append(NewEvent("RK-100", EventRackCreated)))

	// second open must not disturb existing rows
	l2, err := Open(wb)
	require.NoError(t, err)
	assert.Len(t, l2.Events(), 1)
}

func TestAppendAndReadEvents(t *testing.T) {
	wb := workbook.NewMemory()
	l, err := Open(wb)
	require.NoError(t, err)

	ev := NewEvent("RK-100", EventTopPush)
	ev.Actor = "sync@example.com"
	ev.StatusBefore = rack.StatusLocalModified
	ev.StatusAfter = rack.StatusSynced
	ev.Summary = "Pushed 2 racks"
	require.NoError(t, l.Append(ev))
	require.NoError(t, l.Append(NewEvent("RK-200", EventBatchCheck)))

	events := l.Events()
	require.Len(t, events, 2)
	assert.Equal(t, ev.ID, events[0].ID)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, EventTopPush, events[0].Kind)
	assert.Equal(t, rack.StatusSynced, events[0].StatusAfter)
	assert.Equal(t, "Pushed 2 racks", events[0].Summary)
	assert.Equal(t, "RK-200", events[1].Rack)
}

func TestEventIDsUnique(t *testing.T) {
	a := NewEvent("RK-100", EventLocalEdit)
	b := NewEvent("RK-100", EventLocalEdit)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUpdateSummaryInPlace(t *testing.T) {
	wb := workbook.NewMemory()
	l, err := Open(wb)
	require.NoError(t, err)

	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, l.UpdateSummary(SummaryRow{
		Number: "RK-100", Name: "Compute", Status: rack.StatusPlaceholder, CreatedAt: created,
	}))
	require.NoError(t, l.UpdateSummary(SummaryRow{
		Number: "RK-200", Name: "Power", Status: rack.StatusPlaceholder,
	}))
	// second write for RK-100 must reuse its row
	require.NoError(t, l.UpdateSummary(SummaryRow{
		Number: "RK-100", Name: "Compute", Status: rack.StatusSynced, GUID: "g-1", CreatedAt: created,
	}))

	rows := l.Summaries()
	require.Len(t, rows, 2)
	assert.Equal(t, "RK-100", rows[0].Number)
	assert.Equal(t, rack.StatusSynced, rows[0].Status)
	assert.Equal(t, "g-1", rows[0].GUID)
	assert.Equal(t, created, rows[0].CreatedAt)
	assert.Equal(t, "RK-200", rows[1].Number)
}

func TestSummaryCapacity(t *testing.T) {
	wb := workbook.NewMemory()
	l, err := Open(wb)
	require.NoError(t, err)

	for i := 0; i < summaryCapacity; i++ {
		require.NoError(t, l.UpdateSummary(SummaryRow{Number: fmt.Sprintf("RK-%03d", i)}))
	}
	err = l.UpdateSummary(SummaryRow{Number: "RK-OVERFLOW"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")
}

func TestSummarySectionNeverShiftsEvents(t *testing.T) {
	wb := workbook.NewMemory()
	l, err := Open(wb)
	require.NoError(t, err)

	require.NoError(t, l.Append(NewEvent("RK-100", EventRackCreated)))
	require.NoError(t, l.UpdateSummary(SummaryRow{Number: "RK-100"}))
	require.NoError(t, l.UpdateSummary(SummaryRow{Number: "RK-200"}))

	events := l.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "RK-100", events[0].Rack)

	ws, _ := wb.Sheet(SheetName)
	assert.Equal(t, "ID", ws.Value(detailHeaderRow, 1), "detail header must stay put")
}
