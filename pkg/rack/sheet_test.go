package rack

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/workbook"
)

// buildRackSheet lays out a minimal configuration sheet fixture.
func buildRackSheet(wb *workbook.MemoryWorkbook, name, number string, children [][]any) workbook.Sheet {
	ws := wb.CreateSheet(name)
	ws.SetRange(MetaRow, 1, [][]any{{SentinelLabel, number, name + " rack", "", "SYNCED", "guid-" + number, "", "SRV-1:2:A"}})
	ws.SetRange(HeaderRow, 1, [][]any{{"Item Number", "Name", "Description", "Category", "Qty", "Revision"}})
	if len(children) > 0 {
		ws.SetRange(DataStartRow, 1, children)
	}
	return ws
}

func TestLoadRackSheet(t *testing.T) {
	wb := workbook.NewMemory()
	ws := buildRackSheet(wb, "RK-100", "RK-100", [][]any{
		{"SRV-1", "Server", "1U compute", "Server", 2, "A"},
		{"PDU-1", "PDU", "", "Power", 1, ""},
	})

	s, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "RK-100", s.Number)
	assert.Equal(t, StatusSynced, s.Status)
	assert.Equal(t, "guid-RK-100", s.GUID)
	assert.Equal(t, "SRV-1:2:A", s.Checksum)
	require.Len(t, s.Children, 2)
	assert.Equal(t, "SRV-1", s.Children[0].Number)
	assert.Equal(t, 2, s.Children[0].Quantity)
	assert.Equal(t, "A", s.Children[0].Revision)
}

func TestLoadRejectsNonRackSheet(t *testing.T) {
	wb := workbook.NewMemory()
	ws := wb.CreateSheet("Notes")
	ws.SetValue(1, 1, "just text")

	_, err := Load(ws)
	require.Error(t, err)
}

func TestLoadRequiresNumber(t *testing.T) {
	wb := workbook.NewMemory()
	ws := wb.CreateSheet("Broken")
	ws.SetValue(MetaRow, 1, SentinelLabel)

	_, err := Load(ws)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rack number")
}

func TestLoadSkipsBlankRows(t *testing.T) {
	wb := workbook.NewMemory()
	ws := buildRackSheet(wb, "RK-100", "RK-100", nil)
	ws.SetRange(DataStartRow, 1, [][]any{
		{"SRV-1", "Server", "", "Server", 2, "A"},
		{nil, nil, nil, nil, nil, nil},
		{"PDU-1", "PDU", "", "Power", 1, ""},
	})
	// force row extent past the blank row
	ws.SetValue(DataStartRow+2, 6, "")

	s, err := Load(ws)
	require.NoError(t, err)
	require.Len(t, s.Children, 2)
	assert.Equal(t, "PDU-1", s.Children[1].Number)
}

func TestLoadCustomColumns(t *testing.T) {
	wb := workbook.NewMemory()
	ws := buildRackSheet(wb, "RK-100", "RK-100", nil)
	ws.SetValue(HeaderRow, fixedColumns+1, "Vendor")
	ws.SetRange(DataStartRow, 1, [][]any{
		{"SRV-1", "Server", "", "Server", 2, "A", "Acme"},
	})

	s, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vendor"}, s.CustomColumns)
	require.Len(t, s.Children, 1)
	assert.Equal(t, "Acme", s.Children[0].Custom["Vendor"])
}

func TestQuantityFallsBackToOne(t *testing.T) {
	var logs bytes.Buffer
	logger.InitWithWriter(&logs, "WARN", "text", false)
	t.Cleanup(func() { logger.InitWithWriter(os.Stderr, "INFO", "text", false) })

	wb := workbook.NewMemory()
	ws := buildRackSheet(wb, "RK-100", "RK-100", [][]any{
		{"SRV-1", "Server", "", "Server", "not a number", "A"},
		{"PDU-1", "PDU", "", "Power", -3, ""},
		{"CBL-1", "Cable", "", "Cable", nil, ""},
	})

	s, err := Load(ws)
	require.NoError(t, err)
	require.Len(t, s.Children, 3)
	assert.Equal(t, 1, s.Children[0].Quantity)
	assert.Equal(t, 1, s.Children[1].Quantity)
	assert.Equal(t, 1, s.Children[2].Quantity)

	// every defaulted cell is called out, blanks included
	assert.Contains(t, logs.String(), "invalid quantity")
	assert.Contains(t, logs.String(), "empty quantity")
}

func TestWriteRoundTrip(t *testing.T) {
	wb := workbook.NewMemory()
	ws := wb.CreateSheet("RK-200")
	src := &Sheet{
		Number:   "RK-200",
		Name:     "Edge Rack",
		Status:   StatusPlaceholder,
		LastSync: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Children: []ChildLine{
			{Number: "SRV-1", Name: "Server", Category: "Server", Quantity: 2, Revision: "A"},
		},
	}
	Write(ws, src)

	loaded, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, src.Number, loaded.Number)
	assert.Equal(t, src.LastSync, loaded.LastSync)
	require.Len(t, loaded.Children, 1)
	assert.Equal(t, src.Children[0], loaded.Children[0])
}

func TestWriteShrinkClearsStaleRows(t *testing.T) {
	wb := workbook.NewMemory()
	ws := wb.CreateSheet("RK-200")
	src := &Sheet{
		Number:        "RK-200",
		Name:          "Edge Rack",
		Status:        StatusSynced,
		CustomColumns: []string{"Vendor"},
		Children: []ChildLine{
			{Number: "SRV-1", Name: "Server", Quantity: 2, Custom: map[string]string{"Vendor": "Acme"}},
			{Number: "PDU-1", Name: "PDU", Quantity: 1},
			{Number: "CBL-1", Name: "Cable", Quantity: 4},
		},
	}
	Write(ws, src)

	// a shrunk remote BOM rewrites the sheet with fewer rows and no
	// custom columns; nothing from the wider layout may survive
	src.Children = src.Children[:1]
	src.CustomColumns = nil
	Write(ws, src)

	loaded, err := Load(ws)
	require.NoError(t, err)
	require.Len(t, loaded.Children, 1)
	assert.Equal(t, "SRV-1", loaded.Children[0].Number)
	assert.Empty(t, loaded.CustomColumns)
	assert.Nil(t, loaded.Children[0].Custom)
}

func TestMetaSetters(t *testing.T) {
	wb := workbook.NewMemory()
	ws := buildRackSheet(wb, "RK-100", "RK-100", nil)
	s, err := Load(ws)
	require.NoError(t, err)

	s.SetGUID("guid-new")
	s.SetChecksum("SRV-1:3:A")
	s.SetStatus(StatusLocalModified)
	ts := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	s.SetLastSync(ts)

	reloaded, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "guid-new", reloaded.GUID)
	assert.Equal(t, "SRV-1:3:A", reloaded.Checksum)
	assert.Equal(t, StatusLocalModified, reloaded.Status)
	assert.Equal(t, ts, reloaded.LastSync)
	assert.Equal(t, StatusColor(StatusLocalModified), ws.Background(MetaRow, colMetaStatus))
}

func TestFindSheets(t *testing.T) {
	wb := workbook.NewMemory()
	buildRackSheet(wb, "RK-100", "RK-100", nil)
	notes := wb.CreateSheet("Notes")
	notes.SetValue(1, 1, "free text")
	buildRackSheet(wb, "RK-200", "RK-200", nil)

	sheets, err := FindSheets(wb)
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "RK-100", sheets[0].Number)
	assert.Equal(t, "RK-200", sheets[1].Number)
}

func TestNormalizeNumber(t *testing.T) {
	assert.Equal(t, "RK-100", NormalizeNumber("  rk-100 "))
	assert.Equal(t, NormalizeNumber("rk-100"), NormalizeNumber("RK-100"))
}
