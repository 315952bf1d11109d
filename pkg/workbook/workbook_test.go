package workbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySheetBasics(t *testing.T) {
	wb := NewMemory()
	ws := wb.CreateSheet("Sheet1")

	assert.Equal(t, 0, ws.Rows())
	assert.Nil(t, ws.Value(1, 1))

	ws.SetValue(3, 2, "hello")
	assert.Equal(t, "hello", ws.Value(3, 2))
	assert.Equal(t, 3, ws.Rows())
	assert.Equal(t, 2, ws.Cols())

	ws.SetValue(3, 2, nil)
	assert.Nil(t, ws.Value(3, 2))
}

func TestMemorySheetRange(t *testing.T) {
	wb := NewMemory()
	ws := wb.CreateSheet("Sheet1")
	ws.SetRange(1, 1, [][]any{
		{"a", "b"},
		{"c", "d"},
	})

	got := ws.Range(1, 1, 2, 2)
	assert.Equal(t, [][]any{{"a", "b"}, {"c", "d"}}, got)

	ws.ClearRange(1, 1, 1, 2)
	assert.Nil(t, ws.Value(1, 1))
	assert.Equal(t, "c", ws.Value(2, 1))
}

func TestCreateSheetIdempotent(t *testing.T) {
	wb := NewMemory()
	a := wb.CreateSheet("Grid")
	a.SetValue(1, 1, "x")
	b := wb.CreateSheet("Grid")
	assert.Equal(t, "x", b.Value(1, 1))
	assert.Equal(t, []string{"Grid"}, wb.SheetNames())
}

func TestDeleteSheet(t *testing.T) {
	wb := NewMemory()
	wb.CreateSheet("A")
	wb.CreateSheet("B")
	wb.DeleteSheet("A")
	assert.Equal(t, []string{"B"}, wb.SheetNames())
	_, ok := wb.Sheet("A")
	assert.False(t, ok)
}

func TestSimulateEditFiresHandlers(t *testing.T) {
	wb := NewMemory()
	ws := wb.CreateSheet("RK-100")
	ws.SetValue(3, 5, 2)

	var events []EditEvent
	wb.OnEdit(func(e EditEvent) { events = append(events, e) })

	wb.SimulateEdit("RK-100", 3, 5, 4)
	require.Len(t, events, 1)
	assert.Equal(t, "RK-100", events[0].Sheet)
	assert.Equal(t, 2, events[0].Old)
	assert.Equal(t, 4, events[0].New)
	assert.Equal(t, 4, ws.Value(3, 5))
}

func TestProgrammaticWritesDoNotFireHandlers(t *testing.T) {
	wb := NewMemory()
	ws := wb.CreateSheet("RK-100")

	var fired int
	wb.OnEdit(func(EditEvent) { fired++ })
	ws.SetValue(1, 1, "x")
	assert.Equal(t, 0, fired)
}

func TestFileWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "racks.json")

	wb, err := OpenFile(path)
	require.NoError(t, err)
	ws := wb.CreateSheet("RK-100")
	ws.SetValue(1, 1, "RACK")
	ws.SetValue(1, 2, "RK-100")
	ws.SetBackground(1, 5, "#b7e1cd")
	ws.Protect("Maintained by bomctl")
	require.NoError(t, wb.Save())

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	sheet, ok := reopened.Sheet("RK-100")
	require.True(t, ok)
	assert.Equal(t, "RACK", sheet.Value(1, 1))
	assert.Equal(t, "#b7e1cd", sheet.Background(1, 5))
	assert.True(t, sheet.Protected())
	assert.Equal(t, "Maintained by bomctl", sheet.ProtectionNote())
}

func TestOpenFileMissingIsEmpty(t *testing.T) {
	wb, err := OpenFile(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, wb.SheetNames())
}

func TestOpenFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{torn"), 0600))

	_, err := OpenFile(path)
	require.Error(t, err)
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wb.json")
	wb, err := OpenFile(path)
	require.NoError(t, err)
	wb.CreateSheet("A").SetValue(1, 1, "x")
	require.NoError(t, wb.Save())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
