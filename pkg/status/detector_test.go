package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackworks/bomctl/pkg/itemcache"
	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/propstore"
	"github.com/rackworks/bomctl/pkg/rack"
	"github.com/rackworks/bomctl/pkg/workbook"
)

// plmFixture serves login, the item list backing the cache, and per-parent
// BOMs.
type plmFixture struct {
	items []map[string]any
	boms  map[string][]map[string]any
	fail  map[string]bool
}

func (f *plmFixture) handler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/login":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"arenaSessionId": "tok-1",
			"workspaceId":    "ws-100",
		})
	case r.URL.Path == "/items":
		_ = json.NewEncoder(w).Encode(map[string]any{"results": f.items})
	default:
		guid := parentGUID(r.URL.Path)
		if f.fail[guid] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": f.boms[guid]})
	}
}

// parentGUID extracts the parent id from /items/{guid}/bom.
func parentGUID(path string) string {
	trimmed := strings.TrimPrefix(path, "/items/")
	return strings.TrimSuffix(trimmed, "/bom")
}

func newChecker(t *testing.T, f *plmFixture) *Checker {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(srv.Close)

	creds := plm.Credentials{Email: "sync@example.com", Password: "pw", WorkspaceID: "ws-100"}
	session, err := plm.NewSessionManager(srv.URL, creds, propstore.NewMemory())
	require.NoError(t, err)
	client := plm.NewClient(srv.URL, session)
	return NewChecker(client, itemcache.New(propstore.NewMemory(), client))
}

// sheetFixture builds a rack sheet with the given meta and children.
func sheetFixture(wb *workbook.MemoryWorkbook, number, status, guid, checksum string, children [][]any) *rack.Sheet {
	ws := wb.CreateSheet(number)
	ws.SetRange(rack.MetaRow, 1, [][]any{{rack.SentinelLabel, number, number + " rack", "", status, guid, "", checksum}})
	ws.SetRange(rack.HeaderRow, 1, [][]any{{"Item Number", "Name", "Description", "Category", "Qty", "Revision"}})
	if len(children) > 0 {
		ws.SetRange(rack.DataStartRow, 1, children)
	}
	s, err := rack.Load(ws)
	if err != nil {
		panic(err)
	}
	return s
}

func TestCheckSynced(t *testing.T) {
	f := &plmFixture{
		items: []map[string]any{{"guid": "g-srv", "number": "SRV-1"}},
		boms: map[string][]map[string]any{
			"rack-1": {{"guid": "l-1", "quantity": 2, "item": map[string]any{"guid": "g-srv", "number": "SRV-1"}}},
		},
	}
	wb := workbook.NewMemory()
	s := sheetFixture(wb, "RK-100", "SYNCED", "rack-1", "SRV-1:2:", [][]any{
		{"SRV-1", "Server", "", "Server", 2, ""},
	})

	results := newChecker(t, f).Check(context.Background(), []*rack.Sheet{s})
	require.Len(t, results, 1)
	assert.Equal(t, rack.StatusSynced, results[0].Current)
	assert.True(t, results[0].Diff.Empty())
	assert.NoError(t, results[0].Err)
}

func TestCheckRemoteModified(t *testing.T) {
	// remote grew a line; the sheet is untouched (checksum still matches)
	f := &plmFixture{
		items: []map[string]any{
			{"guid": "g-srv", "number": "SRV-1"},
			{"guid": "g-pdu", "number": "PDU-1"},
		},
		boms: map[string][]map[string]any{
			"rack-1": {
				{"guid": "l-1", "quantity": 2, "item": map[string]any{"guid": "g-srv", "number": "SRV-1"}},
				{"guid": "l-2", "quantity": 1, "item": map[string]any{"guid": "g-pdu", "number": "PDU-1"}},
			},
		},
	}
	wb := workbook.NewMemory()
	s := sheetFixture(wb, "RK-100", "SYNCED", "rack-1", "SRV-1:2:", [][]any{
		{"SRV-1", "Server", "", "Server", 2, ""},
	})

	results := newChecker(t, f).Check(context.Background(), []*rack.Sheet{s})
	require.Len(t, results, 1)
	assert.Equal(t, rack.StatusRemoteModified, results[0].Current)
	assert.Len(t, results[0].Diff.ToRemove, 1)
	assert.Equal(t, rack.StatusRemoteModified, s.Status)
}

func TestCheckLocalModified(t *testing.T) {
	// the sheet was edited (qty 2 -> 3), so the stored checksum no longer
	// matches the recomputed one
	f := &plmFixture{
		items: []map[string]any{{"guid": "g-srv", "number": "SRV-1"}},
		boms: map[string][]map[string]any{
			"rack-1": {{"guid": "l-1", "quantity": 2, "item": map[string]any{"guid": "g-srv", "number": "SRV-1"}}},
		},
	}
	wb := workbook.NewMemory()
	s := sheetFixture(wb, "RK-100", "SYNCED", "rack-1", "SRV-1:2:", [][]any{
		{"SRV-1", "Server", "", "Server", 3, ""},
	})

	results := newChecker(t, f).Check(context.Background(), []*rack.Sheet{s})
	require.Len(t, results, 1)
	assert.Equal(t, rack.StatusLocalModified, results[0].Current)
	require.Len(t, results[0].Diff.ToUpdate, 1)
	assert.Equal(t, 3, results[0].Diff.ToUpdate[0].NewQty)
}

func TestCheckPlaceholderSkipsServer(t *testing.T) {
	f := &plmFixture{items: []map[string]any{}}
	wb := workbook.NewMemory()
	s := sheetFixture(wb, "RK-NEW", "", "", "", nil)

	results := newChecker(t, f).Check(context.Background(), []*rack.Sheet{s})
	require.Len(t, results, 1)
	assert.Equal(t, rack.StatusPlaceholder, results[0].Current)
}

func TestCheckFetchFailureMarksError(t *testing.T) {
	f := &plmFixture{
		items: []map[string]any{{"guid": "g-srv", "number": "SRV-1"}},
		fail:  map[string]bool{"rack-1": true},
		boms: map[string][]map[string]any{
			"rack-2": {},
		},
	}
	wb := workbook.NewMemory()
	bad := sheetFixture(wb, "RK-100", "SYNCED", "rack-1", "", nil)
	good := sheetFixture(wb, "RK-200", "SYNCED", "rack-2", "", nil)

	results := newChecker(t, f).Check(context.Background(), []*rack.Sheet{bad, good})
	require.Len(t, results, 2)
	assert.Equal(t, rack.StatusError, results[0].Current)
	assert.Error(t, results[0].Err)
	assert.Equal(t, rack.StatusSynced, results[1].Current, "one failure must not stop the batch")
}

func TestChecksumOf(t *testing.T) {
	wb := workbook.NewMemory()
	s := sheetFixture(wb, "RK-100", "", "", "", [][]any{
		{"SRV-1", "Server", "", "Server", 2, "A"},
		{"PDU-1", "PDU", "", "Power", 1, ""},
	})
	assert.Equal(t, "SRV-1:2:A|PDU-1:1:", ChecksumOf(s))
}

func TestMarkSynced(t *testing.T) {
	wb := workbook.NewMemory()
	s := sheetFixture(wb, "RK-100", "", "", "", [][]any{
		{"SRV-1", "Server", "", "Server", 2, "A"},
	})
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	MarkSynced(s, "rack-1", now)
	assert.Equal(t, "rack-1", s.GUID)
	assert.Equal(t, "SRV-1:2:A", s.Checksum)
	assert.Equal(t, now, s.LastSync)
	assert.Equal(t, rack.StatusSynced, s.Status)
}

func TestWatchEditsFlipsSyncedSheet(t *testing.T) {
	wb := workbook.NewMemory()
	sheetFixture(wb, "RK-100", "SYNCED", "rack-1", "SRV-1:2:", [][]any{
		{"SRV-1", "Server", "", "Server", 2, ""},
	})
	WatchEdits(wb)

	wb.SimulateEdit("RK-100", rack.DataStartRow, 5, 4)

	reloaded, err := rack.Load(mustSheet(wb, "RK-100"))
	require.NoError(t, err)
	assert.Equal(t, rack.StatusLocalModified, reloaded.Status)
}

func TestWatchEditsIgnoresMetaRow(t *testing.T) {
	wb := workbook.NewMemory()
	sheetFixture(wb, "RK-100", "SYNCED", "rack-1", "SRV-1:2:", [][]any{
		{"SRV-1", "Server", "", "Server", 2, ""},
	})
	WatchEdits(wb)

	wb.SimulateEdit("RK-100", rack.MetaRow, 3, "renamed")

	reloaded, err := rack.Load(mustSheet(wb, "RK-100"))
	require.NoError(t, err)
	assert.Equal(t, rack.StatusSynced, reloaded.Status)
}

func TestWatchEditsIgnoresNoOpEdit(t *testing.T) {
	wb := workbook.NewMemory()
	sheetFixture(wb, "RK-100", "SYNCED", "rack-1", "SRV-1:2:", [][]any{
		{"SRV-1", "Server", "", "Server", 2, ""},
	})
	WatchEdits(wb)

	// rewrite of the same quantity leaves the checksum untouched
	wb.SimulateEdit("RK-100", rack.DataStartRow, 5, 2)

	reloaded, err := rack.Load(mustSheet(wb, "RK-100"))
	require.NoError(t, err)
	assert.Equal(t, rack.StatusSynced, reloaded.Status)
}

func mustSheet(wb workbook.Workbook, name string) workbook.Sheet {
	ws, ok := wb.Sheet(name)
	if !ok {
		panic("missing sheet " + name)
	}
	return ws
}
