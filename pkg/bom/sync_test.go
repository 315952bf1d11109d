package bom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/propstore"
)

// bomServer records BOM write operations in arrival order.
type bomServer struct {
	ops       []string
	rejectPut bool
}

func (s *bomServer) handler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/login":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"arenaSessionId": "tok-1",
			"workspaceId":    "ws-100",
		})
	case r.Method == http.MethodDelete:
		s.ops = append(s.ops, "DELETE "+r.URL.Path)
	case r.Method == http.MethodPut:
		if s.rejectPut {
			s.ops = append(s.ops, "PUT-405 "+r.URL.Path)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.ops = append(s.ops, "PUT "+r.URL.Path)
	case r.Method == http.MethodPost:
		s.ops = append(s.ops, "POST "+r.URL.Path)
		_, _ = w.Write([]byte(`{"guid": "l-new", "quantity": 1, "item": {"guid": "g-x"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newSyncClient(t *testing.T, s *bomServer) *plm.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(s.handler))
	t.Cleanup(srv.Close)

	creds := plm.Credentials{Email: "sync@example.com", Password: "pw", WorkspaceID: "ws-100"}
	session, err := plm.NewSessionManager(srv.URL, creds, propstore.NewMemory())
	require.NoError(t, err)
	return plm.NewClient(srv.URL, session)
}

func TestApplyWriteOrder(t *testing.T) {
	srv := &bomServer{}
	client := newSyncClient(t, srv)

	d := Diff{
		ToAdd:    []Line{{ChildGUID: "g-new", ChildNumber: "CBL-9", Quantity: 6}},
		ToUpdate: []QuantityChange{{Remote: Line{LineGUID: "l-1", ChildGUID: "g-srv", ChildNumber: "SRV-1"}, NewQty: 4}},
		ToRemove: []Line{{LineGUID: "l-3", ChildGUID: "g-old", ChildNumber: "FAN-2"}},
	}

	result, err := Apply(context.Background(), client, "parent-1", d)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Added: 1, Updated: 1, Removed: 1}, result)
	assert.Equal(t, []string{
		"DELETE /items/parent-1/bom/l-3",
		"PUT /items/parent-1/bom/l-1",
		"POST /items/parent-1/bom",
	}, srv.ops)
}

func TestApplyPutFallsBackToDeletePost(t *testing.T) {
	srv := &bomServer{rejectPut: true}
	client := newSyncClient(t, srv)

	d := Diff{
		ToUpdate: []QuantityChange{{Remote: Line{LineGUID: "l-1", ChildGUID: "g-srv", ChildNumber: "SRV-1"}, NewQty: 4}},
	}

	result, err := Apply(context.Background(), client, "parent-1", d)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []string{
		"PUT-405 /items/parent-1/bom/l-1",
		"DELETE /items/parent-1/bom/l-1",
		"POST /items/parent-1/bom",
	}, srv.ops)
}

func TestApplyRejectsUnresolvedChild(t *testing.T) {
	srv := &bomServer{}
	client := newSyncClient(t, srv)

	d := Diff{ToAdd: []Line{{ChildNumber: "SRV-1", Quantity: 1}}}
	_, err := Apply(context.Background(), client, "parent-1", d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SRV-1")
	assert.Empty(t, srv.ops)
}

func TestApplyEmptyDiffNoWrites(t *testing.T) {
	srv := &bomServer{}
	client := newSyncClient(t, srv)

	result, err := Apply(context.Background(), client, "parent-1", Diff{})
	require.NoError(t, err)
	assert.True(t, result.NoOp())
	assert.Empty(t, srv.ops)
}

func TestFromPLMLines(t *testing.T) {
	lines := FromPLMLines([]plm.BOMLine{
		{GUID: "l-1", ItemGUID: "g-1", ItemNumber: "SRV-1", Quantity: 2, Revision: "A"},
	})
	require.Len(t, lines, 1)
	assert.Equal(t, "l-1", lines[0].LineGUID)
	assert.Equal(t, "g-1", lines[0].ChildGUID)
	assert.Equal(t, 2, lines[0].Quantity)
}
