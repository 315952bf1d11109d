package loader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/propstore"
)

// treeServer serves a fixed item graph plus the export machinery.
type treeServer struct {
	items      map[string]map[string]any
	boms       map[string][]map[string]any
	exportJSON []byte // nil disables the export path
}

func (s *treeServer) handler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/login":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"arenaSessionId": "tok-1",
			"workspaceId":    "ws-100",
		})

	case path == "/exports" && r.Method == http.MethodPost:
		if s.exportJSON == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"guid": "def-1"})

	case path == "/exports/def-1/runs" && r.Method == http.MethodPost:
		_ = json.NewEncoder(w).Encode(map[string]any{"guid": "run-1", "status": "PENDING"})

	case path == "/exports/def-1/runs/run-1":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"guid":   "run-1",
			"status": "COMPLETE",
			"files":  []map[string]any{{"guid": "f-1", "name": "bom.json"}},
		})

	case strings.HasSuffix(path, "/files/f-1/content"):
		_, _ = w.Write(s.exportJSON)

	case strings.HasSuffix(path, "/bom"):
		guid := strings.TrimSuffix(strings.TrimPrefix(path, "/items/"), "/bom")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": s.boms[guid]})

	case strings.HasPrefix(path, "/items/"):
		guid := strings.TrimPrefix(path, "/items/")
		item, ok := s.items[guid]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(item)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newLoader(t *testing.T, s *treeServer) *Loader {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(s.handler))
	t.Cleanup(srv.Close)

	creds := plm.Credentials{Email: "sync@example.com", Password: "pw", WorkspaceID: "ws-100"}
	session, err := plm.NewSessionManager(srv.URL, creds, propstore.NewMemory())
	require.NoError(t, err)
	return New(plm.NewClient(srv.URL, session), propstore.NewMemory())
}

func bomLine(guid, number string, qty int) map[string]any {
	return map[string]any{
		"guid":     "l-" + guid,
		"quantity": qty,
		"item":     map[string]any{"guid": guid, "number": number},
	}
}

func fixtureGraph() *treeServer {
	return &treeServer{
		items: map[string]map[string]any{
			"g-root": {"guid": "g-root", "number": "RK-100", "name": "Rack"},
		},
		boms: map[string][]map[string]any{
			"g-root": {bomLine("g-a", "SRV-1", 2), bomLine("g-b", "PDU-1", 1)},
			"g-a":    {bomLine("g-c", "DSK-1", 4), bomLine("g-root", "RK-100", 1)},
			"g-b":    {bomLine("g-c", "DSK-1", 1)},
			"g-c":    {},
		},
	}
}

func TestLoadTreeBreadthFirst(t *testing.T) {
	l := newLoader(t, fixtureGraph())

	tree, err := l.LoadTree(context.Background(), "g-root")
	require.NoError(t, err)

	assert.Equal(t, "RK-100", tree.Root.Number)
	assert.Equal(t, "Rack", tree.Root.Name)
	require.Len(t, tree.Root.Children, 2)

	srv := tree.Root.Children[0]
	assert.Equal(t, "SRV-1", srv.Number)
	assert.Equal(t, 2, srv.Quantity)
	assert.Equal(t, 1, srv.Level)

	// shared child appears under both parents; cycle edge back to the
	// root terminates without re-expansion
	require.Len(t, srv.Children, 2)
	assert.Equal(t, "DSK-1", srv.Children[0].Number)
	assert.Empty(t, srv.Children[1].Children, "revisited root must not expand again")
	assert.Equal(t, 6, tree.Count)
}

func TestLoadTreeRootFetchFails(t *testing.T) {
	l := newLoader(t, &treeServer{items: map[string]map[string]any{}})
	_, err := l.LoadTree(context.Background(), "g-ghost")
	require.Error(t, err)
}

func TestWalkDepthFirst(t *testing.T) {
	l := newLoader(t, fixtureGraph())
	tree, err := l.LoadTree(context.Background(), "g-root")
	require.NoError(t, err)

	var numbers []string
	tree.Walk(func(n *Node) { numbers = append(numbers, n.Number) })
	assert.Equal(t, []string{"RK-100", "SRV-1", "DSK-1", "RK-100", "PDU-1", "DSK-1"}, numbers)
}

func TestLoadTreeExportFastPath(t *testing.T) {
	s := fixtureGraph()
	s.exportJSON = []byte(`[
		{"guid": "g-root", "number": "RK-100", "level": 0, "quantity": 1},
		{"guid": "g-a", "number": "SRV-1", "level": 1, "quantity": 2}
	]`)
	l := newLoader(t, s)

	tree, err := l.LoadTreeExport(context.Background(), "RK-100", "g-root")
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Count, "export payload must win over the walk")
}

func TestLoadTreeExportFallsBackOnFailure(t *testing.T) {
	s := fixtureGraph() // exportJSON nil: /exports returns 500
	l := newLoader(t, s)

	tree, err := l.LoadTreeExport(context.Background(), "RK-100", "g-root")
	require.NoError(t, err)
	assert.Equal(t, 6, tree.Count, "fallback walk must deliver the tree")
}

func TestLoadTreeExportWithoutStore(t *testing.T) {
	s := fixtureGraph()
	srv := httptest.NewServer(http.HandlerFunc(s.handler))
	t.Cleanup(srv.Close)

	creds := plm.Credentials{Email: "sync@example.com", Password: "pw", WorkspaceID: "ws-100"}
	session, err := plm.NewSessionManager(srv.URL, creds, propstore.NewMemory())
	require.NoError(t, err)
	l := New(plm.NewClient(srv.URL, session), nil)

	tree, err := l.LoadTreeExport(context.Background(), "RK-100", "g-root")
	require.NoError(t, err)
	assert.Equal(t, 6, tree.Count)
}
