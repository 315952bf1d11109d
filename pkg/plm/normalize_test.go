package plm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "guid", normalizeKey("Guid"))
	assert.Equal(t, "guid", normalizeKey("guid"))
	assert.Equal(t, "revisionNumber", normalizeKey("RevisionNumber"))
	assert.Equal(t, "", normalizeKey(""))
}

func TestNormalizeBodyNested(t *testing.T) {
	normalized, err := normalizeBody([]byte(`{
		"Results": [
			{"Guid": "g1", "Category": {"Name": "Rack"}},
			{"guid": "g2"}
		],
		"Count": 2
	}`))
	require.NoError(t, err)

	m, ok := normalized.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, m, "results")
	assert.Contains(t, m, "count")

	results := m["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "g1", first["guid"])
	assert.Equal(t, "Rack", first["category"].(map[string]any)["name"])
}

func TestNormalizeBodyMalformed(t *testing.T) {
	_, err := normalizeBody([]byte(`{not json`))
	require.Error(t, err)
}

func TestDecodeResults(t *testing.T) {
	normalized, err := normalizeBody([]byte(`{"Results": [{"Guid": "a"}, {"Guid": "b"}]}`))
	require.NoError(t, err)

	wires, err := decodeResults[wireItem](normalized)
	require.NoError(t, err)
	require.Len(t, wires, 2)
	assert.Equal(t, "a", wires[0].GUID)
	assert.Equal(t, "b", wires[1].GUID)
}
