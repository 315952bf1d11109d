package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "table", want: FormatTable},
		{input: "", want: FormatTable},
		{input: "json", want: FormatJSON},
		{input: "JSON", want: FormatJSON},
		{input: "yaml", want: FormatYAML},
		{input: "yml", want: FormatYAML},
		{input: "  table  ", want: FormatTable},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestPrintTableFormat(t *testing.T) {
	table := NewTableData("Number", "Status")
	table.AddRow("RK-100", "SYNCED")
	table.AddRow("RK-200", "LOCAL_MODIFIED")

	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)
	require.NoError(t, p.Print(table))

	out := buf.String()
	assert.Contains(t, out, "NUMBER")
	assert.Contains(t, out, "RK-100")
	assert.Contains(t, out, "LOCAL_MODIFIED")
}

func TestPrintJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON, false)
	require.NoError(t, p.Print(map[string]int{"racks": 3}))
	assert.JSONEq(t, `{"racks": 3}`, buf.String())
}

func TestPrintYAMLFormat(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatYAML, false)
	require.NoError(t, p.Print(map[string]string{"status": "SYNCED"}))
	assert.Equal(t, "status: SYNCED\n", buf.String())
}

func TestPrintNonRendererFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)
	require.NoError(t, p.Print([]string{"a", "b"}))
	assert.JSONEq(t, `["a", "b"]`, buf.String())
}

func TestStatusCell(t *testing.T) {
	var buf bytes.Buffer

	plain := NewPrinter(&buf, FormatTable, false)
	assert.Equal(t, "SYNCED", plain.StatusCell("SYNCED"))

	colored := NewPrinter(&buf, FormatTable, true)
	assert.Equal(t, "\033[32mSYNCED\033[0m", colored.StatusCell("SYNCED"))
	assert.Equal(t, "WEIRD", colored.StatusCell("WEIRD"), "unknown statuses pass through")
}
