package output

import "fmt"

// ANSI colors for sync-status cells in table output, matching the sheet
// indicator colors.
var statusColors = map[string]string{
	"PLACEHOLDER":     "90", // gray
	"SYNCED":          "32", // green
	"LOCAL_MODIFIED":  "33", // yellow
	"REMOTE_MODIFIED": "36", // cyan
	"ERROR":           "31", // red
}

// StatusCell renders a sync status for table output, colored when the
// printer has color enabled.
func (p *Printer) StatusCell(status string) string {
	if !p.color {
		return status
	}
	code, ok := statusColors[status]
	if !ok {
		return status
	}
	return fmt.Sprintf("\033[%sm%s\033[0m", code, status)
}
