package bom

import (
	"fmt"
	"strings"
)

// ChecksumEntry is one data row in checksum order.
type ChecksumEntry struct {
	Number   string
	Quantity int
	Revision string
}

// Checksum serializes the sheet's child lines into the stored checksum:
// "<number>:<qty>:<revision>" joined by "|", in sheet order. The result is
// stable across runs, so comparing stored vs computed detects local edits
// without server contact.
//
// The revision segment was added after the first release; checksums stored
// by older sheets compare unequal once and surface LOCAL_MODIFIED.
func Checksum(entries []ChecksumEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s:%d:%s", e.Number, e.Quantity, e.Revision))
	}
	return strings.Join(parts, "|")
}
