// Package bom implements the BOM line model, the sheet checksum, the
// symmetric-difference engine and the minimal-write smart sync.
package bom

import "github.com/rackworks/bomctl/pkg/plm"

// Line is the diff engine's view of one BOM line. Local lines carry no
// LineGUID; remote lines carry the server-assigned one.
type Line struct {
	LineGUID    string
	ChildGUID   string
	ChildNumber string
	Quantity    int
	Revision    string

	// Attributes maps additional-attribute ids to values. Written on
	// creation only; parent-owned on update.
	Attributes map[string]string
}

// FromPLM converts a wire BOM line.
func FromPLM(l plm.BOMLine) Line {
	return Line{
		LineGUID:    l.GUID,
		ChildGUID:   l.ItemGUID,
		ChildNumber: l.ItemNumber,
		Quantity:    l.Quantity,
		Revision:    l.Revision,
		Attributes:  l.Attributes,
	}
}

// FromPLMLines converts a remote BOM.
func FromPLMLines(lines []plm.BOMLine) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, FromPLM(l))
	}
	return out
}
