// Package workbook models the host spreadsheet as an abstract tabular
// store: name-unique sheets of typed cells with batched range access,
// colors, per-sheet protection, and a cell-edit hook.
//
// All row/column indices are 1-based, matching spreadsheet conventions:
// row 1 is the metadata row of a rack configuration sheet.
package workbook

// EditEvent describes a single user cell edit.
type EditEvent struct {
	Sheet string
	Row   int
	Col   int
	Old   any
	New   any
}

// EditHandler receives user edit events. Programmatic writes through the
// Sheet interface never fire the handler; only host-side edits do.
type EditHandler func(EditEvent)

// Workbook is a name-unique collection of sheets.
type Workbook interface {
	// Sheet returns the named sheet, or false if absent.
	Sheet(name string) (Sheet, bool)

	// CreateSheet creates (or returns) the named sheet.
	CreateSheet(name string) Sheet

	// DeleteSheet removes the named sheet. Absent names are ignored.
	DeleteSheet(name string)

	// SheetNames lists sheets in creation order.
	SheetNames() []string

	// OnEdit registers a handler for user cell edits.
	OnEdit(handler EditHandler)
}

// Sheet is a two-dimensional typed-cell store.
type Sheet interface {
	Name() string

	// Rows returns the highest populated row index (0 when empty).
	Rows() int

	// Cols returns the highest populated column index (0 when empty).
	Cols() int

	// Value reads one cell; empty cells read as nil.
	Value(row, col int) any

	// SetValue writes one cell. Writing nil clears it.
	SetValue(row, col int, value any)

	// Range reads a rectangular block as rows of values.
	Range(fromRow, fromCol, toRow, toCol int) [][]any

	// SetRange writes a rectangular block anchored at (fromRow, fromCol).
	SetRange(fromRow, fromCol int, values [][]any)

	// ClearRange empties a rectangular block.
	ClearRange(fromRow, fromCol, toRow, toCol int)

	// SetBackground sets a cell background color ("#rrggbb").
	SetBackground(row, col int, color string)

	// SetFontColor sets a cell font color ("#rrggbb").
	SetFontColor(row, col int, color string)

	// Background reads a cell background color, or "".
	Background(row, col int) string

	// Protect marks the sheet read-only for direct user edits. The
	// description is shown by hosts that surface protection notices.
	Protect(description string)

	// Protected reports whether the sheet is protected.
	Protected() bool

	// ProtectionNote returns the description given to Protect, or "".
	ProtectionNote() string
}
