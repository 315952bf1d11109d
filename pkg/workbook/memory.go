package workbook

import (
	"fmt"
	"sync"
)

// MemoryWorkbook is the in-memory backend. It is the test double for the
// host spreadsheet and the working surface for consolidation output.
type MemoryWorkbook struct {
	mu       sync.RWMutex
	sheets   map[string]*MemorySheet
	order    []string
	handlers []EditHandler
}

// NewMemory creates an empty workbook.
func NewMemory() *MemoryWorkbook {
	return &MemoryWorkbook{sheets: make(map[string]*MemorySheet)}
}

// Sheet returns the named sheet.
func (w *MemoryWorkbook) Sheet(name string) (Sheet, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sheets[name]
	return s, ok
}

// CreateSheet creates or returns the named sheet.
func (w *MemoryWorkbook) CreateSheet(name string) Sheet {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.sheets[name]; ok {
		return s
	}
	s := newMemorySheet(name)
	w.sheets[name] = s
	w.order = append(w.order, name)
	return s
}

// DeleteSheet removes the named sheet.
func (w *MemoryWorkbook) DeleteSheet(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.sheets[name]; !ok {
		return
	}
	delete(w.sheets, name)
	for i, n := range w.order {
		if n == name {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// SheetNames lists sheets in creation order.
func (w *MemoryWorkbook) SheetNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// OnEdit registers an edit handler.
func (w *MemoryWorkbook) OnEdit(handler EditHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// SimulateEdit applies a cell write as a user edit and fires the
// registered handlers. Tests use it to drive the status detector.
func (w *MemoryWorkbook) SimulateEdit(sheet string, row, col int, value any) {
	s, ok := w.Sheet(sheet)
	if !ok {
		return
	}
	old := s.Value(row, col)
	s.SetValue(row, col, value)

	w.mu.RLock()
	handlers := make([]EditHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	for _, h := range handlers {
		h(EditEvent{Sheet: sheet, Row: row, Col: col, Old: old, New: value})
	}
}

// cellKey addresses one cell in the sparse store.
type cellKey struct {
	row int
	col int
}

// MemorySheet is a sparse in-memory sheet.
type MemorySheet struct {
	mu          sync.RWMutex
	name        string
	cells       map[cellKey]any
	backgrounds map[cellKey]string
	fontColors  map[cellKey]string
	maxRow      int
	maxCol      int
	protected   bool
	protectNote string
}

func newMemorySheet(name string) *MemorySheet {
	return &MemorySheet{
		name:        name,
		cells:       make(map[cellKey]any),
		backgrounds: make(map[cellKey]string),
		fontColors:  make(map[cellKey]string),
	}
}

// Name returns the sheet name.
func (s *MemorySheet) Name() string { return s.name }

// Rows returns the highest populated row index.
func (s *MemorySheet) Rows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxRow
}

// Cols returns the highest populated column index.
func (s *MemorySheet) Cols() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxCol
}

// Value reads one cell.
func (s *MemorySheet) Value(row, col int) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cells[cellKey{row, col}]
}

// SetValue writes one cell.
func (s *MemorySheet) SetValue(row, col int, value any) {
	if row < 1 || col < 1 {
		panic(fmt.Sprintf("workbook: cell (%d,%d) out of range", row, col))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(row, col, value)
}

func (s *MemorySheet) setLocked(row, col int, value any) {
	key := cellKey{row, col}
	if value == nil {
		delete(s.cells, key)
		return
	}
	s.cells[key] = value
	if row > s.maxRow {
		s.maxRow = row
	}
	if col > s.maxCol {
		s.maxCol = col
	}
}

// Range reads a rectangular block.
func (s *MemorySheet) Range(fromRow, fromCol, toRow, toCol int) [][]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]any, 0, toRow-fromRow+1)
	for r := fromRow; r <= toRow; r++ {
		row := make([]any, 0, toCol-fromCol+1)
		for c := fromCol; c <= toCol; c++ {
			row = append(row, s.cells[cellKey{r, c}])
		}
		out = append(out, row)
	}
	return out
}

// SetRange writes a rectangular block.
func (s *MemorySheet) SetRange(fromRow, fromCol int, values [][]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range values {
		for j, value := range row {
			s.setLocked(fromRow+i, fromCol+j, value)
		}
	}
}

// ClearRange empties a rectangular block.
func (s *MemorySheet) ClearRange(fromRow, fromCol, toRow, toCol int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for r := fromRow; r <= toRow; r++ {
		for c := fromCol; c <= toCol; c++ {
			delete(s.cells, cellKey{r, c})
		}
	}
}

// SetBackground sets a cell background color.
func (s *MemorySheet) SetBackground(row, col int, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if color == "" {
		delete(s.backgrounds, cellKey{row, col})
		return
	}
	s.backgrounds[cellKey{row, col}] = color
}

// SetFontColor sets a cell font color.
func (s *MemorySheet) SetFontColor(row, col int, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if color == "" {
		delete(s.fontColors, cellKey{row, col})
		return
	}
	s.fontColors[cellKey{row, col}] = color
}

// Background reads a cell background color.
func (s *MemorySheet) Background(row, col int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backgrounds[cellKey{row, col}]
}

// Protect marks the sheet protected.
func (s *MemorySheet) Protect(description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protected = true
	s.protectNote = description
}

// ProtectionNote returns the description given to Protect.
func (s *MemorySheet) ProtectionNote() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protectNote
}

// Protected reports protection state.
func (s *MemorySheet) Protected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protected
}
