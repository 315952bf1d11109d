package workbook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// filePermissions for workbook files (owner read/write).
const filePermissions = 0600

// fileCell is one populated cell in the serialized form.
type fileCell struct {
	Row   int    `json:"r"`
	Col   int    `json:"c"`
	Value any    `json:"v"`
	Bg    string `json:"bg,omitempty"`
	Font  string `json:"font,omitempty"`
}

// fileSheet is one sheet in the serialized form.
type fileSheet struct {
	Name        string     `json:"name"`
	Protected   bool       `json:"protected,omitempty"`
	ProtectNote string     `json:"protectNote,omitempty"`
	Cells       []fileCell `json:"cells"`
}

// fileFormat is the on-disk workbook shape.
type fileFormat struct {
	Sheets []fileSheet `json:"sheets"`
}

// FileWorkbook is a JSON-file-backed workbook. All access goes through an
// in-memory copy; Save persists it atomically (write temp, rename), so a
// crashed save never leaves a torn file.
type FileWorkbook struct {
	*MemoryWorkbook
	path string
}

// OpenFile loads the workbook at path, creating an empty one if absent.
func OpenFile(path string) (*FileWorkbook, error) {
	wb := &FileWorkbook{MemoryWorkbook: NewMemory(), path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return wb, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook %s: %w", path, err)
	}
	if err := wb.loadFrom(data); err != nil {
		return nil, fmt.Errorf("failed to parse workbook %s: %w", path, err)
	}
	return wb, nil
}

// Path returns the backing file path.
func (w *FileWorkbook) Path() string { return w.path }

// loadFrom replaces the in-memory contents from serialized bytes.
func (w *FileWorkbook) loadFrom(data []byte) error {
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return err
	}

	fresh := NewMemory()
	for _, fs := range ff.Sheets {
		sheet := fresh.CreateSheet(fs.Name)
		for _, cell := range fs.Cells {
			sheet.SetValue(cell.Row, cell.Col, cell.Value)
			if cell.Bg != "" {
				sheet.SetBackground(cell.Row, cell.Col, cell.Bg)
			}
			if cell.Font != "" {
				sheet.SetFontColor(cell.Row, cell.Col, cell.Font)
			}
		}
		if fs.Protected {
			sheet.Protect(fs.ProtectNote)
		}
	}

	w.MemoryWorkbook.mu.Lock()
	handlers := w.MemoryWorkbook.handlers
	w.MemoryWorkbook.sheets = fresh.sheets
	w.MemoryWorkbook.order = fresh.order
	w.MemoryWorkbook.handlers = handlers
	w.MemoryWorkbook.mu.Unlock()
	return nil
}

// Save writes the workbook to its backing file atomically.
func (w *FileWorkbook) Save() error {
	data, err := json.MarshalIndent(w.snapshot(), "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create workbook directory: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("failed to replace workbook: %w", err)
	}
	return nil
}

// snapshot serializes the in-memory state.
func (w *FileWorkbook) snapshot() fileFormat {
	var ff fileFormat
	for _, name := range w.SheetNames() {
		sheet, _ := w.Sheet(name)
		ms := sheet.(*MemorySheet)

		ms.mu.RLock()
		// colors can live on cells with no value, so the key set is the
		// union of all three maps
		keys := make(map[cellKey]struct{}, len(ms.cells))
		for k := range ms.cells {
			keys[k] = struct{}{}
		}
		for k := range ms.backgrounds {
			keys[k] = struct{}{}
		}
		for k := range ms.fontColors {
			keys[k] = struct{}{}
		}
		fs := fileSheet{
			Name:        name,
			Protected:   ms.protected,
			ProtectNote: ms.protectNote,
			Cells:       make([]fileCell, 0, len(keys)),
		}
		for key := range keys {
			fs.Cells = append(fs.Cells, fileCell{
				Row:   key.row,
				Col:   key.col,
				Value: ms.cells[key],
				Bg:    ms.backgrounds[key],
				Font:  ms.fontColors[key],
			})
		}
		ms.mu.RUnlock()

		ff.Sheets = append(ff.Sheets, fs)
	}
	return ff
}
