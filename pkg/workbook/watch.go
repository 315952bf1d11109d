package workbook

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/rackworks/bomctl/internal/logger"
)

// Watcher observes a file workbook for host-side edits. On each change it
// reloads the file, diffs cell values against the previous contents, and
// fires the workbook's edit handlers once per changed cell. This is the
// file-backed equivalent of the host spreadsheet's onEdit hook.
type Watcher struct {
	wb      *FileWorkbook
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts observing the workbook's backing file.
func Watch(wb *FileWorkbook) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(wb.Path()); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", wb.Path(), err)
	}

	w := &Watcher{wb: wb, watcher: fsw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reloadAndDiff()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("workbook watcher error", logger.KeyError, err)
		}
	}
}

// reloadAndDiff reads the changed file and emits edit events for every
// cell whose value differs from the in-memory copy.
func (w *Watcher) reloadAndDiff() {
	incoming, err := OpenFile(w.wb.Path())
	if err != nil {
		logger.Warn("changed workbook does not parse, ignoring", logger.KeyError, err)
		return
	}

	edits := diffWorkbooks(w.wb.MemoryWorkbook, incoming.MemoryWorkbook)

	w.wb.mu.Lock()
	w.wb.sheets = incoming.sheets
	w.wb.order = incoming.order
	w.wb.mu.Unlock()

	w.wb.mu.RLock()
	handlers := make([]EditHandler, len(w.wb.handlers))
	copy(handlers, w.wb.handlers)
	w.wb.mu.RUnlock()

	for _, edit := range edits {
		logger.Debug("workbook edit detected",
			logger.KeySheet, edit.Sheet, "row", edit.Row, "col", edit.Col)
		for _, h := range handlers {
			h(edit)
		}
	}
}

// diffWorkbooks lists cells whose values differ between old and new.
func diffWorkbooks(oldWB, newWB *MemoryWorkbook) []EditEvent {
	var edits []EditEvent

	seen := make(map[string]bool)
	names := append([]string{}, oldWB.SheetNames()...)
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range newWB.SheetNames() {
		if !seen[n] {
			names = append(names, n)
		}
	}

	for _, name := range names {
		oldSheet, hasOld := oldWB.Sheet(name)
		newSheet, hasNew := newWB.Sheet(name)

		maxRow, maxCol := 0, 0
		if hasOld {
			maxRow, maxCol = oldSheet.Rows(), oldSheet.Cols()
		}
		if hasNew {
			if r := newSheet.Rows(); r > maxRow {
				maxRow = r
			}
			if c := newSheet.Cols(); c > maxCol {
				maxCol = c
			}
		}

		for r := 1; r <= maxRow; r++ {
			for c := 1; c <= maxCol; c++ {
				var oldVal, newVal any
				if hasOld {
					oldVal = oldSheet.Value(r, c)
				}
				if hasNew {
					newVal = newSheet.Value(r, c)
				}
				if fmt.Sprint(oldVal) != fmt.Sprint(newVal) {
					edits = append(edits, EditEvent{Sheet: name, Row: r, Col: c, Old: oldVal, New: newVal})
				}
			}
		}
	}
	return edits
}
