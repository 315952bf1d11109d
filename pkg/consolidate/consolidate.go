// Package consolidate flattens a multi-rack grid layout into a single
// level-annotated BOM: rack placements multiply each rack's child
// quantities, and identical children across racks accumulate.
package consolidate

import (
	"fmt"
	"sort"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/rack"
)

// LevelMap assigns hierarchy levels to consolidated entries by category
// name. Categories not listed get Leaf.
type LevelMap struct {
	ByCategory map[string]int
	Leaf       int
}

// Level resolves a category to its hierarchy level.
func (m LevelMap) Level(category string) int {
	if lvl, ok := m.ByCategory[category]; ok {
		return lvl
	}
	return m.Leaf
}

// Entry is one line of the consolidated BOM.
type Entry struct {
	Number   string
	Name     string
	Category string
	Quantity int
	Level    int
}

// Result is the consolidated BOM with its summary figures.
type Result struct {
	Grid            string // source grid sheet name
	Entries         []Entry
	UniqueItems     int
	TotalPlacements int
}

// Consolidate walks the grid counts and each placed rack's children.
//
// For every rack placed n times, the rack itself enters the result with
// quantity n and each of its children with n times its per-rack quantity.
// Children shared between racks sum. Every placement must resolve to a
// rack sheet; Build in pkg/push pre-validates this, so an unresolved
// placement here is an error, not a warning.
func Consolidate(grid *rack.Grid, sheets []*rack.Sheet, levels LevelMap) (*Result, error) {
	byNumber := make(map[string]*rack.Sheet, len(sheets))
	for _, s := range sheets {
		byNumber[rack.NormalizeNumber(s.Number)] = s
	}

	counts := grid.Counts()

	type accum struct {
		name     string
		category string
		quantity int
		level    int
	}
	acc := make(map[string]*accum)
	add := func(number, name, category string, qty int) {
		a, ok := acc[number]
		if !ok {
			a = &accum{name: name, category: category, level: levels.Level(category)}
			acc[number] = a
		}
		a.quantity += qty
	}

	rackNumbers := make([]string, 0, len(counts))
	for number := range counts {
		rackNumbers = append(rackNumbers, number)
	}
	sort.Strings(rackNumbers)

	for _, number := range rackNumbers {
		sheet, ok := byNumber[number]
		if !ok {
			return nil, fmt.Errorf("grid places rack %s but no configuration sheet defines it", number)
		}
		count := counts[number]

		add(rack.NormalizeNumber(sheet.Number), sheet.Name, RackCategoryName, count)
		for _, child := range sheet.Children {
			add(rack.NormalizeNumber(child.Number), child.Name, child.Category, count*child.Quantity)
		}
	}

	result := &Result{
		Grid:            grid.SheetName,
		UniqueItems:     len(acc),
		TotalPlacements: grid.TotalPlacements(),
	}
	for number, a := range acc {
		result.Entries = append(result.Entries, Entry{
			Number:   number,
			Name:     a.name,
			Category: a.category,
			Quantity: a.quantity,
			Level:    a.level,
		})
	}

	sort.Slice(result.Entries, func(i, j int) bool {
		a, b := result.Entries[i], result.Entries[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Number < b.Number
	})

	logger.Debug("consolidated grid",
		"uniqueItems", result.UniqueItems,
		"placements", result.TotalPlacements)
	return result, nil
}

// RackCategoryName is the category consolidated rack entries carry. Rack
// sheets carry no category of their own; the conventional name keeps them
// grouped above their children in the level map.
const RackCategoryName = "Rack"
