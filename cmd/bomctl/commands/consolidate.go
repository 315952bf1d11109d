package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rackworks/bomctl/pkg/consolidate"
	"github.com/rackworks/bomctl/pkg/rack"
)

var (
	consolidateGridSheet string
	consolidateOutSheet  string
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Flatten the grid into a single consolidated BOM",
	Long: `Scan the grid, multiply each rack's child quantities by its placement
count, and emit the flattened, level-annotated BOM. With --sheet the
result is also written into the workbook.`,
	RunE: runConsolidate,
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateGridSheet, "grid", "Grid", "Grid sheet name")
	consolidateCmd.Flags().StringVar(&consolidateOutSheet, "sheet", "", "Workbook sheet to write the result to")
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	wb, err := env.Workbook()
	if err != nil {
		return err
	}
	gridSheet, ok := wb.Sheet(consolidateGridSheet)
	if !ok {
		return fmt.Errorf("grid sheet %q not found in workbook", consolidateGridSheet)
	}
	grid, err := rack.LoadGrid(gridSheet)
	if err != nil {
		return err
	}
	sheets, err := rack.FindSheets(wb)
	if err != nil {
		return err
	}

	result, err := consolidate.Consolidate(grid, sheets, loadLevelMap(env))
	if err != nil {
		return err
	}

	if consolidateOutSheet != "" {
		consolidate.WriteSheet(wb.CreateSheet(consolidateOutSheet), result)
	}

	printer, err := env.Printer()
	if err != nil {
		return err
	}
	printer.Printf("Source grid: %s\n", result.Grid)
	printer.Printf("Unique items: %d, total placements: %d\n\n",
		result.UniqueItems, result.TotalPlacements)
	return printer.Print(result)
}

// loadLevelMap reads the stored category-to-level configuration; racks
// default to level 1 and everything else to the leaf level.
func loadLevelMap(env *appEnv) consolidate.LevelMap {
	levels := consolidate.LevelMap{
		ByCategory: map[string]int{consolidate.RackCategoryName: 1},
		Leaf:       2,
	}
	raw, err := env.store.Get("bom_levels")
	if err != nil {
		return levels
	}
	var stored struct {
		ByCategory map[string]int `json:"byCategory"`
		Leaf       int            `json:"leaf"`
	}
	if json.Unmarshal(raw, &stored) == nil && len(stored.ByCategory) > 0 {
		levels.ByCategory = stored.ByCategory
		if stored.Leaf > 0 {
			levels.Leaf = stored.Leaf
		}
	}
	return levels
}
