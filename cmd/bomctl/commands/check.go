package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rackworks/bomctl/pkg/push"
	"github.com/rackworks/bomctl/pkg/rack"
)

var checkGridSheet string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run push pre-flight validation without writing anything",
	Long: `Run the same validation a push runs, with zero side effects: session
reachability, grid shape, placement resolution, and child component
existence in the PLM.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkGridSheet, "grid", "Grid", "Grid sheet name")
}

func runCheck(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	wb, err := env.Workbook()
	if err != nil {
		return err
	}
	gridSheet, ok := wb.Sheet(checkGridSheet)
	if !ok {
		return fmt.Errorf("grid sheet %q not found in workbook", checkGridSheet)
	}
	grid, err := rack.LoadGrid(gridSheet)
	if err != nil {
		return err
	}
	sheets, err := rack.FindSheets(wb)
	if err != nil {
		return err
	}

	client, err := env.Client()
	if err != nil {
		return err
	}
	cache, err := env.Cache()
	if err != nil {
		return err
	}

	pipeline := push.NewPipeline(client, cache, push.AcceptAll{}, push.Options{
		PositionAttribute: resolvePositionAttr(env),
	})
	result, _, err := pipeline.Preflight(cmd.Context(), grid, sheets)
	if err != nil {
		return err
	}

	for _, msg := range result.Errors {
		fmt.Println("error:", msg)
	}
	for _, msg := range result.Warnings {
		fmt.Println("warning:", msg)
	}
	if !result.OK() {
		return fmt.Errorf("%d validation error(s)", len(result.Errors))
	}
	fmt.Printf("OK: %d rack sheet(s), %d placement(s)\n", len(sheets), grid.TotalPlacements())
	return nil
}
