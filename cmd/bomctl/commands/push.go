package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rackworks/bomctl/pkg/history"
	"github.com/rackworks/bomctl/pkg/push"
	"github.com/rackworks/bomctl/pkg/rack"
)

var (
	pushGridSheet    string
	pushTopNumber    string
	pushTopName      string
	pushRackCategory string
	pushRowCategory  string
	pushTopCategory  string
	pushPositionAttr string
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the grid layout to the PLM (leaves, rows, top)",
	Long: `Push the workbook's grid layout to the PLM as a three-level item
structure: rack items first, then one item per grid row, then the top
item. Pre-flight validation runs before any write; a failure after the
first creation offers a full rollback.

Examples:
  bomctl push --top DC-EAST-01 --rack-category Rack --row-category Assembly --top-category Assembly
  bomctl push --top DC-EAST-01 -y`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushGridSheet, "grid", "Grid", "Grid sheet name")
	pushCmd.Flags().StringVar(&pushTopNumber, "top", "", "Top-level item number (required)")
	pushCmd.Flags().StringVar(&pushTopName, "top-name", "", "Top-level item name")
	pushCmd.Flags().StringVar(&pushRackCategory, "rack-category", "", "Category for rack items (prompted when empty)")
	pushCmd.Flags().StringVar(&pushRowCategory, "row-category", "", "Category for row items (prompted when empty)")
	pushCmd.Flags().StringVar(&pushTopCategory, "top-category", "", "Category for the top item (prompted when empty)")
	pushCmd.Flags().StringVar(&pushPositionAttr, "position-attr", "", "BOM line attribute carrying position labels")
	_ = pushCmd.MarkFlagRequired("top")
}

func runPush(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	wb, err := env.Workbook()
	if err != nil {
		return err
	}
	gridSheet, ok := wb.Sheet(pushGridSheet)
	if !ok {
		return fmt.Errorf("grid sheet %q not found in workbook", pushGridSheet)
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
	log, err := history.Open(wb)
	if err != nil {
		return err
	}

	pipeline := push.NewPipeline(client, cache, prompter(), push.Options{
		TopNumber:         pushTopNumber,
		TopName:           pushTopName,
		RackCategory:      pushRackCategory,
		RowCategory:       pushRowCategory,
		TopCategory:       pushTopCategory,
		PositionAttribute: resolvePositionAttr(env),
	})

	report, runErr := pipeline.Run(cmd.Context(), grid, sheets)
	recordPush(log, sheets, report, runErr)

	if runErr != nil {
		var verr *push.ValidationError
		if errors.As(runErr, &verr) {
			for _, msg := range verr.Result.Errors {
				fmt.Println("  error:", msg)
			}
		}
		if report.RolledBack {
			if report.RollbackErr != nil {
				fmt.Println("Rollback incomplete:", report.RollbackErr)
			} else {
				fmt.Println("All created items rolled back")
			}
		}
		return runErr
	}

	fmt.Printf("Pushed %d rack(s), %d row(s), top item %s\n",
		len(report.RacksPushed), report.RowsCreated, pushTopNumber)
	return nil
}

// resolvePositionAttr falls back to the stored position attribute
// configuration when the flag is not given.
func resolvePositionAttr(env *appEnv) string {
	if pushPositionAttr != "" {
		return pushPositionAttr
	}
	if val, err := env.store.Get("position_attribute_config"); err == nil {
		return string(val)
	}
	return ""
}

// recordPush writes history for what the push actually did.
func recordPush(log *history.Log, sheets []*rack.Sheet, report *push.Report, runErr error) {
	now := time.Now()

	for _, created := range report.Context.Entries() {
		if created.Kind != push.KindLeaf {
			continue
		}
		ev := history.NewEvent(created.Number, history.EventRackCreated)
		ev.StatusAfter = rack.StatusSynced
		ev.Summary = "Rack item created during push"
		_ = log.Append(ev)
	}

	if runErr == nil {
		for _, s := range sheets {
			if !pushed(report, s.Number) {
				continue
			}
			ev := history.NewEvent(s.Number, history.EventTopPush)
			ev.StatusBefore = rack.StatusPlaceholder
			ev.StatusAfter = rack.StatusSynced
			ev.Summary = "BOM pushed to PLM"
			_ = log.Append(ev)
			_ = log.UpdateSummary(history.SummaryRow{
				Number:   s.Number,
				Name:     s.Name,
				Status:   s.Status,
				GUID:     s.GUID,
				LastPush: now,
				LastSync: now,
				Checksum: s.Checksum,
			})
		}
		return
	}

	ev := history.NewEvent("", history.EventError)
	ev.Summary = "Push failed"
	ev.Details = runErr.Error()
	_ = log.Append(ev)
}

func pushed(report *push.Report, number string) bool {
	for _, n := range report.RacksPushed {
		if n == number {
			return true
		}
	}
	return false
}
