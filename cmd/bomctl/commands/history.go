package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rackworks/bomctl/internal/cli/output"
	"github.com/rackworks/bomctl/pkg/history"
	"github.com/rackworks/bomctl/pkg/rack"
)

var (
	historyRack   string
	historyLimit  int
	historyRepair bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and verify the change history sheet",
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show history events, newest last",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		wb, err := env.Workbook()
		if err != nil {
			return err
		}
		log, err := history.Open(wb)
		if err != nil {
			return err
		}
		printer, err := env.Printer()
		if err != nil {
			return err
		}

		events := log.Events()
		if historyRack != "" {
			filtered := events[:0]
			for _, ev := range events {
				if rack.NormalizeNumber(ev.Rack) == rack.NormalizeNumber(historyRack) {
					filtered = append(filtered, ev)
				}
			}
			events = filtered
		}
		if historyLimit > 0 && len(events) > historyLimit {
			events = events[len(events)-historyLimit:]
		}

		table := output.NewTableData("Time", "Rack", "Event", "Before", "After", "Summary")
		for _, ev := range events {
			table.AddRow(
				ev.Timestamp.Format("2006-01-02 15:04"),
				ev.Rack,
				string(ev.Kind),
				string(ev.StatusBefore),
				string(ev.StatusAfter),
				ev.Summary,
			)
		}
		return printer.Print(table)
	},
}

var historyVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Cross-check the summary section against the rack sheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		wb, err := env.Workbook()
		if err != nil {
			return err
		}
		log, err := history.Open(wb)
		if err != nil {
			return err
		}
		sheets, err := rack.FindSheets(wb)
		if err != nil {
			return err
		}

		var report *history.VerifyReport
		if historyRepair {
			report, err = log.Repair(sheets)
			if err != nil {
				return err
			}
		} else {
			report = log.Verify(sheets)
		}

		for _, number := range report.MissingRacks {
			fmt.Printf("missing summary row: %s\n", number)
		}
		for _, number := range report.OrphanRows {
			fmt.Printf("orphan summary row: %s\n", number)
		}

		switch {
		case report.Clean():
			fmt.Println("History sheet is consistent")
		case historyRepair:
			fmt.Println("History sheet repaired")
		default:
			return fmt.Errorf("%d defect(s); run with --repair to reconcile",
				len(report.MissingRacks)+len(report.OrphanRows))
		}
		return nil
	},
}

func init() {
	historyShowCmd.Flags().StringVar(&historyRack, "rack", "", "Filter by rack number")
	historyShowCmd.Flags().IntVar(&historyLimit, "limit", 50, "Show at most N events (0 = all)")
	historyVerifyCmd.Flags().BoolVar(&historyRepair, "repair", false, "Reconcile defects")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyVerifyCmd)
}
