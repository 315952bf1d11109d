package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rackworks/bomctl/internal/cli/output"
	"github.com/rackworks/bomctl/pkg/history"
	"github.com/rackworks/bomctl/pkg/rack"
	"github.com/rackworks/bomctl/pkg/status"
)

var statusLocal bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check every rack sheet against its remote BOM",
	Long: `Classify each rack configuration sheet:

  PLACEHOLDER      no PLM identity yet
  SYNCED           no difference against the remote BOM
  LOCAL_MODIFIED   the sheet changed since the last sync
  REMOTE_MODIFIED  the PLM changed since the last sync

With --local only the stored checksums are compared; no server contact.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusLocal, "local", false, "Checksum-only check, no server contact")
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	wb, err := env.Workbook()
	if err != nil {
		return err
	}
	sheets, err := rack.FindSheets(wb)
	if err != nil {
		return err
	}
	printer, err := env.Printer()
	if err != nil {
		return err
	}

	if statusLocal {
		return printLocalStatus(printer, sheets)
	}

	client, err := env.Client()
	if err != nil {
		return err
	}
	cache, err := env.Cache()
	if err != nil {
		return err
	}

	results := status.NewChecker(client, cache).Check(cmd.Context(), sheets)

	log, err := history.Open(wb)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Previous == r.Current {
			continue
		}
		ev := history.NewEvent(r.Number, history.EventBatchCheck)
		ev.StatusBefore = r.Previous
		ev.StatusAfter = r.Current
		ev.Summary = "Status updated by batch check"
		_ = log.Append(ev)
	}

	table := output.NewTableData("Rack", "Status", "Adds", "Updates", "Removes")
	for _, r := range results {
		adds, updates, removes := "-", "-", "-"
		if r.Err == nil && r.Current != rack.StatusPlaceholder {
			adds = strconv.Itoa(len(r.Diff.ToAdd))
			updates = strconv.Itoa(len(r.Diff.ToUpdate))
			removes = strconv.Itoa(len(r.Diff.ToRemove))
		}
		table.AddRow(r.Number, printer.StatusCell(string(r.Current)), adds, updates, removes)
	}
	return printer.Print(table)
}

func printLocalStatus(printer *output.Printer, sheets []*rack.Sheet) error {
	table := output.NewTableData("Rack", "Status", "Checksum")
	for _, s := range sheets {
		state := "clean"
		if status.ChecksumOf(s) != s.Checksum {
			state = "modified"
		}
		table.AddRow(s.Number, printer.StatusCell(string(s.Status)), state)
	}
	return printer.Print(table)
}
