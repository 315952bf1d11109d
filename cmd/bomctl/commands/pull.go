package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rackworks/bomctl/internal/cli/prompt"
	"github.com/rackworks/bomctl/pkg/bom"
	"github.com/rackworks/bomctl/pkg/history"
	"github.com/rackworks/bomctl/pkg/itemcache"
	"github.com/rackworks/bomctl/pkg/rack"
	"github.com/rackworks/bomctl/pkg/status"
	"github.com/rackworks/bomctl/pkg/workbook"
)

var (
	pullRack string
	pullAll  bool
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Refresh rack sheets from the PLM",
	Long: `Fetch each rack's remote BOM and, after confirmation, rewrite the
sheet's child rows to match. Local edits are overwritten; declining
leaves the sheet untouched.

Examples:
  bomctl pull --rack RK-A01
  bomctl pull --all -y`,
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullRack, "rack", "", "Pull a single rack by number")
	pullCmd.Flags().BoolVar(&pullAll, "all", false, "Pull every rack with a PLM identity")
}

func runPull(cmd *cobra.Command, args []string) error {
	if pullRack == "" && !pullAll {
		return fmt.Errorf("pass --rack NUMBER or --all")
	}

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
	cache, err := env.Cache()
	if err != nil {
		return err
	}
	log, err := history.Open(wb)
	if err != nil {
		return err
	}

	entries, err := cache.Prewarm(cmd.Context())
	if err != nil {
		return err
	}

	pulled := 0
	for _, s := range sheets {
		if pullRack != "" && rack.NormalizeNumber(s.Number) != rack.NormalizeNumber(pullRack) {
			continue
		}
		if s.GUID == "" {
			if pullRack != "" {
				return fmt.Errorf("rack %s has no PLM identity; push it first", s.Number)
			}
			continue
		}
		ok, err := pullOne(cmd.Context(), env, wb, s, entries, log)
		if err != nil {
			return err
		}
		if ok {
			pulled++
		}
	}

	fmt.Printf("Refreshed %d rack(s)\n", pulled)
	return nil
}

func pullOne(ctx context.Context, env *appEnv, wb workbook.Workbook, s *rack.Sheet, entries map[string]itemcache.Entry, log *history.Log) (bool, error) {
	client, err := env.Client()
	if err != nil {
		return false, err
	}

	remote, err := client.GetBOMLines(ctx, s.GUID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch BOM for %s: %w", s.Number, err)
	}

	if len(remote) == 0 && len(s.Children) == 0 {
		ev := history.NewEvent(s.Number, history.EventRefreshNoChanges)
		ev.Summary = "Remote BOM matches sheet"
		_ = log.Append(ev)
		return false, nil
	}

	if !flagYes {
		ok, err := prompt.Confirm(
			fmt.Sprintf("Overwrite sheet %s with %d remote line(s)?", s.Number, len(remote)), false)
		if err != nil {
			return false, err
		}
		if !ok {
			ev := history.NewEvent(s.Number, history.EventRefreshDeclined)
			ev.Summary = "Refresh declined by user"
			_ = log.Append(ev)
			return false, nil
		}
	}

	s.Children = s.Children[:0]
	for _, line := range bom.FromPLMLines(remote) {
		child := rack.ChildLine{
			Number:   line.ChildNumber,
			Quantity: line.Quantity,
			Revision: line.Revision,
		}
		if entry, ok := entries[rack.NormalizeNumber(line.ChildNumber)]; ok {
			child.Name = entry.Name
			child.Description = entry.Description
			child.Category = entry.Category
		}
		s.Children = append(s.Children, child)
	}

	ws, ok := wb.Sheet(s.SheetName())
	if !ok {
		return false, fmt.Errorf("sheet %s vanished from workbook", s.SheetName())
	}
	rack.Write(ws, s)
	status.MarkSynced(s, "", time.Now())

	ev := history.NewEvent(s.Number, history.EventRefreshAccepted)
	ev.StatusAfter = rack.StatusSynced
	ev.Summary = fmt.Sprintf("Sheet rewritten from PLM (%d lines)", len(remote))
	_ = log.Append(ev)

	ev = history.NewEvent(s.Number, history.EventBOMPull)
	ev.Summary = "Remote BOM pulled"
	_ = log.Append(ev)
	return true, nil
}
