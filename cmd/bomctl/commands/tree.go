package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rackworks/bomctl/pkg/loader"
	"github.com/rackworks/bomctl/pkg/rack"
)

var (
	treeRack   string
	treeExport bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print a rack's multi-level BOM from the PLM",
	Long: `Walk the remote BOM under a rack level by level and print the tree.
With --export the bulk-export fast path is tried first, falling back to
the level walk on failure.`,
	RunE: runTree,
}

func init() {
	treeCmd.Flags().StringVar(&treeRack, "rack", "", "Rack number (required)")
	treeCmd.Flags().BoolVar(&treeExport, "export", false, "Prefer the bulk-export fast path")
	_ = treeCmd.MarkFlagRequired("rack")
}

func runTree(cmd *cobra.Command, args []string) error {
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

	var guid string
	for _, s := range sheets {
		if rack.NormalizeNumber(s.Number) == rack.NormalizeNumber(treeRack) {
			guid = s.GUID
			break
		}
	}
	if guid == "" {
		return fmt.Errorf("rack %s has no PLM identity; push it first", treeRack)
	}

	client, err := env.Client()
	if err != nil {
		return err
	}

	l := loader.New(client, env.store)
	var tree *loader.Tree
	if treeExport {
		tree, err = l.LoadTreeExport(cmd.Context(), treeRack, guid)
	} else {
		tree, err = l.LoadTree(cmd.Context(), guid)
	}
	if err != nil {
		return err
	}

	tree.Walk(func(n *loader.Node) {
		fmt.Printf("%s%s x%d", strings.Repeat("  ", n.Level), n.Number, n.Quantity)
		if n.Revision != "" {
			fmt.Printf(" (rev %s)", n.Revision)
		}
		fmt.Println()
	})
	fmt.Printf("\n%d node(s)\n", tree.Count)
	return nil
}
