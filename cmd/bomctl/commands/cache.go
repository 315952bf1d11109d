package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rackworks/bomctl/internal/cli/output"
	"github.com/rackworks/bomctl/internal/cli/prompt"
	"github.com/rackworks/bomctl/pkg/itemcache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local item cache",
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the cache from the full workspace item list",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		cache, err := env.Cache()
		if err != nil {
			return err
		}
		entries, err := cache.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Cached %d item(s)\n", len(entries))
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache contents and manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		// Offline: reads never need a client.
		cache := itemcache.New(env.store, nil).WithTTL(env.cfg.Cache.TTL)
		printer, err := env.Printer()
		if err != nil {
			return err
		}

		shards, count, savedAt, ok := cache.Manifest()
		if !ok {
			printer.Println("Cache is empty")
			return nil
		}
		printer.Printf("Shards: %d, entries: %d, saved: %s\n\n",
			shards, count, savedAt.Format("2006-01-02 15:04:05"))

		entries, ok := cache.Load()
		if !ok {
			printer.Println("Cache is stale; run 'bomctl cache refresh'")
			return nil
		}

		numbers := make([]string, 0, len(entries))
		for number := range entries {
			numbers = append(numbers, number)
		}
		sort.Strings(numbers)

		table := output.NewTableData("Number", "Name", "Revision", "Category", "Assembly")
		for _, number := range numbers {
			e := entries[number]
			assembly := ""
			if e.Assembly {
				assembly = "yes"
			}
			table.AddRow(e.Number, e.Name, e.Revision, e.Category, assembly)
		}
		return printer.Print(table)
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop the cache; the next lookup refreshes it",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		if !flagYes {
			ok, err := prompt.Confirm("Drop the item cache?", false)
			if err != nil || !ok {
				return err
			}
		}

		if err := itemcache.New(env.store, nil).Invalidate(); err != nil {
			return err
		}
		fmt.Println("Cache invalidated")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheRefreshCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
}
