// Package status detects local and remote drift of rack sheets against
// the PLM and keeps sheet statuses honest.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/bom"
	"github.com/rackworks/bomctl/pkg/itemcache"
	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/rack"
	"github.com/rackworks/bomctl/pkg/workbook"
)

// ChecksumOf serializes a rack sheet's data rows into the stored checksum
// form.
func ChecksumOf(s *rack.Sheet) string {
	entries := make([]bom.ChecksumEntry, 0, len(s.Children))
	for _, c := range s.Children {
		entries = append(entries, bom.ChecksumEntry{
			Number:   c.Number,
			Quantity: c.Quantity,
			Revision: c.Revision,
		})
	}
	return bom.Checksum(entries)
}

// RackResult is the outcome of one rack's status check.
type RackResult struct {
	Number   string
	Previous rack.SyncStatus
	Current  rack.SyncStatus
	Diff     bom.Diff
	Drift    string // parent revision drift, display only
	Err      error
}

// Checker runs batch status checks.
type Checker struct {
	client *plm.Client
	cache  *itemcache.Cache
}

// NewChecker creates a status checker.
func NewChecker(client *plm.Client, cache *itemcache.Cache) *Checker {
	return &Checker{client: client, cache: cache}
}

// Check classifies every rack sheet against its remote BOM and writes the
// resulting status back to the sheet.
//
// Rules per rack with a parent id:
//   - empty diff: SYNCED
//   - diff and local checksum matches the stored one: REMOTE_MODIFIED
//   - diff and local checksum differs: LOCAL_MODIFIED
//
// PLACEHOLDER racks skip the remote comparison; their status cell is
// rewritten so the indicator color stays visible. A fetch failure marks
// the one rack ERROR and the check continues.
func (c *Checker) Check(ctx context.Context, sheets []*rack.Sheet) []RackResult {
	// One cache warm-up for the whole batch; local child numbers resolve
	// to identities so the diff keys line up with the remote side.
	entries, err := c.cache.Prewarm(ctx)
	if err != nil {
		logger.Warn("item cache unavailable, diffing without identities",
			logger.KeyError, err)
		entries = nil
	}

	results := make([]RackResult, 0, len(sheets))
	for _, s := range sheets {
		results = append(results, c.checkOne(ctx, s, entries))
	}
	return results
}

func (c *Checker) checkOne(ctx context.Context, s *rack.Sheet, entries map[string]itemcache.Entry) RackResult {
	res := RackResult{Number: s.Number, Previous: s.Status}

	if s.GUID == "" {
		res.Current = rack.StatusPlaceholder
		s.SetStatus(rack.StatusPlaceholder)
		return res
	}

	remote, err := c.client.GetBOMLines(ctx, s.GUID)
	if err != nil {
		logger.Error("status check failed",
			logger.KeyRack, s.Number, logger.KeyError, err)
		res.Err = fmt.Errorf("failed to fetch BOM for %s: %w", s.Number, err)
		res.Current = rack.StatusError
		s.SetStatus(rack.StatusError)
		return res
	}

	local := localLines(s, entries)
	res.Diff = bom.Compute(local, bom.FromPLMLines(remote))

	switch {
	case res.Diff.Empty():
		res.Current = rack.StatusSynced
	case ChecksumOf(s) == s.Checksum:
		res.Current = rack.StatusRemoteModified
	default:
		res.Current = rack.StatusLocalModified
	}

	if rack.CanTransition(s.Status, res.Current) && s.Status != res.Current {
		s.SetStatus(res.Current)
	}
	return res
}

// localLines projects a sheet's children onto diff lines, resolving each
// number to its identity through the cache entries. A child absent from
// the cache keeps an empty id and shows up as an addition.
func localLines(s *rack.Sheet, entries map[string]itemcache.Entry) []bom.Line {
	lines := make([]bom.Line, 0, len(s.Children))
	for _, c := range s.Children {
		number := rack.NormalizeNumber(c.Number)
		line := bom.Line{
			ChildNumber: number,
			Quantity:    c.Quantity,
			Revision:    c.Revision,
		}
		if entry, ok := entries[number]; ok {
			line.ChildGUID = entry.GUID
		}
		lines = append(lines, line)
	}
	return lines
}

// MarkSynced records a successful push or accept on the sheet: status,
// fresh checksum and timestamp.
func MarkSynced(s *rack.Sheet, guid string, now time.Time) {
	if guid != "" {
		s.SetGUID(guid)
	}
	s.SetChecksum(ChecksumOf(s))
	s.SetLastSync(now)
	s.SetStatus(rack.StatusSynced)
}

// WatchEdits installs the edit hook: a data-row edit on a SYNCED rack
// sheet whose checksum actually changed flips it to LOCAL_MODIFIED.
func WatchEdits(wb workbook.Workbook) {
	wb.OnEdit(func(ev workbook.EditEvent) {
		if ev.Row < rack.DataStartRow {
			return
		}
		ws, ok := wb.Sheet(ev.Sheet)
		if !ok || !rack.IsRackSheet(ws) {
			return
		}
		s, err := rack.Load(ws)
		if err != nil {
			return
		}
		if s.Status != rack.StatusSynced {
			return
		}
		if ChecksumOf(s) == s.Checksum {
			return
		}
		logger.Debug("local edit detected",
			logger.KeyRack, s.Number, logger.KeySheet, ev.Sheet)
		s.SetStatus(rack.StatusLocalModified)
	})
}
