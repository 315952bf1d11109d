package bom

import (
	"context"
	"errors"
	"fmt"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/metrics"
	"github.com/rackworks/bomctl/pkg/plm"
)

// SyncResult counts the writes smart sync issued.
type SyncResult struct {
	Added   int
	Updated int
	Removed int
}

// NoOp reports that the sync issued zero writes.
func (r SyncResult) NoOp() bool {
	return r.Added == 0 && r.Updated == 0 && r.Removed == 0
}

// Apply executes a diff against the parent's remote BOM with minimal
// writes, preserving server line identities for unchanged children.
// Order is strict: deletes, then updates, then adds.
//
// A PUT rejected with 405 falls back to DELETE+POST for that line; some
// server versions do not accept line updates.
func Apply(ctx context.Context, client *plm.Client, parentGUID string, d Diff) (SyncResult, error) {
	var result SyncResult

	for _, line := range d.ToRemove {
		if err := client.DeleteBOMLine(ctx, parentGUID, line.LineGUID); err != nil {
			return result, fmt.Errorf("failed to remove line %s (%s): %w", line.LineGUID, line.ChildNumber, err)
		}
		result.Removed++
	}

	for _, change := range d.ToUpdate {
		err := client.UpdateBOMLine(ctx, parentGUID, change.Remote.LineGUID, change.NewQty)
		if err != nil {
			var apiErr *plm.APIError
			if !errors.As(err, &apiErr) || !apiErr.IsMethodNotAllowed() {
				return result, fmt.Errorf("failed to update line %s (%s): %w", change.Remote.LineGUID, change.Remote.ChildNumber, err)
			}
			logger.Warn("line update rejected, recreating line",
				logger.KeyLineGUID, change.Remote.LineGUID,
				logger.KeyItemNumber, change.Remote.ChildNumber)
			if err := client.DeleteBOMLine(ctx, parentGUID, change.Remote.LineGUID); err != nil {
				return result, fmt.Errorf("failed to recreate line %s: %w", change.Remote.LineGUID, err)
			}
			if _, err := client.AddBOMLine(ctx, parentGUID, change.Remote.ChildGUID, change.NewQty, change.Remote.Attributes); err != nil {
				return result, fmt.Errorf("failed to recreate line for %s: %w", change.Remote.ChildNumber, err)
			}
		}
		metrics.IncLineWritten()
		result.Updated++
	}

	for _, line := range d.ToAdd {
		if line.ChildGUID == "" {
			return result, fmt.Errorf("child %s has no resolved identifier", line.ChildNumber)
		}
		if _, err := client.AddBOMLine(ctx, parentGUID, line.ChildGUID, line.Quantity, line.Attributes); err != nil {
			return result, fmt.Errorf("failed to add line for %s: %w", line.ChildNumber, err)
		}
		metrics.IncLineWritten()
		result.Added++
	}

	return result, nil
}
