package push

import (
	"context"
	"fmt"
	"strings"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/metrics"
	"github.com/rackworks/bomctl/pkg/plm"
)

// PartialRollbackError reports a rollback that removed some but not all
// created items.
type PartialRollbackError struct {
	Failed []Created
}

func (e *PartialRollbackError) Error() string {
	numbers := make([]string, 0, len(e.Failed))
	for _, c := range e.Failed {
		numbers = append(numbers, c.Number)
	}
	return fmt.Sprintf("rollback incomplete, %d item(s) remain in the PLM: %s",
		len(e.Failed), strings.Join(numbers, ", "))
}

// Rollback deletes everything the creation context recorded, newest
// first, so parents go before the children they reference. A 404 on
// deletion counts as success; the item is already gone. Individual
// failures are collected rather than aborting the sweep.
func Rollback(ctx context.Context, client *plm.Client, trail *CreationContext) error {
	var failed []Created
	for _, created := range trail.Reversed() {
		err := client.DeleteItem(ctx, created.GUID)
		if err != nil && !plm.IsNotFound(err) {
			logger.Error("rollback deletion failed",
				logger.KeyItemNumber, created.Number,
				logger.KeyItemGUID, created.GUID,
				logger.KeyError, err)
			failed = append(failed, created)
			continue
		}
		metrics.IncRollbackDelete()
		logger.Info("rolled back item",
			logger.KeyItemNumber, created.Number, logger.KeyPhase, string(created.Kind))
	}
	if len(failed) > 0 {
		return &PartialRollbackError{Failed: failed}
	}
	return nil
}
