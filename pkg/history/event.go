// Package history maintains the protected change-history sheet: one
// summary row per rack plus an append-only event log.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/rackworks/bomctl/pkg/rack"
)

// EventKind classifies a history event.
type EventKind string

const (
	EventRackCreated      EventKind = "RACK_CREATED"
	EventStatusChange     EventKind = "STATUS_CHANGE"
	EventLocalEdit        EventKind = "LOCAL_EDIT"
	EventRefreshAccepted  EventKind = "REFRESH_ACCEPTED"
	EventRefreshDeclined  EventKind = "REFRESH_DECLINED"
	EventRefreshNoChanges EventKind = "REFRESH_NO_CHANGES"
	EventTopPush          EventKind = "TOP_PUSH"
	EventBOMPull          EventKind = "BOM_PULL"
	EventManualSync       EventKind = "MANUAL_SYNC"
	EventBatchCheck       EventKind = "BATCH_CHECK"
	EventError            EventKind = "ERROR"
	EventChecksumMismatch EventKind = "CHECKSUM_MISMATCH"
	EventMigration        EventKind = "MIGRATION"
	EventRevisionChange   EventKind = "REVISION_CHANGE"
	EventLifecycleChange  EventKind = "LIFECYCLE_CHANGE"
	EventRackCloned       EventKind = "RACK_CLONED"
	EventTemplateLoaded   EventKind = "TEMPLATE_LOADED"
)

// Event is one append-only history record.
type Event struct {
	ID           string
	Timestamp    time.Time
	Rack         string
	Kind         EventKind
	Actor        string
	StatusBefore rack.SyncStatus
	StatusAfter  rack.SyncStatus
	Summary      string
	Details      string
	Link         string
}

// NewEvent stamps a fresh event with id and time.
func NewEvent(rackNumber string, kind EventKind) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Rack:      rackNumber,
		Kind:      kind,
	}
}

// SummaryRow is one rack's line in the summary section.
type SummaryRow struct {
	Number      string
	Name        string
	Status      rack.SyncStatus
	GUID        string
	CreatedAt   time.Time
	LastRefresh time.Time
	LastSync    time.Time
	LastPush    time.Time
	Checksum    string
}
