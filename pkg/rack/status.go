package rack

import "strings"

// SyncStatus tracks where a rack sheet stands relative to the PLM.
type SyncStatus string

const (
	// StatusPlaceholder marks a rack that exists only locally.
	StatusPlaceholder SyncStatus = "PLACEHOLDER"
	// StatusSynced marks a rack whose sheet matches the remote BOM.
	StatusSynced SyncStatus = "SYNCED"
	// StatusLocalModified marks a sheet edited since the last sync.
	StatusLocalModified SyncStatus = "LOCAL_MODIFIED"
	// StatusRemoteModified marks a remote BOM that diverged from the sheet.
	StatusRemoteModified SyncStatus = "REMOTE_MODIFIED"
	// StatusError marks a rack whose last operation failed. Transient.
	StatusError SyncStatus = "ERROR"
)

// ParseStatus reads a stored status cell; unknown values read as PLACEHOLDER.
func ParseStatus(s string) SyncStatus {
	switch SyncStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusSynced:
		return StatusSynced
	case StatusLocalModified:
		return StatusLocalModified
	case StatusRemoteModified:
		return StatusRemoteModified
	case StatusError:
		return StatusError
	default:
		return StatusPlaceholder
	}
}

// CanTransition reports whether the status machine permits from → to.
//
//	PLACEHOLDER     ─push─>        SYNCED
//	SYNCED          ─edit─>        LOCAL_MODIFIED
//	SYNCED          ─remote-diff─> REMOTE_MODIFIED
//	LOCAL_MODIFIED  ─push─>        SYNCED
//	REMOTE_MODIFIED ─accept─>      SYNCED
//	REMOTE_MODIFIED ─decline─>     REMOTE_MODIFIED
//	any             ─op-fail─>     ERROR
//	ERROR           ─retry-ok─>    SYNCED
func CanTransition(from, to SyncStatus) bool {
	if to == StatusError {
		return true
	}
	switch from {
	case StatusPlaceholder:
		return to == StatusSynced
	case StatusSynced:
		return to == StatusLocalModified || to == StatusRemoteModified || to == StatusSynced
	case StatusLocalModified:
		return to == StatusSynced
	case StatusRemoteModified:
		return to == StatusSynced || to == StatusRemoteModified
	case StatusError:
		return to == StatusSynced
	default:
		return false
	}
}

// StatusColor returns the indicator background for a status cell.
func StatusColor(s SyncStatus) string {
	switch s {
	case StatusSynced:
		return "#b7e1cd" // green
	case StatusLocalModified:
		return "#fce8b2" // amber
	case StatusRemoteModified:
		return "#fcd8b2" // orange
	case StatusError:
		return "#f4c7c3" // red
	default:
		return "#d9d9d9" // gray, placeholder
	}
}
