package history

import (
	"time"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/rack"
)

// VerifyReport lists the two integrity defects the summary section can
// develop: rack sheets without a summary row, and summary rows whose rack
// sheet is gone.
type VerifyReport struct {
	MissingRacks []string // rack sheets with no summary row
	OrphanRows   []string // summary rows with no rack sheet
}

// Clean reports an intact summary section.
func (r *VerifyReport) Clean() bool {
	return len(r.MissingRacks) == 0 && len(r.OrphanRows) == 0
}

// Verify cross-checks the summary section against the rack sheets.
func (l *Log) Verify(sheets []*rack.Sheet) *VerifyReport {
	byNumber := make(map[string]*rack.Sheet, len(sheets))
	for _, s := range sheets {
		byNumber[rack.NormalizeNumber(s.Number)] = s
	}

	summarized := map[string]bool{}
	report := &VerifyReport{}

	for _, row := range l.Summaries() {
		number := rack.NormalizeNumber(row.Number)
		summarized[number] = true
		if _, ok := byNumber[number]; !ok {
			report.OrphanRows = append(report.OrphanRows, row.Number)
		}
	}
	for _, s := range sheets {
		if !summarized[rack.NormalizeNumber(s.Number)] {
			report.MissingRacks = append(report.MissingRacks, s.Number)
		}
	}
	return report
}

// Repair reconciles both sides: adds summary rows for unrepresented
// racks and drops orphans. Returns the pre-repair report.
func (l *Log) Repair(sheets []*rack.Sheet) (*VerifyReport, error) {
	report := l.Verify(sheets)
	if report.Clean() {
		return report, nil
	}

	byNumber := make(map[string]*rack.Sheet, len(sheets))
	for _, s := range sheets {
		byNumber[rack.NormalizeNumber(s.Number)] = s
	}

	for _, orphan := range report.OrphanRows {
		l.mu.Lock()
		l.removeSummary(orphan)
		l.mu.Unlock()
		logger.Info("removed orphan summary row", logger.KeyRack, orphan)
	}

	now := time.Now()
	for _, number := range report.MissingRacks {
		s := byNumber[rack.NormalizeNumber(number)]
		err := l.UpdateSummary(SummaryRow{
			Number:    s.Number,
			Name:      s.Name,
			Status:    s.Status,
			GUID:      s.GUID,
			CreatedAt: now,
			Checksum:  s.Checksum,
		})
		if err != nil {
			return report, err
		}
		ev := NewEvent(s.Number, EventMigration)
		ev.StatusAfter = s.Status
		ev.Summary = "Summary row reconstructed by repair"
		if err := l.Append(ev); err != nil {
			return report, err
		}
		logger.Info("reconstructed summary row", logger.KeyRack, s.Number)
	}
	return report, nil
}
