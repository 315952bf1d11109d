package push

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/bom"
	"github.com/rackworks/bomctl/pkg/itemcache"
	"github.com/rackworks/bomctl/pkg/metrics"
	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/rack"
	"github.com/rackworks/bomctl/pkg/status"
)

// Options configures one push run.
type Options struct {
	// TopNumber and TopName identify the level-0 item.
	TopNumber string
	TopName   string

	// Category names for each phase's items, matched against the
	// workspace category list. Empty means prompt.
	RackCategory string
	RowCategory  string
	TopCategory  string

	// PositionAttribute is the level-1 BOM line attribute (guid or API
	// name) that carries the comma-separated position labels. Empty
	// disables position annotation.
	PositionAttribute string
}

// Report is the outcome of a push run. Context is populated even on
// failure so callers can inspect what was written.
type Report struct {
	Context      *CreationContext
	RacksPushed  []string
	RowsCreated  int
	TopGUID      string
	RolledBack   bool
	RollbackErr  error
	PreflightRes *PreflightResult
}

// Pipeline executes structured pushes.
type Pipeline struct {
	client   *plm.Client
	cache    *itemcache.Cache
	prompter Prompter
	opts     Options
	now      func() time.Time
}

// NewPipeline builds a push pipeline.
func NewPipeline(client *plm.Client, cache *itemcache.Cache, prompter Prompter, opts Options) *Pipeline {
	if prompter == nil {
		prompter = AcceptAll{}
	}
	return &Pipeline{
		client:   client,
		cache:    cache,
		prompter: prompter,
		opts:     opts,
		now:      time.Now,
	}
}

// Run pushes the grid and its rack sheets: pre-flight, then leaves, rows
// and top in strict order. On an error after the first creation the user
// is offered a rollback; the original error is returned either way.
func (p *Pipeline) Run(ctx context.Context, grid *rack.Grid, sheets []*rack.Sheet) (*Report, error) {
	report := &Report{Context: &CreationContext{}}

	pre, entries, err := p.Preflight(ctx, grid, sheets)
	if err != nil {
		return report, err
	}
	report.PreflightRes = pre
	if !pre.OK() {
		return report, &ValidationError{Result: pre}
	}
	for _, warning := range pre.Warnings {
		ok, err := p.prompter.Confirm(warning + ". Continue?")
		if err != nil {
			return report, err
		}
		if !ok {
			return report, plm.ErrUserCancelled
		}
	}

	categories, err := p.resolveCategories(ctx)
	if err != nil {
		return report, err
	}

	if err := p.pushRacks(ctx, grid, sheets, entries, categories, report); err != nil {
		return report, p.offerRollback(ctx, report, err)
	}
	if err := p.pushRows(ctx, grid, sheets, entries, categories, report); err != nil {
		return report, p.offerRollback(ctx, report, err)
	}
	if err := p.pushTop(ctx, grid, categories, report); err != nil {
		return report, p.offerRollback(ctx, report, err)
	}

	now := p.now()
	for _, s := range sheets {
		if containsNumber(report.RacksPushed, s.Number) {
			status.MarkSynced(s, "", now)
		}
	}

	logger.Info("push complete",
		"racks", len(report.RacksPushed),
		"rows", report.RowsCreated,
		logger.KeyItemNumber, p.opts.TopNumber)
	return report, nil
}

// phaseCategories holds the resolved category per phase.
type phaseCategories struct {
	rack plm.Category
	row  plm.Category
	top  plm.Category
}

// resolveCategories matches configured category names against the
// workspace, prompting for any phase left unconfigured. Cancelling any
// selection aborts before the first write.
func (p *Pipeline) resolveCategories(ctx context.Context) (phaseCategories, error) {
	available, err := p.client.GetCategories(ctx)
	if err != nil {
		return phaseCategories{}, fmt.Errorf("failed to list categories: %w", err)
	}

	pick := func(kind, configured string) (plm.Category, error) {
		if configured != "" {
			for _, c := range available {
				if strings.EqualFold(c.Name, configured) {
					return c, nil
				}
			}
			return plm.Category{}, fmt.Errorf("category %q not found in workspace", configured)
		}
		return p.prompter.SelectCategory(kind, available)
	}

	var cats phaseCategories
	if cats.rack, err = pick("rack", p.opts.RackCategory); err != nil {
		return cats, err
	}
	if cats.row, err = pick("row", p.opts.RowCategory); err != nil {
		return cats, err
	}
	if cats.top, err = pick("top", p.opts.TopCategory); err != nil {
		return cats, err
	}
	return cats, nil
}

// pushRacks creates or syncs every rack needing it: PLACEHOLDER racks and
// racks with local BOM drift.
func (p *Pipeline) pushRacks(ctx context.Context, grid *rack.Grid, sheets []*rack.Sheet, entries map[string]itemcache.Entry, cats phaseCategories, report *Report) error {
	placed := grid.Counts()

	for _, s := range sheets {
		if placed[rack.NormalizeNumber(s.Number)] == 0 {
			continue
		}
		if s.Status != rack.StatusPlaceholder && s.Status != rack.StatusLocalModified {
			continue
		}

		guid := s.GUID
		if guid == "" {
			if entry, ok := entries[rack.NormalizeNumber(s.Number)]; ok {
				// The number already exists in the PLM; adopt it
				// rather than colliding on creation.
				guid = entry.GUID
				logger.Info("adopting existing item",
					logger.KeyItemNumber, s.Number, logger.KeyItemGUID, guid)
			} else {
				name, err := p.prompter.ItemName(s.Number, s.Name)
				if err != nil {
					return err
				}
				item, err := p.client.CreateItem(ctx, plm.ItemRecord{
					Number:       s.Number,
					Name:         name,
					Description:  s.Description,
					CategoryGUID: cats.rack.GUID,
				})
				if err != nil {
					return fmt.Errorf("failed to create rack %s: %w", s.Number, err)
				}
				guid = item.GUID
				report.Context.Append(KindLeaf, s.Number, guid)
				metrics.IncItemCreated()
				_ = p.cache.Add(*item)
			}
			s.SetGUID(guid)
		}

		if err := p.syncRackBOM(ctx, s, guid, entries); err != nil {
			return err
		}
		report.RacksPushed = append(report.RacksPushed, s.Number)
	}
	return nil
}

// syncRackBOM diffs the sheet's children against the remote BOM and
// applies the minimal writes. Child identity resolution is mandatory; a
// line is never submitted without a resolved child id.
func (p *Pipeline) syncRackBOM(ctx context.Context, s *rack.Sheet, guid string, entries map[string]itemcache.Entry) error {
	local := make([]bom.Line, 0, len(s.Children))
	for _, child := range s.Children {
		number := rack.NormalizeNumber(child.Number)
		entry, ok := entries[number]
		if !ok {
			return fmt.Errorf("child component %s not found in PLM, needed for rack %s", number, s.Number)
		}
		local = append(local, bom.Line{
			ChildGUID:   entry.GUID,
			ChildNumber: number,
			Quantity:    child.Quantity,
		})
	}

	remote, err := p.client.GetBOMLines(ctx, guid)
	if err != nil {
		return fmt.Errorf("failed to fetch BOM for %s: %w", s.Number, err)
	}

	diff := bom.Compute(local, bom.FromPLMLines(remote))
	if diff.Empty() {
		return nil
	}
	if _, err := bom.Apply(ctx, p.client, guid, diff); err != nil {
		return fmt.Errorf("failed to sync BOM for %s: %w", s.Number, err)
	}
	return nil
}

// pushRows creates one level-1 item per populated grid row, with one BOM
// line per distinct rack in the row. Position labels aggregate onto the
// configured line attribute as a comma-separated list.
func (p *Pipeline) pushRows(ctx context.Context, grid *rack.Grid, sheets []*rack.Sheet, entries map[string]itemcache.Entry, cats phaseCategories, report *Report) error {
	guidByNumber := func(number string) string {
		number = rack.NormalizeNumber(number)
		for _, s := range sheets {
			if rack.NormalizeNumber(s.Number) == number && s.GUID != "" {
				return s.GUID
			}
		}
		if entry, ok := entries[number]; ok {
			return entry.GUID
		}
		return ""
	}

	for i := range grid.Rows {
		row := &grid.Rows[i]
		if len(row.Placements) == 0 {
			continue
		}

		rowNumber := rowItemNumber(p.opts.TopNumber, row)
		name, err := p.prompter.ItemName(rowNumber, row.Name)
		if err != nil {
			return err
		}
		item, err := p.client.CreateItem(ctx, plm.ItemRecord{
			Number:       rowNumber,
			Name:         name,
			CategoryGUID: cats.row.GUID,
		})
		if err != nil {
			return fmt.Errorf("failed to create row item %s: %w", rowNumber, err)
		}
		report.Context.Append(KindRow, rowNumber, item.GUID)
		metrics.IncItemCreated()
		row.GUID = item.GUID
		grid.SetRowGUID(row.Index, item.GUID)
		report.RowsCreated++

		for _, group := range grid.Groups(*row) {
			childGUID := guidByNumber(group.Rack)
			if childGUID == "" {
				return fmt.Errorf("rack %s has no resolved identifier for row %s", group.Rack, row.Name)
			}
			var attrs map[string]string
			if p.opts.PositionAttribute != "" {
				attrs = map[string]string{
					p.opts.PositionAttribute: strings.Join(group.Positions, ", "),
				}
			}
			if _, err := p.client.AddBOMLine(ctx, item.GUID, childGUID, group.Count, attrs); err != nil {
				return fmt.Errorf("failed to add %s to row %s: %w", group.Rack, row.Name, err)
			}
			metrics.IncLineWritten()
		}
	}
	return nil
}

// pushTop creates the level-0 item over all created rows.
func (p *Pipeline) pushTop(ctx context.Context, grid *rack.Grid, cats phaseCategories, report *Report) error {
	name, err := p.prompter.ItemName(p.opts.TopNumber, p.opts.TopName)
	if err != nil {
		return err
	}
	item, err := p.client.CreateItem(ctx, plm.ItemRecord{
		Number:       p.opts.TopNumber,
		Name:         name,
		CategoryGUID: cats.top.GUID,
	})
	if err != nil {
		return fmt.Errorf("failed to create top item %s: %w", p.opts.TopNumber, err)
	}
	report.Context.Append(KindTop, p.opts.TopNumber, item.GUID)
	metrics.IncItemCreated()
	report.TopGUID = item.GUID

	for _, row := range grid.Rows {
		if row.GUID == "" {
			continue
		}
		if _, err := p.client.AddBOMLine(ctx, item.GUID, row.GUID, 1, nil); err != nil {
			return fmt.Errorf("failed to add row %s to top: %w", row.Name, err)
		}
		metrics.IncLineWritten()
	}
	return nil
}

// offerRollback presents the rollback prompt once something was created.
// The original push error is always returned; rollback outcome rides on
// the report.
func (p *Pipeline) offerRollback(ctx context.Context, report *Report, pushErr error) error {
	if report.Context.Len() == 0 {
		return pushErr
	}

	question := fmt.Sprintf("Push failed after creating %d item(s): %v. Roll back?",
		report.Context.Len(), pushErr)
	ok, err := p.prompter.Confirm(question)
	if err != nil || !ok {
		logger.Warn("rollback declined, created items remain",
			logger.KeyCreated, report.Context.Len())
		return pushErr
	}

	report.RolledBack = true
	report.RollbackErr = Rollback(ctx, p.client, report.Context)
	return pushErr
}

// rowItemNumber derives the level-1 item number from the top number and
// the row label.
func rowItemNumber(topNumber string, row *rack.GridRow) string {
	label := strings.ReplaceAll(rack.NormalizeNumber(row.Name), " ", "-")
	if label == "" {
		label = fmt.Sprintf("ROW-%d", row.Index)
	}
	if topNumber == "" {
		return label
	}
	return topNumber + "-" + label
}

func containsNumber(numbers []string, number string) bool {
	for _, n := range numbers {
		if n == number {
			return true
		}
	}
	return false
}
