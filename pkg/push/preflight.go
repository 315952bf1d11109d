package push

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/itemcache"
	"github.com/rackworks/bomctl/pkg/rack"
)

// PreflightResult is the outcome of pre-flight validation. Any error
// blocks the push before a single write; warnings require confirmation.
type PreflightResult struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the push may proceed (possibly after confirming
// warnings).
func (r *PreflightResult) OK() bool {
	return len(r.Errors) == 0
}

// Preflight validates everything the push needs, with zero side effects
// on the PLM. The returned cache entries are the warm-up for the creation
// phases, so the pipeline never warms twice.
func (p *Pipeline) Preflight(ctx context.Context, grid *rack.Grid, sheets []*rack.Sheet) (*PreflightResult, map[string]itemcache.Entry, error) {
	result := &PreflightResult{}

	// Session reachable: a cheap metadata probe that also verifies the
	// workspace binding.
	if _, err := p.client.GetWorkspace(ctx); err != nil {
		return nil, nil, fmt.Errorf("session probe failed: %w", err)
	}

	if len(grid.Positions) == 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Grid sheet %q has no position headers", grid.SheetName))
	}

	if p.opts.PositionAttribute != "" {
		if err := p.checkPositionAttribute(ctx, result); err != nil {
			return nil, nil, err
		}
	}

	byNumber := make(map[string]*rack.Sheet, len(sheets))
	for _, s := range sheets {
		byNumber[rack.NormalizeNumber(s.Number)] = s
	}

	// Every placement must resolve to a configuration sheet.
	missing := map[string]bool{}
	for _, row := range grid.Rows {
		for _, placement := range row.Placements {
			number := rack.NormalizeNumber(placement.Rack)
			if _, ok := byNumber[number]; !ok && !missing[number] {
				missing[number] = true
				result.Errors = append(result.Errors,
					fmt.Sprintf("Grid places rack %s but no configuration sheet defines it", number))
			}
		}
	}

	entries, err := p.cache.Prewarm(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to warm item cache: %w", err)
	}

	if msg := missingChildren(sheets, entries); msg != "" {
		result.Errors = append(result.Errors, msg)
	}

	logger.Debug("pre-flight finished",
		"errors", len(result.Errors), "warnings", len(result.Warnings))
	return result, entries, nil
}

// checkPositionAttribute verifies the configured level-1 position
// attribute exists server-side. A mismatch is a warning the user
// confirms, not a hard stop.
func (p *Pipeline) checkPositionAttribute(ctx context.Context, result *PreflightResult) error {
	settings, err := p.client.GetItemAttributeSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to list item attributes: %w", err)
	}
	for _, setting := range settings {
		if setting.GUID == p.opts.PositionAttribute || setting.APIName == p.opts.PositionAttribute {
			return nil
		}
	}
	result.Warnings = append(result.Warnings,
		fmt.Sprintf("Configured position attribute %q not found on the server; position labels will be skipped", p.opts.PositionAttribute))
	return nil
}

// missingChildren reports children referenced by rack sheets that the PLM
// does not know, as one message of the form:
//
//	Missing child components: B (needed by: NEW-1), C (needed by: RK-1, RK-2)
func missingChildren(sheets []*rack.Sheet, entries map[string]itemcache.Entry) string {
	neededBy := map[string][]string{}
	for _, s := range sheets {
		for _, child := range s.Children {
			number := rack.NormalizeNumber(child.Number)
			if number == "" {
				continue
			}
			if _, ok := entries[number]; ok {
				continue
			}
			neededBy[number] = append(neededBy[number], s.Number)
		}
	}
	if len(neededBy) == 0 {
		return ""
	}

	numbers := make([]string, 0, len(neededBy))
	for number := range neededBy {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)

	parts := make([]string, 0, len(numbers))
	for _, number := range numbers {
		parts = append(parts, fmt.Sprintf("%s (needed by: %s)",
			number, strings.Join(neededBy[number], ", ")))
	}
	return "Missing child components: " + strings.Join(parts, ", ")
}

// ValidationError carries the pre-flight error list as one error value.
type ValidationError struct {
	Result *PreflightResult
}

func (e *ValidationError) Error() string {
	return "pre-flight validation failed: " + strings.Join(e.Result.Errors, "; ")
}
