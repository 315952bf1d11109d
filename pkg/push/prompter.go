// Package push implements the three-phase structured push: rack leaves,
// then grid rows, then the top item, with pre-flight validation before
// any write and reverse-order rollback after a mid-push failure.
package push

import "github.com/rackworks/bomctl/pkg/plm"

// Prompter is the user-confirmation surface the pipeline blocks on. The
// CLI binds it to interactive prompts; tests supply a scripted one.
type Prompter interface {
	// Confirm asks a yes/no question. A declined confirmation is not an
	// error; (false, nil) is returned.
	Confirm(question string) (bool, error)

	// SelectCategory picks the category for a kind of item ("rack",
	// "row", "top"). Cancelling aborts the push before any write.
	SelectCategory(kind string, categories []plm.Category) (plm.Category, error)

	// ItemName supplies the display name for a new item, offering the
	// given default.
	ItemName(number, fallback string) (string, error)
}

// AcceptAll is a non-interactive Prompter that confirms everything, picks
// the first category and keeps default names. Used by --yes runs and
// tests.
type AcceptAll struct{}

func (AcceptAll) Confirm(string) (bool, error) { return true, nil }

func (AcceptAll) SelectCategory(kind string, categories []plm.Category) (plm.Category, error) {
	if len(categories) == 0 {
		return plm.Category{}, plm.ErrUserCancelled
	}
	return categories[0], nil
}

func (AcceptAll) ItemName(number, fallback string) (string, error) {
	if fallback != "" {
		return fallback, nil
	}
	return number, nil
}
