package commands

import (
	"errors"
	"fmt"

	"github.com/rackworks/bomctl/internal/cli/prompt"
	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/push"
)

// cliPrompter binds the push pipeline's confirmation surface to the
// interactive terminal prompts.
type cliPrompter struct{}

func (cliPrompter) Confirm(question string) (bool, error) {
	ok, err := prompt.Confirm(question, false)
	if errors.Is(err, prompt.ErrAborted) {
		return false, plm.ErrUserCancelled
	}
	return ok, err
}

func (cliPrompter) SelectCategory(kind string, categories []plm.Category) (plm.Category, error) {
	options := make([]prompt.SelectOption, 0, len(categories))
	for _, c := range categories {
		options = append(options, prompt.SelectOption{Label: c.Name, Value: c.GUID})
	}
	guid, err := prompt.Select(fmt.Sprintf("Category for %s items", kind), options)
	if err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			return plm.Category{}, plm.ErrUserCancelled
		}
		return plm.Category{}, err
	}
	for _, c := range categories {
		if c.GUID == guid {
			return c, nil
		}
	}
	return plm.Category{}, fmt.Errorf("category %s not in list", guid)
}

func (cliPrompter) ItemName(number, fallback string) (string, error) {
	name, err := prompt.Input(fmt.Sprintf("Name for %s", number), fallback)
	if errors.Is(err, prompt.ErrAborted) {
		return "", plm.ErrUserCancelled
	}
	return name, err
}

// prompter returns the pipeline prompter honoring --yes.
func prompter() push.Prompter {
	if flagYes {
		return push.AcceptAll{}
	}
	return cliPrompter{}
}
