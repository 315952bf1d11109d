package plm

import (
	"context"
)

// GetWorkspace probes the workspace settings endpoint. Pre-flight uses it
// as a cheap session reachability check.
func (c *Client) GetWorkspace(ctx context.Context) (*Workspace, error) {
	var raw map[string]any
	if err := c.get(ctx, "/settings/workspace", nil, &raw); err != nil {
		return nil, err
	}
	var ws Workspace
	if err := decodeInto(raw, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// GetCategories lists the workspace item categories.
func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	var raw map[string]any
	if err := c.get(ctx, "/settings/categories", nil, &raw); err != nil {
		return nil, err
	}
	return decodeResults[Category](raw)
}

// GetItemAttributeSettings lists the workspace item attribute definitions.
// The push pipeline resolves the configured position attribute here.
func (c *Client) GetItemAttributeSettings(ctx context.Context) ([]AttributeSetting, error) {
	var raw map[string]any
	if err := c.get(ctx, "/settings/items/attributes", nil, &raw); err != nil {
		return nil, err
	}
	return decodeResults[AttributeSetting](raw)
}

// GetLifecyclePhases lists the workspace lifecycle phases.
func (c *Client) GetLifecyclePhases(ctx context.Context) ([]LifecyclePhase, error) {
	var raw map[string]any
	if err := c.get(ctx, "/settings/items/lifecyclephases", nil, &raw); err != nil {
		return nil, err
	}
	return decodeResults[LifecyclePhase](raw)
}
