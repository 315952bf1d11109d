package plm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// wireBOMLine is the raw BOM line shape after normalization.
type wireBOMLine struct {
	GUID       string `json:"guid"`
	Quantity   any    `json:"quantity"`
	Level      int    `json:"level"`
	LineNumber int    `json:"lineNumber"`
	Item       struct {
		GUID      string `json:"guid"`
		Number    string `json:"number"`
		Revision  string `json:"revisionNumber"`
		Lifecycle struct {
			Name string `json:"name"`
		} `json:"lifecyclePhase"`
	} `json:"item"`
	AdditionalAttributes []struct {
		GUID  string `json:"guid"`
		Value string `json:"value"`
	} `json:"additionalAttributes"`
}

func (w wireBOMLine) toLine() BOMLine {
	line := BOMLine{
		GUID:       w.GUID,
		ItemGUID:   w.Item.GUID,
		ItemNumber: w.Item.Number,
		Quantity:   asInt(w.Quantity),
		Level:      w.Level,
		LineNumber: w.LineNumber,
		Revision:   w.Item.Revision,
		Lifecycle:  w.Item.Lifecycle.Name,
	}
	if len(w.AdditionalAttributes) > 0 {
		line.Attributes = make(map[string]string, len(w.AdditionalAttributes))
		for _, attr := range w.AdditionalAttributes {
			line.Attributes[attr.GUID] = attr.Value
		}
	}
	return line
}

// asInt tolerates quantity arriving as JSON number or string.
func asInt(v any) int {
	switch q := v.(type) {
	case float64:
		return int(q)
	case string:
		var n int
		_, _ = fmt.Sscanf(strings.TrimSpace(q), "%d", &n)
		return n
	default:
		return 0
	}
}

// GetBOMLines fetches the direct BOM of a parent item.
func (c *Client) GetBOMLines(ctx context.Context, parentGUID string) ([]BOMLine, error) {
	if strings.TrimSpace(parentGUID) == "" {
		return nil, fmt.Errorf("parent identifier is empty")
	}

	var raw map[string]any
	if err := c.get(ctx, "/items/"+url.PathEscape(parentGUID)+"/bom", nil, &raw); err != nil {
		return nil, err
	}

	wires, err := decodeResults[wireBOMLine](raw)
	if err != nil {
		return nil, err
	}
	lines := make([]BOMLine, 0, len(wires))
	for _, w := range wires {
		lines = append(lines, w.toLine())
	}
	return lines, nil
}

// bomLineBody builds the write payload for a BOM line.
func bomLineBody(childGUID string, quantity int, attributes map[string]string) map[string]any {
	body := map[string]any{
		"item":     map[string]string{"guid": childGUID},
		"quantity": quantity,
	}
	if len(attributes) > 0 {
		attrs := make([]map[string]string, 0, len(attributes))
		for guid, value := range attributes {
			attrs = append(attrs, map[string]string{"guid": guid, "value": value})
		}
		body["additionalAttributes"] = attrs
	}
	return body
}

// AddBOMLine creates a new line under the parent and returns it.
func (c *Client) AddBOMLine(ctx context.Context, parentGUID, childGUID string, quantity int, attributes map[string]string) (*BOMLine, error) {
	if strings.TrimSpace(childGUID) == "" {
		return nil, fmt.Errorf("child identifier is empty")
	}

	var raw map[string]any
	path := "/items/" + url.PathEscape(parentGUID) + "/bom"
	if err := c.post(ctx, path, bomLineBody(childGUID, quantity, attributes), &raw); err != nil {
		return nil, err
	}
	var wire wireBOMLine
	if err := decodeInto(raw, &wire); err != nil {
		return nil, err
	}
	line := wire.toLine()
	return &line, nil
}

// UpdateBOMLine rewrites the quantity of an existing line, preserving its
// server-side identity.
func (c *Client) UpdateBOMLine(ctx context.Context, parentGUID, lineGUID string, quantity int) error {
	path := "/items/" + url.PathEscape(parentGUID) + "/bom/" + url.PathEscape(lineGUID)
	return c.put(ctx, path, map[string]any{"quantity": quantity}, nil)
}

// DeleteBOMLine removes a line from the parent's BOM.
func (c *Client) DeleteBOMLine(ctx context.Context, parentGUID, lineGUID string) error {
	path := "/items/" + url.PathEscape(parentGUID) + "/bom/" + url.PathEscape(lineGUID)
	return c.delete(ctx, path)
}
