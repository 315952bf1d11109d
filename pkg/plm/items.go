package plm

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize is the batch size used by GetAllItems pagination.
const DefaultPageSize = 400

// maxSearchQuery caps the search string sent to the server.
const maxSearchQuery = 200

// wireItem is the raw item payload shape after normalization.
type wireItem struct {
	GUID         string         `json:"guid"`
	Number       string         `json:"number"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Revision     string         `json:"revisionNumber"`
	Category     Category       `json:"category"`
	Lifecycle    LifecyclePhase `json:"lifecyclePhase"`
	AssemblyType string         `json:"assemblyType"`
}

func (w wireItem) toItem(raw map[string]any) Item {
	return Item{
		GUID:         w.GUID,
		Number:       w.Number,
		Name:         w.Name,
		Description:  w.Description,
		Revision:     w.Revision,
		Category:     w.Category,
		Lifecycle:    w.Lifecycle,
		Assembly:     w.AssemblyType != "" && !strings.EqualFold(w.AssemblyType, "none"),
		AssemblyType: w.AssemblyType,
		Raw:          raw,
	}
}

// GetItem fetches one item by its opaque identifier.
func (c *Client) GetItem(ctx context.Context, guid string) (*Item, error) {
	if strings.TrimSpace(guid) == "" {
		return nil, fmt.Errorf("item identifier is empty")
	}

	query := url.Values{"responseview": {"full"}}
	var raw map[string]any
	if err := c.get(ctx, "/items/"+url.PathEscape(guid), query, &raw); err != nil {
		return nil, err
	}

	var wire wireItem
	if err := decodeInto(raw, &wire); err != nil {
		return nil, err
	}
	item := wire.toItem(raw)
	return &item, nil
}

// CreateItem creates an item from the writable record.
func (c *Client) CreateItem(ctx context.Context, record ItemRecord) (*Item, error) {
	body := map[string]any{
		"name": record.Name,
	}
	if record.Number != "" {
		body["number"] = record.Number
	}
	if record.Description != "" {
		body["description"] = record.Description
	}
	if record.CategoryGUID != "" {
		body["category"] = map[string]string{"guid": record.CategoryGUID}
	}
	if record.AssemblyType != "" {
		body["assemblyType"] = record.AssemblyType
	}

	var raw map[string]any
	if err := c.post(ctx, "/items", body, &raw); err != nil {
		return nil, err
	}
	var wire wireItem
	if err := decodeInto(raw, &wire); err != nil {
		return nil, err
	}
	item := wire.toItem(raw)
	return &item, nil
}

// UpdateItem updates an existing item and returns the updated record.
func (c *Client) UpdateItem(ctx context.Context, guid string, record ItemRecord) (*Item, error) {
	if strings.TrimSpace(guid) == "" {
		return nil, fmt.Errorf("item identifier is empty")
	}

	body := map[string]any{}
	if record.Name != "" {
		body["name"] = record.Name
	}
	if record.Description != "" {
		body["description"] = record.Description
	}
	if record.CategoryGUID != "" {
		body["category"] = map[string]string{"guid": record.CategoryGUID}
	}

	var raw map[string]any
	if err := c.put(ctx, "/items/"+url.PathEscape(guid), body, &raw); err != nil {
		return nil, err
	}
	var wire wireItem
	if err := decodeInto(raw, &wire); err != nil {
		return nil, err
	}
	item := wire.toItem(raw)
	return &item, nil
}

// DeleteItem removes an item. Used by rollback only; the sync engine never
// destroys pre-existing PLM items.
func (c *Client) DeleteItem(ctx context.Context, guid string) error {
	if strings.TrimSpace(guid) == "" {
		return fmt.Errorf("item identifier is empty")
	}
	return c.delete(ctx, "/items/"+url.PathEscape(guid))
}

// SearchItems runs a server-side item search. The query is trimmed,
// truncated and URL-encoded.
func (c *Client) SearchItems(ctx context.Context, searchQuery string, limit int) ([]Item, error) {
	searchQuery = strings.TrimSpace(searchQuery)
	if len(searchQuery) > maxSearchQuery {
		searchQuery = searchQuery[:maxSearchQuery]
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	query := url.Values{
		"searchQuery": {searchQuery},
		"limit":       {strconv.Itoa(limit)},
	}
	var raw map[string]any
	if err := c.get(ctx, "/items/searches", query, &raw); err != nil {
		return nil, err
	}
	return decodeItems(raw)
}

// GetItems fetches one page of items. category is optional.
func (c *Client) GetItems(ctx context.Context, limit, offset int, category string) ([]Item, error) {
	query := url.Values{
		"limit":        {strconv.Itoa(limit)},
		"offset":       {strconv.Itoa(offset)},
		"responseview": {"full"},
	}
	if category != "" {
		query.Set("category", category)
	}

	var raw map[string]any
	if err := c.get(ctx, "/items", query, &raw); err != nil {
		return nil, err
	}
	return decodeItems(raw)
}

// GetAllItems iterates pages until a short page is returned, concatenating
// all items in the workspace.
func (c *Client) GetAllItems(ctx context.Context) ([]Item, error) {
	var all []Item
	offset := 0
	for {
		page, err := c.GetItems(ctx, DefaultPageSize, offset, "")
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < DefaultPageSize {
			return all, nil
		}
		offset += DefaultPageSize
	}
}

// SetItemAttribute upserts one additional-attribute value on an item.
func (c *Client) SetItemAttribute(ctx context.Context, guid, attributeGUID, value string) error {
	if strings.TrimSpace(guid) == "" {
		return fmt.Errorf("item identifier is empty")
	}
	body := map[string]any{
		"additionalAttributes": []map[string]string{
			{"guid": attributeGUID, "value": value},
		},
	}
	return c.put(ctx, "/items/"+url.PathEscape(guid), body, nil)
}

// decodeItems unpacks an item collection envelope.
func decodeItems(raw map[string]any) ([]Item, error) {
	wires, err := decodeResults[wireItem](raw)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(wires))
	for _, w := range wires {
		items = append(items, w.toItem(nil))
	}
	return items, nil
}
