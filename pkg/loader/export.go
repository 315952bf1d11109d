package loader

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Export payloads arrive in one of two shapes:
//
//   - tagged: every entry carries a numeric level, in depth-first order,
//     so the tree reconstructs from a level stack;
//   - flat: entries reference their parent by id.
//
// Keys are not normalized here; the export bypasses the REST client, so
// lookups fold case instead.

type exportEntry struct {
	guid       string
	number     string
	name       string
	revision   string
	quantity   int
	level      int
	hasLevel   bool
	parentGUID string
}

// parseExport decodes an export payload into a tree rooted at rootGUID.
func parseExport(payload []byte, rootGUID string) (*Tree, error) {
	entries, err := decodeEntries(payload)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("export payload holds no entries")
	}

	if entries[0].hasLevel {
		return buildTagged(entries)
	}
	return buildFlat(entries, rootGUID)
}

func decodeEntries(payload []byte) ([]exportEntry, error) {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("malformed export payload: %w", err)
	}

	rows, ok := doc.([]any)
	if !ok {
		obj, isObj := doc.(map[string]any)
		if !isObj {
			return nil, fmt.Errorf("unexpected export payload shape")
		}
		envelope := fold(obj, "results")
		rows, ok = envelope.([]any)
		if !ok {
			return nil, fmt.Errorf("export payload has no results collection")
		}
	}

	entries := make([]exportEntry, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		e := exportEntry{
			guid:       foldString(obj, "guid"),
			number:     foldString(obj, "number", "itemNumber"),
			name:       foldString(obj, "name"),
			revision:   foldString(obj, "revisionNumber", "revision"),
			quantity:   foldInt(obj, "quantity", 1),
			parentGUID: foldString(obj, "parentGuid", "parentId"),
		}
		if lvl, ok := foldIntOK(obj, "level"); ok {
			e.level = lvl
			e.hasLevel = true
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// buildTagged reconstructs a depth-first, level-annotated listing via a
// stack of the most recent node at each level.
func buildTagged(entries []exportEntry) (*Tree, error) {
	tree := &Tree{}
	stack := map[int]*Node{}

	for _, e := range entries {
		node := &Node{
			GUID:     e.guid,
			Number:   e.number,
			Name:     e.name,
			Revision: e.revision,
			Quantity: e.quantity,
			Level:    e.level,
		}
		if e.level == 0 {
			if tree.Root != nil {
				return nil, fmt.Errorf("export payload has multiple roots")
			}
			tree.Root = node
		} else {
			parent, ok := stack[e.level-1]
			if !ok {
				return nil, fmt.Errorf("entry %s at level %d has no parent", e.number, e.level)
			}
			parent.Children = append(parent.Children, node)
		}
		stack[e.level] = node
		tree.Count++
	}

	if tree.Root == nil {
		return nil, fmt.Errorf("export payload has no root entry")
	}
	return tree, nil
}

// buildFlat resolves parent references. The root is the entry matching
// rootGUID, or the single entry without a parent.
func buildFlat(entries []exportEntry, rootGUID string) (*Tree, error) {
	nodes := make(map[string]*Node, len(entries))
	for _, e := range entries {
		nodes[e.guid] = &Node{
			GUID:     e.guid,
			Number:   e.number,
			Name:     e.name,
			Revision: e.revision,
			Quantity: e.quantity,
		}
	}

	tree := &Tree{}
	for _, e := range entries {
		node := nodes[e.guid]
		if e.guid == rootGUID || (e.parentGUID == "" && tree.Root == nil && rootGUID == "") {
			tree.Root = node
			continue
		}
		parent, ok := nodes[e.parentGUID]
		if !ok {
			if e.parentGUID == "" {
				continue
			}
			return nil, fmt.Errorf("entry %s references unknown parent %s", e.number, e.parentGUID)
		}
		parent.Children = append(parent.Children, node)
	}

	if tree.Root == nil {
		return nil, fmt.Errorf("export payload holds no entry for root %s", rootGUID)
	}

	annotate(tree.Root, 0, &tree.Count)
	return tree, nil
}

func annotate(n *Node, level int, count *int) {
	n.Level = level
	*count++
	for _, child := range n.Children {
		annotate(child, level+1, count)
	}
}

// fold finds a key case-insensitively.
func fold(obj map[string]any, key string) any {
	if v, ok := obj[key]; ok {
		return v
	}
	for k, v := range obj {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func foldString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := fold(obj, key).(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func foldInt(obj map[string]any, key string, fallback int) int {
	if v, ok := foldIntOK(obj, key); ok {
		return v
	}
	return fallback
}

func foldIntOK(obj map[string]any, key string) (int, bool) {
	switch v := fold(obj, key).(type) {
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
	}
	return 0, false
}
