// Package loader fetches multi-level BOM trees, either level by level
// over the item API or through the bulk-export fast path.
package loader

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/propstore"
)

// MaxDepth caps tree traversal; deeper structures indicate a cycle the
// visited-set guard missed or garbage data.
const MaxDepth = 10

// DefaultConcurrency bounds parallel BOM fetches within one level.
const DefaultConcurrency = 8

// Node is one item in a loaded BOM tree.
type Node struct {
	GUID     string
	Number   string
	Name     string
	Revision string
	Quantity int
	Level    int
	Children []*Node
}

// Tree is a loaded multi-level BOM.
type Tree struct {
	Root  *Node
	Count int // nodes including the root
}

// Walk visits every node depth-first in child order.
func (t *Tree) Walk(visit func(*Node)) {
	var walk func(*Node)
	walk = func(n *Node) {
		visit(n)
		for _, child := range n.Children {
			walk(child)
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
}

// Loader loads BOM trees.
type Loader struct {
	client      *plm.Client
	store       propstore.Store
	concurrency int
}

// New builds a loader. store is only needed for the export fast path; nil
// disables it.
func New(client *plm.Client, store propstore.Store) *Loader {
	return &Loader{client: client, store: store, concurrency: DefaultConcurrency}
}

// LoadTree fetches the tree under rootGUID breadth-first: all BOMs of one
// level are fetched concurrently before descending. Items already seen
// are not expanded again, so shared subassemblies appear once per parent
// but only fan out once.
func (l *Loader) LoadTree(ctx context.Context, rootGUID string) (*Tree, error) {
	root, err := l.rootNode(ctx, rootGUID)
	if err != nil {
		return nil, err
	}

	tree := &Tree{Root: root, Count: 1}
	visited := map[string]bool{rootGUID: true}
	level := []*Node{root}

	for depth := 1; len(level) > 0; depth++ {
		if depth > MaxDepth {
			logger.Warn("tree deeper than cap, truncating", "depth", depth)
			break
		}

		var mu sync.Mutex
		childLines := make(map[string][]plm.BOMLine, len(level))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.concurrency)
		for _, parent := range level {
			parent := parent
			g.Go(func() error {
				lines, err := l.client.GetBOMLines(gctx, parent.GUID)
				if err != nil {
					return fmt.Errorf("failed to fetch BOM of %s: %w", parent.Number, err)
				}
				mu.Lock()
				childLines[parent.GUID] = lines
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []*Node
		for _, parent := range level {
			for _, line := range childLines[parent.GUID] {
				child := &Node{
					GUID:     line.ItemGUID,
					Number:   line.ItemNumber,
					Revision: line.Revision,
					Quantity: line.Quantity,
					Level:    depth,
				}
				parent.Children = append(parent.Children, child)
				tree.Count++

				// Expand each distinct item once.
				if line.ItemGUID != "" && !visited[line.ItemGUID] {
					visited[line.ItemGUID] = true
					next = append(next, child)
				}
			}
		}
		level = next
	}

	logger.Debug("tree loaded", logger.KeyItemGUID, rootGUID, "nodes", tree.Count)
	return tree, nil
}

// LoadTreeExport loads the tree through the bulk-export fast path and
// falls back to the level-by-level walk when the export fails.
func (l *Loader) LoadTreeExport(ctx context.Context, rootNumber, rootGUID string) (*Tree, error) {
	if l.store == nil {
		return l.LoadTree(ctx, rootGUID)
	}

	payload, err := l.client.RunBOMExport(ctx, l.store, rootNumber, rootGUID)
	if err != nil {
		logger.Warn("bulk export failed, falling back to tree walk",
			logger.KeyItemNumber, rootNumber, logger.KeyError, err)
		return l.LoadTree(ctx, rootGUID)
	}

	tree, err := parseExport(payload, rootGUID)
	if err != nil {
		logger.Warn("export payload unusable, falling back to tree walk",
			logger.KeyItemNumber, rootNumber, logger.KeyError, err)
		return l.LoadTree(ctx, rootGUID)
	}
	return tree, nil
}

func (l *Loader) rootNode(ctx context.Context, rootGUID string) (*Node, error) {
	item, err := l.client.GetItem(ctx, rootGUID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch root item: %w", err)
	}
	return &Node{
		GUID:     item.GUID,
		Number:   item.Number,
		Name:     item.Name,
		Revision: item.Revision,
		Quantity: 1,
	}, nil
}
