package service

import (
	"context"
	"fmt"

	"github.com/grovetools/treenote/pkg/importer"
	"github.com/grovetools/treenote/pkg/tree"
	"github.com/grovetools/treenote/pkg/watch"
)

// ImportNodes copies every node of the document at path under parent, or
// to the top level when parent is nil. Imported nodes always get fresh ids.
func (c *Control) ImportNodes(ctx context.Context, path, password string, parent *tree.Node) ([]*tree.Node, error) {
	src, err := Load(ctx, path, password, c.opts)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	nodes, err := c.tree.Graft(parent, src.Tree())
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	c.logger.WithField("path", path).Infof("Imported %d top level nodes", len(nodes))
	return nodes, nil
}

// ImportMarkdown adds the markdown page at path as a new node.
func (c *Control) ImportMarkdown(_ context.Context, path string, parent *tree.Node) (*tree.Node, error) {
	page, err := importer.ReadFile(c.fs, path)
	if err != nil {
		return nil, err
	}
	n, err := c.tree.AppendNode(parent, page.Props, page.Content)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return n, nil
}

// Watch calls fn whenever another program changes the document file. It
// blocks until ctx is done.
func (c *Control) Watch(ctx context.Context, fn func()) error {
	if c.path == "" {
		return ErrNotInitialized
	}
	return watch.File(ctx, c.path, watch.DefaultDebounce, c.opts.Logger, func() {
		if c.ModifiedExternally() {
			fn()
		}
	})
}
