package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovetools/treenote/cmd/config"
	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/recent"
	"github.com/grovetools/treenote/pkg/service"
	"github.com/grovetools/treenote/pkg/tree"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openDocument loads the document at path with the process options.
func openDocument(cmd *cobra.Command, opts *service.Options, path string) (*service.Control, error) {
	ctrl, err := service.Load(commandContext(cmd), path, config.DocumentPassword(), *opts)
	if err != nil {
		if errors.Is(err, service.ErrCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	rememberDocument(opts, ctrl, 0)
	return ctrl, nil
}

// rememberDocument puts the document on the recent list. Failures only
// get logged.
func rememberDocument(opts *service.Options, ctrl *service.Control, node models.NodeID) {
	reg, err := config.OpenRecent()
	if err == nil && reg != nil {
		defer reg.Close()
		err = reg.Touch(&recent.Document{
			Path:      abs(ctrl.Path()),
			Format:    ctrl.DocType().String(),
			Encrypted: ctrl.Encrypted(),
			LastNode:  node,
		})
	}
	if err != nil && opts.Logger != nil {
		opts.Logger.WithError(err).Debug("Failed to update recent documents")
	}
}

// editDocument loads path, runs fn on its tree and saves the changes.
func editDocument(cmd *cobra.Command, opts *service.Options, path string, fn func(ctrl *service.Control) error) error {
	ctrl, err := openDocument(cmd, opts, path)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := fn(ctrl); err != nil {
		return err
	}
	if ctrl.Tree().Ledger().IsEmpty() {
		return nil
	}
	if err := ctrl.Save(commandContext(cmd), false); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// resolveNode finds a node by numeric id or, failing that, by its unique
// case-insensitive name.
func resolveNode(t *tree.Tree, ref string) (*tree.Node, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return t.MustGet(models.NodeID(id))
	}
	matches := t.FindByName(ref)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("node %q: %w", ref, tree.ErrNodeNotFound)
	case 1:
		return matches[0], nil
	}
	ids := make([]string, len(matches))
	for i, n := range matches {
		ids[i] = strconv.FormatInt(int64(n.ID()), 10)
	}
	return nil, fmt.Errorf("node name %q is ambiguous, use one of the ids %s", ref, strings.Join(ids, ", "))
}

// resolveParent is resolveNode where an empty reference means the top level.
func resolveParent(t *tree.Tree, ref string) (*tree.Node, error) {
	if ref == "" {
		return nil, nil
	}
	return resolveNode(t, ref)
}

// newPassword returns the password for a new encrypted document, asking
// for it when none was given.
func newPassword(cmd *cobra.Command, opts *service.Options, path string) (string, error) {
	if _, encrypted := models.DocTypeFromPath(path); !encrypted {
		return "", nil
	}
	if pw := config.DocumentPassword(); pw != "" {
		return pw, nil
	}
	if opts.Prompter == nil {
		return "", service.ErrPasswordRequired
	}
	return opts.Prompter.Password(commandContext(cmd), path, false)
}
